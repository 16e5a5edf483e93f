package model

import "time"

// ReportExport is the top-level JSON structure for result export.
type ReportExport struct {
	BatchID     string            `json:"batch_id"`
	Institution string            `json:"institution"`
	Date        string            `json:"date"`
	NumReports  int               `json:"num_reports"`
	Results     []CandidateResult `json:"results"`
}

// CandidateResult holds one candidate's assessment data for export.
type CandidateResult struct {
	ExternalID      string            `json:"external_id"`
	DisplayName     string            `json:"display_name"`
	Mode            AssessmentMode    `json:"mode"`
	Track           Track             `json:"track,omitempty"`
	RawScore        float64           `json:"raw_score"`
	FinalScore      float64           `json:"final_score"`
	CorrectAnswers  int               `json:"correct_answers"`
	ElapsedSeconds  float64           `json:"elapsed_seconds"`
	ProctorWarnings int               `json:"proctor_warnings"`
	Narrative       *NarrativeSummary `json:"narrative,omitempty"`
	CompletedAt     time.Time         `json:"completed_at"`
}

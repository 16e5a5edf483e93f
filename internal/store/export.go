package store

import (
	"fmt"

	"github.com/peop360/beyonders/internal/model"
)

// ExportAllReports builds export-ready candidate results from all stored
// reports.
func (s *Store) ExportAllReports() ([]model.CandidateResult, error) {
	reports, err := s.ListReports()
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	var results []model.CandidateResult
	for _, r := range reports {
		user, err := s.GetUserByID(r.CandidateID)
		if err != nil {
			return nil, fmt.Errorf("get user %d: %w", r.CandidateID, err)
		}

		var username, displayName string
		if user != nil {
			username = user.Username
			displayName = user.DisplayName
		}

		results = append(results, model.CandidateResult{
			ExternalID:      username,
			DisplayName:     displayName,
			Mode:            r.Mode,
			Track:           r.Track,
			RawScore:        r.RawScore,
			FinalScore:      r.FinalScore,
			CorrectAnswers:  r.CorrectAnswers,
			ElapsedSeconds:  r.ElapsedSeconds,
			ProctorWarnings: r.ProctorWarnings,
			Narrative:       r.Narrative,
			CompletedAt:     r.CreatedAt,
		})
	}

	return results, nil
}

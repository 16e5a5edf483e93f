package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleCandidate is an assessment candidate.
	UserRoleCandidate UserRole = "candidate"
	// UserRoleAdmin is an administrator.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user. Candidates authenticate with a
// bcrypt-hashed access code instead of a password.
type User struct {
	ID          int64
	Username    string
	DisplayName string
	CodeHash    string
	Role        UserRole
	Active      bool
	CreatedAt   time.Time
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// Track is the subject grouping a candidate is assessed on.
type Track string

const (
	TrackScience    Track = "SCIENCE"
	TrackNonScience Track = "NON_SCIENCE"
)

// Valid reports whether the track is a known subject grouping.
func (t Track) Valid() bool {
	return t == TrackScience || t == TrackNonScience
}

// QuestionKind distinguishes knowledge questions from behavioral ones.
type QuestionKind string

const (
	KindDomain     QuestionKind = "DOMAIN"
	KindBehavioral QuestionKind = "BEHAVIORAL"
)

// Difficulty represents a question difficulty tier. The tiers form a
// closed lattice EASY < MEDIUM < HARD with no wraparound.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// Multiplier returns the score multiplier for the difficulty tier.
func (d Difficulty) Multiplier() float64 {
	switch d {
	case DifficultyMedium:
		return 1.5
	case DifficultyHard:
		return 2.0
	default:
		return 1.0
	}
}

// Next returns the next harder tier, or "" at the ceiling.
func (d Difficulty) Next() Difficulty {
	switch d {
	case DifficultyEasy:
		return DifficultyMedium
	case DifficultyMedium:
		return DifficultyHard
	}
	return ""
}

// Previous returns the next easier tier, or "" at the floor.
func (d Difficulty) Previous() Difficulty {
	switch d {
	case DifficultyHard:
		return DifficultyMedium
	case DifficultyMedium:
		return DifficultyEasy
	}
	return ""
}

// Valid reports whether the difficulty is one of the three tiers.
func (d Difficulty) Valid() bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

// Question represents a multiple-choice catalog item. Immutable once loaded.
type Question struct {
	ID            int          `json:"id"`
	Text          string       `json:"text"`
	Options       []string     `json:"options"`
	CorrectOption string       `json:"answer"`
	Kind          QuestionKind `json:"kind"`
	Difficulty    Difficulty   `json:"difficulty"`
	Track         Track        `json:"track"`
}

// TATCard is a narrative story prompt. Cards carry descriptive metadata
// only; they never influence scoring.
type TATCard struct {
	ID          int      `json:"card_id"`
	Set         string   `json:"set"`
	ImagePath   string   `json:"image_path"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// AnswerRecord captures one answered MCQ. Immutable once created.
type AnswerRecord struct {
	Question     Question   `json:"question"`
	Selected     string     `json:"selected"`
	IsCorrect    bool       `json:"is_correct"`
	Difficulty   Difficulty `json:"difficulty"`
	PointsEarned float64    `json:"points_earned"`
}

// NPPDimensions lists the ten fixed NPP-30 scoring axes, in report order.
var NPPDimensions = []string{
	"emotional_insight",
	"motivational_drivers",
	"conflict_complexity",
	"problem_solving",
	"interpersonal_understanding",
	"self_other_differentiation",
	"hope_helpless_index",
	"agency_expression",
	"moral_reasoning",
	"resilience",
}

// NPPScores maps each NPP dimension to an integer score in [0,5].
type NPPScores map[string]int

// StoryAnalysis holds the externally computed analysis of one story.
// NPP is nil when the whole analysis pipeline failed.
type StoryAnalysis struct {
	Themes          []string  `json:"themes"`
	Emotions        []string  `json:"emotions"`
	Conflicts       []string  `json:"conflicts"`
	ResolutionStyle string    `json:"resolution_style"`
	Tone            string    `json:"tone"`
	NPP             NPPScores `json:"npp_scores,omitempty"`
}

// NeutralAnalysis is substituted when theme extraction fails.
func NeutralAnalysis() StoryAnalysis {
	return StoryAnalysis{
		Themes:          []string{},
		Emotions:        []string{},
		Conflicts:       []string{},
		ResolutionStyle: "neutral",
		Tone:            "neutral",
	}
}

// DefaultNPPScores is the documented neutral mapping substituted when
// NPP scoring fails but theme extraction succeeded.
func DefaultNPPScores() NPPScores {
	return NPPScores{
		"emotional_insight":           2,
		"motivational_drivers":        2,
		"conflict_complexity":         2,
		"problem_solving":             2,
		"interpersonal_understanding": 2,
		"self_other_differentiation":  2,
		"hope_helpless_index":         3,
		"agency_expression":           2,
		"moral_reasoning":             3,
		"resilience":                  3,
	}
}

// StoryRecord captures one submitted narrative. Immutable once created.
type StoryRecord struct {
	CardID           int           `json:"card_id"`
	Story            string        `json:"story"`
	TimeSpentSeconds float64       `json:"time_spent_seconds"`
	Analysis         StoryAnalysis `json:"analysis"`
}

// ThemeCount is one entry in a theme frequency ranking.
type ThemeCount struct {
	Theme string `json:"theme"`
	Count int    `json:"count"`
}

// NarrativeSummary aggregates a completed narrative session.
type NarrativeSummary struct {
	StoryCount        int                `json:"story_count"`
	DimensionAverages map[string]float64 `json:"dimension_averages"`
	TopThemes         []ThemeCount       `json:"top_themes"`
	TotalTimeSeconds  float64            `json:"total_time_seconds"`
	OverallPercent    int                `json:"overall_percent"`
}

// AssessmentMode distinguishes the combined MCQ+narrative flow from the
// MCQ-only and standalone-narrative flows.
type AssessmentMode string

const (
	ModeFull          AssessmentMode = "FULL"
	ModeMCQOnly       AssessmentMode = "MCQ_ONLY"
	ModeNarrativeOnly AssessmentMode = "TAT"
)

// FinalReport is the immutable snapshot assembled once per completed
// assessment.
type FinalReport struct {
	ID                int64             `json:"id,omitempty"`
	CandidateID       int64             `json:"candidate_id,omitempty"`
	Mode              AssessmentMode    `json:"mode"`
	Track             Track             `json:"track,omitempty"`
	InitialDifficulty Difficulty        `json:"initial_difficulty,omitempty"`
	RawScore          float64           `json:"raw_score"`
	FinalScore        float64           `json:"final_score"`
	TimeFactor        float64           `json:"time_factor"`
	ElapsedSeconds    float64           `json:"elapsed_seconds"`
	CorrectAnswers    int               `json:"correct_answers"`
	ProctorWarnings   int               `json:"proctor_warnings"`
	Answers           []AnswerRecord    `json:"answers,omitempty"`
	Stories           []StoryRecord     `json:"stories,omitempty"`
	Narrative         *NarrativeSummary `json:"narrative,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
}

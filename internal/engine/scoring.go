package engine

import "github.com/peop360/beyonders/internal/model"

const (
	// BasePoints is the score for a correct answer before the difficulty
	// multiplier is applied.
	BasePoints = 100.0

	// IdealSecondsPerQuestion is the pace against which the time factor
	// is computed.
	IdealSecondsPerQuestion = 10.0

	// NarrativeCompletionBonus is added to the raw MCQ score when the
	// narrative phase was fully submitted as part of a combined session.
	NarrativeCompletionBonus = 200.0
)

// PointsForAnswer returns the points earned for one answer. Wrong answers
// earn exactly zero.
func PointsForAnswer(correct bool, d model.Difficulty) float64 {
	if !correct {
		return 0
	}
	return BasePoints * d.Multiplier()
}

// TimeFactor returns the pace bonus factor in [0,1]. Finishing at or under
// the ideal pace earns the full factor; the factor decays linearly and
// floors at zero for slow completion, never going negative.
func TimeFactor(elapsedSeconds float64, questionCount int) float64 {
	ideal := float64(questionCount) * IdealSecondsPerQuestion
	f := 1 - (elapsedSeconds-ideal)/(ideal*2)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// FinalMCQScore blends the cumulative raw score with the pace bonus for an
// MCQ-only session.
func FinalMCQScore(cumulative, elapsedSeconds float64, questionCount int) (final, factor float64) {
	factor = TimeFactor(elapsedSeconds, questionCount)
	return cumulative * (1 + factor), factor
}

// CombinedFinalScore blends the cumulative MCQ score and the narrative
// completion bonus with the pace bonus computed over the whole assessment.
// The bonus is awarded only for a fully submitted narrative phase; callers
// must not invoke this for partial attempts.
func CombinedFinalScore(mcqCumulative, totalElapsedSeconds float64, mcqQuestionCount int) (final, factor float64) {
	factor = TimeFactor(totalElapsedSeconds, mcqQuestionCount)
	return (mcqCumulative + NarrativeCompletionBonus) * (1 + factor), factor
}

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/peop360/beyonders/internal/model"
)

// Defaults for a standard assessment.
const (
	DefaultMCQCount  = 30
	DefaultCardCount = 3

	// MinStoryLength is the minimum story length accepted on submit,
	// in characters after trimming surrounding whitespace.
	MinStoryLength = 50

	// PromptTimeLimit is the countdown per narrative prompt. The engine
	// does not run the timer itself; the host feeds expiry events in.
	PromptTimeLimit = 7 * time.Minute

	// HintFallback is returned when hint generation fails.
	HintFallback = "Unable to generate hint at this time. Please proceed with your best knowledge."
)

// State is the orchestrator's lifecycle state.
type State string

const (
	StateNotStarted          State = "NOT_STARTED"
	StateMCQInProgress       State = "MCQ_IN_PROGRESS"
	StateMCQComplete         State = "MCQ_COMPLETE"
	StateNarrativeInProgress State = "NARRATIVE_IN_PROGRESS"
	StateNarrativeComplete   State = "NARRATIVE_COMPLETE"
	StateFinalized           State = "FINALIZED"
)

// Bank selects catalog items for a session.
type Bank interface {
	SelectQuestions(track model.Track, count int) ([]model.Question, error)
	SelectCards(count int) ([]model.TATCard, error)
}

// Analyzer is the external collaborator contract for story analysis, NPP
// scoring and hint generation. Failures are never fatal to a session; the
// orchestrator substitutes documented defaults.
type Analyzer interface {
	AnalyzeStory(ctx context.Context, story string, card model.TATCard) (model.StoryAnalysis, error)
	ScoreNPP(ctx context.Context, story string, card model.TATCard) (model.NPPScores, error)
	Hint(ctx context.Context, q model.Question) (string, error)
}

// Config holds per-assessment parameters.
type Config struct {
	MCQCount       int
	CardCount      int
	MinStoryLength int

	// MCQOnly keeps the session in MCQ_COMPLETE after the last answer
	// instead of starting the narrative phase automatically.
	MCQOnly bool
}

func (c Config) withDefaults() Config {
	if c.MCQCount <= 0 {
		c.MCQCount = DefaultMCQCount
	}
	if c.CardCount <= 0 {
		c.CardCount = DefaultCardCount
	}
	if c.MinStoryLength <= 0 {
		c.MinStoryLength = MinStoryLength
	}
	return c
}

// AnswerOutcome reports the effect of one submitted answer.
type AnswerOutcome struct {
	IsCorrect         bool             `json:"is_correct"`
	PointsEarned      float64          `json:"points_earned"`
	Difficulty        model.Difficulty `json:"difficulty"`
	Streak            int              `json:"streak"`
	MCQComplete       bool             `json:"mcq_complete"`
	NarrativeStarted  bool             `json:"narrative_started"`
	CumulativeScore   float64          `json:"cumulative_score"`
	QuestionsAnswered int              `json:"questions_answered"`
}

// StoryOutcome reports the effect of one submitted story.
type StoryOutcome struct {
	Record            model.StoryRecord `json:"record"`
	NarrativeComplete bool              `json:"narrative_complete"`
	StoriesSubmitted  int               `json:"stories_submitted"`
}

// Assessment owns one candidate's session through both phases. It is not
// safe for concurrent use; callers behind concurrent requests must
// serialize access per session.
type Assessment struct {
	cfg      Config
	bank     Bank
	analyzer Analyzer
	now      func() time.Time

	state             State
	mode              model.AssessmentMode
	track             model.Track
	initialDifficulty model.Difficulty

	questions         []model.Question
	currentIndex      int
	currentDifficulty model.Difficulty
	streak            int
	cumulativeScore   float64
	startedAt         time.Time
	answers           []model.AnswerRecord

	cards              []model.TATCard
	cardIndex          int
	narrativeStartedAt time.Time
	promptStartedAt    time.Time
	agg                Aggregator

	proctor ProctorCounter
	report  *model.FinalReport
}

// Option customizes an Assessment.
type Option func(*Assessment)

// WithClock injects a time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Assessment) { a.now = now }
}

// New creates an assessment in NOT_STARTED.
func New(bank Bank, analyzer Analyzer, cfg Config, opts ...Option) *Assessment {
	a := &Assessment{
		cfg:      cfg.withDefaults(),
		bank:     bank,
		analyzer: analyzer,
		now:      time.Now,
		state:    StateNotStarted,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// State returns the current lifecycle state.
func (a *Assessment) State() State { return a.state }

// Mode returns the assessment mode, set on start.
func (a *Assessment) Mode() model.AssessmentMode { return a.mode }

// RecordFocusLoss counts one focus-loss event from the host environment.
func (a *Assessment) RecordFocusLoss() { a.proctor.Increment() }

// ProctorWarnings returns the focus-loss count.
func (a *Assessment) ProctorWarnings() int { return a.proctor.Warnings() }

// CumulativeScore returns the running MCQ score.
func (a *Assessment) CumulativeScore() float64 { return a.cumulativeScore }

// CurrentDifficulty returns the live difficulty tier.
func (a *Assessment) CurrentDifficulty() model.Difficulty { return a.currentDifficulty }

// Streak returns the current consecutive-correct count.
func (a *Assessment) Streak() int { return a.streak }

// QuestionsAnswered returns the number of recorded answers.
func (a *Assessment) QuestionsAnswered() int { return a.currentIndex }

// QuestionCount returns the MCQ quota for this session.
func (a *Assessment) QuestionCount() int { return len(a.questions) }

// StartMCQ allocates the MCQ session and, unless the assessment is
// MCQ-only, pre-selects the narrative cards so the automatic phase
// transition cannot fail mid-session. The proctor counter resets.
func (a *Assessment) StartMCQ(track model.Track, initial model.Difficulty) error {
	if a.state != StateNotStarted {
		return fmt.Errorf("start mcq in state %s: %w", a.state, ErrInvalidStateTransition)
	}
	if !track.Valid() {
		return fmt.Errorf("unknown track %q: %w", track, ErrValidation)
	}
	if !initial.Valid() {
		return fmt.Errorf("unknown difficulty %q: %w", initial, ErrValidation)
	}

	questions, err := a.bank.SelectQuestions(track, a.cfg.MCQCount)
	if err != nil {
		return err
	}
	var cards []model.TATCard
	if !a.cfg.MCQOnly {
		cards, err = a.bank.SelectCards(a.cfg.CardCount)
		if err != nil {
			return err
		}
	}

	a.mode = model.ModeFull
	if a.cfg.MCQOnly {
		a.mode = model.ModeMCQOnly
	}
	a.track = track
	a.initialDifficulty = initial
	a.currentDifficulty = initial
	a.questions = questions
	a.cards = cards
	a.startedAt = a.now()
	a.proctor.reset()
	a.state = StateMCQInProgress
	slog.Info("mcq session started",
		"track", track, "difficulty", initial, "questions", len(questions), "mode", a.mode)
	return nil
}

// StartNarrative begins a standalone narrative session with no MCQ phase.
func (a *Assessment) StartNarrative() error {
	if a.state != StateNotStarted {
		return fmt.Errorf("start narrative in state %s: %w", a.state, ErrInvalidStateTransition)
	}
	cards, err := a.bank.SelectCards(a.cfg.CardCount)
	if err != nil {
		return err
	}
	a.mode = model.ModeNarrativeOnly
	a.cards = cards
	a.narrativeStartedAt = a.now()
	a.promptStartedAt = a.narrativeStartedAt
	a.proctor.reset()
	a.state = StateNarrativeInProgress
	slog.Info("standalone narrative session started", "cards", len(cards))
	return nil
}

// CurrentQuestion returns the question awaiting an answer.
func (a *Assessment) CurrentQuestion() (model.Question, error) {
	if a.state != StateMCQInProgress {
		return model.Question{}, fmt.Errorf("current question in state %s: %w", a.state, ErrInvalidStateTransition)
	}
	return a.questions[a.currentIndex], nil
}

// SubmitAnswer records an answer to the current question, runs the
// difficulty transition and, when the quota is reached, either completes
// the MCQ phase or rolls straight into the narrative phase.
func (a *Assessment) SubmitAnswer(selected string) (*AnswerOutcome, error) {
	if a.state != StateMCQInProgress {
		return nil, fmt.Errorf("submit answer in state %s: %w", a.state, ErrInvalidStateTransition)
	}

	q := a.questions[a.currentIndex]
	correct := selected == q.CorrectOption
	points := PointsForAnswer(correct, a.currentDifficulty)

	a.answers = append(a.answers, model.AnswerRecord{
		Question:     q,
		Selected:     selected,
		IsCorrect:    correct,
		Difficulty:   a.currentDifficulty,
		PointsEarned: points,
	})
	a.cumulativeScore += points
	a.currentIndex++
	a.currentDifficulty, a.streak = Transition(a.currentDifficulty, a.streak, correct)

	out := &AnswerOutcome{
		IsCorrect:         correct,
		PointsEarned:      points,
		Difficulty:        a.currentDifficulty,
		Streak:            a.streak,
		CumulativeScore:   a.cumulativeScore,
		QuestionsAnswered: a.currentIndex,
	}

	if a.currentIndex == len(a.questions) {
		out.MCQComplete = true
		a.state = StateMCQComplete
		slog.Info("mcq phase complete", "score", a.cumulativeScore, "correct", a.correctCount())
		if !a.cfg.MCQOnly {
			a.narrativeStartedAt = a.now()
			a.promptStartedAt = a.narrativeStartedAt
			a.state = StateNarrativeInProgress
			out.NarrativeStarted = true
		}
	}
	return out, nil
}

// Hint asks the collaborator for conceptual guidance on the current
// question. Hints exist for domain questions only; generation failures
// fall back to a static string.
func (a *Assessment) Hint(ctx context.Context) (string, error) {
	q, err := a.CurrentQuestion()
	if err != nil {
		return "", err
	}
	if q.Kind != model.KindDomain {
		return "", fmt.Errorf("hints are not available for behavioral questions: %w", ErrValidation)
	}
	hint, err := a.analyzer.Hint(ctx, q)
	if err != nil {
		slog.Warn("hint generation failed", "question_id", q.ID, "error", err)
		return HintFallback, nil
	}
	return hint, nil
}

// CurrentCard returns the prompt awaiting a story.
func (a *Assessment) CurrentCard() (model.TATCard, error) {
	if a.state != StateNarrativeInProgress {
		return model.TATCard{}, fmt.Errorf("current card in state %s: %w", a.state, ErrInvalidStateTransition)
	}
	return a.cards[a.cardIndex], nil
}

// SubmitStory validates, analyzes and records a story for the current
// prompt. Analysis failures are swallowed with documented substitutes and
// never fail the submission.
func (a *Assessment) SubmitStory(ctx context.Context, story string) (*StoryOutcome, error) {
	if a.state != StateNarrativeInProgress {
		return nil, fmt.Errorf("submit story in state %s: %w", a.state, ErrInvalidStateTransition)
	}
	if storyLength(story) < a.cfg.MinStoryLength {
		return nil, fmt.Errorf("story must be at least %d characters: %w", a.cfg.MinStoryLength, ErrValidation)
	}
	return a.recordStory(ctx, story)
}

// ExpirePrompt handles the countdown expiry for the current prompt. The
// draft is auto-submitted when it meets the minimum length; otherwise the
// expiry is a no-op and the candidate may keep writing.
func (a *Assessment) ExpirePrompt(ctx context.Context, draft string) (*StoryOutcome, error) {
	if a.state != StateNarrativeInProgress {
		return nil, fmt.Errorf("expire prompt in state %s: %w", a.state, ErrInvalidStateTransition)
	}
	if storyLength(draft) < a.cfg.MinStoryLength {
		return nil, nil
	}
	return a.recordStory(ctx, draft)
}

func (a *Assessment) recordStory(ctx context.Context, story string) (*StoryOutcome, error) {
	card := a.cards[a.cardIndex]

	analysis, themesErr := a.analyzer.AnalyzeStory(ctx, story, card)
	if themesErr != nil {
		slog.Warn("story analysis failed, substituting neutral analysis",
			"card_id", card.ID, "error", themesErr)
		analysis = model.NeutralAnalysis()
	}
	npp, nppErr := a.analyzer.ScoreNPP(ctx, story, card)
	switch {
	case nppErr == nil:
		analysis.NPP = npp
	case themesErr != nil:
		// Whole pipeline failed; store the record without a profile.
		analysis.NPP = nil
		slog.Warn("npp scoring failed after analysis failure, profile omitted",
			"card_id", card.ID, "error", nppErr)
	default:
		analysis.NPP = model.DefaultNPPScores()
		slog.Warn("npp scoring failed, substituting neutral profile",
			"card_id", card.ID, "error", nppErr)
	}

	rec := model.StoryRecord{
		CardID:           card.ID,
		Story:            story,
		TimeSpentSeconds: a.now().Sub(a.promptStartedAt).Seconds(),
		Analysis:         analysis,
	}
	a.agg.AddStory(rec)
	a.cardIndex++
	a.promptStartedAt = a.now()

	out := &StoryOutcome{Record: rec, StoriesSubmitted: a.cardIndex}
	if a.cardIndex == len(a.cards) {
		a.state = StateNarrativeComplete
		out.NarrativeComplete = true
		slog.Info("narrative phase complete", "stories", a.cardIndex)
	}
	return out, nil
}

// SubmitMCQ produces the final report for an MCQ-only session.
func (a *Assessment) SubmitMCQ() (*model.FinalReport, error) {
	if a.state != StateMCQComplete {
		return nil, fmt.Errorf("submit mcq in state %s: %w", a.state, ErrInvalidStateTransition)
	}
	return a.Finalize()
}

// Finalize assembles the immutable final report. Valid in MCQ_COMPLETE
// (MCQ-only) or NARRATIVE_COMPLETE; a second call returns
// ErrInvalidStateTransition while the first report stays readable via
// Report.
func (a *Assessment) Finalize() (*model.FinalReport, error) {
	switch a.state {
	case StateMCQComplete, StateNarrativeComplete:
	default:
		return nil, fmt.Errorf("finalize in state %s: %w", a.state, ErrInvalidStateTransition)
	}

	now := a.now()
	report := model.FinalReport{
		Mode:              a.mode,
		Track:             a.track,
		InitialDifficulty: a.initialDifficulty,
		RawScore:          a.cumulativeScore,
		CorrectAnswers:    a.correctCount(),
		ProctorWarnings:   a.proctor.Warnings(),
		Answers:           a.answers,
		CreatedAt:         now,
	}

	switch a.mode {
	case model.ModeMCQOnly:
		report.ElapsedSeconds = now.Sub(a.startedAt).Seconds()
		report.FinalScore, report.TimeFactor = FinalMCQScore(
			a.cumulativeScore, report.ElapsedSeconds, len(a.questions))
	case model.ModeFull:
		report.ElapsedSeconds = now.Sub(a.startedAt).Seconds()
		report.FinalScore, report.TimeFactor = CombinedFinalScore(
			a.cumulativeScore, report.ElapsedSeconds, len(a.questions))
		summary := a.agg.Summarize()
		report.Narrative = &summary
		report.Stories = a.agg.Stories()
	case model.ModeNarrativeOnly:
		report.ElapsedSeconds = now.Sub(a.narrativeStartedAt).Seconds()
		summary := a.agg.Summarize()
		report.Narrative = &summary
		report.Stories = a.agg.Stories()
	}

	a.report = &report
	a.state = StateFinalized
	slog.Info("assessment finalized",
		"mode", a.mode, "final_score", report.FinalScore, "proctor_warnings", report.ProctorWarnings)
	return &report, nil
}

// Report returns the finalized report, or nil before finalization.
func (a *Assessment) Report() *model.FinalReport { return a.report }

// storyLength counts characters after trimming surrounding whitespace, so
// padding cannot satisfy the minimum and multibyte scripts count per
// character rather than per byte.
func storyLength(story string) int {
	return utf8.RuneCountInString(strings.TrimSpace(story))
}

func (a *Assessment) correctCount() int {
	n := 0
	for _, rec := range a.answers {
		if rec.IsCorrect {
			n++
		}
	}
	return n
}

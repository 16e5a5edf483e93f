package handler

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/peop360/beyonders/internal/bank"
	"github.com/peop360/beyonders/internal/engine"
	appI18n "github.com/peop360/beyonders/internal/i18n"
	"github.com/peop360/beyonders/internal/model"
	"github.com/peop360/beyonders/internal/store"
)

// Config holds runtime parameters set via CLI flags.
type Config struct {
	MCQCount       int
	CardCount      int
	MinStoryLength int
	SecureCookies  bool
	AllowedOrigins []string
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	bank     *bank.Bank
	analyzer engine.Analyzer
	config   Config

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

// sessionEntry pairs an assessment with its lock. The engine provides no
// internal locking, so every request for a session takes this lock first.
type sessionEntry struct {
	mu          sync.Mutex
	assessment  *engine.Assessment
	candidateID int64
}

// New creates a new Handler.
func New(s *store.Store, b *bank.Bank, a engine.Analyzer, cfg Config) *Handler {
	return &Handler{
		store:    s,
		bank:     b,
		analyzer: a,
		config:   cfg,
		sessions: make(map[string]*sessionEntry),
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/login", h.handleLogin)
	r.Post("/api/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Post("/api/assessments", h.handleStartAssessment)
		r.Get("/api/assessments/{sessionID}", h.handleAssessmentStatus)
		r.Get("/api/assessments/{sessionID}/question", h.handleCurrentQuestion)
		r.Post("/api/assessments/{sessionID}/answers", h.handleSubmitAnswer)
		r.Get("/api/assessments/{sessionID}/hint", h.handleHint)
		r.Get("/api/assessments/{sessionID}/card", h.handleCurrentCard)
		r.Post("/api/assessments/{sessionID}/stories", h.handleSubmitStory)
		r.Post("/api/assessments/{sessionID}/tick", h.handleTick)
		r.Post("/api/assessments/{sessionID}/focus-loss", h.handleFocusLoss)
		r.Post("/api/assessments/{sessionID}/submit", h.handleSubmitAssessment)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Use(requireRole(model.UserRoleAdmin))

		r.Get("/api/admin/reports", h.handleListReports)
		r.Get("/api/admin/reports/{reportID}", h.handleGetReport)
		r.Get("/api/admin/users", h.handleListUsers)
		r.Post("/api/admin/users", h.handleCreateUser)
		r.Post("/api/admin/users/{userID}/toggle", h.handleToggleUser)
	})
}

type startRequest struct {
	Track             model.Track      `json:"track"`
	InitialDifficulty model.Difficulty `json:"initial_difficulty"`
	Mode              string           `json:"mode"`
}

type startResponse struct {
	SessionID string         `json:"session_id"`
	State     engine.State   `json:"state"`
	Question  *questionView  `json:"question,omitempty"`
	Card      *model.TATCard `json:"card,omitempty"`
}

// questionView is a question stripped of its correct option.
type questionView struct {
	ID         int                `json:"id"`
	Text       string             `json:"text"`
	Options    []string           `json:"options"`
	Kind       model.QuestionKind `json:"kind"`
	Difficulty model.Difficulty   `json:"difficulty"`
	Number     int                `json:"number"`
	Total      int                `json:"total"`
}

func (h *Handler) handleStartAssessment(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg := engine.Config{
		MCQCount:       h.config.MCQCount,
		CardCount:      h.config.CardCount,
		MinStoryLength: h.config.MinStoryLength,
		MCQOnly:        req.Mode == string(model.ModeMCQOnly),
	}
	a := engine.New(h.bank, h.analyzer, cfg)

	var err error
	if req.Mode == string(model.ModeNarrativeOnly) {
		err = a.StartNarrative()
	} else {
		err = a.StartMCQ(req.Track, req.InitialDifficulty)
	}
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	sessionID, err := newSessionID()
	if err != nil {
		slog.Error("failed to generate session ID", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	var candidateID int64
	if user := model.UserFromContext(r.Context()); user != nil {
		candidateID = user.ID
	}
	h.mu.Lock()
	h.sessions[sessionID] = &sessionEntry{assessment: a, candidateID: candidateID}
	h.mu.Unlock()

	resp := startResponse{SessionID: sessionID, State: a.State()}
	if q, err := a.CurrentQuestion(); err == nil {
		resp.Question = h.questionView(a, q)
	}
	if c, err := a.CurrentCard(); err == nil {
		resp.Card = &c
	}
	writeJSON(w, http.StatusCreated, resp)
}

type statusResponse struct {
	State             engine.State         `json:"state"`
	Mode              model.AssessmentMode `json:"mode"`
	QuestionsAnswered int                  `json:"questions_answered"`
	QuestionCount     int                  `json:"question_count"`
	CumulativeScore   float64              `json:"cumulative_score"`
	Difficulty        model.Difficulty     `json:"difficulty,omitempty"`
	Streak            int                  `json:"streak"`
	ProctorWarnings   int                  `json:"proctor_warnings"`
}

func (h *Handler) handleAssessmentStatus(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.session(w, r)
	if !ok {
		return
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	a := entry.assessment
	writeJSON(w, http.StatusOK, statusResponse{
		State:             a.State(),
		Mode:              a.Mode(),
		QuestionsAnswered: a.QuestionsAnswered(),
		QuestionCount:     a.QuestionCount(),
		CumulativeScore:   a.CumulativeScore(),
		Difficulty:        a.CurrentDifficulty(),
		Streak:            a.Streak(),
		ProctorWarnings:   a.ProctorWarnings(),
	})
}

func (h *Handler) handleCurrentQuestion(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.session(w, r)
	if !ok {
		return
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	q, err := entry.assessment.CurrentQuestion()
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.questionView(entry.assessment, q))
}

type answerRequest struct {
	Selected string `json:"selected"`
}

type answerResponse struct {
	Outcome  *engine.AnswerOutcome `json:"outcome"`
	State    engine.State          `json:"state"`
	Question *questionView         `json:"question,omitempty"`
	Card     *model.TATCard        `json:"card,omitempty"`
}

func (h *Handler) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.session(w, r)
	if !ok {
		return
	}
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Selected == "" {
		writeError(w, http.StatusBadRequest, appI18n.T(r.Context(), "AnswerRequired"))
		return
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	a := entry.assessment
	outcome, err := a.SubmitAnswer(req.Selected)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	resp := answerResponse{Outcome: outcome, State: a.State()}
	if q, err := a.CurrentQuestion(); err == nil {
		resp.Question = h.questionView(a, q)
	}
	if c, err := a.CurrentCard(); err == nil {
		resp.Card = &c
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleHint(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.session(w, r)
	if !ok {
		return
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	hint, err := entry.assessment.Hint(r.Context())
	if err != nil {
		if errors.Is(err, engine.ErrValidation) {
			writeError(w, http.StatusBadRequest, appI18n.T(r.Context(), "HintNotAvailable"))
			return
		}
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"hint": hint})
}

func (h *Handler) handleCurrentCard(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.session(w, r)
	if !ok {
		return
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	card, err := entry.assessment.CurrentCard()
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

type storyRequest struct {
	Story string `json:"story"`
}

type storyResponse struct {
	Outcome *engine.StoryOutcome `json:"outcome,omitempty"`
	State   engine.State         `json:"state"`
	Card    *model.TATCard       `json:"card,omitempty"`
}

func (h *Handler) handleSubmitStory(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.session(w, r)
	if !ok {
		return
	}
	var req storyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	a := entry.assessment
	outcome, err := a.SubmitStory(r.Context(), req.Story)
	if err != nil {
		if errors.Is(err, engine.ErrValidation) {
			writeError(w, http.StatusBadRequest, appI18n.Td(r.Context(), "StoryTooShort",
				map[string]any{"Min": h.config.MinStoryLength}))
			return
		}
		h.writeEngineError(w, r, err)
		return
	}

	resp := storyResponse{Outcome: outcome, State: a.State()}
	if c, err := a.CurrentCard(); err == nil {
		resp.Card = &c
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleTick feeds a prompt-countdown expiry into the session. The draft
// is auto-submitted only when it already meets the minimum length.
func (h *Handler) handleTick(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.session(w, r)
	if !ok {
		return
	}
	var req storyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	a := entry.assessment
	outcome, err := a.ExpirePrompt(r.Context(), req.Story)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	resp := storyResponse{Outcome: outcome, State: a.State()}
	if c, err := a.CurrentCard(); err == nil {
		resp.Card = &c
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleFocusLoss(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.session(w, r)
	if !ok {
		return
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	entry.assessment.RecordFocusLoss()
	writeJSON(w, http.StatusOK, map[string]int{
		"proctor_warnings": entry.assessment.ProctorWarnings(),
	})
}

type submitResponse struct {
	Report *model.FinalReport `json:"report"`
	Saved  bool               `json:"saved"`
	Notice string             `json:"notice,omitempty"`
}

// handleSubmitAssessment finalizes the session and persists the report.
// Persistence is at-most-once: if the store is unreachable the report is
// still returned to the caller, marked unsaved.
func (h *Handler) handleSubmitAssessment(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.session(w, r)
	if !ok {
		return
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	a := entry.assessment
	var (
		report *model.FinalReport
		err    error
	)
	if a.State() == engine.StateMCQComplete {
		report, err = a.SubmitMCQ()
	} else {
		report, err = a.Finalize()
	}
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	report.CandidateID = entry.candidateID

	resp := submitResponse{Report: report, Saved: true}
	id, err := h.store.SaveReport(*report)
	if err != nil {
		slog.Error("failed to persist report, returning unsaved", "error", err)
		resp.Saved = false
		resp.Notice = appI18n.T(r.Context(), "ReportUnsaved")
	} else {
		report.ID = id
		// The engine forbids mutation after finalize; once the report is
		// durable the entry only leaks memory.
		h.mu.Lock()
		delete(h.sessions, chi.URLParam(r, "sessionID"))
		h.mu.Unlock()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) questionView(a *engine.Assessment, q model.Question) *questionView {
	return &questionView{
		ID:         q.ID,
		Text:       q.Text,
		Options:    q.Options,
		Kind:       q.Kind,
		Difficulty: a.CurrentDifficulty(),
		Number:     a.QuestionsAnswered() + 1,
		Total:      a.QuestionCount(),
	}
}

// session resolves the session entry for the request, writing a 404 when
// it does not exist or belongs to another candidate.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*sessionEntry, bool) {
	sessionID := chi.URLParam(r, "sessionID")
	h.mu.Lock()
	entry, ok := h.sessions[sessionID]
	h.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, appI18n.T(r.Context(), "SessionNotFound"))
		return nil, false
	}
	if user := model.UserFromContext(r.Context()); user != nil &&
		user.Role != model.UserRoleAdmin && entry.candidateID != user.ID {
		writeError(w, http.StatusNotFound, appI18n.T(r.Context(), "SessionNotFound"))
		return nil, false
	}
	return entry, true
}

func (h *Handler) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidStateTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, bank.ErrInsufficientQuestions),
		errors.Is(err, bank.ErrInsufficientPrompts):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func newSessionID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

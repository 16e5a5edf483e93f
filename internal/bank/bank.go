// Package bank holds the static MCQ and narrative-card catalogs and hands
// out random selections for new sessions.
package bank

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/peop360/beyonders/internal/model"
)

//go:embed catalog/questions.json catalog/cards.json
var catalogFS embed.FS

var (
	// ErrInsufficientQuestions is returned when the catalog holds fewer
	// questions for a track than a session requests.
	ErrInsufficientQuestions = errors.New("insufficient questions in catalog")

	// ErrInsufficientPrompts is returned when the card catalog holds
	// fewer prompts than a session requests.
	ErrInsufficientPrompts = errors.New("insufficient narrative prompts in catalog")
)

// Bank is an immutable catalog of questions grouped by track, plus the
// narrative card deck. Selection draws without replacement; determinism is
// not guaranteed unless a seeded source is injected.
type Bank struct {
	questions map[model.Track][]model.Question
	cards     []model.TATCard
	rng       *rand.Rand
}

// Option customizes a Bank.
type Option func(*Bank)

// WithRand injects a random source, for deterministic tests.
func WithRand(rng *rand.Rand) Option {
	return func(b *Bank) { b.rng = rng }
}

// New builds a bank from explicit catalogs.
func New(questions []model.Question, cards []model.TATCard, opts ...Option) *Bank {
	b := &Bank{
		questions: make(map[model.Track][]model.Question),
		cards:     cards,
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, q := range questions {
		b.questions[q.Track] = append(b.questions[q.Track], q)
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Default builds a bank from the embedded catalog files.
func Default(opts ...Option) (*Bank, error) {
	questions, err := parseQuestions(mustEmbed("catalog/questions.json"))
	if err != nil {
		return nil, fmt.Errorf("embedded questions: %w", err)
	}
	cards, err := parseCards(mustEmbed("catalog/cards.json"))
	if err != nil {
		return nil, fmt.Errorf("embedded cards: %w", err)
	}
	return New(questions, cards, opts...), nil
}

// Load builds a bank from JSON catalog files on disk. Empty paths fall
// back to the embedded catalogs.
func Load(questionsPath, cardsPath string, opts ...Option) (*Bank, error) {
	qData := mustEmbed("catalog/questions.json")
	if questionsPath != "" {
		var err error
		if qData, err = os.ReadFile(questionsPath); err != nil {
			return nil, fmt.Errorf("read questions file: %w", err)
		}
	}
	cData := mustEmbed("catalog/cards.json")
	if cardsPath != "" {
		var err error
		if cData, err = os.ReadFile(cardsPath); err != nil {
			return nil, fmt.Errorf("read cards file: %w", err)
		}
	}

	questions, err := parseQuestions(qData)
	if err != nil {
		return nil, fmt.Errorf("parse questions: %w", err)
	}
	cards, err := parseCards(cData)
	if err != nil {
		return nil, fmt.Errorf("parse cards: %w", err)
	}
	return New(questions, cards, opts...), nil
}

// QuestionCount returns the number of catalog questions for a track.
func (b *Bank) QuestionCount(track model.Track) int {
	return len(b.questions[track])
}

// CardCount returns the number of narrative cards in the catalog.
func (b *Bank) CardCount() int {
	return len(b.cards)
}

// SelectQuestions returns count distinct questions for the track, drawn at
// random without replacement across all difficulty tiers.
func (b *Bank) SelectQuestions(track model.Track, count int) ([]model.Question, error) {
	pool := b.questions[track]
	if len(pool) < count {
		return nil, fmt.Errorf("track %s has %d questions, need %d: %w",
			track, len(pool), count, ErrInsufficientQuestions)
	}
	shuffled := make([]model.Question, len(pool))
	copy(shuffled, pool)
	b.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:count], nil
}

// SelectCards returns count distinct narrative cards drawn at random
// without replacement.
func (b *Bank) SelectCards(count int) ([]model.TATCard, error) {
	if len(b.cards) < count {
		return nil, fmt.Errorf("catalog has %d cards, need %d: %w",
			len(b.cards), count, ErrInsufficientPrompts)
	}
	shuffled := make([]model.TATCard, len(b.cards))
	copy(shuffled, b.cards)
	b.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:count], nil
}

func parseQuestions(data []byte) ([]model.Question, error) {
	var questions []model.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, err
	}
	for _, q := range questions {
		if len(q.Options) != 4 {
			return nil, fmt.Errorf("question %d: want 4 options, got %d", q.ID, len(q.Options))
		}
		if !q.Track.Valid() {
			return nil, fmt.Errorf("question %d: unknown track %q", q.ID, q.Track)
		}
		if !q.Difficulty.Valid() {
			return nil, fmt.Errorf("question %d: unknown difficulty %q", q.ID, q.Difficulty)
		}
		found := false
		for _, opt := range q.Options {
			if opt == q.CorrectOption {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("question %d: answer %q is not among the options", q.ID, q.CorrectOption)
		}
	}
	return questions, nil
}

func parseCards(data []byte) ([]model.TATCard, error) {
	var cards []model.TATCard
	if err := json.Unmarshal(data, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

func mustEmbed(name string) []byte {
	data, err := catalogFS.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog %s missing: %v", name, err))
	}
	return data
}

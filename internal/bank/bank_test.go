package bank

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/peop360/beyonders/internal/model"
)

func seededRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func testQuestions(track model.Track, n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			ID:            i + 1,
			Text:          "q",
			Options:       []string{"A", "B", "C", "D"},
			CorrectOption: "A",
			Kind:          model.KindDomain,
			Difficulty:    model.DifficultyEasy,
			Track:         track,
		}
	}
	return qs
}

func testCards(n int) []model.TATCard {
	cards := make([]model.TATCard, n)
	for i := range cards {
		cards[i] = model.TATCard{ID: i + 1, Description: "card"}
	}
	return cards
}

func TestDefaultCatalog(t *testing.T) {
	b, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}
	if got := b.QuestionCount(model.TrackScience); got != 30 {
		t.Errorf("science questions = %d, want 30", got)
	}
	if got := b.QuestionCount(model.TrackNonScience); got != 30 {
		t.Errorf("non-science questions = %d, want 30", got)
	}
	if got := b.CardCount(); got != 10 {
		t.Errorf("cards = %d, want 10", got)
	}
}

func TestLoadEmptyPathsUseEmbedded(t *testing.T) {
	b, err := Load("", "")
	if err != nil {
		t.Fatalf("Load with empty paths: %v", err)
	}
	if b.CardCount() != 10 {
		t.Errorf("cards = %d, want embedded 10", b.CardCount())
	}
}

func TestSelectQuestions(t *testing.T) {
	b := New(testQuestions(model.TrackScience, 20), testCards(5), WithRand(seededRand()))

	got, err := b.SelectQuestions(model.TrackScience, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 10 {
		t.Fatalf("got %d questions, want 10", len(got))
	}
	seen := make(map[int]bool)
	for _, q := range got {
		if seen[q.ID] {
			t.Errorf("question %d drawn twice", q.ID)
		}
		seen[q.ID] = true
		if q.Track != model.TrackScience {
			t.Errorf("question %d has track %s", q.ID, q.Track)
		}
	}
}

func TestSelectQuestionsInsufficient(t *testing.T) {
	b := New(testQuestions(model.TrackScience, 5), testCards(5))
	_, err := b.SelectQuestions(model.TrackScience, 10)
	if !errors.Is(err, ErrInsufficientQuestions) {
		t.Errorf("err = %v, want ErrInsufficientQuestions", err)
	}

	// A track with no questions at all fails the same way.
	_, err = b.SelectQuestions(model.TrackNonScience, 1)
	if !errors.Is(err, ErrInsufficientQuestions) {
		t.Errorf("empty track err = %v, want ErrInsufficientQuestions", err)
	}
}

func TestSelectCards(t *testing.T) {
	b := New(nil, testCards(10), WithRand(seededRand()))
	got, err := b.SelectCards(3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d cards, want 3", len(got))
	}
	seen := make(map[int]bool)
	for _, c := range got {
		if seen[c.ID] {
			t.Errorf("card %d drawn twice", c.ID)
		}
		seen[c.ID] = true
	}
}

func TestSelectCardsInsufficient(t *testing.T) {
	b := New(nil, testCards(2))
	_, err := b.SelectCards(3)
	if !errors.Is(err, ErrInsufficientPrompts) {
		t.Errorf("err = %v, want ErrInsufficientPrompts", err)
	}
}

func TestParseQuestionsValidation(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{
			"wrong option count",
			`[{"id":1,"text":"q","options":["A","B"],"answer":"A","kind":"DOMAIN","difficulty":"EASY","track":"SCIENCE"}]`,
		},
		{
			"unknown track",
			`[{"id":1,"text":"q","options":["A","B","C","D"],"answer":"A","kind":"DOMAIN","difficulty":"EASY","track":"ARTS"}]`,
		},
		{
			"unknown difficulty",
			`[{"id":1,"text":"q","options":["A","B","C","D"],"answer":"A","kind":"DOMAIN","difficulty":"TRIVIAL","track":"SCIENCE"}]`,
		},
		{
			"answer not among options",
			`[{"id":1,"text":"q","options":["A","B","C","D"],"answer":"E","kind":"DOMAIN","difficulty":"EASY","track":"SCIENCE"}]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseQuestions([]byte(tt.json)); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestEmbeddedCatalogAnswersValid(t *testing.T) {
	// The embedded catalog must satisfy the same validation as external
	// files, including every answer appearing among its options.
	if _, err := parseQuestions(mustEmbed("catalog/questions.json")); err != nil {
		t.Fatalf("embedded questions invalid: %v", err)
	}
	cards, err := parseCards(mustEmbed("catalog/cards.json"))
	if err != nil {
		t.Fatalf("embedded cards invalid: %v", err)
	}
	for _, c := range cards {
		if c.Description == "" {
			t.Errorf("card %d has no description", c.ID)
		}
	}
}

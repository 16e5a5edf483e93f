package llm

import (
	"strings"
	"testing"

	"github.com/peop360/beyonders/internal/model"
)

func TestBuildAnalyzeQuery(t *testing.T) {
	card := model.TATCard{
		ID:          4,
		Description: "A figure standing alone on a bridge at dusk",
		Tags:        []string{"solitude", "transition"},
	}
	q := buildAnalyzeQuery("my story text", card)

	for _, want := range []string{
		"my story text",
		card.Description,
		"solitude, transition",
		`"themes"`,
		`"resolution_style"`,
	} {
		if !strings.Contains(q, want) {
			t.Errorf("analyze query missing %q", want)
		}
	}
}

func TestBuildNPPQuery(t *testing.T) {
	card := model.TATCard{Description: "An empty classroom"}
	q := buildNPPQuery("a story", card)

	if !strings.Contains(q, "a story") {
		t.Error("npp query missing the story")
	}
	if !strings.Contains(q, card.Description) {
		t.Error("npp query missing the card context")
	}
	for _, dim := range model.NPPDimensions {
		if !strings.Contains(q, `"`+dim+`"`) {
			t.Errorf("npp query missing dimension %q", dim)
		}
	}
}

func TestBuildHintQuery(t *testing.T) {
	q := buildHintQuery(model.Question{
		Text:          "What gas do plants absorb during photosynthesis?",
		Options:       []string{"Oxygen", "Carbon dioxide", "Nitrogen", "Hydrogen"},
		CorrectOption: "Carbon dioxide",
	})

	if !strings.Contains(q, "What gas do plants absorb") {
		t.Error("hint query missing the question text")
	}
	if !strings.Contains(q, "Oxygen, Carbon dioxide, Nitrogen, Hydrogen") {
		t.Error("hint query missing the options")
	}
	if !strings.Contains(q, "Do not reveal the answer") {
		t.Error("hint query missing the no-reveal instruction")
	}
}

func TestPromptsRequestJSONOnly(t *testing.T) {
	for name, prompt := range map[string]string{
		"analyze": analyzeSystemPrompt,
		"npp":     nppSystemPrompt,
	} {
		if !strings.Contains(prompt, "valid JSON") {
			t.Errorf("%s system prompt does not demand JSON output", name)
		}
	}
}

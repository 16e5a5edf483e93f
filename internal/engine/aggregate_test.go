package engine

import (
	"fmt"
	"math"
	"testing"

	"github.com/peop360/beyonders/internal/model"
)

func storyWithNPP(npp model.NPPScores, themes ...string) model.StoryRecord {
	return model.StoryRecord{
		Story: "a story long enough to have been accepted by the orchestrator",
		Analysis: model.StoryAnalysis{
			Themes:          themes,
			Emotions:        []string{},
			Conflicts:       []string{},
			ResolutionStyle: "neutral",
			Tone:            "neutral",
			NPP:             npp,
		},
	}
}

func TestSummarizeDimensionAverages(t *testing.T) {
	stories := []model.StoryRecord{
		storyWithNPP(model.NPPScores{"resilience": 2}),
		storyWithNPP(model.NPPScores{"resilience": 4}),
		storyWithNPP(model.NPPScores{"agency_expression": 5}),
	}
	sum := Summarize(stories)

	// Only the stories carrying a value participate in that dimension's
	// average.
	if got := sum.DimensionAverages["resilience"]; got != 3 {
		t.Errorf("resilience average = %v, want 3", got)
	}
	if got := sum.DimensionAverages["agency_expression"]; got != 5 {
		t.Errorf("agency_expression average = %v, want 5", got)
	}
	if got := sum.DimensionAverages["moral_reasoning"]; got != 0 {
		t.Errorf("moral_reasoning average = %v, want 0 with no values", got)
	}
	if len(sum.DimensionAverages) != len(model.NPPDimensions) {
		t.Errorf("got %d dimensions, want %d", len(sum.DimensionAverages), len(model.NPPDimensions))
	}
}

func TestSummarizeSkipsNilProfiles(t *testing.T) {
	stories := []model.StoryRecord{
		storyWithNPP(model.NPPScores{"resilience": 4}),
		storyWithNPP(nil),
	}
	sum := Summarize(stories)
	if got := sum.DimensionAverages["resilience"]; got != 4 {
		t.Errorf("resilience average = %v, want 4 (nil profile excluded)", got)
	}
	if sum.StoryCount != 2 {
		t.Errorf("story count = %d, want 2", sum.StoryCount)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	sum := Summarize(nil)
	if sum.StoryCount != 0 {
		t.Errorf("story count = %d, want 0", sum.StoryCount)
	}
	for _, dim := range model.NPPDimensions {
		if sum.DimensionAverages[dim] != 0 {
			t.Errorf("%s average = %v, want 0", dim, sum.DimensionAverages[dim])
		}
	}
	if sum.OverallPercent != 0 {
		t.Errorf("overall = %d, want 0", sum.OverallPercent)
	}
	if len(sum.TopThemes) != 0 {
		t.Errorf("got %d themes, want 0", len(sum.TopThemes))
	}
}

func TestSummarizeThemeRanking(t *testing.T) {
	stories := []model.StoryRecord{
		storyWithNPP(nil, "isolation", "hope"),
		storyWithNPP(nil, "isolation"),
	}
	sum := Summarize(stories)
	want := []model.ThemeCount{
		{Theme: "isolation", Count: 2},
		{Theme: "hope", Count: 1},
	}
	if len(sum.TopThemes) != len(want) {
		t.Fatalf("got %d themes, want %d", len(sum.TopThemes), len(want))
	}
	for i := range want {
		if sum.TopThemes[i] != want[i] {
			t.Errorf("theme[%d] = %+v, want %+v", i, sum.TopThemes[i], want[i])
		}
	}
}

func TestSummarizeThemeTieOrder(t *testing.T) {
	// Ties break by first appearance in submission order.
	stories := []model.StoryRecord{
		storyWithNPP(nil, "duty", "family"),
		storyWithNPP(nil, "family", "duty"),
	}
	sum := Summarize(stories)
	if sum.TopThemes[0].Theme != "duty" || sum.TopThemes[1].Theme != "family" {
		t.Errorf("tie order = [%s, %s], want [duty, family]",
			sum.TopThemes[0].Theme, sum.TopThemes[1].Theme)
	}
}

func TestSummarizeTopThemeCap(t *testing.T) {
	var themes []string
	for i := 0; i < TopThemeCount+4; i++ {
		themes = append(themes, fmt.Sprintf("theme-%d", i))
	}
	sum := Summarize([]model.StoryRecord{storyWithNPP(nil, themes...)})
	if len(sum.TopThemes) != TopThemeCount {
		t.Errorf("got %d themes, want cap of %d", len(sum.TopThemes), TopThemeCount)
	}
}

func TestSummarizeTotalTimeAndOverall(t *testing.T) {
	full := model.NPPScores{}
	for _, dim := range model.NPPDimensions {
		full[dim] = 4
	}
	stories := []model.StoryRecord{
		{TimeSpentSeconds: 120, Analysis: model.StoryAnalysis{NPP: full}},
		{TimeSpentSeconds: 180.5, Analysis: model.StoryAnalysis{NPP: full}},
	}
	sum := Summarize(stories)
	if math.Abs(sum.TotalTimeSeconds-300.5) > 1e-9 {
		t.Errorf("total time = %v, want 300.5", sum.TotalTimeSeconds)
	}
	// Every dimension averages 4 out of 5, so the overall is 80 percent.
	if sum.OverallPercent != 80 {
		t.Errorf("overall = %d, want 80", sum.OverallPercent)
	}
}

func TestAggregatorCollects(t *testing.T) {
	var agg Aggregator
	agg.AddStory(storyWithNPP(nil, "hope"))
	agg.AddStory(storyWithNPP(nil, "hope"))
	if got := len(agg.Stories()); got != 2 {
		t.Fatalf("stories = %d, want 2", got)
	}
	sum := agg.Summarize()
	if sum.StoryCount != 2 {
		t.Errorf("story count = %d, want 2", sum.StoryCount)
	}
}

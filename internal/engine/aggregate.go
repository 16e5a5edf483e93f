package engine

import (
	"math"
	"sort"

	"github.com/peop360/beyonders/internal/model"
)

// TopThemeCount is the maximum number of themes kept in a summary ranking.
const TopThemeCount = 8

// Aggregator reduces per-prompt narrative submissions into session-level
// averages and theme-frequency rankings.
type Aggregator struct {
	stories []model.StoryRecord
}

// AddStory appends a story record. Records without an NPP profile still
// count toward theme frequency and total time.
func (a *Aggregator) AddStory(rec model.StoryRecord) {
	a.stories = append(a.stories, rec)
}

// Stories returns the records collected so far.
func (a *Aggregator) Stories() []model.StoryRecord {
	return a.stories
}

// Summarize reduces the collected stories into a session summary.
func (a *Aggregator) Summarize() model.NarrativeSummary {
	return Summarize(a.stories)
}

// Summarize computes per-dimension NPP averages, the top theme frequencies
// and the total narrative time for a set of story records.
//
// A dimension average covers only the stories carrying a value for that
// dimension; with no values at all the average is zero. Themes are ranked
// by descending count, ties broken by first appearance in submission order.
func Summarize(stories []model.StoryRecord) model.NarrativeSummary {
	averages := make(map[string]float64, len(model.NPPDimensions))
	for _, dim := range model.NPPDimensions {
		var sum, n int
		for _, s := range stories {
			if s.Analysis.NPP == nil {
				continue
			}
			v, ok := s.Analysis.NPP[dim]
			if !ok {
				continue
			}
			sum += v
			n++
		}
		if n > 0 {
			averages[dim] = float64(sum) / float64(n)
		} else {
			averages[dim] = 0
		}
	}

	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	order := 0
	var totalTime float64
	for _, s := range stories {
		totalTime += s.TimeSpentSeconds
		for _, theme := range s.Analysis.Themes {
			if _, ok := counts[theme]; !ok {
				firstSeen[theme] = order
				order++
			}
			counts[theme]++
		}
	}

	themes := make([]model.ThemeCount, 0, len(counts))
	for theme, count := range counts {
		themes = append(themes, model.ThemeCount{Theme: theme, Count: count})
	}
	sort.SliceStable(themes, func(i, j int) bool {
		if themes[i].Count != themes[j].Count {
			return themes[i].Count > themes[j].Count
		}
		return firstSeen[themes[i].Theme] < firstSeen[themes[j].Theme]
	})
	if len(themes) > TopThemeCount {
		themes = themes[:TopThemeCount]
	}

	var dimSum float64
	for _, dim := range model.NPPDimensions {
		dimSum += averages[dim]
	}
	overall := int(math.Round(dimSum / float64(len(model.NPPDimensions)) / 5 * 100))
	if overall > 100 {
		overall = 100
	}
	if overall < 0 {
		overall = 0
	}

	return model.NarrativeSummary{
		StoryCount:        len(stories),
		DimensionAverages: averages,
		TopThemes:         themes,
		TotalTimeSeconds:  totalTime,
		OverallPercent:    overall,
	}
}

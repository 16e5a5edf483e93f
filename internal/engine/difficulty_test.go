package engine

import (
	"testing"

	"github.com/peop360/beyonders/internal/model"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		name       string
		current    model.Difficulty
		streak     int
		correct    bool
		wantDiff   model.Difficulty
		wantStreak int
	}{
		{
			name:    "correct extends streak below threshold",
			current: model.DifficultyEasy, streak: 2, correct: true,
			wantDiff: model.DifficultyEasy, wantStreak: 3,
		},
		{
			name:    "fifth correct promotes and resets streak",
			current: model.DifficultyEasy, streak: 4, correct: true,
			wantDiff: model.DifficultyMedium, wantStreak: 0,
		},
		{
			name:    "promotion from medium reaches hard",
			current: model.DifficultyMedium, streak: 4, correct: true,
			wantDiff: model.DifficultyHard, wantStreak: 0,
		},
		{
			name:    "streak accumulates past threshold at hard",
			current: model.DifficultyHard, streak: 4, correct: true,
			wantDiff: model.DifficultyHard, wantStreak: 5,
		},
		{
			name:    "streak keeps growing at hard ceiling",
			current: model.DifficultyHard, streak: 11, correct: true,
			wantDiff: model.DifficultyHard, wantStreak: 12,
		},
		{
			name:    "wrong demotes from hard",
			current: model.DifficultyHard, streak: 3, correct: false,
			wantDiff: model.DifficultyMedium, wantStreak: 0,
		},
		{
			name:    "wrong demotes from medium",
			current: model.DifficultyMedium, streak: 4, correct: false,
			wantDiff: model.DifficultyEasy, wantStreak: 0,
		},
		{
			name:    "wrong at easy floors without demotion",
			current: model.DifficultyEasy, streak: 4, correct: false,
			wantDiff: model.DifficultyEasy, wantStreak: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotDiff, gotStreak := Transition(tt.current, tt.streak, tt.correct)
			if gotDiff != tt.wantDiff {
				t.Errorf("difficulty = %s, want %s", gotDiff, tt.wantDiff)
			}
			if gotStreak != tt.wantStreak {
				t.Errorf("streak = %d, want %d", gotStreak, tt.wantStreak)
			}
		})
	}
}

func TestTransitionMonotonic(t *testing.T) {
	// A single answer never moves the tier by more than one step.
	rank := map[model.Difficulty]int{
		model.DifficultyEasy:   0,
		model.DifficultyMedium: 1,
		model.DifficultyHard:   2,
	}
	for d := range rank {
		for streak := 0; streak <= 10; streak++ {
			for _, correct := range []bool{true, false} {
				next, _ := Transition(d, streak, correct)
				delta := rank[next] - rank[d]
				if correct && (delta < 0 || delta > 1) {
					t.Errorf("Transition(%s, %d, true) moved %d tiers", d, streak, delta)
				}
				if !correct && (delta > 0 || delta < -1) {
					t.Errorf("Transition(%s, %d, false) moved %d tiers", d, streak, delta)
				}
			}
		}
	}
}

package engine

import "github.com/peop360/beyonders/internal/model"

// StreakThreshold is the number of consecutive correct answers that
// promotes the session to the next difficulty tier.
const StreakThreshold = 5

// Transition computes the next difficulty and streak from one answer.
//
// A correct answer extends the streak; once the streak reaches the
// threshold and a harder tier exists, the session is promoted and the
// streak resets. At HARD there is no harder tier, so the streak keeps
// accumulating past the threshold with no effect. A wrong answer always
// resets the streak and demotes one tier, flooring at EASY.
func Transition(current model.Difficulty, streak int, correct bool) (model.Difficulty, int) {
	if correct {
		streak++
		if streak >= StreakThreshold {
			if next := current.Next(); next != "" {
				return next, 0
			}
		}
		return current, streak
	}
	if prev := current.Previous(); prev != "" {
		return prev, 0
	}
	return current, 0
}

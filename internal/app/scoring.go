package app

import (
	"strconv"

	"trivia-quiz/internal/domain"
)

// CalculateScore counts the questions whose selected option carries the
// correctness marker. selections maps a question index to the submitted
// option index; anything missing or unparsable counts as incorrect.
func CalculateScore(round domain.Round, selections map[int]string) int {
	score := 0
	for _, q := range round.Questions {
		raw, ok := selections[q.Index]
		if !ok {
			continue
		}
		idx, err := strconv.Atoi(raw)
		if err != nil || idx < 0 || idx >= len(q.Options) {
			continue
		}
		if q.Options[idx].Correct {
			score++
		}
	}
	return score
}

package domain

import "math/rand"

// Shuffle permutes s in place with Fisher–Yates: for i from the last index
// down to 1, swap s[i] with s[j] for a uniform j in [0, i].
func Shuffle[T any](rnd *rand.Rand, s []T) {
	for i := len(s) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

// NewQuestion places the correct option among the distractors in a random
// order, once. The resulting order is fixed for the question's lifetime.
func NewQuestion(rnd *rand.Rand, id, text, correct string, distractors []string, difficulty Difficulty, category, reference, bizu string) Question {
	order := make([]int, len(distractors)+1)
	for i := range order {
		order[i] = i
	}
	Shuffle(rnd, order)

	options := make([]string, len(order))
	correctIdx := 0
	for pos, src := range order {
		if src == 0 {
			options[pos] = correct
			correctIdx = pos
			continue
		}
		options[pos] = distractors[src-1]
	}

	return Question{
		ID:            id,
		Text:          text,
		Options:       options,
		CorrectAnswer: correctIdx,
		Difficulty:    difficulty,
		Category:      category,
		Reference:     reference,
		Bizu:          bizu,
	}
}

// Package content holds the static question set shipped with the service.
package content

import (
	_ "embed"
	"fmt"
	"math/rand"

	"cabao-quiz-service/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed questions.yaml
var questionsYAML []byte

// Entry is one authored question: the right answer and its distractors are
// kept apart so the display order can be drawn when the set is loaded.
type Entry struct {
	ID          string            `yaml:"id"`
	Text        string            `yaml:"text"`
	Correct     string            `yaml:"correct"`
	Distractors []string          `yaml:"distractors"`
	Difficulty  domain.Difficulty `yaml:"difficulty"`
	Category    string            `yaml:"category"`
	Reference   string            `yaml:"reference"`
	Bizu        string            `yaml:"bizu"`
}

type document struct {
	Questions []Entry `yaml:"questions"`
}

// Load parses the embedded question set.
func Load(rnd *rand.Rand) ([]domain.Question, error) {
	return Parse(questionsYAML, rnd)
}

// Parse builds questions from a YAML document with a top-level "questions" list.
// Every question is validated and IDs must be unique.
func Parse(data []byte, rnd *rand.Rand) ([]domain.Question, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse questions: %w", err)
	}

	out := make([]domain.Question, 0, len(doc.Questions))
	ids := make(map[string]struct{}, len(doc.Questions))
	for _, e := range doc.Questions {
		if _, dup := ids[e.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %s", domain.ErrInvalidQuestion, e.ID)
		}
		ids[e.ID] = struct{}{}

		q := domain.NewQuestion(rnd, e.ID, e.Text, e.Correct, e.Distractors, e.Difficulty, e.Category, e.Reference, e.Bizu)
		if err := q.Validate(); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

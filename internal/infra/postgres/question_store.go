package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"cabao-quiz-service/internal/domain"
	"cabao-quiz-service/internal/logger"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionStore reads and seeds the questions table.
type QuestionStore struct {
	pool *pgxpool.Pool
}

func NewQuestionStore(pool *pgxpool.Pool) *QuestionStore {
	return &QuestionStore{pool: pool}
}

// LoadQuestions returns every well-formed row. Rows are stored loosely, so
// each one is coerced and validated; rows that fail are logged and skipped.
func (s *QuestionStore) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, text, options, correct_answer, difficulty, category, reference, bizu
		FROM questions ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			logger.Warn("skipping question row: %v", err)
			continue
		}
		if err := q.Validate(); err != nil {
			logger.Warn("skipping question row: %v", err)
			continue
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return out, nil
}

func scanQuestion(rows pgx.Rows) (domain.Question, error) {
	var (
		id, text                              string
		rawOptions                            []byte
		correct                               sql.NullInt32
		difficulty, category, reference, bizu sql.NullString
	)
	if err := rows.Scan(&id, &text, &rawOptions, &correct, &difficulty, &category, &reference, &bizu); err != nil {
		return domain.Question{}, fmt.Errorf("scan question: %w", err)
	}

	var options []string
	if err := json.Unmarshal(rawOptions, &options); err != nil {
		return domain.Question{}, fmt.Errorf("question %s: options: %w", id, err)
	}
	if !correct.Valid {
		return domain.Question{}, fmt.Errorf("%w: %s: missing correct answer", domain.ErrInvalidQuestion, id)
	}

	return domain.Question{
		ID:            id,
		Text:          text,
		Options:       options,
		CorrectAnswer: int(correct.Int32),
		Difficulty:    domain.Difficulty(difficulty.String),
		Category:      category.String,
		Reference:     reference.String,
		Bizu:          bizu.String,
	}, nil
}

// SaveQuestions upserts questions by id inside one transaction.
func (s *QuestionStore) SaveQuestions(ctx context.Context, questions []domain.Question) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return err
		}
		options, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("encode options %s: %w", q.ID, err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO questions (id, text, options, correct_answer, difficulty, category, reference, bizu)
			VALUES ($1, $2, $3::jsonb, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				text = EXCLUDED.text,
				options = EXCLUDED.options,
				correct_answer = EXCLUDED.correct_answer,
				difficulty = EXCLUDED.difficulty,
				category = EXCLUDED.category,
				reference = EXCLUDED.reference,
				bizu = EXCLUDED.bizu`,
			q.ID, q.Text, string(options), q.CorrectAnswer, string(q.Difficulty), q.Category, q.Reference, q.Bizu)
		if err != nil {
			return fmt.Errorf("save question %s: %w", q.ID, err)
		}
	}
	return tx.Commit(ctx)
}

package app

import (
	"context"
	"sort"

	"cabao-quiz-service/internal/domain"
	"cabao-quiz-service/internal/logger"
)

const (
	// FallbackHint is shown when a question has no hint and no advisor answered.
	FallbackHint = "O rádio está com interferência! Confie no seu estudo."
	// FallbackFeedback closes a session when no advisor answered.
	FallbackFeedback = "Missão finalizada. AD SUMUS!"
)

// Skip passes the current question without scoring it or marking it seen.
func (e *Engine) Skip(ctx context.Context) (domain.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.guardLocked(); err != nil {
		return domain.Snapshot{}, err
	}
	if e.sess.lifelines.Skip == 0 {
		return domain.Snapshot{}, domain.ErrLifelineExhausted
	}
	e.sess.lifelines.Skip--
	e.stepLocked(ctx)

	snap := e.snapshotLocked()
	e.broadcastLocked(domain.EventAdvanced, snap)
	return snap, nil
}

// Sergeant reveals the current question's hint. Questions without one ask the
// hint provider; the answer is only shown if the player is still on the same
// question when it arrives.
func (e *Engine) Sergeant(ctx context.Context) (string, error) {
	e.mu.Lock()
	if err := e.guardLocked(); err != nil {
		e.mu.Unlock()
		return "", err
	}
	if e.sess.lifelines.Sergeant == 0 {
		e.mu.Unlock()
		return "", domain.ErrLifelineExhausted
	}
	e.sess.lifelines.Sergeant--
	q := e.sess.questions[e.sess.index]
	if q.Bizu != "" {
		e.sess.hint = q.Bizu
		e.broadcastLocked(domain.EventHint, e.snapshotLocked())
		e.mu.Unlock()
		return q.Bizu, nil
	}
	gen, index := e.generation, e.sess.index
	hints := e.hints
	e.mu.Unlock()

	hint := FallbackHint
	if hints != nil {
		text, err := hints.SergeantHint(ctx, q)
		switch {
		case err != nil:
			logger.Warn("hint for %s unavailable: %v", q.ID, err)
		case text != "":
			hint = text
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen == e.generation && index == e.sess.index && e.sess.state == domain.StateRunning {
		e.sess.hint = hint
		e.broadcastLocked(domain.EventHint, e.snapshotLocked())
	}
	return hint, nil
}

// Meta hides up to two incorrect options chosen uniformly at random. It can
// be used once per session no matter how many options it actually hid.
func (e *Engine) Meta() ([]int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.guardLocked(); err != nil {
		return nil, err
	}
	if e.sess.lifelines.Meta == 0 {
		return nil, domain.ErrLifelineExhausted
	}

	q := e.sess.questions[e.sess.index]
	wrong := make([]int, 0, len(q.Options)-1)
	for i := range q.Options {
		if i != q.CorrectAnswer {
			wrong = append(wrong, i)
		}
	}
	domain.Shuffle(e.rnd, wrong)
	if len(wrong) > 2 {
		wrong = wrong[:2]
	}
	sort.Ints(wrong)

	e.sess.hidden = wrong
	e.sess.lifelines.Meta = 0
	return append([]int{}, wrong...), nil
}

// MissionFeedback asks the provider for a closing message, falling back to a fixed one.
func MissionFeedback(ctx context.Context, provider FeedbackProvider, score int, won bool) string {
	if provider == nil {
		return FallbackFeedback
	}
	text, err := provider.MissionFeedback(ctx, score, won)
	if err != nil || text == "" {
		if err != nil {
			logger.Warn("mission feedback unavailable: %v", err)
		}
		return FallbackFeedback
	}
	return text
}

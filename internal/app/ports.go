package app

import (
	"context"
	"time"

	"cabao-quiz-service/internal/domain"
)

// UserStore is the local persistence gateway for one device profile.
// The current-user slot belongs to the device; the all-users table is shared
// and saved with upsert-by-nickname semantics.
type UserStore interface {
	LoadCurrentUser(ctx context.Context) (domain.User, bool, error)
	SaveCurrentUser(ctx context.Context, user domain.User) error
	LoadAllUsers(ctx context.Context) ([]domain.User, error)
	SaveAllUsers(ctx context.Context, users []domain.User) error
	ClearCurrentUser(ctx context.Context) error
}

// RankingStore is the remote ranking table. UpsertScore must never lower a stored score.
type RankingStore interface {
	FetchRanking(ctx context.Context, limit int) ([]domain.RankingEntry, error)
	FetchAllSubscribers(ctx context.Context) ([]domain.Subscriber, error)
	UpsertScore(ctx context.Context, nickname string, score int, rank, phone string) error
}

// QuestionSource fetches externally managed questions.
type QuestionSource interface {
	FetchQuestions(ctx context.Context) ([]domain.Question, error)
}

// HintProvider produces a hint for a question when it carries none.
type HintProvider interface {
	SergeantHint(ctx context.Context, q domain.Question) (string, error)
}

// FeedbackProvider produces an end-of-session message.
type FeedbackProvider interface {
	MissionFeedback(ctx context.Context, score int, won bool) (string, error)
}

// ScoreSyncer pushes a score to the remote ranking without blocking the caller.
type ScoreSyncer interface {
	SyncScore(nickname string, score int, rank, phone string)
}

// Timer is a cancellable scheduled call.
type Timer interface {
	Stop() bool
}

// Scheduler runs f after d. Tests swap it for a manual clock.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemScheduler struct{}

func (systemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemScheduler is backed by time.AfterFunc.
var SystemScheduler Scheduler = systemScheduler{}

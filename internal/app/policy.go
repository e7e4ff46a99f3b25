package app

import (
	"time"

	"cabao-quiz-service/internal/domain"
)

// Policy holds the tunable progression rules.
type Policy struct {
	// PromotionStreak is K: every K consecutive correct answers promote one rank.
	PromotionStreak int
	Ladder          domain.Ladder
	Lifelines       domain.Lifelines
	SettleDelay     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		PromotionStreak: 15,
		Ladder:          domain.NewLadder(nil),
		Lifelines:       domain.Lifelines{Skip: 3, Sergeant: 2, Meta: 1},
		SettleDelay:     1500 * time.Millisecond,
	}
}

func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if p.PromotionStreak <= 0 {
		p.PromotionStreak = def.PromotionStreak
	}
	if p.Ladder.Len() == 0 {
		p.Ladder = def.Ladder
	}
	if p.Lifelines == (domain.Lifelines{}) {
		p.Lifelines = def.Lifelines
	}
	if p.SettleDelay < 0 {
		p.SettleDelay = 0
	}
	return p
}

// Promotes reports whether reaching streak consecutive correct answers earns a promotion.
func (p Policy) Promotes(streak int) bool {
	return streak > 0 && streak%p.PromotionStreak == 0
}

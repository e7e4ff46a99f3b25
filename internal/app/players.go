package app

import "context"

// PlayerRegistry tracks the live engine per nickname (in-memory, Redis, etc).
type PlayerRegistry interface {
	// Claim registers engine for nickname and returns the engine it replaced, if any.
	Claim(nickname string, engine *Engine) *Engine
	Get(nickname string) (*Engine, bool)
	// Release removes the entry only if it still points at engine.
	Release(nickname string, engine *Engine)
}

// ClaimPlayer registers engine as the only live session for nickname. A
// previous engine for the same nickname loses its user, and engine picks up
// whatever the previous one banked on the way out.
func ClaimPlayer(ctx context.Context, players PlayerRegistry, nickname string, engine *Engine) {
	prev := players.Claim(nickname, engine)
	if prev != nil && prev != engine {
		prev.Evict(ctx)
		engine.Reload(ctx)
	}
}

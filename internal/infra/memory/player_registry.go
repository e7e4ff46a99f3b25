package memory

import (
	"sync"

	"cabao-quiz-service/internal/app"
	"cabao-quiz-service/internal/domain"
)

// PlayerRegistry is an in-memory implementation of app.PlayerRegistry.
type PlayerRegistry struct {
	mu      sync.RWMutex
	engines map[string]*app.Engine
}

func NewPlayerRegistry() *PlayerRegistry {
	return &PlayerRegistry{
		engines: make(map[string]*app.Engine),
	}
}

func (r *PlayerRegistry) Claim(nickname string, engine *app.Engine) *app.Engine {
	key := domain.NormalizeNickname(nickname)
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.engines[key]
	r.engines[key] = engine
	return prev
}

func (r *PlayerRegistry) Get(nickname string) (*app.Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	engine, ok := r.engines[domain.NormalizeNickname(nickname)]
	return engine, ok
}

func (r *PlayerRegistry) Release(nickname string, engine *app.Engine) {
	key := domain.NormalizeNickname(nickname)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.engines[key] == engine {
		delete(r.engines, key)
	}
}

package redis

import (
	"context"
	"sync"
	"time"

	"cabao-quiz-service/internal/app"
	"cabao-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// PlayerRegistry is a Redis-aware implementation of app.PlayerRegistry.
// Notes:
//   - Engines stay in a local map; they hold timers and channels that cannot
//     leave the process.
//   - Redis marks player liveness so other nodes (and the admin listing) can
//     see who is online.
type PlayerRegistry struct {
	client  *redis.Client
	ttl     time.Duration
	mu      sync.RWMutex
	engines map[string]*app.Engine
}

func NewPlayerRegistry(client *redis.Client, ttl time.Duration) *PlayerRegistry {
	return &PlayerRegistry{
		client:  client,
		ttl:     ttl,
		engines: make(map[string]*app.Engine),
	}
}

func (r *PlayerRegistry) Claim(nickname string, engine *app.Engine) *app.Engine {
	key := domain.NormalizeNickname(nickname)
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.engines[key]
	r.engines[key] = engine
	// best-effort liveness marker
	_ = r.client.Set(context.Background(), r.key(key), "1", r.ttl).Err()
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
	if r.engines[key] != engine {
		return
	}
	delete(r.engines, key)
	_ = r.client.Del(context.Background(), r.key(key)).Err()
}

func (r *PlayerRegistry) key(nickname string) string {
	return "quiz:player:" + nickname
}

package memory

import (
	"context"
	"sort"
	"sync"

	"cabao-quiz-service/internal/domain"
)

// UserDirectory keeps every known profile plus a current-user slot per device.
// It starts empty and lives as long as the process.
type UserDirectory struct {
	mu      sync.RWMutex
	users   map[string]domain.User
	current map[string]domain.User
}

func NewUserDirectory() *UserDirectory {
	return &UserDirectory{
		users:   make(map[string]domain.User),
		current: make(map[string]domain.User),
	}
}

// ForDevice returns the app.UserStore view for one device.
func (d *UserDirectory) ForDevice(device string) *UserStore {
	return &UserStore{dir: d, device: device}
}

// UserStore is an in-memory implementation of app.UserStore.
type UserStore struct {
	dir    *UserDirectory
	device string
}

func (s *UserStore) LoadCurrentUser(_ context.Context) (domain.User, bool, error) {
	s.dir.mu.RLock()
	defer s.dir.mu.RUnlock()
	u, ok := s.dir.current[s.device]
	if !ok {
		return domain.User{}, false, nil
	}
	return u.Clone(), true, nil
}

func (s *UserStore) SaveCurrentUser(_ context.Context, user domain.User) error {
	s.dir.mu.Lock()
	defer s.dir.mu.Unlock()
	s.dir.current[s.device] = user.Clone()
	return nil
}

func (s *UserStore) ClearCurrentUser(_ context.Context) error {
	s.dir.mu.Lock()
	defer s.dir.mu.Unlock()
	delete(s.dir.current, s.device)
	return nil
}

func (s *UserStore) LoadAllUsers(_ context.Context) ([]domain.User, error) {
	s.dir.mu.RLock()
	defer s.dir.mu.RUnlock()
	out := make([]domain.User, 0, len(s.dir.users))
	for _, u := range s.dir.users {
		out = append(out, u.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nickname < out[j].Nickname })
	return out, nil
}

// SaveAllUsers upserts by nickname and never lowers a stored score.
func (s *UserStore) SaveAllUsers(_ context.Context, users []domain.User) error {
	s.dir.mu.Lock()
	defer s.dir.mu.Unlock()
	for _, u := range users {
		u.Nickname = domain.NormalizeNickname(u.Nickname)
		if prev, ok := s.dir.users[u.Nickname]; ok && prev.Score > u.Score {
			u.Score = prev.Score
		}
		s.dir.users[u.Nickname] = u.Clone()
	}
	return nil
}

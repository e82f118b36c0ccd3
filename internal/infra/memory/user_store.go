package memory

import (
	"context"
	"strings"
	"sync"

	"competiquest/internal/domain"
)

// UserStore is an in-memory implementation of app.UserRepository.
type UserStore struct {
	mu      sync.RWMutex
	users   map[string]domain.User
	history map[string][]string
}

func NewUserStore() *UserStore {
	return &UserStore{
		users:   make(map[string]domain.User),
		history: make(map[string][]string),
	}
}

func (s *UserStore) CreateUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) || u.Username == user.Username {
			return domain.ErrUserExists
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *UserStore) GetUser(_ context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (s *UserStore) FindByUsername(_ context.Context, username string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

// DeleteUser removes an account. Its attempts stay but drop off the leaderboard.
func (s *UserStore) DeleteUser(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	delete(s.history, id)
}

func (s *UserStore) AppendHistory(_ context.Context, userID, attemptID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return domain.ErrUserNotFound
	}
	for _, id := range s.history[userID] {
		if id == attemptID {
			return nil
		}
	}
	s.history[userID] = append(s.history[userID], attemptID)
	return nil
}

func (s *UserStore) RemoveHistory(_ context.Context, userID, attemptID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[userID] = without(s.history[userID], attemptID)
	return nil
}

// History returns the attempt ids recorded for a user in submission order.
func (s *UserStore) History(userID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.history[userID]...)
}

package memory

import (
	"context"
	"fmt"
	"sync"

	"competiquest/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptRepository.
// Attempts are cloned on the way in and out so callers never share entry memory with the store.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]domain.Attempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{attempts: make(map[string]domain.Attempt)}
}

func (s *AttemptStore) Create(_ context.Context, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attempts[attempt.ID]; ok {
		return fmt.Errorf("%w: attempt %s already exists", domain.ErrStorage, attempt.ID)
	}
	s.attempts[attempt.ID] = attempt.Clone()
	return nil
}

func (s *AttemptStore) Get(_ context.Context, id string) (domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attempts[id]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return a.Clone(), nil
}

func (s *AttemptStore) Complete(_ context.Context, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.attempts[attempt.ID]
	if !ok {
		return domain.ErrAttemptNotFound
	}
	if stored.Completed() {
		return domain.ErrAlreadySubmitted
	}
	s.attempts[attempt.ID] = attempt.Clone()
	return nil
}

func (s *AttemptStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attempts[id]; !ok {
		return domain.ErrAttemptNotFound
	}
	delete(s.attempts, id)
	return nil
}

func (s *AttemptStore) List(_ context.Context, filter domain.AttemptFilter, page, pageSize int) ([]domain.Attempt, int, error) {
	matched := s.matching(filter)
	domain.SortAttemptsNewestFirst(matched)
	return domain.Page(matched, page, pageSize), len(matched), nil
}

func (s *AttemptStore) UserStats(_ context.Context, userID string) (domain.PerformanceStats, error) {
	return domain.SummarizePerformance(s.matching(domain.AttemptFilter{UserID: userID})), nil
}

func (s *AttemptStore) Leaderboard(_ context.Context, topicID string, limit int) ([]domain.LeaderboardEntry, error) {
	return domain.RankLeaderboard(s.matching(domain.AttemptFilter{TopicID: topicID}), topicID, limit), nil
}

func (s *AttemptStore) matching(filter domain.AttemptFilter) []domain.Attempt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Attempt, 0, len(s.attempts))
	for _, a := range s.attempts {
		if filter.Matches(a) {
			out = append(out, a.Clone())
		}
	}
	return out
}

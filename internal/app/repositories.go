package app

import (
	"context"

	"competiquest/internal/domain"
)

// AttemptRepository abstracts how quiz attempts are stored (in-memory, Redis, Postgres).
type AttemptRepository interface {
	Create(ctx context.Context, attempt domain.Attempt) error
	// Get returns domain.ErrAttemptNotFound for unknown ids.
	Get(ctx context.Context, id string) (domain.Attempt, error)
	// Complete stores a graded attempt only while the stored copy is still in progress.
	// It returns domain.ErrAlreadySubmitted when another submission won.
	Complete(ctx context.Context, attempt domain.Attempt) error
	Delete(ctx context.Context, id string) error
	// List returns one page of matching attempts, newest first, and the total match count.
	List(ctx context.Context, filter domain.AttemptFilter, page, pageSize int) ([]domain.Attempt, int, error)
	UserStats(ctx context.Context, userID string) (domain.PerformanceStats, error)
	// Leaderboard returns ranked per-user aggregates with usernames left empty.
	Leaderboard(ctx context.Context, topicID string, limit int) ([]domain.LeaderboardEntry, error)
}

// TopicRepository resolves topics.
type TopicRepository interface {
	// FindTopic returns domain.ErrTopicNotFound for unknown ids.
	FindTopic(ctx context.Context, id string) (domain.Topic, error)
}

// QuestionRepository reads the persisted question pool.
type QuestionRepository interface {
	// SampleQuestions draws up to n matching questions of a topic uniformly without replacement.
	SampleQuestions(ctx context.Context, topicID string, filters domain.QuestionFilters, n int) ([]domain.Question, error)
	// QuestionsByID returns the questions that still exist among ids, in any order.
	QuestionsByID(ctx context.Context, ids []string) ([]domain.Question, error)
}

// UserRepository stores accounts and their quiz history association.
type UserRepository interface {
	// CreateUser returns domain.ErrUserExists on a duplicate email or username.
	CreateUser(ctx context.Context, user domain.User) error
	// GetUser and FindByUsername return domain.ErrUserNotFound for unknown users.
	GetUser(ctx context.Context, id string) (domain.User, error)
	FindByUsername(ctx context.Context, username string) (domain.User, error)
	AppendHistory(ctx context.Context, userID, attemptID string) error
	RemoveHistory(ctx context.Context, userID, attemptID string) error
}

// QuizGenerator produces ephemeral questions about a free-form topic.
type QuizGenerator interface {
	Generate(ctx context.Context, topic string, count int, level string) ([]domain.GeneratedQuestion, error)
}

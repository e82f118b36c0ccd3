package domain

import "time"

// Role is the capability level of an authenticated user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Principal is the authenticated caller of a use case.
type Principal struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

// IsAdmin reports whether the principal bypasses ownership checks.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// CanAccess reports whether the principal may act on data owned by userID.
func (p Principal) CanAccess(userID string) bool {
	return p.UserID != "" && (p.UserID == userID || p.IsAdmin())
}

// User is a registered account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Principal returns the identity carried in tokens for this user.
func (u User) Principal() Principal {
	return Principal{UserID: u.ID, Role: u.Role}
}

// Topic is a named subject area questions are grouped under.
type Topic struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Subjects    []string `json:"subjects,omitempty"`
}

// Difficulty grades a question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is one of the known difficulty levels.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Question is a persisted multiple choice question including its answer key.
type Question struct {
	ID                 string     `json:"id"`
	TopicID            string     `json:"topicId"`
	Description        string     `json:"description"`
	Options            []string   `json:"options"`
	CorrectOptionIndex int        `json:"correctOptionIndex"`
	Difficulty         Difficulty `json:"difficulty"`
	Subjects           []string   `json:"subjects,omitempty"`
	Explanation        string     `json:"explanation,omitempty"`
}

// Summary strips the answer key and explanation.
func (q Question) Summary() QuestionSummary {
	return QuestionSummary{
		ID:          q.ID,
		Description: q.Description,
		Options:     append([]string(nil), q.Options...),
		Difficulty:  q.Difficulty,
	}
}

// Snapshot copies the parts of a question needed to grade it.
func (q Question) Snapshot() QuestionSnapshot {
	return QuestionSnapshot{
		Description:        q.Description,
		Options:            append([]string(nil), q.Options...),
		CorrectOptionIndex: q.CorrectOptionIndex,
	}
}

// QuestionSummary is the client-facing view of a question. It never carries the answer key.
type QuestionSummary struct {
	ID          string     `json:"id,omitempty"`
	Description string     `json:"description"`
	Options     []string   `json:"options"`
	Difficulty  Difficulty `json:"difficulty,omitempty"`
}

// QuestionFilters narrows the question pool of a topic.
type QuestionFilters struct {
	Difficulty Difficulty
	Subjects   []string
}

// Matches reports whether q satisfies the filters. Subjects match on any overlap.
func (f QuestionFilters) Matches(q Question) bool {
	if f.Difficulty != "" && q.Difficulty != f.Difficulty {
		return false
	}
	if len(f.Subjects) == 0 {
		return true
	}
	for _, want := range f.Subjects {
		for _, have := range q.Subjects {
			if want == have {
				return true
			}
		}
	}
	return false
}

// GeneratedQuestion is a question produced by an external generator, never persisted on its own.
type GeneratedQuestion struct {
	Description   string   `json:"description"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctOption"`
}

// AttemptSummary is the history listing view of an attempt.
type AttemptSummary struct {
	ID             string        `json:"id"`
	Topic          TopicView     `json:"topic"`
	Score          int           `json:"score"`
	Percentage     float64       `json:"percentage"`
	TotalQuestions int           `json:"totalQuestions"`
	Status         AttemptStatus `json:"status"`
	CreatedAt      time.Time     `json:"createdAt"`
	CompletedAt    *time.Time    `json:"completedAt,omitempty"`
}

// TopicView is a resolved topic reference, suitable for responses.
type TopicView struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// PerformanceStats aggregates the attempts of one user.
type PerformanceStats struct {
	TotalAttempts     int     `json:"totalAttempts"`
	AverageScore      float64 `json:"averageScore"`
	AveragePercentage float64 `json:"averagePercentage"`
	BestScore         int     `json:"bestScore"`
	BestPercentage    float64 `json:"bestPercentage"`
}

// LeaderboardEntry is one ranked user.
type LeaderboardEntry struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	PerformanceStats
}

// AttemptFilter selects attempts for listings. Empty fields match everything.
type AttemptFilter struct {
	UserID  string
	TopicID string
}

// Matches reports whether the attempt satisfies the filter.
func (f AttemptFilter) Matches(a Attempt) bool {
	if f.UserID != "" && a.UserID != f.UserID {
		return false
	}
	if f.TopicID != "" && a.Topic.ReferenceID() != f.TopicID {
		return false
	}
	return true
}

package domain

import (
	"math"
	"time"
)

// AttemptStatus is the lifecycle state of a quiz attempt.
type AttemptStatus string

const (
	StatusInProgress AttemptStatus = "in_progress"
	StatusCompleted  AttemptStatus = "completed"
)

// RefKind tags the variant held by TopicRef and QuestionRef.
type RefKind string

const (
	RefReference RefKind = "reference"
	RefInline    RefKind = "inline"
)

// TopicRef points at a persisted topic or carries an inline one for generated quizzes.
type TopicRef struct {
	Kind        RefKind `json:"kind"`
	ID          string  `json:"id,omitempty"`
	Name        string  `json:"name,omitempty"`
	Description string  `json:"description,omitempty"`
}

// ReferenceTopic refers to a persisted topic by id.
func ReferenceTopic(id string) TopicRef {
	return TopicRef{Kind: RefReference, ID: id}
}

// InlineTopic describes a topic that only exists inside the attempt.
func InlineTopic(name, description string) TopicRef {
	return TopicRef{Kind: RefInline, Name: name, Description: description}
}

// ReferenceID returns the persisted topic id, or "" for inline topics.
func (t TopicRef) ReferenceID() string {
	if t.Kind == RefReference {
		return t.ID
	}
	return ""
}

// QuestionSnapshot is the gradeable content of a question.
type QuestionSnapshot struct {
	Description        string   `json:"description"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex"`
}

// QuestionRef points at a persisted question or embeds an ephemeral one.
type QuestionRef struct {
	Kind       RefKind           `json:"kind"`
	QuestionID string            `json:"questionId,omitempty"`
	Snapshot   *QuestionSnapshot `json:"snapshot,omitempty"`
}

// ReferenceQuestion refers to a persisted question.
func ReferenceQuestion(id string) QuestionRef {
	return QuestionRef{Kind: RefReference, QuestionID: id}
}

// InlineQuestion embeds a question snapshot.
func InlineQuestion(s QuestionSnapshot) QuestionRef {
	s.Options = append([]string(nil), s.Options...)
	return QuestionRef{Kind: RefInline, Snapshot: &s}
}

// Resolve returns the snapshot for the entry, looking reference entries up in keys.
func (r QuestionRef) Resolve(keys map[string]QuestionSnapshot) (QuestionSnapshot, bool) {
	switch r.Kind {
	case RefInline:
		if r.Snapshot == nil {
			return QuestionSnapshot{}, false
		}
		return *r.Snapshot, true
	case RefReference:
		s, ok := keys[r.QuestionID]
		return s, ok
	}
	return QuestionSnapshot{}, false
}

// Entry is one question-and-answer pairing within an attempt.
type Entry struct {
	Question            QuestionRef `json:"question"`
	SelectedOptionIndex *int        `json:"selectedOptionIndex"`
	IsCorrect           *bool       `json:"isCorrect"`
}

// Answer is the client's selection for the entry at the same position.
type Answer struct {
	SelectedOptionIndex *int `json:"selectedOptionIndex"`
}

// Attempt is one user's run through a fixed set of questions.
type Attempt struct {
	ID          string        `json:"id"`
	UserID      string        `json:"userId"`
	Topic       TopicRef      `json:"topic"`
	Entries     []Entry       `json:"entries"`
	Status      AttemptStatus `json:"status"`
	Score       int           `json:"score"`
	Percentage  float64       `json:"percentage"`
	CreatedAt   time.Time     `json:"createdAt"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`
}

// NewAttempt builds an in-progress attempt with one unanswered entry per question ref.
func NewAttempt(id, userID string, topic TopicRef, refs []QuestionRef, createdAt time.Time) (Attempt, error) {
	if len(refs) == 0 {
		return Attempt{}, ErrNoQuestionsFound
	}
	entries := make([]Entry, len(refs))
	for i, ref := range refs {
		entries[i] = Entry{Question: ref}
	}
	return Attempt{
		ID:        id,
		UserID:    userID,
		Topic:     topic,
		Entries:   entries,
		Status:    StatusInProgress,
		CreatedAt: createdAt,
	}, nil
}

// Completed reports whether the attempt has been scored.
func (a Attempt) Completed() bool {
	return a.Status == StatusCompleted
}

// ReferencedQuestionIDs lists the persisted question ids the entries point at.
func (a Attempt) ReferencedQuestionIDs() []string {
	ids := make([]string, 0, len(a.Entries))
	for _, e := range a.Entries {
		if e.Question.Kind == RefReference {
			ids = append(ids, e.Question.QuestionID)
		}
	}
	return ids
}

// Grade scores the attempt against answers and moves it to completed.
// answers[i] pairs with Entries[i]; missing answers are left unanswered and extra ones ignored.
// Reference entries whose key is absent from keys are graded incorrect.
// The attempt is left untouched when an error is returned.
func (a *Attempt) Grade(answers []Answer, keys map[string]QuestionSnapshot, at time.Time) error {
	if a.Completed() {
		return ErrAlreadySubmitted
	}
	if len(a.Entries) == 0 {
		return ErrInvalidInput
	}
	for _, e := range a.Entries {
		if e.SelectedOptionIndex != nil || e.IsCorrect != nil {
			return ErrAlreadySubmitted
		}
	}

	graded := make([]Entry, len(a.Entries))
	score := 0
	for i, e := range a.Entries {
		var selected *int
		if i < len(answers) && answers[i].SelectedOptionIndex != nil {
			v := *answers[i].SelectedOptionIndex
			selected = &v
		}
		correct := false
		if snap, ok := e.Question.Resolve(keys); ok && selected != nil {
			correct = *selected == snap.CorrectOptionIndex
		}
		if correct {
			score++
		}
		graded[i] = Entry{
			Question:            e.Question,
			SelectedOptionIndex: selected,
			IsCorrect:           &correct,
		}
	}

	completedAt := at
	a.Entries = graded
	a.Score = score
	a.Percentage = Percentage(score, len(graded))
	a.Status = StatusCompleted
	a.CompletedAt = &completedAt
	return nil
}

// Summary builds the history view given the resolved topic.
func (a Attempt) Summary(topic TopicView) AttemptSummary {
	return AttemptSummary{
		ID:             a.ID,
		Topic:          topic,
		Score:          a.Score,
		Percentage:     a.Percentage,
		TotalQuestions: len(a.Entries),
		Status:         a.Status,
		CreatedAt:      a.CreatedAt,
		CompletedAt:    a.CompletedAt,
	}
}

// Clone deep-copies the attempt so stores never share entry memory with callers.
func (a Attempt) Clone() Attempt {
	out := a
	out.Entries = make([]Entry, len(a.Entries))
	for i, e := range a.Entries {
		c := Entry{Question: e.Question}
		if e.Question.Snapshot != nil {
			s := *e.Question.Snapshot
			s.Options = append([]string(nil), s.Options...)
			c.Question.Snapshot = &s
		}
		if e.SelectedOptionIndex != nil {
			v := *e.SelectedOptionIndex
			c.SelectedOptionIndex = &v
		}
		if e.IsCorrect != nil {
			v := *e.IsCorrect
			c.IsCorrect = &v
		}
		out.Entries[i] = c
	}
	if a.CompletedAt != nil {
		t := *a.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

// Percentage returns score/total*100 rounded to two decimals, 0 for an empty total.
func Percentage(score, total int) float64 {
	if total == 0 {
		return 0
	}
	return Round2(float64(score) / float64(total) * 100)
}

// Round2 rounds to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

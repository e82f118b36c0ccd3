// Package seed holds the demo topics and questions loaded by `competiquest seed` and by the
// in-memory mode of `competiquest start`.
package seed

import "competiquest/internal/domain"

// Catalog is anything topics and questions can be written to.
type Catalog interface {
	AddTopic(domain.Topic)
	AddQuestion(domain.Question)
}

// Topics returns the demo topics.
func Topics() []domain.Topic {
	return []domain.Topic{
		{ID: "go-basics", Name: "Go Basics", Description: "Syntax and semantics of the Go language", Subjects: []string{"syntax", "types", "concurrency"}},
		{ID: "http", Name: "HTTP", Description: "The protocol behind the web", Subjects: []string{"methods", "status-codes"}},
	}
}

// Questions returns the demo questions.
func Questions() []domain.Question {
	return []domain.Question{
		{ID: "go-1", TopicID: "go-basics", Description: "Which keyword starts a goroutine?", Options: []string{"async", "go", "spawn", "thread"}, CorrectOptionIndex: 1, Difficulty: domain.DifficultyEasy, Subjects: []string{"concurrency"}},
		{ID: "go-2", TopicID: "go-basics", Description: "What is the zero value of a map?", Options: []string{"an empty map", "nil", "0", "undefined"}, CorrectOptionIndex: 1, Difficulty: domain.DifficultyEasy, Subjects: []string{"types"}},
		{ID: "go-3", TopicID: "go-basics", Description: "Which statement declares and assigns in one step?", Options: []string{"=", ":=", "let", "var :="}, CorrectOptionIndex: 1, Difficulty: domain.DifficultyEasy, Subjects: []string{"syntax"}},
		{ID: "go-4", TopicID: "go-basics", Description: "What happens when sending on a closed channel?", Options: []string{"the value is dropped", "it blocks forever", "it panics", "it returns an error"}, CorrectOptionIndex: 2, Difficulty: domain.DifficultyMedium, Subjects: []string{"concurrency"}},
		{ID: "go-5", TopicID: "go-basics", Description: "Which type satisfies an interface with no methods?", Options: []string{"only structs", "only pointers", "every type", "no type"}, CorrectOptionIndex: 2, Difficulty: domain.DifficultyMedium, Subjects: []string{"types"}},
		{ID: "go-6", TopicID: "go-basics", Description: "What does a select with no cases do?", Options: []string{"returns immediately", "blocks forever", "panics", "does not compile"}, CorrectOptionIndex: 1, Difficulty: domain.DifficultyHard, Subjects: []string{"concurrency"}},
		{ID: "http-1", TopicID: "http", Description: "Which method is idempotent?", Options: []string{"POST", "PATCH", "PUT", "CONNECT"}, CorrectOptionIndex: 2, Difficulty: domain.DifficultyMedium, Subjects: []string{"methods"}},
		{ID: "http-2", TopicID: "http", Description: "Which status means the resource was not found?", Options: []string{"400", "401", "403", "404"}, CorrectOptionIndex: 3, Difficulty: domain.DifficultyEasy, Subjects: []string{"status-codes"}},
		{ID: "http-3", TopicID: "http", Description: "Which status reports a conflict with the current state?", Options: []string{"409", "410", "412", "422"}, CorrectOptionIndex: 0, Difficulty: domain.DifficultyMedium, Subjects: []string{"status-codes"}},
	}
}

// Load writes every demo topic and question into c.
func Load(c Catalog) {
	for _, t := range Topics() {
		c.AddTopic(t)
	}
	for _, q := range Questions() {
		c.AddQuestion(q)
	}
}

package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"competiquest/internal/domain"
)

// Catalog is an in-memory topic and question store implementing app.TopicRepository and
// app.QuestionRepository. Useful for tests, demos and the no-database mode.
type Catalog struct {
	mu        sync.RWMutex
	topics    map[string]domain.Topic
	questions map[string]domain.Question
	byTopic   map[string][]string

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewCatalog() *Catalog {
	return NewCatalogWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewCatalogWithSource is used by tests for reproducible sampling.
func NewCatalogWithSource(src rand.Source) *Catalog {
	return &Catalog{
		topics:    make(map[string]domain.Topic),
		questions: make(map[string]domain.Question),
		byTopic:   make(map[string][]string),
		rnd:       rand.New(src),
	}
}

func (c *Catalog) AddTopic(t domain.Topic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t.Subjects = append([]string(nil), t.Subjects...)
	c.topics[t.ID] = t
}

// AddQuestion stores q, replacing any question with the same id.
func (c *Catalog) AddQuestion(q domain.Question) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.questions[q.ID]; ok {
		c.byTopic[old.TopicID] = without(c.byTopic[old.TopicID], q.ID)
	}
	q.Options = append([]string(nil), q.Options...)
	q.Subjects = append([]string(nil), q.Subjects...)
	c.questions[q.ID] = q
	c.byTopic[q.TopicID] = append(c.byTopic[q.TopicID], q.ID)
}

// RemoveQuestion deletes a question; attempts that reference it grade it as incorrect.
func (c *Catalog) RemoveQuestion(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.questions[id]
	if !ok {
		return
	}
	delete(c.questions, id)
	c.byTopic[q.TopicID] = without(c.byTopic[q.TopicID], id)
}

func (c *Catalog) FindTopic(_ context.Context, id string) (domain.Topic, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.topics[id]
	if !ok {
		return domain.Topic{}, domain.ErrTopicNotFound
	}
	return t, nil
}

// SampleQuestions draws up to n matching questions with a partial Fisher-Yates shuffle.
func (c *Catalog) SampleQuestions(_ context.Context, topicID string, filters domain.QuestionFilters, n int) ([]domain.Question, error) {
	c.mu.RLock()
	candidates := make([]domain.Question, 0, len(c.byTopic[topicID]))
	for _, id := range c.byTopic[topicID] {
		if q := c.questions[id]; filters.Matches(q) {
			candidates = append(candidates, q)
		}
	}
	c.mu.RUnlock()

	if n > len(candidates) {
		n = len(candidates)
	}
	c.rndMu.Lock()
	for i := 0; i < n; i++ {
		j := i + c.rnd.Intn(len(candidates)-i)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}
	c.rndMu.Unlock()
	return candidates[:n], nil
}

func (c *Catalog) QuestionsByID(_ context.Context, ids []string) ([]domain.Question, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := c.questions[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

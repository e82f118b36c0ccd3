package postgres

import (
	"context"
	"errors"

	"competiquest/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"golang.org/x/sync/singleflight"
)

const questionColumns = `id, topic_id, description, options, correct_option_index, difficulty, subjects, explanation`

// Catalog reads topics and questions through a pgx pool. Concurrent lookups of the same topic
// share one query.
type Catalog struct {
	pool *pgxpool.Pool
	sf   singleflight.Group
}

func NewCatalog(pool *pgxpool.Pool) *Catalog {
	return &Catalog{pool: pool}
}

func (c *Catalog) FindTopic(ctx context.Context, id string) (domain.Topic, error) {
	result, err, _ := c.sf.Do(id, func() (interface{}, error) {
		var t domain.Topic
		err := c.pool.QueryRow(ctx,
			`SELECT id, name, description, subjects FROM topics WHERE id = $1`, id,
		).Scan(&t.ID, &t.Name, &t.Description, &t.Subjects)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Topic{}, domain.ErrTopicNotFound
		}
		if err != nil {
			return domain.Topic{}, storageErr("load topic", err)
		}
		return t, nil
	})
	if err != nil {
		return domain.Topic{}, err
	}
	return result.(domain.Topic), nil
}

// SampleQuestions lets Postgres pick n random matching rows.
func (c *Catalog) SampleQuestions(ctx context.Context, topicID string, filters domain.QuestionFilters, n int) ([]domain.Question, error) {
	subjects := filters.Subjects
	if subjects == nil {
		subjects = []string{}
	}
	rows, err := c.pool.Query(ctx, `
SELECT `+questionColumns+`
FROM questions
WHERE topic_id = $1
  AND ($2 = '' OR difficulty = $2)
  AND (cardinality($3::text[]) = 0 OR subjects && $3::text[])
ORDER BY random()
LIMIT $4`, topicID, string(filters.Difficulty), subjects, n)
	if err != nil {
		return nil, storageErr("sample questions", err)
	}
	return scanQuestions(rows)
}

func (c *Catalog) QuestionsByID(ctx context.Context, ids []string) ([]domain.Question, error) {
	if len(ids) == 0 {
		return []domain.Question{}, nil
	}
	rows, err := c.pool.Query(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, storageErr("load questions", err)
	}
	return scanQuestions(rows)
}

// UpsertTopic inserts or replaces a topic.
func (c *Catalog) UpsertTopic(ctx context.Context, t domain.Topic) error {
	subjects := t.Subjects
	if subjects == nil {
		subjects = []string{}
	}
	_, err := c.pool.Exec(ctx, `
INSERT INTO topics (id, name, description, subjects) VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description, subjects = EXCLUDED.subjects`,
		t.ID, t.Name, t.Description, subjects)
	if err != nil {
		return storageErr("upsert topic", err)
	}
	return nil
}

// UpsertQuestion inserts or replaces a question. The topic must exist.
func (c *Catalog) UpsertQuestion(ctx context.Context, q domain.Question) error {
	subjects := q.Subjects
	if subjects == nil {
		subjects = []string{}
	}
	difficulty := q.Difficulty
	if difficulty == "" {
		difficulty = domain.DifficultyMedium
	}
	_, err := c.pool.Exec(ctx, `
INSERT INTO questions (`+questionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
    topic_id = EXCLUDED.topic_id,
    description = EXCLUDED.description,
    options = EXCLUDED.options,
    correct_option_index = EXCLUDED.correct_option_index,
    difficulty = EXCLUDED.difficulty,
    subjects = EXCLUDED.subjects,
    explanation = EXCLUDED.explanation`,
		q.ID, q.TopicID, q.Description, q.Options, q.CorrectOptionIndex, string(difficulty), subjects, q.Explanation)
	if err != nil {
		return storageErr("upsert question", err)
	}
	return nil
}

// DeleteQuestion removes a question from the pool.
func (c *Catalog) DeleteQuestion(ctx context.Context, id string) error {
	if _, err := c.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id); err != nil {
		return storageErr("delete question", err)
	}
	return nil
}

func scanQuestions(rows pgx.Rows) ([]domain.Question, error) {
	defer rows.Close()
	var out []domain.Question
	for rows.Next() {
		var (
			q          domain.Question
			difficulty string
		)
		if err := rows.Scan(&q.ID, &q.TopicID, &q.Description, &q.Options, &q.CorrectOptionIndex, &difficulty, &q.Subjects, &q.Explanation); err != nil {
			return nil, storageErr("scan question", err)
		}
		q.Difficulty = domain.Difficulty(difficulty)
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate questions", err)
	}
	return out, nil
}

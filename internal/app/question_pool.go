package app

import (
	"context"
	"fmt"

	"competiquest/internal/domain"
)

// QuestionPool hands out randomized, answer-key-free question batches and resolves answer keys
// server-side. It is the only path from stored questions to quiz takers.
type QuestionPool struct {
	topics    TopicRepository
	questions QuestionRepository
}

func NewQuestionPool(topics TopicRepository, questions QuestionRepository) *QuestionPool {
	return &QuestionPool{topics: topics, questions: questions}
}

// Sample resolves the topic and draws min(count, matching) questions from it.
func (p *QuestionPool) Sample(ctx context.Context, topicID string, count int, filters domain.QuestionFilters) (domain.Topic, []domain.QuestionSummary, error) {
	if count < 1 {
		return domain.Topic{}, nil, fmt.Errorf("%w: question count must be at least 1", domain.ErrInvalidInput)
	}
	topic, err := p.topics.FindTopic(ctx, topicID)
	if err != nil {
		return domain.Topic{}, nil, err
	}

	questions, err := p.questions.SampleQuestions(ctx, topic.ID, filters, count)
	if err != nil {
		return domain.Topic{}, nil, err
	}
	if len(questions) == 0 {
		return domain.Topic{}, nil, domain.ErrNoQuestionsFound
	}
	if len(questions) > count {
		questions = questions[:count]
	}

	summaries := make([]domain.QuestionSummary, len(questions))
	for i, q := range questions {
		summaries[i] = q.Summary()
	}
	return topic, summaries, nil
}

// AnswerKeys looks up the gradeable snapshot of each still-existing question in ids.
func (p *QuestionPool) AnswerKeys(ctx context.Context, ids []string) (map[string]domain.QuestionSnapshot, error) {
	keys := make(map[string]domain.QuestionSnapshot, len(ids))
	if len(ids) == 0 {
		return keys, nil
	}
	questions, err := p.questions.QuestionsByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, q := range questions {
		keys[q.ID] = q.Snapshot()
	}
	return keys, nil
}

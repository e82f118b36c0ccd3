// Package generator produces multiple choice questions about free-form topics with an LLM.
package generator

import (
	"context"
	"fmt"
	"strings"

	"competiquest/internal/domain"
)

// LLMClient sends one prompt pair and returns the raw text answer.
type LLMClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Generator turns LLM output into validated questions.
type Generator struct {
	client LLMClient
}

func New(client LLMClient) *Generator {
	return &Generator{client: client}
}

// Generate asks for count questions about topic at level and returns at most count valid ones.
func (g *Generator) Generate(ctx context.Context, topic string, count int, level string) ([]domain.GeneratedQuestion, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: question count must be at least 1", domain.ErrInvalidInput)
	}
	raw, err := g.client.Complete(ctx, systemPrompt, userPrompt(topic, count, level))
	if err != nil {
		return nil, err
	}
	questions, err := ParseResponse(raw)
	if err != nil {
		return nil, err
	}
	if len(questions) > count {
		questions = questions[:count]
	}
	return questions, nil
}

const systemPrompt = `You write multiple choice quiz questions. Reply with JSON only, no prose.`

func userPrompt(topic string, count int, level string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d multiple choice questions about %s at %s difficulty level.\n", count, topic, level)
	b.WriteString(`Return ONLY a valid JSON array with this exact format:
[
  {
    "description": "Question text here?",
    "options": ["Option A", "Option B", "Option C", "Option D"],
    "correctOption": 0
  }
]
Make sure correctOption is the index (0-3) of the correct answer in the options array.`)
	return b.String()
}

package generator

import (
	"context"
	"fmt"
	"log"
	"time"

	"competiquest/internal/domain"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
)

// APIClient talks to the Anthropic Messages API.
type APIClient struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
	backoff   time.Duration
}

func NewAPIClient(apiKey, model string, maxTokens int64) *APIClient {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &APIClient{client: &client, model: model, maxTokens: maxTokens, backoff: 2 * time.Second}
}

func (c *APIClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   c.maxTokens,
		Temperature: param.NewOpt(0.7),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	message, err := c.callWithRetry(ctx, params)
	if err != nil {
		return "", err
	}
	for _, block := range message.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in API response")
}

func (c *APIClient) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			log.Printf("retrying anthropic call in %v (attempt %d)", c.backoff, attempt+1)
			select {
			case <-time.After(c.backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return message, nil
		}
		lastErr = err
		log.Printf("anthropic attempt %d failed: %v", attempt+1, err)
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}

// MockClient returns fixed placeholder questions for local development.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (MockClient) Generate(_ context.Context, topic string, count int, _ string) ([]domain.GeneratedQuestion, error) {
	sample := []domain.GeneratedQuestion{
		{
			Description:   fmt.Sprintf("What is a key concept in %s?", topic),
			Options:       []string{"Option A", "Option B", "Option C", "Option D"},
			CorrectOption: 0,
		},
		{
			Description:   fmt.Sprintf("Which of the following is true about %s?", topic),
			Options:       []string{"Statement 1", "Statement 2", "Statement 3", "Statement 4"},
			CorrectOption: 1,
		},
		{
			Description:   fmt.Sprintf("In %s, what does this mean?", topic),
			Options:       []string{"Definition A", "Definition B", "Definition C", "Definition D"},
			CorrectOption: 2,
		},
	}
	if count < len(sample) {
		sample = sample[:count]
	}
	return sample, nil
}

package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"competiquest/internal/domain"
)

type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

// ParseResponse accepts a bare JSON array or an object with a "questions" array, optionally
// wrapped in Markdown code fences.
func ParseResponse(body string) ([]domain.GeneratedQuestion, error) {
	cleaned := stripCodeFences(body)

	var questions []domain.GeneratedQuestion
	if strings.HasPrefix(cleaned, "{") {
		var wrapped struct {
			Questions []domain.GeneratedQuestion `json:"questions"`
		}
		if err := json.Unmarshal([]byte(cleaned), &wrapped); err != nil {
			return nil, fmt.Errorf("failed to parse JSON response: %w", err)
		}
		questions = wrapped.Questions
	} else if err := json.Unmarshal([]byte(cleaned), &questions); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	if err := validate(questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimSpace(s)
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}

func validate(questions []domain.GeneratedQuestion) error {
	if len(questions) == 0 {
		return &ValidationError{Errors: []string{"no questions in response"}}
	}
	var errs []string
	for i, q := range questions {
		if strings.TrimSpace(q.Description) == "" {
			errs = append(errs, fmt.Sprintf("question %d: empty description", i+1))
		}
		if len(q.Options) < 2 {
			errs = append(errs, fmt.Sprintf("question %d: expected at least 2 options, got %d", i+1, len(q.Options)))
		}
		if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
			errs = append(errs, fmt.Sprintf("question %d: correctOption %d out of range", i+1, q.CorrectOption))
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// Package llm wraps the Gemini API behind a small text-in/text-out client
// with model fallback: models are tried in order and the next one takes over
// when the current one reports a quota condition.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	logx "wingwatch/pkg/logx"
)

var defaultModels = []string{"gemini-2.5-flash", "gemini-2.5-flash-lite"}

type Gemini struct {
	client *genai.Client
	models []string
	log    logx.Logger
}

func NewGemini(ctx context.Context, apiKey string, models []string, log logx.Logger) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("llm: api key is required")
	}
	if len(models) == 0 {
		models = defaultModels
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	return &Gemini{client: client, models: models, log: log}, nil
}

// Generate sends the prompt and returns the first candidate's text.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for _, model := range g.models {
		result, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
		if err != nil {
			if isQuotaErr(err) {
				g.log.Warn("model quota hit; trying next", logx.String("model", model), logx.Err(err))
				lastErr = err
				continue
			}
			return "", err
		}
		if result != nil && len(result.Candidates) > 0 &&
			result.Candidates[0].Content != nil && len(result.Candidates[0].Content.Parts) > 0 {
			return result.Candidates[0].Content.Parts[0].Text, nil
		}
		lastErr = errors.New("empty model response")
	}
	return "", fmt.Errorf("all models failed: %w", lastErr)
}

func isQuotaErr(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "429") ||
		strings.Contains(s, "rate limit") ||
		strings.Contains(s, "exhausted") ||
		strings.Contains(s, "quota")
}

// CleanJSON strips markdown code fences some models wrap around JSON output.
func CleanJSON(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}

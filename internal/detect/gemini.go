package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"wingwatch/internal/content"
	"wingwatch/internal/llm"
	logx "wingwatch/pkg/logx"
)

const comparisonPrompt = `Compare the previous and current airline travel advisories for SIGNIFICANT changes only.

ONLY mark as changed if there are:
- New flight cancellation dates
- New destinations affected
- New security restrictions
- New policies or procedures
- Actually NEW information

IGNORE:
- Reordering of the same items
- Minor wording changes
- Same content under a different title
- Formatting differences

Significance levels:
- "major": new cancellations, security updates, policy changes, new restrictions
- "minor": small text changes, date formatting, minor clarifications
- "none": no meaningful changes

Respond with a single JSON object and nothing else:
{"has_changed": bool, "significance": "major"|"minor"|"none", "new_titles": [..], "modified_titles": [..], "details": "short description of what changed"}

PREVIOUS updates:
%s

CURRENT updates:
%s

Be very strict - only real policy/date/destination changes matter.`

// GeminiClassifier delegates the semantic comparison to Google Gemini.
type GeminiClassifier struct {
	llm *llm.Gemini
}

func NewGeminiClassifier(ctx context.Context, apiKey string, models []string, log logx.Logger) (*GeminiClassifier, error) {
	client, err := llm.NewGemini(ctx, apiKey, models, log)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	return &GeminiClassifier{llm: client}, nil
}

var _ Classifier = (*GeminiClassifier)(nil)

type comparisonReply struct {
	HasChanged     bool     `json:"has_changed"`
	Significance   string   `json:"significance"`
	NewTitles      []string `json:"new_titles"`
	ModifiedTitles []string `json:"modified_titles"`
	Details        string   `json:"details"`
}

func (g *GeminiClassifier) Compare(ctx context.Context, previous, current []content.Item) (Comparison, error) {
	prompt := fmt.Sprintf(comparisonPrompt, renderItems(previous), renderItems(current))

	text, err := g.llm.Generate(ctx, prompt)
	if err != nil {
		return Comparison{}, err
	}

	var reply comparisonReply
	if err := json.Unmarshal([]byte(llm.CleanJSON(text)), &reply); err != nil {
		return Comparison{}, fmt.Errorf("unreadable model reply: %w", err)
	}

	sig := ParseSignificance(reply.Significance)
	if !reply.HasChanged {
		sig = SignificanceNone
	}
	return Comparison{
		Changed:        reply.HasChanged,
		Significance:   sig,
		NewTitles:      reply.NewTitles,
		ModifiedTitles: reply.ModifiedTitles,
		Details:        reply.Details,
	}, nil
}

func renderItems(items []content.Item) string {
	if len(items) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for i, it := range items {
		fmt.Fprintf(&b, "%d. %s\n   %s\n\n", i+1, it.Title, it.Body)
	}
	return strings.TrimRight(b.String(), "\n")
}

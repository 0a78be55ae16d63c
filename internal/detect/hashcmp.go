package detect

import (
	"context"
	"fmt"

	"wingwatch/internal/content"
)

// HashClassifier is a deterministic, model-free comparison backend.
//
// It matches items by title (order-insensitive): an unknown title is a new
// item (major), a known title with a different body is a modification
// (minor), anything else is no change. It cannot tell wording changes from
// factual ones, so it over-reports modifications compared to the model
// backend; it exists for installs that can't (or won't) call one.
type HashClassifier struct{}

var _ Classifier = HashClassifier{}

func (HashClassifier) Compare(_ context.Context, previous, current []content.Item) (Comparison, error) {
	prev := make(map[string]string, len(previous))
	for _, it := range previous {
		prev[it.Title] = it.Body
	}

	var newTitles, modified []string
	for _, it := range current {
		body, ok := prev[it.Title]
		if !ok {
			newTitles = append(newTitles, it.Title)
			continue
		}
		if body != it.Body {
			modified = append(modified, it.Title)
		}
	}

	switch {
	case len(newTitles) > 0:
		return Comparison{
			Changed:        true,
			Significance:   SignificanceMajor,
			NewTitles:      newTitles,
			ModifiedTitles: modified,
			Details:        fmt.Sprintf("%d new, %d modified", len(newTitles), len(modified)),
		}, nil
	case len(modified) > 0:
		return Comparison{
			Changed:        true,
			Significance:   SignificanceMinor,
			ModifiedTitles: modified,
			Details:        fmt.Sprintf("%d modified", len(modified)),
		}, nil
	default:
		return Comparison{Changed: false, Significance: SignificanceNone}, nil
	}
}

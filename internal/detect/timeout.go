package detect

import (
	"context"
	"time"

	"wingwatch/internal/content"
)

// timeoutClassifier bounds every Compare call with its own deadline so a
// stalled backend cannot hang a run.
type timeoutClassifier struct {
	inner   Classifier
	timeout time.Duration
}

// WithTimeout wraps cls so that each Compare call runs under d. A
// non-positive d returns cls unchanged.
func WithTimeout(cls Classifier, d time.Duration) Classifier {
	if d <= 0 {
		return cls
	}
	return &timeoutClassifier{inner: cls, timeout: d}
}

func (t *timeoutClassifier) Compare(ctx context.Context, previous, current []content.Item) (Comparison, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Compare(ctx, previous, current)
}

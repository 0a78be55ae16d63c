package detect

import (
	"context"
	"errors"
	"testing"
	"time"

	"wingwatch/internal/content"
)

// blockingClassifier never returns on its own; it waits for the context.
type blockingClassifier struct{}

func (blockingClassifier) Compare(ctx context.Context, _, _ []content.Item) (Comparison, error) {
	<-ctx.Done()
	return Comparison{}, ctx.Err()
}

func TestWithTimeoutBoundsCompare(t *testing.T) {
	t.Parallel()
	cls := WithTimeout(blockingClassifier{}, 20*time.Millisecond)

	start := time.Now()
	_, err := cls.Compare(context.Background(), nil, []content.Item{{Title: "a", Body: "b"}})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Compare error = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("Compare did not return promptly")
	}
}

func TestWithTimeoutDisabledReturnsUnwrapped(t *testing.T) {
	t.Parallel()
	base := Classifier(blockingClassifier{})
	if got := WithTimeout(base, 0); got != base {
		t.Fatalf("WithTimeout(cls, 0) = %T, want the classifier unchanged", got)
	}
}

func TestWithTimeoutKeepsEarlierParentDeadline(t *testing.T) {
	t.Parallel()
	cls := WithTimeout(blockingClassifier{}, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := cls.Compare(ctx, nil, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Compare error = %v, want parent deadline exceeded", err)
	}
}

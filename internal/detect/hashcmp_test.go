package detect

import (
	"context"
	"testing"

	"wingwatch/internal/content"
)

func TestHashClassifierNewTitleIsMajor(t *testing.T) {
	t.Parallel()
	cmp, err := HashClassifier{}.Compare(context.Background(),
		[]content.Item{{Title: "a", Body: "1"}},
		[]content.Item{{Title: "a", Body: "1"}, {Title: "b", Body: "2"}})
	if err != nil {
		t.Fatalf("Compare error: %v", err)
	}
	if !cmp.Changed || cmp.Significance != SignificanceMajor {
		t.Fatalf("expected major change, got %+v", cmp)
	}
	if len(cmp.NewTitles) != 1 || cmp.NewTitles[0] != "b" {
		t.Fatalf("NewTitles = %v", cmp.NewTitles)
	}
}

func TestHashClassifierModifiedBodyIsMinor(t *testing.T) {
	t.Parallel()
	cmp, err := HashClassifier{}.Compare(context.Background(),
		[]content.Item{{Title: "a", Body: "old"}},
		[]content.Item{{Title: "a", Body: "new"}})
	if err != nil {
		t.Fatalf("Compare error: %v", err)
	}
	if !cmp.Changed || cmp.Significance != SignificanceMinor {
		t.Fatalf("expected minor change, got %+v", cmp)
	}
}

func TestHashClassifierReorderIsNoChange(t *testing.T) {
	t.Parallel()
	prev := []content.Item{{Title: "a", Body: "1"}, {Title: "b", Body: "2"}}
	cur := []content.Item{{Title: "b", Body: "2"}, {Title: "a", Body: "1"}}
	cmp, err := HashClassifier{}.Compare(context.Background(), prev, cur)
	if err != nil {
		t.Fatalf("Compare error: %v", err)
	}
	if cmp.Changed || cmp.Significance != SignificanceNone {
		t.Fatalf("reordering must not be a change, got %+v", cmp)
	}
}

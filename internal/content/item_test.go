package content

import (
	"strings"
	"testing"
)

func TestHashDeterministic(t *testing.T) {
	t.Parallel()
	items := []Item{
		{Title: "Flights to Rome cancelled", Body: "All flights on 12/09 are cancelled."},
		{Title: "New baggage policy", Body: "Carry-on limit reduced to 8kg."},
	}
	a := Hash(items)
	b := Hash([]Item{
		{Title: "Flights to Rome cancelled", Body: "All flights on 12/09 are cancelled."},
		{Title: "New baggage policy", Body: "Carry-on limit reduced to 8kg."},
	})
	if a != b {
		t.Fatalf("identical lists hashed differently: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected hex sha256, got %q", a)
	}
}

func TestHashOrderSensitive(t *testing.T) {
	t.Parallel()
	x := Item{Title: "a", Body: "1"}
	y := Item{Title: "b", Body: "2"}
	if Hash([]Item{x, y}) == Hash([]Item{y, x}) {
		t.Fatal("reordered lists must hash differently")
	}
}

func TestHashEmptyIsSentinel(t *testing.T) {
	t.Parallel()
	empty := Hash(nil)
	if empty != Hash([]Item{}) {
		t.Fatal("nil and empty slices must hash identically")
	}
	if empty == Hash([]Item{{Title: "x", Body: "y"}}) {
		t.Fatal("sentinel hash collided with real content")
	}
}

func TestHashBodyPrefixBound(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("x", 300)
	a := Hash([]Item{{Title: "t", Body: long + "tail-one"}})
	b := Hash([]Item{{Title: "t", Body: long + "tail-two"}})
	if a != b {
		t.Fatal("edits beyond the body prefix must not change the hash")
	}
	c := Hash([]Item{{Title: "t", Body: "different" + long}})
	if a == c {
		t.Fatal("edits inside the body prefix must change the hash")
	}
}

func TestHashIgnoresNonHashedFields(t *testing.T) {
	t.Parallel()
	a := Hash([]Item{{Title: "t", Body: "b", SourceURL: "https://a.example"}})
	b := Hash([]Item{{Title: "t", Body: "b", SourceURL: "https://b.example"}})
	if a != b {
		t.Fatal("source url must not participate in the hash")
	}
}

func TestTitles(t *testing.T) {
	t.Parallel()
	got := Titles([]Item{{Title: "one"}, {Title: "two"}})
	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Fatalf("unexpected titles: %v", got)
	}
}

package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	logx "wingwatch/pkg/logx"
)

const updatesPage = `<!DOCTYPE html>
<html>
<body>
  <p class="last-updated">Last update: 27/08/2026</p>
  <div class="news">
    <article class="update-item">
      <h3 class="title">Flights to Rome suspended</h3>
      <div class="content">All flights on 12/09 are cancelled until further notice.</div>
      <time class="date" datetime="2026-08-27">27 August</time>
      <a class="more" href="/news/rome">details</a>
    </article>
    <article class="update-item">
      <h3 class="title">Baggage policy change</h3>
      <div class="content">Carry-on limit reduced to 8kg on short-haul routes.</div>
    </article>
    <article class="update-item">
      <h3 class="title">Title without body</h3>
    </article>
  </div>
</body>
</html>`

func testSelectors() Selectors {
	return Selectors{
		Item:   "article.update-item",
		Title:  ".title",
		Body:   ".content",
		Date:   ".date",
		Link:   "a.more",
		Marker: ".last-updated",
	}
}

func TestCSSExtract(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(updatesPage))
	}))
	defer srv.Close()

	source, err := New(context.Background(), Config{
		URL:       srv.URL,
		Strategy:  "css",
		Timeout:   5 * time.Second,
		Selectors: testSelectors(),
	}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	session, err := source.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer session.Close()

	res, err := session.Extract(context.Background())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if res.Marker != "Last update: 27/08/2026" {
		t.Fatalf("Marker = %q", res.Marker)
	}
	// The item missing a body is skipped.
	if len(res.Items) != 2 {
		t.Fatalf("items = %+v", res.Items)
	}

	first := res.Items[0]
	if first.Title != "Flights to Rome suspended" {
		t.Fatalf("Title = %q", first.Title)
	}
	if first.Body != "All flights on 12/09 are cancelled until further notice." {
		t.Fatalf("Body = %q", first.Body)
	}
	if first.SourceURL != srv.URL+"/news/rome" {
		t.Fatalf("SourceURL = %q", first.SourceURL)
	}
	want := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	if !first.PublishDate.Equal(want) {
		t.Fatalf("PublishDate = %v, want %v", first.PublishDate, want)
	}

	second := res.Items[1]
	if strings.TrimSuffix(second.SourceURL, "/") != srv.URL {
		t.Fatalf("item without link must fall back to the page url, got %q", second.SourceURL)
	}
	if !second.PublishDate.IsZero() {
		t.Fatalf("item without date must have zero PublishDate, got %v", second.PublishDate)
	}
}

func TestCSSExtractServerError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	source, err := New(context.Background(), Config{
		URL:       srv.URL,
		Strategy:  "css",
		Selectors: testSelectors(),
	}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	session, err := source.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer session.Close()

	if _, err := session.Extract(context.Background()); err == nil {
		t.Fatal("expected error for a 503 page")
	}
}

func TestSessionCloseBlocksExtract(t *testing.T) {
	t.Parallel()
	source, err := New(context.Background(), Config{
		URL:       "https://example.invalid",
		Strategy:  "css",
		Selectors: testSelectors(),
	}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	session, err := source.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := session.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := session.Extract(context.Background()); err == nil {
		t.Fatal("a closed session must refuse extraction")
	}
}

func TestNewRejectsUnknownStrategy(t *testing.T) {
	t.Parallel()
	if _, err := New(context.Background(), Config{URL: "https://x", Strategy: "browser"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestNewRequiresURL(t *testing.T) {
	t.Parallel()
	if _, err := New(context.Background(), Config{Strategy: "css"}, logx.Nop()); err == nil {
		t.Fatal("expected error for missing url")
	}
}

func TestParseDateLayouts(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"2026-08-27", time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)},
		{"27/08/2026", time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)},
		{"2026-08-27T10:00:00Z", time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)},
		{"not a date", time.Time{}},
		{"", time.Time{}},
	}
	for _, tt := range tests {
		if got := parseDate(tt.raw); !got.Equal(tt.want) {
			t.Fatalf("parseDate(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

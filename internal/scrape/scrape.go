// Package scrape acquires the monitored page and extracts the content items
// a monitoring run compares. Two strategies exist: "css" reads the items with
// configured selectors, "ai" hands the cleaned page HTML to a model. A
// Session wraps one acquired page; callers must Close it when the run ends.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wingwatch/internal/content"
	logx "wingwatch/pkg/logx"
)

// Selectors are CSS selectors for the "css" strategy. Marker points at the
// page's own "last updated" stamp and is read under both strategies.
type Selectors struct {
	Item   string
	Title  string
	Body   string
	Date   string
	Link   string
	Marker string
}

// Config describes the monitored source.
type Config struct {
	URL       string
	Strategy  string // "css" or "ai"
	Fallback  bool   // try the other strategy when the primary fails
	UserAgent string
	Timeout   time.Duration

	Selectors Selectors

	// AI extraction backend ("ai" strategy only).
	APIKey string
	Models []string
}

// Result is one page acquisition: the extracted items plus the freshness
// marker the page reported, if any.
type Result struct {
	Items  []content.Item
	Marker string
}

// Session is one acquired page. Extract may be called once per run; Close
// releases the session and is safe to call more than once.
type Session interface {
	Extract(ctx context.Context) (Result, error)
	Close() error
}

// Source produces sessions for the monitored page.
type Source interface {
	Acquire(ctx context.Context) (Session, error)
}

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

// New builds the configured source. With Fallback enabled the returned
// source retries a failed extraction with the other strategy.
func New(ctx context.Context, cfg Config, log logx.Logger) (Source, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("scrape: source url is required")
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	strategy := strings.ToLower(strings.TrimSpace(cfg.Strategy))
	if strategy == "" {
		strategy = "css"
	}

	build := func(name string) (Source, error) {
		switch name {
		case "css":
			return newCSSSource(cfg, log), nil
		case "ai":
			return newAISource(ctx, cfg, log)
		default:
			return nil, fmt.Errorf("scrape: unknown strategy %q", name)
		}
	}

	primary, err := build(strategy)
	if err != nil {
		return nil, err
	}
	if !cfg.Fallback {
		return primary, nil
	}

	other := "ai"
	if strategy == "ai" {
		other = "css"
	}
	secondary, err := build(other)
	if err != nil {
		// Fallback backend is optional; run with the primary alone.
		log.Warn("fallback strategy unavailable", logx.String("strategy", other), logx.Err(err))
		return primary, nil
	}
	return &fallbackSource{primary: primary, secondary: secondary, log: log}, nil
}

// fallbackSource runs the secondary strategy when the primary's extraction
// fails. Acquisition of the secondary session is deferred until needed.
type fallbackSource struct {
	primary   Source
	secondary Source
	log       logx.Logger
}

func (f *fallbackSource) Acquire(ctx context.Context) (Session, error) {
	primary, err := f.primary.Acquire(ctx)
	if err != nil {
		f.log.Warn("primary acquire failed; using fallback", logx.Err(err))
		return f.secondary.Acquire(ctx)
	}
	return &fallbackSession{primary: primary, secondary: f.secondary, log: f.log}, nil
}

type fallbackSession struct {
	primary   Session
	secondary Source
	acquired  Session
	log       logx.Logger
}

func (s *fallbackSession) Extract(ctx context.Context) (Result, error) {
	res, err := s.primary.Extract(ctx)
	if err == nil {
		return res, nil
	}
	s.log.Warn("primary extraction failed; using fallback", logx.Err(err))

	fb, aerr := s.secondary.Acquire(ctx)
	if aerr != nil {
		return Result{}, fmt.Errorf("fallback acquire after %v: %w", err, aerr)
	}
	s.acquired = fb
	res, ferr := fb.Extract(ctx)
	if ferr != nil {
		return Result{}, fmt.Errorf("fallback after %v: %w", err, ferr)
	}
	return res, nil
}

func (s *fallbackSession) Close() error {
	err := s.primary.Close()
	if s.acquired != nil {
		if cerr := s.acquired.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

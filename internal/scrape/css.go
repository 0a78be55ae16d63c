package scrape

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"wingwatch/internal/content"
	logx "wingwatch/pkg/logx"
)

type cssSource struct {
	cfg Config
	log logx.Logger
}

func newCSSSource(cfg Config, log logx.Logger) *cssSource {
	return &cssSource{cfg: cfg, log: log.With(logx.String("strategy", "css"))}
}

func (s *cssSource) Acquire(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := colly.NewCollector(colly.UserAgent(s.cfg.UserAgent))
	c.SetRequestTimeout(s.cfg.Timeout)
	return &cssSession{cfg: s.cfg, c: c, log: s.log}, nil
}

type cssSession struct {
	cfg    Config
	c      *colly.Collector
	log    logx.Logger
	closed bool
}

func (s *cssSession) Extract(ctx context.Context) (Result, error) {
	if s.closed {
		return Result{}, errors.New("scrape: session closed")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	sel := s.cfg.Selectors
	if sel.Item == "" {
		return Result{}, errors.New("scrape: item selector is required for css strategy")
	}

	var (
		res      Result
		fetchErr error
	)
	s.c.OnHTML(sel.Item, func(e *colly.HTMLElement) {
		title := selectText(e, sel.Title)
		body := selectText(e, sel.Body)
		if title == "" || body == "" {
			return
		}
		it := content.Item{Title: title, Body: body, SourceURL: e.Request.URL.String()}
		if sel.Link != "" {
			if href := e.ChildAttr(sel.Link, "href"); href != "" {
				it.SourceURL = e.Request.AbsoluteURL(href)
			}
		}
		if sel.Date != "" {
			raw := e.ChildAttr(sel.Date, "datetime")
			if raw == "" {
				raw = selectText(e, sel.Date)
			}
			it.PublishDate = parseDate(raw)
		}
		res.Items = append(res.Items, it)
	})
	if sel.Marker != "" {
		s.c.OnHTML(sel.Marker, func(e *colly.HTMLElement) {
			if res.Marker == "" {
				res.Marker = strings.TrimSpace(e.Text)
			}
		})
	}
	s.c.OnError(func(_ *colly.Response, err error) { fetchErr = err })

	started := time.Now()
	if err := s.c.Visit(s.cfg.URL); err != nil {
		return Result{}, err
	}
	s.c.Wait()
	if fetchErr != nil {
		return Result{}, fetchErr
	}

	s.log.Debug("page extracted",
		logx.Int("items", len(res.Items)),
		logx.Bool("marker", res.Marker != ""),
		logx.Duration("took", time.Since(started)),
	)
	return res, nil
}

func (s *cssSession) Close() error {
	s.closed = true
	return nil
}

// selectText returns the trimmed text of the first match. Comma-separated
// alternatives are tried in order; direct children first, then any
// descendant.
func selectText(e *colly.HTMLElement, selector string) string {
	if selector == "" {
		return ""
	}
	for _, sel := range strings.Split(selector, ",") {
		sel = strings.TrimSpace(sel)
		if sel == "" {
			continue
		}
		if text := strings.TrimSpace(e.ChildText(sel)); text != "" {
			return text
		}
		if node := e.DOM.Find(sel).First(); node.Length() > 0 {
			if text := strings.TrimSpace(node.Text()); text != "" {
				return text
			}
		}
	}
	return ""
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"02/01/2006",
	"02.01.2006",
	"January 2, 2006",
	"2 January 2006",
}

func parseDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"wingwatch/internal/content"
	"wingwatch/internal/llm"
	logx "wingwatch/pkg/logx"
)

const extractionPrompt = `You are analyzing the HTML content of an airline's news/updates page.

The page contains security updates and flight information.

Extract all the news updates/bullet points from this HTML content. Focus on:
1. Text content that represents news updates or announcements
2. Bullet points (li elements) containing security updates
3. Information about flight cancellations, changes, or important announcements
4. Date/time information if available

For each update:
- Create a short, descriptive title (10-15 words max)
- Include the full content
- Extract any date/time information if present

Ignore navigation menus, footers, headers, and promotional content.
Focus only on the main news content.

Respond with a single JSON object and nothing else:
{"updates": [{"title": "...", "content": "...", "updated_at": "..."}]}

HTML Content:
%s`

// aiSource fetches the page, strips the HTML down to its content, and asks
// the model to extract the update items.
type aiSource struct {
	cfg Config
	llm *llm.Gemini
	log logx.Logger
}

func newAISource(ctx context.Context, cfg Config, log logx.Logger) (*aiSource, error) {
	client, err := llm.NewGemini(ctx, cfg.APIKey, cfg.Models, log)
	if err != nil {
		return nil, fmt.Errorf("scrape: %w", err)
	}
	return &aiSource{cfg: cfg, llm: client, log: log.With(logx.String("strategy", "ai"))}, nil
}

func (s *aiSource) Acquire(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := colly.NewCollector(colly.UserAgent(s.cfg.UserAgent))
	c.SetRequestTimeout(s.cfg.Timeout)
	return &aiSession{cfg: s.cfg, c: c, llm: s.llm, log: s.log}, nil
}

type aiSession struct {
	cfg    Config
	c      *colly.Collector
	llm    *llm.Gemini
	log    logx.Logger
	closed bool
}

type extractionReply struct {
	Updates []struct {
		Title     string `json:"title"`
		Content   string `json:"content"`
		UpdatedAt string `json:"updated_at"`
	} `json:"updates"`
}

func (s *aiSession) Extract(ctx context.Context) (Result, error) {
	if s.closed {
		return Result{}, errors.New("scrape: session closed")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var (
		raw      []byte
		fetchErr error
	)
	s.c.OnResponse(func(r *colly.Response) { raw = r.Body })
	s.c.OnError(func(_ *colly.Response, err error) { fetchErr = err })
	if err := s.c.Visit(s.cfg.URL); err != nil {
		return Result{}, err
	}
	s.c.Wait()
	if fetchErr != nil {
		return Result{}, fetchErr
	}
	if len(raw) == 0 {
		return Result{}, errors.New("scrape: empty page body")
	}

	var res Result
	if s.cfg.Selectors.Marker != "" {
		res.Marker = findMarker(raw, s.cfg.Selectors.Marker)
	}

	cleaned := CleanHTML(string(raw))
	s.log.Debug("page cleaned",
		logx.Int("raw_bytes", len(raw)),
		logx.Int("cleaned_bytes", len(cleaned)),
	)

	text, err := s.llm.Generate(ctx, fmt.Sprintf(extractionPrompt, cleaned))
	if err != nil {
		return Result{}, err
	}
	var reply extractionReply
	if err := json.Unmarshal([]byte(llm.CleanJSON(text)), &reply); err != nil {
		return Result{}, fmt.Errorf("unreadable extraction reply: %w", err)
	}

	for _, u := range reply.Updates {
		title := strings.TrimSpace(u.Title)
		body := strings.TrimSpace(u.Content)
		if title == "" || body == "" {
			continue
		}
		res.Items = append(res.Items, content.Item{
			Title:       title,
			Body:        body,
			PublishDate: parseDate(u.UpdatedAt),
			SourceURL:   s.cfg.URL,
		})
	}
	s.log.Debug("model extraction done", logx.Int("items", len(res.Items)))
	return res, nil
}

func (s *aiSession) Close() error {
	s.closed = true
	return nil
}

// findMarker reads the freshness stamp from the raw document. Extraction
// errors mean no marker; the caller treats that as "always compare".
func findMarker(raw []byte, selector string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(raw)))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find(selector).First().Text())
}

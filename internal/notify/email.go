package notify

import (
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"wingwatch/internal/content"
)

var updateEmailTmpl = template.Must(template.New("update").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Subject}}</title></head>
<body style="font-family:Arial,sans-serif;background-color:#f6f9fc;margin:0;padding:0">
<div style="max-width:600px;margin:20px auto;background:white;padding:20px;border-radius:8px">
  <h1 style="color:#003d82;font-size:24px;text-align:center">New travel updates</h1>
  <p style="font-size:16px;line-height:1.6;color:#333">New updates were found on the airline's site:</p>
{{range .Items}}  <div style="margin-bottom:30px;padding:20px;background:#f8f9fa;border-radius:6px;border:1px solid #e9ecef">
    <h2 style="font-size:18px;color:#003d82;margin-bottom:12px">{{.Title}}</h2>
    <p style="font-size:14px;line-height:1.6;color:#555;white-space:pre-wrap">{{.Body}}</p>
{{if .Date}}    <p style="font-size:12px;color:#888">Published: {{.Date}}</p>
{{end}}{{if .URL}}    <p><a href="{{.URL}}" style="background:#003d82;color:white;padding:10px 20px;border-radius:4px;text-decoration:none;font-size:14px">Read more</a></p>
{{end}}  </div>
{{end}}  <hr style="border:none;border-top:1px solid #e9ecef">
  <p style="font-size:12px;color:#888">Checked at {{.Timestamp}}.</p>
  <p style="font-size:12px;color:#888"><a href="{{.Unsubscribe}}" style="color:#888">Unsubscribe</a></p>
</div>
</body>
</html>
`))

type emailItem struct {
	Title string
	Body  string
	Date  string
	URL   string
}

type emailData struct {
	Subject     string
	Items       []emailItem
	Timestamp   string
	Unsubscribe string
}

// renderUpdateEmail builds the per-recipient message for a set of changed
// items. The unsubscribe link is recipient-specific, so rendering happens
// once per recipient.
func renderUpdateEmail(cfg Config, items []content.Item, recipient string, now time.Time) (Message, error) {
	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = "New travel updates"
	}
	subject := fmt.Sprintf("%s - %s", prefix, now.Format("02/01/2006"))

	data := emailData{
		Subject:     subject,
		Timestamp:   now.Format("02 Jan 2006 15:04 MST"),
		Unsubscribe: unsubscribeURL(cfg.AppURL, recipient),
	}
	for _, it := range items {
		ei := emailItem{Title: it.Title, Body: it.Body, URL: it.SourceURL}
		if !it.PublishDate.IsZero() {
			ei.Date = it.PublishDate.Format("02/01/2006")
		}
		data.Items = append(data.Items, ei)
	}

	var b strings.Builder
	if err := updateEmailTmpl.Execute(&b, data); err != nil {
		return Message{}, fmt.Errorf("render email: %w", err)
	}
	return Message{To: recipient, Subject: subject, HTML: b.String()}, nil
}

func unsubscribeURL(appURL, email string) string {
	base := strings.TrimRight(appURL, "/")
	return base + "/unsubscribe?email=" + url.QueryEscape(email)
}

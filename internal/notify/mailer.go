package notify

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/resend/resend-go/v2"
)

// Message is one rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer sends a single message. Implementations wrap transient provider
// failures in TransientError so the dispatcher knows what to retry.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// ResendMailer delivers through the Resend API.
type ResendMailer struct {
	client *resend.Client
	from   string
}

func NewResendMailer(apiKey, from string) (*ResendMailer, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("notify: api key is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, errors.New("notify: from address is required")
	}
	return &ResendMailer{client: resend.NewClient(apiKey), from: from}, nil
}

var _ Mailer = (*ResendMailer)(nil)

func (m *ResendMailer) Send(ctx context.Context, msg Message) error {
	_, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err == nil {
		return nil
	}
	if isTransientSendErr(err) {
		return &TransientError{Err: err}
	}
	return err
}

func isTransientSendErr(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "429") ||
		strings.Contains(s, "rate limit") ||
		strings.Contains(s, "too many requests") ||
		strings.Contains(s, "quota") ||
		strings.Contains(s, "timeout")
}

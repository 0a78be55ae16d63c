// Package alert sends out-of-band operator alerts over Telegram. Alerts are
// advisory: failures to deliver one are logged and never affect a run.
package alert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"wingwatch/internal/monitor"
	logx "wingwatch/pkg/logx"
)

type Config struct {
	Enabled bool
	Token   string
	ChatID  int64
}

type Telegram struct {
	cfg Config
	bot *tele.Bot
	log logx.Logger
}

func NewTelegram(cfg Config, log logx.Logger) (*Telegram, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	if !cfg.Enabled {
		return &Telegram{cfg: cfg, log: log}, nil
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("alert: telegram token is empty")
	}
	// Send-only bot, no poller.
	b, err := tele.NewBot(tele.Settings{Token: cfg.Token})
	if err != nil {
		return nil, fmt.Errorf("alert: %w", err)
	}
	return &Telegram{cfg: cfg, bot: b, log: log}, nil
}

var _ monitor.Alerter = (*Telegram)(nil)

func (t *Telegram) RunFailed(ctx context.Context, err error) {
	t.send(ctx, fmt.Sprintf("⚠️ monitoring check failed: %v", err))
}

func (t *Telegram) MajorChange(ctx context.Context, sum monitor.Summary, details string) {
	msg := fmt.Sprintf("🔔 major change detected: %d updates, %d notifications sent", sum.UpdateCount, sum.NotificationsSent)
	if details != "" {
		msg += "\n" + details
	}
	t.send(ctx, msg)
}

func (t *Telegram) send(ctx context.Context, text string) {
	if !t.cfg.Enabled || t.bot == nil {
		return
	}
	if ctx.Err() != nil {
		return
	}
	done := make(chan error, 1)
	go func() {
		_, err := t.bot.Send(tele.ChatID(t.cfg.ChatID), text)
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.log.Warn("operator alert failed", logx.Err(err))
		}
	case <-time.After(10 * time.Second):
		t.log.Warn("operator alert timed out")
	case <-ctx.Done():
	}
}

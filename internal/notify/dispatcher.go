package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"wingwatch/internal/content"
	logx "wingwatch/pkg/logx"
)

// Dispatcher fans a rendered update out to every recipient, one at a time.
//
// The limiter enforces the minimum gap between recipients; a transient send
// failure gets exactly one retry after a fixed backoff. It is safe for
// concurrent use, though runs are expected to be sequential.
type Dispatcher struct {
	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter

	mailer Mailer
	log    logx.Logger
}

func NewDispatcher(cfg Config, mailer Mailer, log logx.Logger) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	d := &Dispatcher{mailer: mailer, log: log}
	d.applyLocked(cfg)
	return d
}

func (d *Dispatcher) Apply(cfg Config) {
	d.mu.Lock()
	d.applyLocked(cfg)
	d.mu.Unlock()
}

func (d *Dispatcher) applyLocked(cfg Config) {
	if cfg.SendDelay <= 0 {
		cfg.SendDelay = time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 2 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	d.cfg = cfg
	// Burst 1: the first send goes out immediately, every later one waits
	// out the configured gap.
	d.limiter = rate.NewLimiter(rate.Every(cfg.SendDelay), 1)
}

func (d *Dispatcher) Enabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg.Enabled
}

// Dispatch sends the update to each recipient in order. Per-recipient
// failures are collected, never propagated; only context cancellation stops
// the fan-out early, and the partial outcome is still returned.
func (d *Dispatcher) Dispatch(ctx context.Context, items []content.Item, recipients []string) (Outcome, error) {
	d.mu.Lock()
	cfg := d.cfg
	limiter := d.limiter
	d.mu.Unlock()

	var out Outcome
	if len(recipients) == 0 || len(items) == 0 {
		return out, nil
	}

	now := time.Now()
	for _, recipient := range recipients {
		if err := limiter.Wait(ctx); err != nil {
			return out, err
		}

		msg, err := renderUpdateEmail(cfg, items, recipient, now)
		if err != nil {
			out.Failed++
			out.Errors = append(out.Errors, fmt.Sprintf("failed to send to %s: %v", recipient, err))
			continue
		}

		err = d.sendOnce(ctx, cfg, msg)
		out.Attempts++
		if err != nil && IsTransient(err) {
			d.log.Warn("transient send failure; retrying",
				logx.String("recipient", recipient), logx.Err(err))
			if werr := sleepCtx(ctx, cfg.RetryBackoff); werr != nil {
				out.Failed++
				out.Errors = append(out.Errors, fmt.Sprintf("failed to send to %s: %v", recipient, err))
				return out, werr
			}
			err = d.sendOnce(ctx, cfg, msg)
			out.Attempts++
		}

		if err != nil {
			out.Failed++
			out.Errors = append(out.Errors, fmt.Sprintf("failed to send to %s: %v", recipient, err))
			d.log.Error("send failed", logx.String("recipient", recipient), logx.Err(err))
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			continue
		}
		out.Sent++
		d.log.Info("notification sent", logx.String("recipient", recipient))
	}
	return out, nil
}

func (d *Dispatcher) sendOnce(ctx context.Context, cfg Config, msg Message) error {
	sctx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
	defer cancel()
	return d.mailer.Send(sctx, msg)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

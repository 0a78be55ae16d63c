// Package schedule runs the self-hosted trigger: a cron expression that
// fires monitoring checks without an external caller. A tick that lands
// while a check is still running is skipped, never queued.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"wingwatch/internal/monitor"
	logx "wingwatch/pkg/logx"
)

type Config struct {
	Enabled  bool
	Spec     string
	Timezone string
}

// Runner is the non-blocking trigger the scheduler fires.
type Runner interface {
	TryRun(ctx context.Context) (monitor.Summary, error)
}

type Service struct {
	cfg    Config
	runner Runner
	log    logx.Logger
}

func New(cfg Config, runner Runner, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.Spec == "" {
		cfg.Spec = "@every 30m"
	}
	return &Service{cfg: cfg, runner: runner, log: log}
}

// Run starts the cron loop and blocks until ctx is cancelled. A disabled
// scheduler still blocks so the supervisor treats it like any service.
func (s *Service) Run(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.log.Debug("scheduler disabled")
		<-ctx.Done()
		return nil
	}

	loc := time.Local
	if s.cfg.Timezone != "" {
		l, err := time.LoadLocation(s.cfg.Timezone)
		if err != nil {
			return fmt.Errorf("scheduler timezone: %w", err)
		}
		loc = l
	}

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(s.cfg.Spec, func() { s.fire(ctx) }); err != nil {
		return fmt.Errorf("scheduler spec %q: %w", s.cfg.Spec, err)
	}

	s.log.Info("scheduler started", logx.String("spec", s.cfg.Spec), logx.String("tz", loc.String()))
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func (s *Service) fire(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	sum, err := s.runner.TryRun(ctx)
	if errors.Is(err, monitor.ErrRunInProgress) {
		s.log.Warn("previous check still running; skipping tick")
		return
	}
	if err != nil {
		s.log.Error("scheduled check failed to start", logx.Err(err))
		return
	}
	if !sum.Success {
		s.log.Error("scheduled check failed", logx.String("error", sum.Error))
	}
}

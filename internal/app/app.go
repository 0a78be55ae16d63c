// Package app wires the services together and owns their lifecycle: config
// manager, logging, store, detector, scraper, dispatcher, HTTP trigger and
// scheduler all start under one supervisor and stop together.
package app

import (
	"context"
	"fmt"
	"sync"

	"wingwatch/internal/alert"
	"wingwatch/internal/config"
	"wingwatch/internal/detect"
	"wingwatch/internal/httpapi"
	"wingwatch/internal/monitor"
	"wingwatch/internal/notify"
	"wingwatch/internal/runtime/supervisor"
	"wingwatch/internal/schedule"
	"wingwatch/internal/scrape"
	"wingwatch/internal/store"
	logx "wingwatch/pkg/logx"
)

type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	mu         sync.Mutex
	sup        *supervisor.Supervisor
	st         store.Store
	dispatcher *notify.Dispatcher
	started    bool
}

// New loads and validates the config, then brings up logging. Nothing else
// starts until Start.
func New(cfgPath string) (*App, error) {
	mgr := config.NewManager(cfgPath)
	mgr.SetValidator(validate)

	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := validate(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logSvc, rootLog := logx.New(logxConfig(cfg))
	log := rootLog.With(logx.String("svc", "app"))
	mgr.SetLogger(rootLog.With(logx.String("svc", "config")))

	return &App{cfgMgr: mgr, logSvc: logSvc, log: log}, nil
}

// Start builds the pipeline and launches the long-lived services.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return nil
	}

	cfg := a.cfgMgr.Get()
	rootLog := a.logSvc.Logger()

	st, err := store.Open(storeConfig(cfg), rootLog.With(logx.String("svc", "store")))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.st = st

	classifier, err := buildClassifier(ctx, cfg, rootLog.With(logx.String("svc", "classifier")))
	if err != nil {
		a.closeStore()
		return err
	}
	detector := detect.New(classifier, rootLog.With(logx.String("svc", "detect")))

	source, err := scrape.New(ctx, scrapeConfig(cfg), rootLog.With(logx.String("svc", "scrape")))
	if err != nil {
		a.closeStore()
		return err
	}

	dispatcher, err := a.buildDispatcher(cfg, rootLog)
	if err != nil {
		a.closeStore()
		return err
	}
	a.dispatcher = dispatcher

	alerter, err := alert.NewTelegram(alertConfig(cfg), rootLog.With(logx.String("svc", "alert")))
	if err != nil {
		// Operator alerts are optional; a broken token must not stop checks.
		a.log.Warn("operator alerts unavailable", logx.Err(err))
		alerter = nil
	}

	orch := monitor.New(source, detector, st, dispatcher, alerterOrNil(alerter), rootLog.With(logx.String("svc", "monitor")))
	server := httpapi.NewServer(serverConfig(cfg), orch, rootLog.With(logx.String("svc", "http")))
	scheduler := schedule.New(scheduleConfig(cfg), orch, rootLog.With(logx.String("svc", "schedule")))

	sup := supervisor.New(ctx,
		supervisor.WithLogger(rootLog.With(logx.String("svc", "supervisor"))),
		supervisor.WithCancelOnError(true),
	)
	a.sup = sup

	sup.Go("http", server.Run)
	sup.Go("scheduler", scheduler.Run)
	sup.Go("config-watch", a.cfgMgr.Watch)
	sup.Go0("config-apply", a.applyReloads)

	a.started = true
	a.log.Info("started")
	return nil
}

// applyReloads consumes committed config reloads and applies the hot-swap
// subset: logging and notification settings. Everything else needs a
// restart.
func (a *App) applyReloads(ctx context.Context) {
	updates := a.cfgMgr.Subscribe(4)
	defer a.cfgMgr.Unsubscribe(updates)

	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-updates:
			if !ok {
				return
			}
			a.logSvc.Apply(logxConfig(cfg))
			if a.dispatcher != nil {
				a.dispatcher.Apply(notifyConfig(cfg))
			}
			a.log.Info("config reload applied")
		}
	}
}

func (a *App) buildDispatcher(cfg *config.Config, rootLog logx.Logger) (*notify.Dispatcher, error) {
	ncfg := notifyConfig(cfg)
	if !ncfg.Enabled {
		return nil, nil
	}
	mailer, err := notify.NewResendMailer(ncfg.APIKey, ncfg.From)
	if err != nil {
		return nil, err
	}
	return notify.NewDispatcher(ncfg, mailer, rootLog.With(logx.String("svc", "notify"))), nil
}

// Wait blocks until a service fails or ctx ends.
func (a *App) Wait(ctx context.Context) error {
	a.mu.Lock()
	sup := a.sup
	a.mu.Unlock()
	if sup == nil {
		return nil
	}
	return sup.Wait(ctx)
}

func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started {
		return nil
	}
	a.started = false

	var err error
	if a.sup != nil {
		err = a.sup.Stop(ctx)
	}
	a.closeStore()
	a.log.Info("stopped")
	_ = a.logSvc.Close()
	return err
}

func (a *App) closeStore() {
	if a.st != nil {
		if cerr := a.st.Close(); cerr != nil {
			a.log.Warn("store close failed", logx.Err(cerr))
		}
		a.st = nil
	}
}

// alerterOrNil keeps a typed-nil *alert.Telegram from sneaking into the
// monitor.Alerter interface.
func alerterOrNil(t *alert.Telegram) monitor.Alerter {
	if t == nil {
		return nil
	}
	return t
}

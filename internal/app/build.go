package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wingwatch/internal/alert"
	"wingwatch/internal/config"
	"wingwatch/internal/detect"
	"wingwatch/internal/httpapi"
	"wingwatch/internal/notify"
	"wingwatch/internal/schedule"
	"wingwatch/internal/scrape"
	"wingwatch/internal/store"
	logx "wingwatch/pkg/logx"
)

// validate rejects configs the services cannot start from. It runs on boot
// and again before any hot reload is committed.
func validate(_ context.Context, cfg *config.Config) error {
	if strings.TrimSpace(cfg.Source.URL) == "" {
		return errors.New("source.url is required")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Source.Strategy)) {
	case "", "css", "ai":
	default:
		return fmt.Errorf("source.strategy must be css or ai, got %q", cfg.Source.Strategy)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Classifier.Provider)) {
	case "", "hash":
	case "gemini":
		if strings.TrimSpace(cfg.Classifier.APIKey) == "" {
			return errors.New("classifier.api_key is required for the gemini provider")
		}
	default:
		return fmt.Errorf("classifier.provider must be gemini or hash, got %q", cfg.Classifier.Provider)
	}
	if cfg.Notify.Enabled {
		if strings.TrimSpace(cfg.Notify.APIKey) == "" {
			return errors.New("notify.api_key is required when notifications are enabled")
		}
		if strings.TrimSpace(cfg.Notify.From) == "" {
			return errors.New("notify.from is required when notifications are enabled")
		}
		if strings.TrimSpace(cfg.Notify.AppURL) == "" {
			return errors.New("notify.app_url is required when notifications are enabled")
		}
	}
	if strings.TrimSpace(cfg.Server.CronSecret) == "" {
		return errors.New("server.cron_secret is required")
	}

	// Durations must parse even when unused yet.
	fields := []struct{ path, raw string }{
		{"server.read_timeout", cfg.Server.ReadTimeout},
		{"server.write_timeout", cfg.Server.WriteTimeout},
		{"server.idle_timeout", cfg.Server.IdleTimeout},
		{"storage.busy_timeout", cfg.Storage.BusyTimeout},
		{"source.timeout", cfg.Source.Timeout},
		{"classifier.timeout", cfg.Classifier.Timeout},
		{"notify.send_delay", cfg.Notify.SendDelay},
		{"notify.retry_backoff", cfg.Notify.RetryBackoff},
		{"notify.send_timeout", cfg.Notify.SendTimeout},
	}
	for _, f := range fields {
		if _, err := config.ParseDurationOrDefault(f.path, f.raw, 0); err != nil {
			return err
		}
	}
	return nil
}

func logxConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func storeConfig(cfg *config.Config) store.Config {
	busy, _ := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 5*time.Second)
	return store.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}
}

func scrapeConfig(cfg *config.Config) scrape.Config {
	timeout, _ := config.ParseDurationOrDefault("source.timeout", cfg.Source.Timeout, 30*time.Second)
	return scrape.Config{
		URL:       cfg.Source.URL,
		Strategy:  cfg.Source.Strategy,
		Fallback:  cfg.Source.Fallback,
		UserAgent: cfg.Source.UserAgent,
		Timeout:   timeout,
		Selectors: scrape.Selectors{
			Item:   cfg.Source.Selectors.Item,
			Title:  cfg.Source.Selectors.Title,
			Body:   cfg.Source.Selectors.Body,
			Date:   cfg.Source.Selectors.Date,
			Link:   cfg.Source.Selectors.Link,
			Marker: cfg.Source.Selectors.Marker,
		},
		APIKey: cfg.Classifier.APIKey,
		Models: cfg.Classifier.Models,
	}
}

func notifyConfig(cfg *config.Config) notify.Config {
	sendDelay, _ := config.ParseDurationOrDefault("notify.send_delay", cfg.Notify.SendDelay, time.Second)
	backoff, _ := config.ParseDurationOrDefault("notify.retry_backoff", cfg.Notify.RetryBackoff, 2*time.Second)
	sendTimeout, _ := config.ParseDurationOrDefault("notify.send_timeout", cfg.Notify.SendTimeout, 30*time.Second)
	return notify.Config{
		Enabled:       cfg.Notify.Enabled,
		From:          cfg.Notify.From,
		APIKey:        cfg.Notify.APIKey,
		AppURL:        cfg.Notify.AppURL,
		SubjectPrefix: cfg.Notify.SubjectPrefix,
		SendDelay:     sendDelay,
		RetryBackoff:  backoff,
		SendTimeout:   sendTimeout,
	}
}

func serverConfig(cfg *config.Config) httpapi.Config {
	read, _ := config.ParseDurationOrDefault("server.read_timeout", cfg.Server.ReadTimeout, 0)
	write, _ := config.ParseDurationOrDefault("server.write_timeout", cfg.Server.WriteTimeout, 0)
	idle, _ := config.ParseDurationOrDefault("server.idle_timeout", cfg.Server.IdleTimeout, 0)
	return httpapi.Config{
		Addr:         cfg.Server.Addr,
		CronSecret:   cfg.Server.CronSecret,
		ReadTimeout:  read,
		WriteTimeout: write,
		IdleTimeout:  idle,
	}
}

func scheduleConfig(cfg *config.Config) schedule.Config {
	return schedule.Config{
		Enabled:  cfg.Scheduler.Enabled,
		Spec:     cfg.Scheduler.Spec,
		Timezone: cfg.Scheduler.Timezone,
	}
}

func alertConfig(cfg *config.Config) alert.Config {
	if cfg.Telegram == nil {
		return alert.Config{}
	}
	return alert.Config{
		Enabled: cfg.Telegram.Enabled,
		Token:   cfg.Telegram.Token,
		ChatID:  cfg.Telegram.ChatID,
	}
}

// buildClassifier picks the comparison backend.
func buildClassifier(ctx context.Context, cfg *config.Config, log logx.Logger) (detect.Classifier, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Classifier.Provider)) {
	case "gemini":
		cls, err := detect.NewGeminiClassifier(ctx, cfg.Classifier.APIKey, cfg.Classifier.Models, log)
		if err != nil {
			return nil, err
		}
		timeout, _ := config.ParseDurationOrDefault("classifier.timeout", cfg.Classifier.Timeout, 60*time.Second)
		return detect.WithTimeout(cls, timeout), nil
	case "hash", "":
		return detect.HashClassifier{}, nil
	default:
		return nil, fmt.Errorf("unknown classifier provider %q", cfg.Classifier.Provider)
	}
}

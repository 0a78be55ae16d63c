package store

import (
	"context"
	"errors"
	"strings"

	"wingwatch/internal/content"
	logx "wingwatch/pkg/logx"
)

// Store is the persistence API consumed by the monitoring orchestrator.
type Store interface {
	// MostRecentCheck returns the latest check of any kind, or nil.
	MostRecentCheck(ctx context.Context) (*CheckRecord, error)
	// MostRecentChangedCheck returns the latest check with HasChanged=true,
	// or nil. Its items are the "previous state" for the next comparison.
	MostRecentChangedCheck(ctx context.Context) (*CheckRecord, error)
	ItemsForCheck(ctx context.Context, checkID string) ([]content.Item, error)

	CreateCheck(ctx context.Context, hash string, hasChanged bool, details, marker string) (*CheckRecord, error)
	AddItems(ctx context.Context, checkID string, items []content.Item) error
	LogNotification(ctx context.Context, checkID string, recipients []string, status NotificationStatus, errMsg string) (*NotificationRecord, error)

	ListActiveVerified(ctx context.Context) ([]Subscriber, error)
	Status(ctx context.Context) (Status, error)

	Close() error
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "", "none":
		return nil, ErrDisabled
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}

package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"wingwatch/internal/content"
	logx "wingwatch/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Debug("sqlite store ready", logx.String("path", path))
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const checkColumns = `id, checked_at, content_hash, has_changed, change_details, freshness_marker`

func (s *sqliteStore) MostRecentCheck(ctx context.Context) (*CheckRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+checkColumns+` FROM update_checks ORDER BY rowid DESC LIMIT 1`)
	return scanCheck(row)
}

func (s *sqliteStore) MostRecentChangedCheck(ctx context.Context) (*CheckRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+checkColumns+` FROM update_checks WHERE has_changed = 1 ORDER BY rowid DESC LIMIT 1`)
	return scanCheck(row)
}

func scanCheck(row *sql.Row) (*CheckRecord, error) {
	var (
		rec     CheckRecord
		at      string
		details sql.NullString
		marker  sql.NullString
	)
	err := row.Scan(&rec.ID, &at, &rec.ContentHash, &rec.HasChanged, &details, &marker)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.CheckedAt, err = time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return nil, fmt.Errorf("parse checked_at: %w", err)
	}
	rec.ChangeDetails = details.String
	rec.FreshnessMarker = marker.String
	return &rec, nil
}

func (s *sqliteStore) ItemsForCheck(ctx context.Context, checkID string) ([]content.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title, body, publish_date, source_url
		   FROM update_content WHERE check_id = ? ORDER BY position ASC`, checkID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []content.Item
	for rows.Next() {
		var (
			it   content.Item
			date sql.NullString
			url  sql.NullString
		)
		if err := rows.Scan(&it.Title, &it.Body, &date, &url); err != nil {
			return nil, err
		}
		if date.Valid && date.String != "" {
			if t, err := time.Parse(time.RFC3339Nano, date.String); err == nil {
				it.PublishDate = t
			}
		}
		it.SourceURL = url.String
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *sqliteStore) CreateCheck(ctx context.Context, hash string, hasChanged bool, details, marker string) (*CheckRecord, error) {
	rec := &CheckRecord{
		ID:              uuid.NewString(),
		CheckedAt:       time.Now().UTC(),
		ContentHash:     hash,
		HasChanged:      hasChanged,
		ChangeDetails:   details,
		FreshnessMarker: marker,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO update_checks(id, checked_at, content_hash, has_changed, change_details, freshness_marker)
		 VALUES(?,?,?,?,?,?)`,
		rec.ID, rec.CheckedAt.Format(time.RFC3339Nano), rec.ContentHash, rec.HasChanged,
		nullStr(rec.ChangeDetails), nullStr(rec.FreshnessMarker),
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *sqliteStore) AddItems(ctx context.Context, checkID string, items []content.Item) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO update_content(id, check_id, position, title, body, publish_date, source_url)
		 VALUES(?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, it := range items {
		var date string
		if !it.PublishDate.IsZero() {
			date = it.PublishDate.Format(time.RFC3339Nano)
		}
		if _, err := stmt.ExecContext(ctx,
			uuid.NewString(), checkID, i, it.Title, it.Body, nullStr(date), nullStr(it.SourceURL),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) LogNotification(ctx context.Context, checkID string, recipients []string, status NotificationStatus, errMsg string) (*NotificationRecord, error) {
	rec := &NotificationRecord{
		ID:           uuid.NewString(),
		CheckID:      checkID,
		Recipients:   recipients,
		SentAt:       time.Now().UTC(),
		Status:       status,
		ErrorMessage: errMsg,
	}
	encoded, err := json.Marshal(recipients)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO notification_logs(id, check_id, recipients, sent_at, status, error_message)
		 VALUES(?,?,?,?,?,?)`,
		rec.ID, rec.CheckID, string(encoded), rec.SentAt.Format(time.RFC3339Nano),
		string(rec.Status), nullStr(rec.ErrorMessage),
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *sqliteStore) ListActiveVerified(ctx context.Context) ([]Subscriber, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, is_active, verified_at FROM subscribers
		  WHERE is_active = 1 AND verified_at IS NOT NULL ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []Subscriber
	for rows.Next() {
		var (
			sub      Subscriber
			verified sql.NullString
		)
		if err := rows.Scan(&sub.ID, &sub.Email, &sub.IsActive, &verified); err != nil {
			return nil, err
		}
		sub.IsVerified = verified.Valid
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *sqliteStore) Status(ctx context.Context) (Status, error) {
	var st Status

	var last sql.NullString
	if err := s.db.QueryRowContext(ctx,
		`SELECT checked_at FROM update_checks ORDER BY rowid DESC LIMIT 1`).Scan(&last); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return st, err
	}
	if last.Valid && last.String != "" {
		if t, err := time.Parse(time.RFC3339Nano, last.String); err == nil {
			st.LastCheck = t
		}
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM update_checks`).Scan(&st.TotalChecks); err != nil {
		return st, err
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notification_logs WHERE status = 'sent'`).Scan(&st.TotalNotifications); err != nil {
		return st, err
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subscribers WHERE is_active = 1 AND verified_at IS NOT NULL`).Scan(&st.ActiveSubscribers); err != nil {
		return st, err
	}
	return st, nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"adtrim/internal/adwindow"
	"adtrim/internal/config"
)

// Store manages ledger persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const entryColumns = "id, path, status, parts, ad_seconds, windows_json, error_message, request_id, attempts, created_at, updated_at, completed_at"

// ErrNotFound reports an update against a path with no ledger entry.
var ErrNotFound = errors.New("episode not in ledger")

// InterruptedMessage is recorded on entries left in processing by a run that
// never finished.
const InterruptedMessage = "interrupted before completion"

// Open initializes or connects to the ledger database configured in cfg.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.LedgerPath())
}

// OpenPath initializes or connects to the ledger database at dbPath.
func OpenPath(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Begin marks path as processing, creating the entry when needed.
func (s *Store) Begin(ctx context.Context, path, requestID string) (*Entry, error) {
	key, err := normalizePath(path)
	if err != nil {
		return nil, err
	}
	now := formatTime(time.Now())
	if err := s.execWithRetry(ctx,
		`INSERT INTO episodes (path, status, request_id, attempts, created_at, updated_at)
         VALUES (?, ?, ?, 1, ?, ?)
         ON CONFLICT(path) DO UPDATE SET
             status = excluded.status,
             request_id = excluded.request_id,
             attempts = episodes.attempts + 1,
             error_message = NULL,
             completed_at = NULL,
             updated_at = excluded.updated_at`,
		key, StatusProcessing, nullableString(requestID), now, now,
	); err != nil {
		return nil, fmt.Errorf("begin episode: %w", err)
	}
	return s.Get(ctx, key)
}

// Complete records a successful run for path.
func (s *Store) Complete(ctx context.Context, path string, result Result) error {
	key, err := normalizePath(path)
	if err != nil {
		return err
	}
	windows := result.Windows
	if windows == nil {
		windows = []adwindow.Window{}
	}
	payload, err := json.Marshal(windows)
	if err != nil {
		return fmt.Errorf("marshal windows: %w", err)
	}
	now := formatTime(time.Now())
	return s.updateOne(ctx, "complete episode",
		`UPDATE episodes
         SET status = ?, parts = ?, ad_seconds = ?, windows_json = ?, error_message = NULL,
             updated_at = ?, completed_at = ?
         WHERE path = ?`,
		StatusCompleted, result.Parts, result.AdSeconds(), string(payload), now, now, key,
	)
}

// Fail records a failed run for path with the given terminal status.
func (s *Store) Fail(ctx context.Context, path string, status Status, message string) error {
	if status != StatusFailed && status != StatusReview {
		return fmt.Errorf("fail episode: invalid status %q", status)
	}
	key, err := normalizePath(path)
	if err != nil {
		return err
	}
	return s.updateOne(ctx, "fail episode",
		`UPDATE episodes SET status = ?, error_message = ?, updated_at = ? WHERE path = ?`,
		status, nullableString(strings.TrimSpace(message)), formatTime(time.Now()), key,
	)
}

func (s *Store) updateOne(ctx context.Context, op, query string, args ...any) error {
	ctx = ensureContext(ctx)
	var res sql.Result
	if err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// Get fetches the entry for path, returning nil when none exists.
func (s *Store) Get(ctx context.Context, path string) (*Entry, error) {
	key, err := normalizePath(path)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+entryColumns+` FROM episodes WHERE path = ?`, key)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get episode: %w", err)
	}
	return entry, nil
}

// Processed reports whether path should be skipped and why. A legacy marker
// file or a completed/review entry both count.
func (s *Store) Processed(ctx context.Context, path string) (bool, string, error) {
	if HasMarker(path) {
		return true, "marker " + filepath.Base(MarkerPath(path)), nil
	}
	entry, err := s.Get(ctx, path)
	if err != nil {
		return false, "", err
	}
	if entry != nil && entry.Status.Processed() {
		return true, "ledger status " + string(entry.Status), nil
	}
	return false, "", nil
}

// List returns entries filtered by status, most recently updated first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM episodes`
	args := make([]any, 0, len(opts.Statuses)+1)
	if len(opts.Statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(opts.Statuses)) + `)`
		for _, status := range opts.Statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY updated_at DESC, id DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// Stats returns a count of entries grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM episodes GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("ledger stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Forget removes the entry for path so the next pass processes it again.
func (s *Store) Forget(ctx context.Context, path string) (bool, error) {
	key, err := normalizePath(path)
	if err != nil {
		return false, err
	}
	ctx = ensureContext(ctx)
	var res sql.Result
	if err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, `DELETE FROM episodes WHERE path = ?`, key)
		return execErr
	}); err != nil {
		return false, fmt.Errorf("forget episode: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("forget episode: rows affected: %w", err)
	}
	return affected > 0, nil
}

// ResetInterrupted marks entries left in processing as failed so they are
// retried. It returns the number of entries changed.
func (s *Store) ResetInterrupted(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	var res sql.Result
	if err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx,
			`UPDATE episodes SET status = ?, error_message = ?, updated_at = ? WHERE status = ?`,
			StatusFailed, InterruptedMessage, formatTime(time.Now()), StatusProcessing,
		)
		return execErr
	}); err != nil {
		return 0, fmt.Errorf("reset interrupted: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := range busyRetryAttempts {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func normalizePath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", errors.New("ledger: empty episode path")
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("ledger: resolve %q: %w", trimmed, err)
	}
	return abs, nil
}

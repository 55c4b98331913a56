package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"dubsync/internal/config"
	"dubsync/internal/translation"
)

// Memo persists translations keyed by (source locale, target locale, text)
// so repeated captions skip the translators across runs.
type Memo struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open opens the memo at the configured data directory.
func Open(cfg *config.Config) (*Memo, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.MemoPath())
}

// OpenPath opens or creates the memo database at path.
func OpenPath(path string) (*Memo, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create memo directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
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

	memo := &Memo{db: db, path: path}
	if err := memo.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return memo, nil
}

// Path returns the database file location.
func (m *Memo) Path() string { return m.path }

// Close closes the underlying database connection.
func (m *Memo) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	return m.db.Close()
}

// Lookup returns the memoised translation for key.
func (m *Memo) Lookup(ctx context.Context, key translation.MemoKey) (string, bool, error) {
	ctx = ensureContext(ctx)
	key = normalizeKey(key)
	var text string
	err := m.db.QueryRowContext(ctx,
		`SELECT translated_text FROM translation_memo WHERE source_locale = ? AND target_locale = ? AND source_text = ?`,
		key.SourceLocale, key.TargetLocale, key.Text,
	).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("memo lookup: %w", err)
	}
	if err := m.exec(ctx,
		`UPDATE translation_memo SET hits = hits + 1 WHERE source_locale = ? AND target_locale = ? AND source_text = ?`,
		key.SourceLocale, key.TargetLocale, key.Text,
	); err != nil {
		return text, true, fmt.Errorf("memo hit count: %w", err)
	}
	return text, true, nil
}

// Save inserts or replaces the translation for key.
func (m *Memo) Save(ctx context.Context, key translation.MemoKey, text, engine string) error {
	ctx = ensureContext(ctx)
	key = normalizeKey(key)
	text = strings.TrimSpace(text)
	if key.Text == "" || text == "" {
		return nil
	}
	return m.exec(ctx, `
INSERT INTO translation_memo (source_locale, target_locale, source_text, translated_text, engine)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (source_locale, target_locale, source_text)
DO UPDATE SET translated_text = excluded.translated_text, engine = excluded.engine, updated_at = CURRENT_TIMESTAMP`,
		key.SourceLocale, key.TargetLocale, key.Text, text, engine,
	)
}

// Stats summarises the memo contents.
type Stats struct {
	Path      string
	SizeBytes int64
	Entries   int
	Hits      int
	ByEngine  map[string]int
	ByTarget  map[string]int
}

// Stats reports entry counts grouped by engine and target locale.
func (m *Memo) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	stats := Stats{Path: m.path, ByEngine: map[string]int{}, ByTarget: map[string]int{}}
	if info, err := os.Stat(m.path); err == nil {
		stats.SizeBytes = info.Size()
	}

	rows, err := m.db.QueryContext(ctx,
		`SELECT engine, target_locale, COUNT(1), COALESCE(SUM(hits), 0) FROM translation_memo GROUP BY engine, target_locale`)
	if err != nil {
		return stats, fmt.Errorf("memo stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var engine, target string
		var count, hits int
		if err := rows.Scan(&engine, &target, &count, &hits); err != nil {
			return stats, err
		}
		stats.Entries += count
		stats.Hits += hits
		stats.ByEngine[engine] += count
		stats.ByTarget[target] += count
	}
	return stats, rows.Err()
}

// Clear removes entries. An empty target clears everything.
func (m *Memo) Clear(ctx context.Context, targetLocale string) (int64, error) {
	ctx = ensureContext(ctx)
	query := `DELETE FROM translation_memo`
	var args []any
	if target := strings.TrimSpace(targetLocale); target != "" {
		query += ` WHERE target_locale = ?`
		args = append(args, target)
	}
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = m.db.ExecContext(ctx, query, args...)
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("memo clear: %w", err)
	}
	return res.RowsAffected()
}

func (m *Memo) exec(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := m.db.ExecContext(ctx, query, args...)
		return err
	})
}

func normalizeKey(key translation.MemoKey) translation.MemoKey {
	key.SourceLocale = strings.TrimSpace(key.SourceLocale)
	key.TargetLocale = strings.TrimSpace(key.TargetLocale)
	key.Text = strings.TrimSpace(key.Text)
	return key
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
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
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

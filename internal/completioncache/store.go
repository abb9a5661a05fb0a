package completioncache

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

	"tagbench/internal/services/llm"
)

// Store manages the completion cache backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Entry is one cached completion.
type Entry struct {
	Key       string
	Backend   string
	Model     string
	Response  llm.Response
	CreatedAt time.Time
	Hits      int
}

// Stats summarizes the cache contents.
type Stats struct {
	Path      string       `json:"path"`
	Entries   int          `json:"entries"`
	Hits      int          `json:"hits"`
	Tokens    llm.Usage    `json:"tokens"`
	SizeBytes int64        `json:"size_bytes"`
	Models    []ModelStats `json:"models"`
}

// ModelStats is the per backend/model breakdown reported by Stats.
type ModelStats struct {
	Backend string `json:"backend"`
	Model   string `json:"model"`
	Entries int    `json:"entries"`
	Hits    int    `json:"hits"`
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

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

// Open creates or connects to the cache database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("completion cache path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
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
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the cached completion for key. The boolean is false on a miss.
// A hit increments the entry's hit counter.
func (s *Store) Get(ctx context.Context, key string) (llm.Response, bool, error) {
	var resp llm.Response
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT content, finish_reason, prompt_tokens, completion_tokens FROM completions WHERE key = ?`, key,
		).Scan(&resp.Content, &resp.FinishReason, &resp.Usage.PromptTokens, &resp.Usage.CompletionTokens)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return llm.Response{}, false, nil
	}
	if err != nil {
		return llm.Response{}, false, fmt.Errorf("read cached completion: %w", err)
	}
	if err := retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, `UPDATE completions SET hits = hits + 1 WHERE key = ?`, key)
		return execErr
	}); err != nil {
		return llm.Response{}, false, fmt.Errorf("record cache hit: %w", err)
	}
	return resp, true, nil
}

// Put stores or replaces the completion for key.
func (s *Store) Put(ctx context.Context, key, backend, model string, resp llm.Response) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	err := retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, `
INSERT INTO completions (key, backend, model, content, finish_reason, prompt_tokens, completion_tokens, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
    content = excluded.content,
    finish_reason = excluded.finish_reason,
    prompt_tokens = excluded.prompt_tokens,
    completion_tokens = excluded.completion_tokens,
    created_at = excluded.created_at`,
			key, backend, model, resp.Content, resp.FinishReason,
			resp.Usage.PromptTokens, resp.Usage.CompletionTokens, now)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("store completion: %w", err)
	}
	return nil
}

// Stats reports entry counts, hit totals, and token totals.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Path: s.path}
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(1), COALESCE(SUM(hits), 0), COALESCE(SUM(prompt_tokens), 0), COALESCE(SUM(completion_tokens), 0)
FROM completions`).Scan(&stats.Entries, &stats.Hits, &stats.Tokens.PromptTokens, &stats.Tokens.CompletionTokens)
	if err != nil {
		return Stats{}, fmt.Errorf("summarize cache: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT backend, model, COUNT(1), COALESCE(SUM(hits), 0)
FROM completions GROUP BY backend, model ORDER BY backend, model`)
	if err != nil {
		return Stats{}, fmt.Errorf("summarize cache models: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m ModelStats
		if err := rows.Scan(&m.Backend, &m.Model, &m.Entries, &m.Hits); err != nil {
			return Stats{}, fmt.Errorf("scan cache model row: %w", err)
		}
		stats.Models = append(stats.Models, m)
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate cache models: %w", err)
	}

	if info, err := os.Stat(s.path); err == nil {
		stats.SizeBytes = info.Size()
	}
	return stats, nil
}

// Clear removes every cached completion and returns how many were deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, `DELETE FROM completions`)
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("clear cache: %w", err)
	}
	return res.RowsAffected()
}

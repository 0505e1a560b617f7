package metacache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"tonearm/internal/logging"
	"tonearm/internal/mediameta"
	"tonearm/internal/services"
)

// Store persists extracted audio metadata keyed by canonical file path.
// An entry is only served while the file's size and mtime still match
// the values recorded at extraction time.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS metadata_cache (
    path TEXT PRIMARY KEY,
    mtime INTEGER NOT NULL,
    size INTEGER NOT NULL,
    metadata_json TEXT NOT NULL,
    cached_at INTEGER NOT NULL
);
`

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open creates or opens the cache database at dbPath and ensures the schema.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "metacache", "open", "cache path is empty", nil)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, services.Wrap(services.ErrCacheIO, "metacache", "open", "create cache directory", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, services.Wrap(services.ErrCacheIO, "metacache", "open", "open database", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			db.Close()
			return nil, services.Wrap(services.ErrCacheIO, "metacache", "open", fmt.Sprintf("apply pragma %q", pragma), execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, services.Wrap(services.ErrCacheIO, "metacache", "open", "ensure schema", err)
	}

	return &Store{
		db:     db,
		path:   dbPath,
		logger: logging.NewComponentLogger(logger, "metacache"),
	}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Get returns the cached record for the identity, or ok=false when no
// entry exists or the stored size/mtime no longer match. Stale rows,
// whether drifted or undecodable, are evicted and treated as misses.
func (s *Store) Get(ctx context.Context, id mediameta.Identity) (mediameta.Record, bool, error) {
	ctx = ensureContext(ctx)

	var (
		mtime   int64
		size    int64
		payload string
	)
	err := s.queryRowWithRetry(ctx,
		`SELECT mtime, size, metadata_json FROM metadata_cache WHERE path = ?`,
		id.Path,
	).Scan(&mtime, &size, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return mediameta.Record{}, false, nil
	}
	if err != nil {
		return mediameta.Record{}, false, services.Wrap(services.ErrCacheIO, "metacache", "get", "query entry", err)
	}

	if mtime != id.ModTime.Unix() || size != id.Size {
		s.logger.Debug("evicting drifted cache entry",
			logging.String(logging.FieldPath, id.Path))
		if evictErr := s.evict(ctx, id.Path); evictErr != nil {
			return mediameta.Record{}, false, evictErr
		}
		return mediameta.Record{}, false, nil
	}

	var record mediameta.Record
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		s.logger.Warn("evicting undecodable cache entry",
			logging.String(logging.FieldPath, id.Path),
			logging.Error(err))
		if evictErr := s.evict(ctx, id.Path); evictErr != nil {
			return mediameta.Record{}, false, evictErr
		}
		return mediameta.Record{}, false, nil
	}

	record.Identity = id
	return record, true, nil
}

func (s *Store) evict(ctx context.Context, path string) error {
	if _, err := s.execWithRetry(ctx, `DELETE FROM metadata_cache WHERE path = ?`, path); err != nil {
		return services.Wrap(services.ErrCacheIO, "metacache", "get", "evict entry", err)
	}
	return nil
}

// Put stores or replaces the entry for the record's identity.
func (s *Store) Put(ctx context.Context, record mediameta.Record) error {
	ctx = ensureContext(ctx)

	payload, err := json.Marshal(record)
	if err != nil {
		return services.Wrap(services.ErrCacheIO, "metacache", "put", "encode record", err)
	}

	_, err = s.execWithRetry(ctx,
		`INSERT OR REPLACE INTO metadata_cache (path, mtime, size, metadata_json, cached_at) VALUES (?, ?, ?, ?, ?)`,
		record.Identity.Path, record.Identity.ModTime.Unix(), record.Identity.Size, string(payload), time.Now().Unix(),
	)
	if err != nil {
		return services.Wrap(services.ErrCacheIO, "metacache", "put", "upsert entry", err)
	}
	return nil
}

// Delete removes the entry for path if present.
func (s *Store) Delete(ctx context.Context, path string) error {
	ctx = ensureContext(ctx)
	if _, err := s.execWithRetry(ctx, `DELETE FROM metadata_cache WHERE path = ?`, path); err != nil {
		return services.Wrap(services.ErrCacheIO, "metacache", "delete", "delete entry", err)
	}
	return nil
}

// Clean removes entries whose files no longer exist or whose size or
// mtime drifted from the recorded values. It returns the number of
// rows removed.
func (s *Store) Clean(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)

	rows, err := s.db.QueryContext(ctx, `SELECT path, mtime, size FROM metadata_cache`)
	if err != nil {
		return 0, services.Wrap(services.ErrCacheIO, "metacache", "clean", "list entries", err)
	}

	var stale []string
	for rows.Next() {
		var (
			path  string
			mtime int64
			size  int64
		)
		if err := rows.Scan(&path, &mtime, &size); err != nil {
			rows.Close()
			return 0, services.Wrap(services.ErrCacheIO, "metacache", "clean", "scan entry", err)
		}
		info, statErr := os.Stat(path)
		if statErr != nil || info.Size() != size || info.ModTime().UTC().Unix() != mtime {
			stale = append(stale, path)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, services.Wrap(services.ErrCacheIO, "metacache", "clean", "iterate entries", err)
	}
	rows.Close()

	for _, path := range stale {
		if _, err := s.execWithRetry(ctx, `DELETE FROM metadata_cache WHERE path = ?`, path); err != nil {
			return 0, services.Wrap(services.ErrCacheIO, "metacache", "clean", "delete stale entry", err)
		}
	}

	if len(stale) > 0 {
		s.logger.Info("removed stale cache entries", logging.Int("removed", len(stale)))
	}
	return len(stale), nil
}

// InvalidateMissing removes every entry whose path is absent from
// knownPaths and returns the number of rows removed. This purges entries
// for files outside the current library roots even when the files still
// exist on disk.
func (s *Store) InvalidateMissing(ctx context.Context, knownPaths []string) (int, error) {
	ctx = ensureContext(ctx)

	known := make(map[string]struct{}, len(knownPaths))
	for _, path := range knownPaths {
		known[path] = struct{}{}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT path FROM metadata_cache`)
	if err != nil {
		return 0, services.Wrap(services.ErrCacheIO, "metacache", "invalidate", "list entries", err)
	}

	var stale []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			rows.Close()
			return 0, services.Wrap(services.ErrCacheIO, "metacache", "invalidate", "scan entry", err)
		}
		if _, ok := known[path]; !ok {
			stale = append(stale, path)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, services.Wrap(services.ErrCacheIO, "metacache", "invalidate", "iterate entries", err)
	}
	rows.Close()

	for _, path := range stale {
		if _, err := s.execWithRetry(ctx, `DELETE FROM metadata_cache WHERE path = ?`, path); err != nil {
			return 0, services.Wrap(services.ErrCacheIO, "metacache", "invalidate", "delete unknown entry", err)
		}
	}

	if len(stale) > 0 {
		s.logger.Info("removed entries outside the known set", logging.Int("removed", len(stale)))
	}
	return len(stale), nil
}

// Clear removes every entry and returns the number of rows removed.
func (s *Store) Clear(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(ctx, `DELETE FROM metadata_cache`)
	if err != nil {
		return 0, services.Wrap(services.ErrCacheIO, "metacache", "clear", "delete all entries", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(affected), nil
}

// Stats summarizes cache contents.
type Stats struct {
	Entries      int
	DatabaseSize int64
	OldestEntry  time.Time
	NewestEntry  time.Time
}

// Stats reports entry count, database file size, and entry age bounds.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)

	var stats Stats
	var oldest, newest sql.NullInt64
	err := s.queryRowWithRetry(ctx,
		`SELECT COUNT(*), MIN(cached_at), MAX(cached_at) FROM metadata_cache`,
	).Scan(&stats.Entries, &oldest, &newest)
	if err != nil {
		return Stats{}, services.Wrap(services.ErrCacheIO, "metacache", "stats", "aggregate entries", err)
	}
	if oldest.Valid {
		stats.OldestEntry = time.Unix(oldest.Int64, 0).UTC()
	}
	if newest.Valid {
		stats.NewestEntry = time.Unix(newest.Int64, 0).UTC()
	}

	if info, statErr := os.Stat(s.path); statErr == nil {
		stats.DatabaseSize = info.Size()
	}
	return stats, nil
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

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// retryRow defers the query to Scan so transient SQLITE_BUSY errors can
// rerun the whole statement.
type retryRow struct {
	ctx   context.Context
	db    *sql.DB
	query string
	args  []any
}

func (r retryRow) Scan(dest ...any) error {
	return retryOnBusy(r.ctx, func() error {
		return r.db.QueryRowContext(r.ctx, r.query, r.args...).Scan(dest...)
	})
}

func (s *Store) queryRowWithRetry(ctx context.Context, query string, args ...any) retryRow {
	return retryRow{ctx: ctx, db: s.db, query: query, args: args}
}

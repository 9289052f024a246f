// Package storage keeps an audit log of LLM calls in SQLite.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"cvcoach/internal/errors"
	"cvcoach/internal/telemetry"

	_ "modernc.org/sqlite"
)

// timeLayout has a fixed width so stored timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is a telemetry.Recorder backed by SQLite
type Store struct {
	db *sql.DB
}

var _ telemetry.Recorder = (*Store)(nil)

// TagStats aggregates the calls of one tag
type TagStats struct {
	Tag       string        `json:"tag"`
	Calls     int           `json:"calls"`
	Failures  int           `json:"failures"`
	TotalTime time.Duration `json:"totalTime"`
}

// Open opens (or creates) the database at path and runs pending migrations.
// ":memory:" opens an in-memory database.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.NewIOError(errors.ErrCodeStorageFailed, "creating data directory", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeStorageFailed, "opening database", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.NewIOError(errors.ErrCodeStorageFailed, "pinging database", err)
	}

	// one connection avoids "database is locked" under concurrent writes
	db.SetMaxOpenConns(1)

	pragmas := []string{"PRAGMA busy_timeout = 5000"}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, errors.NewIOError(errors.ErrCodeStorageFailed, "configuring database", err).
				WithContext("pragma", p)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errors.NewIOError(errors.ErrCodeStorageFailed, "running migrations", err)
	}
	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}
	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the applied migration versions in ascending order
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// RecordCall appends one audit row
func (s *Store) RecordCall(ctx context.Context, rec telemetry.CallRecord) error {
	success := 0
	if rec.Success {
		success = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO llm_calls (session_id, tag, started_at, duration_ms, success, error_type, prompt_chars, response_chars)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, string(rec.Tag), rec.StartedAt.UTC().Format(timeLayout), rec.Duration.Milliseconds(),
		success, rec.ErrorType, rec.PromptChars, rec.ResponseChars,
	)
	if err != nil {
		return errors.NewIOError(errors.ErrCodeStorageFailed, "recording LLM call", err).
			WithContext("session_id", rec.SessionID)
	}
	return nil
}

// SessionCalls returns the audit rows of a session in call order
func (s *Store) SessionCalls(ctx context.Context, sessionID string) ([]telemetry.CallRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, tag, started_at, duration_ms, success, error_type, prompt_chars, response_chars
		FROM llm_calls WHERE session_id = ? ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeStorageFailed, "querying LLM calls", err)
	}
	defer rows.Close()

	var out []telemetry.CallRecord
	for rows.Next() {
		var (
			rec       telemetry.CallRecord
			tag       string
			startedAt string
			durMS     int64
			success   int
		)
		if err := rows.Scan(&rec.SessionID, &tag, &startedAt, &durMS, &success, &rec.ErrorType,
			&rec.PromptChars, &rec.ResponseChars); err != nil {
			return nil, errors.NewIOError(errors.ErrCodeStorageFailed, "scanning LLM call", err)
		}
		rec.Tag = telemetry.Tag(tag)
		rec.Duration = time.Duration(durMS) * time.Millisecond
		rec.Success = success == 1
		if t, err := time.Parse(timeLayout, startedAt); err == nil {
			rec.StartedAt = t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// StatsSince aggregates calls per tag started at or after since
func (s *Store) StatsSince(ctx context.Context, since time.Time) ([]TagStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tag, COUNT(*), SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), SUM(duration_ms)
		FROM llm_calls WHERE started_at >= ? GROUP BY tag ORDER BY tag ASC`,
		since.UTC().Format(timeLayout))
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeStorageFailed, "aggregating LLM calls", err)
	}
	defer rows.Close()

	var out []TagStats
	for rows.Next() {
		var st TagStats
		var totalMS int64
		if err := rows.Scan(&st.Tag, &st.Calls, &st.Failures, &totalMS); err != nil {
			return nil, errors.NewIOError(errors.ErrCodeStorageFailed, "scanning call stats", err)
		}
		st.TotalTime = time.Duration(totalMS) * time.Millisecond
		out = append(out, st)
	}
	return out, rows.Err()
}

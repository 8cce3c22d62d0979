// Package journal keeps an append-only SQLite log of session turns: what the
// user said, the affect state the reply was generated under and how the turn
// ended. It is an audit trail only; the affect memory never reads from it.
package journal

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Outcome is how a turn ended.
type Outcome string

const (
	OutcomeReply   Outcome = "reply"
	OutcomeEmpty   Outcome = "empty"
	OutcomeTimeout Outcome = "timeout"
	OutcomeError   Outcome = "error"
)

// Entry is one journaled turn.
type Entry struct {
	ID        string
	SessionID string
	StartedAt time.Time
	Input     string
	Technical bool
	Emotion   string
	Intensity float64
	Affection float64
	// Rule is the mood transition rule that fired, empty for technical turns.
	Rule     string
	Outcome  Outcome
	Reply    string
	Attempts int
	Duration time.Duration
}

// Journal wraps the SQLite connection.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the database at path and applies pending
// migrations. ":memory:" gives a private in-process database.
func Open(path string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open database: %w", err)
	}
	// One connection: SQLite has a single writer, and each ":memory:"
	// connection would otherwise see its own empty database.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("journal: set pragma: %w", err)
		}
	}

	j := &Journal{db: db, logger: logger}
	if err := j.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: run migrations: %w", err)
	}
	return j, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error { return j.db.Close() }

// runMigrations applies any SQL files not yet recorded in schema_migrations.
func (j *Journal) runMigrations() error {
	_, err := j.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version     INTEGER PRIMARY KEY,
			applied_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			description TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var current int
	if err := j.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].Name() < entries[b].Name() })

	for _, e := range entries {
		version, description, ok := parseMigrationName(e.Name())
		if e.IsDir() || !ok || version <= current {
			continue
		}
		content, err := migrationsFS.ReadFile("migrations/" + e.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", e.Name(), err)
		}

		tx, err := j.db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration tx: %w", err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", e.Name(), err)
		}
		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
			version, description,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", e.Name(), err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", e.Name(), err)
		}
		j.logger.Debug("journal: applied migration", "version", version, "description", description)
	}
	return nil
}

// parseMigrationName splits "0001_turns.sql" into (1, "turns").
func parseMigrationName(name string) (int, string, bool) {
	if !strings.HasSuffix(name, ".sql") {
		return 0, "", false
	}
	parts := strings.SplitN(strings.TrimSuffix(name, ".sql"), "_", 2)
	if len(parts) < 2 {
		return 0, "", false
	}
	var version int
	if _, err := fmt.Sscanf(parts[0], "%d", &version); err != nil {
		return 0, "", false
	}
	return version, parts[1], true
}

// SchemaVersion returns the highest applied migration.
func (j *Journal) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := j.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v)
	return v, err
}

// Record inserts a turn. An empty ID is filled with a fresh UUID, and a zero
// StartedAt with the current time. The stored ID is returned.
func (j *Journal) Record(ctx context.Context, e Entry) (string, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now()
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO turns
			(id, session_id, started_at, input, technical, emotion, intensity,
			 affection, outcome, reply, duration_ms, attempts, rule)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID, e.SessionID, e.StartedAt.UTC(), e.Input, boolToInt(e.Technical),
		e.Emotion, e.Intensity, e.Affection, string(e.Outcome), e.Reply,
		e.Duration.Milliseconds(), e.Attempts, e.Rule,
	)
	if err != nil {
		return "", fmt.Errorf("journal: record turn: %w", err)
	}
	return e.ID, nil
}

// Recent returns up to n turns, newest first.
func (j *Journal) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, session_id, started_at, input, technical, emotion, intensity,
		       affection, outcome, reply, duration_ms, attempts, rule
		FROM turns
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("journal: query recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e          Entry
			technical  int
			outcome    string
			durationMS int64
		)
		if err := rows.Scan(
			&e.ID, &e.SessionID, &e.StartedAt, &e.Input, &technical, &e.Emotion,
			&e.Intensity, &e.Affection, &outcome, &e.Reply, &durationMS, &e.Attempts, &e.Rule,
		); err != nil {
			return nil, fmt.Errorf("journal: scan turn: %w", err)
		}
		e.Technical = technical != 0
		e.Outcome = Outcome(outcome)
		e.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountByOutcome returns how many turns ended with each outcome.
func (j *Journal) CountByOutcome(ctx context.Context) (map[Outcome]int, error) {
	rows, err := j.db.QueryContext(ctx, "SELECT outcome, COUNT(*) FROM turns GROUP BY outcome")
	if err != nil {
		return nil, fmt.Errorf("journal: count outcomes: %w", err)
	}
	defer rows.Close()

	out := make(map[Outcome]int)
	for rows.Next() {
		var (
			o string
			n int
		)
		if err := rows.Scan(&o, &n); err != nil {
			return nil, fmt.Errorf("journal: scan outcome count: %w", err)
		}
		out[Outcome(o)] = n
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

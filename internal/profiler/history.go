package profiler

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// HistoryStore persists execution samples in SQLite so statistics survive
// across runs. It implements HistorySink.
type HistoryStore struct {
	db     *sql.DB
	dbPath string
}

// NewHistoryStore opens (creating if needed) the history database at
// dbPath. Use ":memory:" for an ephemeral store.
func NewHistoryStore(dbPath string) (*HistoryStore, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	// busy_timeout first so the remaining setup waits on locks instead of
	// failing when another engine instance shares the file.
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}

	return &HistoryStore{db: db, dbPath: dbPath}, nil
}

// Append stores one sample.
func (s *HistoryStore) Append(sample Sample) error {
	_, err := s.db.Exec(
		`INSERT INTO task_samples (task_id, agent, model, success, duration_ms) VALUES (?, ?, ?, ?, ?)`,
		sample.TaskID, sample.Agent, sample.Model, boolToInt(sample.Success), sample.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("append sample for %s: %w", sample.TaskID, err)
	}
	return nil
}

// RecentSamples returns up to limit samples, newest first.
func (s *HistoryStore) RecentSamples(limit int) ([]Sample, error) {
	rows, err := s.db.Query(
		`SELECT task_id, agent, model, success, duration_ms FROM task_samples ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var sample Sample
		var success int
		var durationMs int64
		if err := rows.Scan(&sample.TaskID, &sample.Agent, &sample.Model, &success, &durationMs); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		sample.Success = success != 0
		sample.Duration = time.Duration(durationMs) * time.Millisecond
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}

// Close releases the database handle.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

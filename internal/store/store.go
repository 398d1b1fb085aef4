// internal/store/store.go
package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/netauto/hivectl/internal/facts"
	_ "modernc.org/sqlite"
)

// Record is one stored fact-collection run for one device.
type Record struct {
	ID          int64         `json:"id"`
	Host        string        `json:"host"`
	CollectedAt time.Time     `json:"collected_at"`
	Subsets     []string      `json:"subsets"`
	Facts       facts.FactSet `json:"facts"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Store keeps fact-collection history in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		host TEXT NOT NULL,
		collected_at TEXT NOT NULL,
		subsets TEXT,
		facts TEXT NOT NULL,
		created_at TEXT DEFAULT (datetime('now'))
	);
	CREATE INDEX IF NOT EXISTS idx_runs_host ON runs(host);
	CREATE INDEX IF NOT EXISTS idx_runs_collected_at ON runs(collected_at);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert stores one collection run.
func (s *Store) Insert(r *Record) error {
	factsJSON, err := json.Marshal(r.Facts)
	if err != nil {
		return err
	}
	subsetsJSON, err := json.Marshal(r.Subsets)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO runs (host, collected_at, subsets, facts)
		VALUES (?, ?, ?, ?)
	`, r.Host, r.CollectedAt.Format(time.RFC3339), string(subsetsJSON), string(factsJSON))

	return err
}

// ByHost returns the most recent runs for one device, newest first.
func (s *Store) ByHost(host string, limit int) ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT id, host, collected_at, subsets, facts, created_at
		FROM runs
		WHERE host = ?
		ORDER BY collected_at DESC
		LIMIT ?
	`, host, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Latest returns the newest run per device.
func (s *Store) Latest() ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT id, host, collected_at, subsets, facts, created_at
		FROM runs
		WHERE id IN (SELECT MAX(id) FROM runs GROUP BY host)
		ORDER BY host
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var r Record
		var collectedStr, createdStr string
		var subsetsJSON, factsJSON sql.NullString

		err := rows.Scan(&r.ID, &r.Host, &collectedStr, &subsetsJSON, &factsJSON, &createdStr)
		if err != nil {
			return nil, err
		}

		r.CollectedAt, _ = time.Parse(time.RFC3339, collectedStr)
		r.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdStr)
		if subsetsJSON.Valid {
			json.Unmarshal([]byte(subsetsJSON.String), &r.Subsets)
		}
		if factsJSON.Valid {
			json.Unmarshal([]byte(factsJSON.String), &r.Facts)
		}

		records = append(records, r)
	}
	return records, rows.Err()
}

package artifacts

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cabinetlabs/seanced/internal/errs"
)

// SessionRecord is one row of the session index.
type SessionRecord struct {
	SessionKey string    `json:"session_id"`
	Patient    string    `json:"patient,omitempty"`
	BaseName   string    `json:"base_name,omitempty"`
	Date       string    `json:"date"`
	Register   string    `json:"register,omitempty"`
	Duration   float64   `json:"duration"`
	WordCount  int       `json:"word_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Index records committed sessions in SQLite so they can be listed without
// walking the filesystem. The store stays the source of truth; the index is
// metadata only.
type Index struct {
	db *sql.DB
}

func NewIndex(dbPath string) (*Index, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_key TEXT NOT NULL UNIQUE,
		patient TEXT,
		base_name TEXT,
		date TEXT NOT NULL,
		register TEXT,
		duration REAL,
		word_count INTEGER,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at);
	CREATE INDEX IF NOT EXISTS idx_sessions_patient ON sessions(patient);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create table: %v", err)
	}

	return &Index{db: db}, nil
}

// Record inserts the metadata of a freshly committed session. Re-recording
// an existing key is a no-op, matching the store's idempotence.
func (ix *Index) Record(rec SessionRecord) error {
	query := `
	INSERT OR IGNORE INTO sessions (session_key, patient, base_name, date, register, duration, word_count, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := ix.db.Exec(query, rec.SessionKey, rec.Patient, rec.BaseName, rec.Date,
		rec.Register, rec.Duration, rec.WordCount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record session: %v", err)
	}
	return nil
}

// Get retrieves one session by key.
func (ix *Index) Get(sessionKey string) (*SessionRecord, error) {
	query := `
	SELECT session_key, patient, base_name, date, register, duration, word_count, created_at
	FROM sessions WHERE session_key = ?
	`
	var rec SessionRecord
	err := ix.db.QueryRow(query, sessionKey).Scan(&rec.SessionKey, &rec.Patient,
		&rec.BaseName, &rec.Date, &rec.Register, &rec.Duration, &rec.WordCount, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: session %s", errs.ErrNotFound, sessionKey)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %v", err)
	}
	return &rec, nil
}

// List returns the most recently committed sessions.
func (ix *Index) List(limit int) ([]SessionRecord, error) {
	query := `
	SELECT session_key, patient, base_name, date, register, duration, word_count, created_at
	FROM sessions ORDER BY created_at DESC LIMIT ?
	`
	rows, err := ix.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %v", err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		if err := rows.Scan(&rec.SessionKey, &rec.Patient, &rec.BaseName, &rec.Date,
			&rec.Register, &rec.Duration, &rec.WordCount, &rec.CreatedAt); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Close closes the database connection
func (ix *Index) Close() error {
	return ix.db.Close()
}

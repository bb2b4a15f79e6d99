// Package ledger records the jobs launched by experiment sweeps in a
// SQLite database
package ledger

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	sync "github.com/sasha-s/go-deadlock"
)

// Entry is a single launched job
type Entry struct {
	ID         string
	ExpPrefix  string
	Name       string
	Mode       string
	Game       string
	AgentType  string
	BonusCoeff float64
	Repetition int
	LogDir     string
	Launched   time.Time
}

// Ledger is a SQLite backed record of launched jobs
type Ledger struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens the ledger at path, creating it if it does not exist
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open: %v", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		exp_prefix TEXT,
		name TEXT,
		mode TEXT,
		game TEXT,
		agent_type TEXT,
		bonus_coeff REAL,
		repetition INTEGER,
		log_dir TEXT,
		-- unix nanoseconds
		launched INTEGER
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open: could not create jobs table: %v", err)
	}

	return &Ledger{db: db}, nil
}

// Record adds a launched job to the ledger
func (l *Ledger) Record(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.db.Exec(
		`INSERT INTO jobs (id, exp_prefix, name, mode, game, agent_type,
			bonus_coeff, repetition, log_dir, launched)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ExpPrefix, e.Name, e.Mode, e.Game, e.AgentType,
		e.BonusCoeff, e.Repetition, e.LogDir, e.Launched.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record: %v", err)
	}
	return nil
}

// List returns all entries in the order they were launched
func (l *Ledger) List() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.db.Query(`SELECT id, exp_prefix, name, mode, game,
		agent_type, bonus_coeff, repetition, log_dir, launched
		FROM jobs ORDER BY launched, rowid`)
	if err != nil {
		return nil, fmt.Errorf("list: %v", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var launched int64
		err := rows.Scan(&e.ID, &e.ExpPrefix, &e.Name, &e.Mode, &e.Game,
			&e.AgentType, &e.BonusCoeff, &e.Repetition, &e.LogDir, &launched)
		if err != nil {
			return nil, fmt.Errorf("list: %v", err)
		}
		e.Launched = time.Unix(0, launched)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list: %v", err)
	}
	return entries, nil
}

// Close closes the ledger
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.db.Close()
}

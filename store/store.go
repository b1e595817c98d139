// Package store archives run outcomes in SQLite, keyed by run id and the
// SHA-256 of the program that produced them.
package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrRunNotFound indicates the requested run doesn't exist
var ErrRunNotFound = errors.New("run not found")

// timeLayout is RFC 3339 with a fixed-width fractional second, so stored
// created_at values sort chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store handles SQLite storage for run outcomes
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// Run is one archived row.
type Run struct {
	ID         string
	ProgramSHA string
	CreatedAt  time.Time
	Outcome    *Outcome
}

// Open creates a new run archive at dbPath.
func Open(dbPath string) (*Store, error) {
	s := &Store{dbPath: dbPath}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s.db = db

	// Set busy timeout for concurrent access
	_, err = db.Exec("PRAGMA busy_timeout = 5000")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		program_sha TEXT NOT NULL,
		created_at TEXT NOT NULL,
		outcome BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// ProgramSHA returns the hex SHA-256 of a program's bytes.
func ProgramSHA(program []byte) string {
	sum := sha256.Sum256(program)
	return hex.EncodeToString(sum[:])
}

// Record archives an outcome for the given program bytes and returns the
// new run's id.
func (s *Store) Record(program []byte, o *Outcome) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := MarshalOutcome(o)
	if err != nil {
		return "", fmt.Errorf("encoding outcome: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.Exec(
		"INSERT INTO runs (id, program_sha, created_at, outcome) VALUES (?, ?, ?, ?)",
		id, ProgramSHA(program), time.Now().UTC().Format(timeLayout), data,
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}
	return id, nil
}

// Get loads one run by id.
func (s *Store) Get(id string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(
		"SELECT id, program_sha, created_at, outcome FROM runs WHERE id = ?", id,
	)
	return scanRun(row.Scan)
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(limit int) ([]*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		"SELECT id, program_sha, created_at, outcome FROM runs ORDER BY created_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ForProgram returns all runs of one program, newest first. Comparing
// their outcomes checks that runs of the same program stay deterministic.
func (s *Store) ForProgram(programSHA string) ([]*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		"SELECT id, program_sha, created_at, outcome FROM runs WHERE program_sha = ? ORDER BY created_at DESC",
		programSHA,
	)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func scanRun(scan func(...any) error) (*Run, error) {
	var (
		r       Run
		created string
		blob    []byte
	)
	if err := scan(&r.ID, &r.ProgramSHA, &created, &blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, fmt.Errorf("parsing run timestamp: %w", err)
	}
	r.CreatedAt = t

	o, err := UnmarshalOutcome(blob)
	if err != nil {
		return nil, err
	}
	r.Outcome = o
	return &r, nil
}

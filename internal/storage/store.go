// Package storage persists full match snapshots in SQLite, keyed by match id.
// Snapshots are opaque to the store; filtering for viewers never happens here.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"mafiad/internal/mafia"
)

// MatchRow describes one stored match without its snapshot body.
type MatchRow struct {
	ID        string
	Phase     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store handles SQLite persistence.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database and runs migrations.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS matches (
			id         TEXT PRIMARY KEY,
			phase      TEXT NOT NULL,
			snapshot   TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

// Save upserts a match snapshot.
func (s *Store) Save(id, phase string, snapshot []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO matches (id, phase, snapshot, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			phase = excluded.phase,
			snapshot = excluded.snapshot,
			updated_at = excluded.updated_at
	`, id, phase, string(snapshot))
	return err
}

// Load retrieves a match snapshot. Returns mafia.ErrNotFound for unknown ids.
func (s *Store) Load(id string) ([]byte, error) {
	var snapshot string
	err := s.db.QueryRow("SELECT snapshot FROM matches WHERE id = ?", id).Scan(&snapshot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: match %s", mafia.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return []byte(snapshot), nil
}

// Delete removes a stored match. Deleting an unknown id is not an error.
func (s *Store) Delete(id string) error {
	_, err := s.db.Exec("DELETE FROM matches WHERE id = ?", id)
	return err
}

// List returns all stored matches, newest first, without snapshot bodies.
func (s *Store) List() ([]MatchRow, error) {
	rows, err := s.db.Query("SELECT id, phase, created_at, updated_at FROM matches ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []MatchRow
	for rows.Next() {
		var mr MatchRow
		if err := rows.Scan(&mr.ID, &mr.Phase, &mr.CreatedAt, &mr.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, mr)
	}
	return result, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

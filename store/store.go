// Package store is a content-addressed cache of compiled models.
// Entries are keyed by a digest over the exact input documents of a
// run, so an unchanged input set never recompiles.
package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store handles the cache database.
type Store struct {
	db *sql.DB
}

// Entry describes one cached model.
type Entry struct {
	Digest    string
	Name      string
	Size      int
	CreatedAt time.Time
}

// Open opens or creates the cache database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS models (
		digest TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		model BLOB NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_models_name ON models(name);
	CREATE INDEX IF NOT EXISTS idx_models_created ON models(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Digest computes the cache key for a set of input documents. Inputs
// are length-prefixed so distinct splits of the same bytes never
// collide.
func Digest(inputs ...[]byte) string {
	h := sha256.New()
	var n [8]byte
	for _, in := range inputs {
		binary.BigEndian.PutUint64(n[:], uint64(len(in)))
		h.Write(n[:])
		h.Write(in)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Put stores a compiled model under its input digest, replacing any
// previous entry for the same digest.
func (s *Store) Put(digest, name string, model []byte) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO models (digest, name, model, created_at) VALUES (?, ?, ?, ?)`,
		digest, name, model, time.Now().UTC(),
	)
	return err
}

// Get returns the cached model for a digest; ok is false on a miss.
func (s *Store) Get(digest string) (model []byte, ok bool, err error) {
	row := s.db.QueryRow(`SELECT model FROM models WHERE digest = ?`, digest)
	switch err := row.Scan(&model); err {
	case nil:
		return model, true, nil
	case sql.ErrNoRows:
		return nil, false, nil
	default:
		return nil, false, err
	}
}

// List returns the most recent entries, newest first.
func (s *Store) List(limit int) ([]*Entry, error) {
	rows, err := s.db.Query(
		`SELECT digest, name, LENGTH(model), created_at
		 FROM models ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Digest, &e.Name, &e.Size, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Delete removes one entry; deleting a missing digest is not an error.
func (s *Store) Delete(digest string) error {
	_, err := s.db.Exec(`DELETE FROM models WHERE digest = ?`, digest)
	return err
}

// Prune keeps only the newest keep entries.
func (s *Store) Prune(keep int) (removed int64, err error) {
	res, err := s.db.Exec(
		`DELETE FROM models WHERE digest NOT IN
		 (SELECT digest FROM models ORDER BY created_at DESC LIMIT ?)`, keep,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

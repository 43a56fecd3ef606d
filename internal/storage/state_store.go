// Package storage provides SQLite persistence for Nuance.
package storage

import (
	"database/sql"
)

// StateStore persists the single application state blob
type StateStore struct {
	db *DB
}

// NewStateStore creates a new state store
func NewStateStore(db *DB) *StateStore {
	return &StateStore{db: db}
}

// Save upserts the state blob.
func (s *StateStore) Save(data []byte) error {
	_, err := s.db.conn.Exec(`
		INSERT INTO app_state (id, data, updated_at) VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP
	`, string(data))
	return err
}

// Load returns the state blob, or (nil, nil) on first run.
func (s *StateStore) Load() ([]byte, error) {
	var data string
	err := s.db.conn.QueryRow("SELECT data FROM app_state WHERE id = 1").Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}

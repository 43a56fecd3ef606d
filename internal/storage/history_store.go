// Package storage provides SQLite persistence for Nuance.
package storage

import (
	"database/sql"
	"encoding/json"

	"github.com/nuance-app/nuance/internal/core"
)

// HistoryStore handles day record persistence
type HistoryStore struct {
	db *DB
}

// NewHistoryStore creates a new history store
func NewHistoryStore(db *DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Save upserts the record for its date. A second save for the same date
// replaces the row wholesale.
func (s *HistoryStore) Save(rec core.DayRecord) error {
	sliders, _ := json.Marshal(rec.Sliders)
	toggles, _ := json.Marshal(rec.Toggles)
	penalties, _ := json.Marshal(rec.Penalties)

	_, err := s.db.conn.Exec(`
		INSERT INTO day_records (
		    date, mode, alcohol, stress, sliders, toggles, penalties,
		    base_score, score, base_recovery, recovery, status, saved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(date) DO UPDATE SET
		    mode = excluded.mode,
		    alcohol = excluded.alcohol,
		    stress = excluded.stress,
		    sliders = excluded.sliders,
		    toggles = excluded.toggles,
		    penalties = excluded.penalties,
		    base_score = excluded.base_score,
		    score = excluded.score,
		    base_recovery = excluded.base_recovery,
		    recovery = excluded.recovery,
		    status = excluded.status,
		    saved_at = CURRENT_TIMESTAMP
	`,
		rec.Date, rec.Mode, rec.Alcohol, rec.Stress,
		string(sliders), string(toggles), string(penalties),
		rec.BaseScore, rec.Score, rec.BaseRecovery, rec.Recovery, rec.Status,
	)

	return err
}

// GetByDate returns the record for one calendar day
func (s *HistoryStore) GetByDate(date string) (*core.DayRecord, error) {
	rec := &core.DayRecord{}
	var sliders, toggles, penalties string

	err := s.db.conn.QueryRow(`
		SELECT date, mode, alcohol, stress, sliders, toggles, penalties,
		       base_score, score, base_recovery, recovery, status
		FROM day_records WHERE date = ?
	`, date).Scan(
		&rec.Date, &rec.Mode, &rec.Alcohol, &rec.Stress,
		&sliders, &toggles, &penalties,
		&rec.BaseScore, &rec.Score, &rec.BaseRecovery, &rec.Recovery, &rec.Status,
	)

	if err == sql.ErrNoRows {
		return nil, core.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	json.Unmarshal([]byte(sliders), &rec.Sliders)
	json.Unmarshal([]byte(toggles), &rec.Toggles)
	json.Unmarshal([]byte(penalties), &rec.Penalties)

	return rec, nil
}

// LoadAll returns the full history keyed by date
func (s *HistoryStore) LoadAll() (core.History, error) {
	rows, err := s.db.conn.Query(`
		SELECT date, mode, alcohol, stress, sliders, toggles, penalties,
		       base_score, score, base_recovery, recovery, status
		FROM day_records ORDER BY date
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make(core.History)
	for rows.Next() {
		var rec core.DayRecord
		var sliders, toggles, penalties string

		if err := rows.Scan(
			&rec.Date, &rec.Mode, &rec.Alcohol, &rec.Stress,
			&sliders, &toggles, &penalties,
			&rec.BaseScore, &rec.Score, &rec.BaseRecovery, &rec.Recovery, &rec.Status,
		); err != nil {
			return nil, err
		}

		json.Unmarshal([]byte(sliders), &rec.Sliders)
		json.Unmarshal([]byte(toggles), &rec.Toggles)
		json.Unmarshal([]byte(penalties), &rec.Penalties)

		history[rec.Date] = rec
	}

	return history, rows.Err()
}

// DeleteAll removes every saved day
func (s *HistoryStore) DeleteAll() error {
	_, err := s.db.conn.Exec("DELETE FROM day_records")
	return err
}

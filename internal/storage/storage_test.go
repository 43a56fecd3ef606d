package storage

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/nuance-app/nuance/internal/core"
)

// testDB creates an in-memory database for testing
func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Config{InMemory: true})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

func testRecord(date string) core.DayRecord {
	return core.DayRecord{
		Date:    date,
		Mode:    core.ModeHigh,
		Alcohol: core.LevelLow,
		Stress:  core.LevelNone,
		Sliders: map[core.ItemID]float64{
			core.ItemSleep:   6.5,
			core.ItemFasting: 16,
		},
		Toggles:      map[core.ItemID]bool{"steps": true, "protein": false},
		Penalties:    map[core.ItemID]bool{"late": true},
		BaseScore:    72.5,
		Score:        68.875,
		BaseRecovery: 55,
		Recovery:     52.25,
		Status:       core.StatusOnTrack,
	}
}

// =============================================================================
// DB
// =============================================================================

func TestDB_Open_InMemory(t *testing.T) {
	db, err := Open(Config{InMemory: true})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if db.conn == nil {
		t.Error("db.conn should not be nil")
	}
	if !db.isMemory {
		t.Error("db.isMemory should be true for in-memory database")
	}
}

func TestDB_Open_File(t *testing.T) {
	path := t.TempDir() + "/test.db"

	db, err := Open(Config{Path: path})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if db.isMemory {
		t.Error("db.isMemory should be false for file database")
	}
	if db.path != path {
		t.Errorf("db.path = %v, want %v", db.path, path)
	}
}

func TestDB_Migrate_Idempotent(t *testing.T) {
	db := testDB(t)
	if err := db.Migrate(); err != nil {
		t.Errorf("second Migrate() error = %v", err)
	}
}

func TestDB_Transaction_Rollback(t *testing.T) {
	db := testDB(t)

	wantErr := errors.New("boom")
	err := db.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO app_state (id, data) VALUES (1, '{}')"); err != nil {
			return err
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Transaction() error = %v, want %v", err, wantErr)
	}

	var count int
	db.Conn().QueryRow("SELECT COUNT(*) FROM app_state").Scan(&count)
	if count != 0 {
		t.Errorf("rolled-back insert still visible: count = %d", count)
	}
}

// =============================================================================
// StateStore
// =============================================================================

func TestStateStore_FirstRun(t *testing.T) {
	store := NewStateStore(testDB(t))

	data, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if data != nil {
		t.Errorf("first-run Load() = %q, want nil", data)
	}
}

func TestStateStore_SaveLoad(t *testing.T) {
	store := NewStateStore(testDB(t))

	blob := []byte(`{"catalog":{"sliders":[]},"settings":{"personalization_mode":true}}`)
	if err := store.Save(blob); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(got) != string(blob) {
		t.Errorf("Load() = %s, want %s", got, blob)
	}

	// Second save replaces the single row.
	blob2 := []byte(`{"catalog":{"sliders":[]}}`)
	if err := store.Save(blob2); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}
	got, _ = store.Load()
	if string(got) != string(blob2) {
		t.Errorf("Load() after re-save = %s, want %s", got, blob2)
	}
}

// =============================================================================
// HistoryStore
// =============================================================================

func TestHistoryStore_SaveGet(t *testing.T) {
	store := NewHistoryStore(testDB(t))
	rec := testRecord("2024-01-15")

	if err := store.Save(rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.GetByDate("2024-01-15")
	if err != nil {
		t.Fatalf("GetByDate() error = %v", err)
	}

	if got.Score != rec.Score || got.Status != rec.Status || got.Alcohol != rec.Alcohol {
		t.Errorf("GetByDate() = %+v, want %+v", got, rec)
	}
	if got.Sliders[core.ItemSleep] != 6.5 {
		t.Errorf("sleep value = %v, want 6.5", got.Sliders[core.ItemSleep])
	}
	if !got.Toggles["steps"] || got.Toggles["protein"] {
		t.Errorf("toggles = %v", got.Toggles)
	}
	if !got.Penalties["late"] {
		t.Errorf("penalties = %v", got.Penalties)
	}
}

func TestHistoryStore_GetMissing(t *testing.T) {
	store := NewHistoryStore(testDB(t))
	_, err := store.GetByDate("2024-01-15")
	if !errors.Is(err, core.ErrRecordNotFound) {
		t.Errorf("err = %v, want ErrRecordNotFound", err)
	}
}

func TestHistoryStore_SaveReplaces(t *testing.T) {
	store := NewHistoryStore(testDB(t))

	rec := testRecord("2024-01-15")
	if err := store.Save(rec); err != nil {
		t.Fatal(err)
	}

	rec.Score = 90
	rec.Status = core.StatusHighOutput
	rec.Toggles = map[core.ItemID]bool{"protein": true}
	if err := store.Save(rec); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetByDate("2024-01-15")
	if err != nil {
		t.Fatal(err)
	}
	if got.Score != 90 || got.Status != core.StatusHighOutput {
		t.Errorf("re-save not applied: %+v", got)
	}
	if got.Toggles["steps"] {
		t.Error("stale toggle survived the replace")
	}

	var count int
	store.db.Conn().QueryRow("SELECT COUNT(*) FROM day_records").Scan(&count)
	if count != 1 {
		t.Errorf("row count = %d, want 1", count)
	}
}

func TestHistoryStore_LoadAll(t *testing.T) {
	store := NewHistoryStore(testDB(t))

	for _, date := range []string{"2024-01-15", "2024-01-16", "2024-02-01"} {
		if err := store.Save(testRecord(date)); err != nil {
			t.Fatal(err)
		}
	}

	history, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("LoadAll() size = %d, want 3", len(history))
	}
	if _, ok := history["2024-02-01"]; !ok {
		t.Error("record missing from loaded history")
	}
}

func TestHistoryStore_DeleteAll(t *testing.T) {
	store := NewHistoryStore(testDB(t))
	if err := store.Save(testRecord("2024-01-15")); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteAll(); err != nil {
		t.Fatalf("DeleteAll() error = %v", err)
	}

	history, err := store.LoadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 0 {
		t.Errorf("history size after DeleteAll = %d, want 0", len(history))
	}
}

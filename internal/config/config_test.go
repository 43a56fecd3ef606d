package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8090 || cfg.Server.Host != "localhost" {
		t.Errorf("default server = %+v", cfg.Server)
	}
	if cfg.Coach.WindowDays != 30 || cfg.Coach.MinEntries != 7 {
		t.Errorf("default coach = %+v", cfg.Coach)
	}
}

func TestLoad_PartialFileOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"server":{"port":9999,"host":"localhost"}}`), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want 9999", cfg.Server.Port)
	}
	// Unspecified sections keep defaults.
	if cfg.Coach.WindowDays != 30 {
		t.Errorf("coach window = %d, want default 30", cfg.Coach.WindowDays)
	}
}

func TestLoad_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte("{nope"), 0600)
	if _, err := Load(path); err == nil {
		t.Error("Load() should reject malformed config")
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Default()
	cfg.DataDir = dir
	cfg.Server.Port = 7070
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Server.Port != 7070 || loaded.DataDir != dir {
		t.Errorf("round trip = %+v", loaded)
	}
}

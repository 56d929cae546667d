package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := Default()
	cfg.User.ID = "u1"
	cfg.User.Name = "Ada"
	cfg.Server.UseLocal = true
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.User.ID != "u1" || loaded.User.Name != "Ada" {
		t.Errorf("user = %+v", loaded.User)
	}
	if !loaded.Server.UseLocal {
		t.Error("UseLocal not persisted")
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")
	if err := os.WriteFile(path, []byte("[user]\nid = \"u1\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.URL == "" {
		t.Error("default server URL not applied")
	}
	if cfg.Backoff.Initial() != time.Second {
		t.Errorf("initial backoff = %v, want 1s", cfg.Backoff.Initial())
	}
	if cfg.Backoff.Max() != 30*time.Second {
		t.Errorf("max backoff = %v, want 30s", cfg.Backoff.Max())
	}
}

func TestEndpointSelection(t *testing.T) {
	s := ServerConfig{URL: "wss://prod/ws", LocalURL: "ws://localhost:3001/ws"}
	if got := s.Endpoint(); got != "wss://prod/ws" {
		t.Errorf("Endpoint() = %q, want production URL", got)
	}
	s.UseLocal = true
	if got := s.Endpoint(); got != "ws://localhost:3001/ws" {
		t.Errorf("Endpoint() = %q, want local URL", got)
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, Default()); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}

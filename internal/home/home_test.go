package home

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewExplicitPath(t *testing.T) {
	dir := t.TempDir()
	h, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if h.Path() != dir {
		t.Errorf("Path() = %q, want %q", h.Path(), dir)
	}
	if h.UploadsPath() != filepath.Join(dir, UploadsDirName) {
		t.Errorf("UploadsPath() = %q", h.UploadsPath())
	}
	if h.PromptsPath() != filepath.Join(dir, PromptsDirName) {
		t.Errorf("PromptsPath() = %q", h.PromptsPath())
	}
	if h.ConfigPath() != filepath.Join(dir, ConfigFileName) {
		t.Errorf("ConfigPath() = %q", h.ConfigPath())
	}
}

func TestNewDefaultsToUserHome(t *testing.T) {
	h, err := New("")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if filepath.Base(h.Path()) != DefaultDirName {
		t.Errorf("default path = %q, want %s under user home", h.Path(), DefaultDirName)
	}
}

func TestEnsureExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fresh")
	h, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if h.Exists() {
		t.Error("Exists() = true before EnsureExists")
	}
	if err := h.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}
	if !h.Exists() {
		t.Error("Exists() = false after EnsureExists")
	}

	for _, p := range []string{h.UploadsPath(), h.PromptsPath()} {
		info, err := os.Stat(p)
		if err != nil {
			t.Errorf("subdirectory %s not created: %v", p, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", p)
		}
	}

	// EnsureExists is idempotent.
	if err := h.EnsureExists(); err != nil {
		t.Errorf("second EnsureExists failed: %v", err)
	}
}

func TestConfigExists(t *testing.T) {
	h, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if h.ConfigExists() {
		t.Error("ConfigExists() = true with no config file")
	}
	if err := os.WriteFile(h.ConfigPath(), []byte("backends: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !h.ConfigExists() {
		t.Error("ConfigExists() = false after writing config")
	}
}

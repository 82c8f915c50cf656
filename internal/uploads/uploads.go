// Package uploads stores parsed source documents on disk so the original
// file can be fetched later for side-by-side viewing.
package uploads

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNotFound covers both an unknown file ID and a cached file that has been
// removed from disk; callers cannot distinguish the two.
var ErrNotFound = errors.New("file not found")

// Store is a content-addressed file cache. IDs are derived from the file
// bytes, so re-uploading the same document yields the same ID.
type Store struct {
	mu    sync.RWMutex
	dir   string
	paths map[string]string // id -> absolute path
}

// NewStore creates a store rooted at dir, creating it if needed. Files
// already present from a previous run are indexed so their IDs keep working.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads dir: %w", err)
	}

	s := &Store{
		dir:   dir,
		paths: make(map[string]string),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploads dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		id := strings.TrimSuffix(name, filepath.Ext(name))
		s.paths[id] = filepath.Join(dir, name)
	}

	return s, nil
}

// Put writes the upload to disk and returns its ID.
func (s *Store) Put(content []byte, filename string) (string, error) {
	id := fileID(content)
	ext := strings.ToLower(filepath.Ext(filename))
	path := filepath.Join(s.dir, id+ext)

	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}

	s.mu.Lock()
	s.paths[id] = path
	s.mu.Unlock()

	return id, nil
}

// Get returns the stored path for an upload ID.
func (s *Store) Get(id string) (string, error) {
	s.mu.RLock()
	path, ok := s.paths[id]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return path, nil
}

func fileID(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])[:16]
}

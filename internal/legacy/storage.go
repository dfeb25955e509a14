// Package legacy handles the old flat key-value storage format and its
// one-time migration into the record store.
package legacy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Flat-storage keys used by the previous app versions. Each key is a file
// in the legacy directory holding a JSON array.
const (
	DecksKey  = "flashcard-decks"
	StacksKey = "flashcard-stacks"
)

// Provider is the interface for flat-storage key operations.
type Provider interface {
	// Has reports whether the key exists.
	Has(key string) bool
	// Read returns the raw bytes stored under key.
	Read(key string) ([]byte, error)
	// Delete removes the key. Deleting an absent key is not an error.
	Delete(key string) error
}

// Files implements Provider with one file per key in a root directory.
type Files struct {
	root string // absolute path to the legacy data directory
}

var _ Provider = (*Files)(nil)

// NewFiles creates a Files provider rooted at the given directory. A missing
// directory is fine: it simply means no legacy data exists.
func NewFiles(root string) (*Files, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("legacy: resolve root: %w", err)
	}
	return &Files{root: abs}, nil
}

// keyPath resolves a key against the root and rejects anything that would
// escape it (path separators, traversal).
func (f *Files) keyPath(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", fmt.Errorf("legacy: invalid key: %q", key)
	}
	return filepath.Join(f.root, key), nil
}

// Has reports whether a regular file for the key exists.
func (f *Files) Has(key string) bool {
	p, err := f.keyPath(key)
	if err != nil {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// Read returns the contents stored under key.
func (f *Files) Read(key string) ([]byte, error) {
	p, err := f.keyPath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("legacy: read %s: %w", key, err)
	}
	return data, nil
}

// Delete removes the key file. Absent keys are a no-op.
func (f *Files) Delete(key string) error {
	p, err := f.keyPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("legacy: delete %s: %w", key, err)
	}
	return nil
}

package core

import (
	"fmt"
	"os"
	"path/filepath"
)

// DiskStore is the os-backed FileStore.
type DiskStore struct{}

// Load reads a file as a string.
func (DiskStore) Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("load %s: %w", path, err)
	}
	return string(data), nil
}

// Save writes text to path, creating parent directories as needed.
func (DiskStore) Save(path, text string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("save %s: %w", path, err)
		}
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalProvider writes archived content under a root directory on the
// local filesystem.
type LocalProvider struct {
	root string
}

// NewLocalProvider creates the root directory if needed.
func NewLocalProvider(root string) (*LocalProvider, error) {
	if root == "" {
		return nil, fmt.Errorf("archive root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create archive root: %w", err)
	}
	return &LocalProvider{root: root}, nil
}

// Save writes the object to disk, creating intermediate directories.
func (l *LocalProvider) Save(_ context.Context, objectName string, data []byte) error {
	path := filepath.Join(l.root, filepath.FromSlash(objectName))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write archive object: %w", err)
	}
	return nil
}

package blobstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// fsStore keeps one file per blob under a single directory. The directory
// stands in for the browser's IndexedDB: if it disappears mid-session (cache
// wipe, tmpfs cleanup) the store recreates it on the next write instead of
// failing permanently.
type fsStore struct {
	dir string
}

// NewFSStore opens a filesystem-backed store rooted at dir.
func NewFSStore(dir string) (Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: empty blob directory", ErrUnavailable)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrUnavailable, dir, err)
	}
	return &fsStore{dir: dir}, nil
}

func (s *fsStore) Put(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := newID()
	path := filepath.Join(s.dir, id)

	if err := os.WriteFile(path, data, 0o600); err != nil {
		// The directory may have been removed since open; reopen once.
		if mkErr := os.MkdirAll(s.dir, 0o755); mkErr != nil {
			return "", fmt.Errorf("%w: reopen %s: %v", ErrUnavailable, s.dir, mkErr)
		}
		if err = os.WriteFile(path, data, 0o600); err != nil {
			return "", fmt.Errorf("write blob %s: %w", id, err)
		}
	}
	return id, nil
}

func (s *fsStore) Get(ctx context.Context, id string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if !IsID(id) {
		return nil, false, nil
	}

	data, err := os.ReadFile(filepath.Join(s.dir, id))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read blob %s: %w", id, err)
	}
	return data, true, nil
}

func (s *fsStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !IsID(id) {
		return nil
	}

	err := os.Remove(filepath.Join(s.dir, id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob %s: %w", id, err)
	}
	return nil
}

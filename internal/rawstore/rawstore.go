// Package rawstore is the durable raw object store: one immutable blob per
// captured thought, plus the weakly-owned theme-graph cache blobs. The
// production backend is a content-addressed filesystem tree under a root
// directory (standing in for a server-side-encrypted object
// store — encryption at rest is delegated to the underlying volume, the
// same boundary the component clients draw around their
// storage backends).
package rawstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kart-io/thoughtweave/pkg/storage"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("rawstore: key not found")

// Store is the raw blob store. Keys are slash-separated paths such as
// thoughts/{user}/{YYYY-MM-DD}/{id}.json or graph/{user}/{month}-v2.json;
// overwriting an existing key is always safe — the capture path is
// write-once per id, and the graph cache is last-writer-wins by design.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// FSStore implements Store on the local filesystem.
type FSStore struct {
	root string
}

var _ Store = (*FSStore)(nil)
var _ storage.Client = (*FSStore)(nil)

// NewFSStore roots the store at dir, creating it if necessary.
func NewFSStore(dir string) (*FSStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("rawstore: root directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("rawstore: create root: %w", err)
	}
	return &FSStore{root: dir}, nil
}

func (s *FSStore) resolve(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" || strings.Contains(clean, "..") {
		return "", fmt.Errorf("rawstore: invalid key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}

func (s *FSStore) Put(_ context.Context, key string, data []byte) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("rawstore: mkdir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("rawstore: write: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rawstore: rename: %w", err)
	}
	return nil
}

func (s *FSStore) Get(_ context.Context, key string) ([]byte, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("rawstore: read: %w", err)
	}
	return data, nil
}

func (s *FSStore) Delete(_ context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("rawstore: delete: %w", err)
	}
	return nil
}

// Name implements storage.Client.
func (s *FSStore) Name() string { return "rawstore-fs" }

// Ping verifies the root directory is still reachable.
func (s *FSStore) Ping(context.Context) error {
	_, err := os.Stat(s.root)
	return err
}

// Close is a no-op: the filesystem backend holds no connection state.
func (s *FSStore) Close() error { return nil }

// Health implements storage.Client.
func (s *FSStore) Health() storage.HealthChecker {
	return func() error { return s.Ping(context.Background()) }
}

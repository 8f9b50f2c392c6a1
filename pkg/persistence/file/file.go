// Package file provides file-based persistence for the sandbox notebook service.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dukex/nbctl/pkg/persistence"
)

// Store implements persistence.Store with one JSON file per record and one
// directory per bucket.
type Store struct {
	root string
	mu   sync.RWMutex
}

// NewPersistence creates file persistence rooted at root, which may carry a
// file:// prefix.
func NewPersistence(root string) persistence.Persistence {
	return persistence.New(NewStore(root))
}

func NewStore(root string) *Store {
	return &Store{root: strings.Replace(root, "file://", "", 1)}
}

func (s *Store) bucketDir(bucket string) string {
	parts := strings.Split(bucket, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}

	return filepath.Join(append([]string{s.root}, parts...)...)
}

func (s *Store) path(bucket, key string) string {
	return filepath.Join(s.bucketDir(bucket), url.PathEscape(key)+".json")
}

func (s *Store) Get(_ context.Context, bucket, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(bucket, key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.ErrNotFound
		}

		return nil, fmt.Errorf("failed to read %s/%s: %w", bucket, key, err)
	}

	return data, nil
}

func (s *Store) Put(_ context.Context, bucket, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.write(bucket, key, value)
}

func (s *Store) PutIfAbsent(_ context.Context, bucket, key string, value []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path(bucket, key)); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}

	return true, s.write(bucket, key, value)
}

func (s *Store) write(bucket, key string, value []byte) error {
	if err := os.MkdirAll(s.bucketDir(bucket), 0750); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", bucket, err)
	}

	return os.WriteFile(s.path(bucket, key), value, 0600)
}

func (s *Store) Delete(_ context.Context, bucket, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(bucket, key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("failed to delete %s/%s: %w", bucket, key, err)
	}

	return true, nil
}

// Values returns every record of bucket ordered by file name.
func (s *Store) Values(_ context.Context, bucket string) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := s.bucketDir(bucket)

	jsonFiles, err := fs.Glob(os.DirFS(dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s files: %w", bucket, err)
	}

	sort.Strings(jsonFiles)

	items := make([][]byte, 0, len(jsonFiles))

	for _, name := range jsonFiles {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s/%s: %w", bucket, name, err)
		}

		items = append(items, data)
	}

	return items, nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (s *Store) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(s.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (s *Store) Close(_ context.Context) error {
	return nil
}

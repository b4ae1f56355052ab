package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

const defaultDir = ".screener"

// FileStore keeps every key in its own file under a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory when needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = defaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+".json")
}

func (s *FileStore) Save(_ context.Context, key string, data []byte) error {
	key, err := checkKey(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".save-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path(key))
}

func (s *FileStore) Load(_ context.Context, key string) ([]byte, error) {
	key, err := checkKey(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, nil
	}
	return data, err
}

func (s *FileStore) Remove(_ context.Context, key string) error {
	key, err := checkKey(key)
	if err != nil {
		return err
	}

	err = os.Remove(s.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *FileStore) Close() error { return nil }

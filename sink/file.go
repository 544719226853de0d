package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pevans/regsnap/record"
)

// tagSuffix names the sidecar file holding an artifact's tags.
const tagSuffix = ".tags.json"

// FileStore keeps artifacts as files under a root directory. Keys map to
// nested paths; tags live in a JSON sidecar next to each artifact. Safe for
// concurrent use across distinct keys, which is all the orchestrator needs
// since keys are source-qualified.
type FileStore struct {
	root string
}

// NewFileStore creates the root directory if needed and returns a store over
// it.
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, &StorageError{Op: "init", Key: root, Err: err}
	}
	return &FileStore{root: root}, nil
}

// Put writes body under key, creating parent directories as needed.
func (s *FileStore) Put(_ context.Context, key string, body []byte) error {
	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return &StorageError{Op: "put", Key: key, Err: err}
	}
	if err := os.WriteFile(path, body, 0o600); err != nil {
		return &StorageError{Op: "put", Key: key, Err: err}
	}
	return nil
}

// Tag writes the ordered tag set to the artifact's sidecar file.
func (s *FileStore) Tag(_ context.Context, key string, tags []record.Tag) error {
	data, err := json.MarshalIndent(tags, "", "  ")
	if err != nil {
		return &StorageError{Op: "tag", Key: key, Err: fmt.Errorf("failed to marshal tags: %w", err)}
	}
	path := s.path(key) + tagSuffix
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return &StorageError{Op: "tag", Key: key, Err: err}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return &StorageError{Op: "tag", Key: key, Err: err}
	}
	return nil
}

// Object reads back an artifact body. A key that was never written returns
// (nil, nil).
func (s *FileStore) Object(key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "get", Key: key, Err: err}
	}
	return data, nil
}

// Tags reads back an artifact's tag set. A key with no sidecar returns
// (nil, nil).
func (s *FileStore) Tags(key string) ([]record.Tag, error) {
	data, err := os.ReadFile(s.path(key) + tagSuffix)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "get-tags", Key: key, Err: err}
	}

	var tags []record.Tag
	if err := json.Unmarshal(data, &tags); err != nil {
		return nil, &StorageError{Op: "get-tags", Key: key, Err: fmt.Errorf("failed to unmarshal tags: %w", err)}
	}
	return tags, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

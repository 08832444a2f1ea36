package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FSStore stores blobs on the local filesystem under a root directory.
// Suitable for the sqlite/local deployment target.
type FSStore struct {
	root    string
	baseURL string
}

// NewFSStore creates a filesystem-backed blob store rooted at root. baseURL is
// prepended to object paths when building source references.
func NewFSStore(root, baseURL string) (*FSStore, error) {
	if root == "" {
		return nil, fmt.Errorf("blob root is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *FSStore) Put(ctx context.Context, p string, data []byte, contentType string) error {
	full := filepath.Join(s.root, filepath.FromSlash(p))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o644)
}

func (s *FSStore) Get(ctx context.Context, p string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.root, filepath.FromSlash(p)))
}

func (s *FSStore) URL(p string) string {
	return s.baseURL + "/" + p
}

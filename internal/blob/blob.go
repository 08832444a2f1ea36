// Package blob abstracts the append-only file store memories point into.
// Paths are generated per upload and never reused.
package blob

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Store persists raw memory bytes at generated paths.
type Store interface {
	// Put writes data at the given path with the given content type.
	Put(ctx context.Context, p string, data []byte, contentType string) error
	// Get reads the bytes stored at path.
	Get(ctx context.Context, p string) ([]byte, error)
	// URL returns a resolvable reference for the stored object, surfaced in
	// chat citations.
	URL(p string) string
}

// GeneratePath produces a fresh owner-scoped object path, keeping the original
// file extension so downstream viewers can resolve the content type.
func GeneratePath(ownerID, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	return fmt.Sprintf("%s/%s%s", ownerID, uuid.New().String(), ext)
}

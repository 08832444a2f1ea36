package blob

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// GCSStore stores blobs in a Cloud Storage bucket.
type GCSStore struct {
	bucketName string
	client     *storage.Client
	baseURL    string
}

// NewGCSStore creates a Cloud Storage backed blob store. baseURL should point
// at the bucket's public object root.
func NewGCSStore(ctx context.Context, bucketName, baseURL string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStore{bucketName: bucketName, client: client, baseURL: baseURL}, nil
}

func (s *GCSStore) Put(ctx context.Context, p string, data []byte, contentType string) error {
	obj := s.client.Bucket(s.bucketName).Object(p)
	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write object %s: %w", p, err)
	}
	return w.Close()
}

func (s *GCSStore) Get(ctx context.Context, p string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucketName).Object(p).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", p, err)
	}
	defer func() { _ = r.Close() }()
	return io.ReadAll(r)
}

func (s *GCSStore) URL(p string) string {
	if s.baseURL != "" {
		return s.baseURL + "/" + p
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucketName, p)
}

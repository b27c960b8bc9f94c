// Package exportfile moves bank export files in and out of Google Cloud
// Storage. The reconciliation engine itself only ever sees materialized
// text; this package is the collaborator that materializes it.
package exportfile

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// StorageService abstracts the export file transport for the pipeline and
// for tests.
type StorageService interface {
	Fetch(ctx context.Context, gcsURI string) ([]byte, error)
	Upload(ctx context.Context, bucketName, objectName, filePath string) error
}

// GCSStorageService is the Google Cloud Storage implementation of
// StorageService. It assumes Application Default Credentials are configured.
type GCSStorageService struct{}

func NewGCSStorageService() *GCSStorageService {
	return &GCSStorageService{}
}

// Fetch downloads the export bytes from the given GCS URI
// ("gs://bucket/path/to/export.csv").
func (s *GCSStorageService) Fetch(ctx context.Context, gcsURI string) ([]byte, error) {
	bucketName, objectPath, err := splitURI(gcsURI)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: creating storage client: %w", err)
	}
	defer client.Close()

	rc, err := client.Bucket(bucketName).Object(objectPath).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading object %s/%s: %w", bucketName, objectPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading bytes: %w", err)
	}

	return data, nil
}

// Upload uploads a local export file to a GCS bucket under the given object
// name.
func (s *GCSStorageService) Upload(ctx context.Context, bucketName, objectName, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("Upload: open file %q: %w", filePath, err)
	}
	defer f.Close()

	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("Upload: create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return fmt.Errorf("Upload: copy file to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("Upload: finalize upload: %w", err)
	}

	return nil
}

// Filename extracts the filename from a GCS URI.
// e.g., "gs://bucket/folder/export.csv" → "export.csv"
func Filename(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}

func splitURI(gcsURI string) (bucket, object string, err error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", gcsURI)
	}
	trimmed := strings.TrimPrefix(gcsURI, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", gcsURI)
	}
	return parts[0], parts[1], nil
}

var _ StorageService = (*GCSStorageService)(nil)

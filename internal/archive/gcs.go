package archive

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
)

// GCSProvider implements Provider on top of Google Cloud Storage.
type GCSProvider struct {
	client     *storage.Client
	bucketName string
	logger     *zap.Logger
}

// NewGCSProvider initializes a GCS client and verifies bucket access, so a
// misconfigured bucket fails at startup rather than mid-run.
// Authentication uses Application Default Credentials.
func NewGCSProvider(ctx context.Context, bucketName string, logger *zap.Logger) (*GCSProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}

	bkt := client.Bucket(bucketName)
	if _, err := bkt.Attrs(ctx); err != nil {
		if cerr := client.Close(); cerr != nil {
			logger.Warn("close GCS client after attrs failure", zap.Error(cerr))
		}
		return nil, fmt.Errorf("get GCS bucket %q attributes: %w", bucketName, err)
	}

	return &GCSProvider{
		client:     client,
		bucketName: bucketName,
		logger:     logger,
	}, nil
}

// Save uploads the data to the configured bucket.
func (g *GCSProvider) Save(ctx context.Context, objectName string, data []byte) error {
	wc := g.client.Bucket(g.bucketName).Object(objectName).NewWriter(ctx)
	if _, err := wc.Write(data); err != nil {
		if cerr := wc.Close(); cerr != nil {
			g.logger.Warn("close GCS writer after write failure", zap.Error(cerr))
		}
		return fmt.Errorf("write GCS object %s: %w", objectName, err)
	}
	// Close finalizes the upload and flushes buffered data.
	if err := wc.Close(); err != nil {
		return fmt.Errorf("close GCS writer for object %s: %w", objectName, err)
	}
	return nil
}

// Close releases the underlying client.
func (g *GCSProvider) Close() error {
	return g.client.Close()
}

// Package gcs moves raw batches and run reports in and out of Google Cloud
// Storage.
package gcs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/storage"
)

// uploadTimeout bounds a single object upload.
const uploadTimeout = 2 * time.Minute

// StorageService provides the storage operations used by sources, sinks and
// the CLI. It enables mocking in tests.
type StorageService interface {
	// FetchFromGCS downloads object bytes from a gs:// URI.
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)

	// UploadFile uploads a local file to bucket/object.
	UploadFile(ctx context.Context, bucket, object, filePath string) error

	// UploadBytes writes data to bucket/object and returns its gs:// URI.
	UploadBytes(ctx context.Context, bucket, object string, data []byte, contentType string) (string, error)
}

// Client is the Cloud Storage implementation of StorageService. It holds a
// shared storage client.
type Client struct {
	client *storage.Client
}

// NewClient creates a Client using Application Default Credentials.
func NewClient(ctx context.Context) (*Client, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewClient: create storage client: %w", err)
	}
	return &Client{client: client}, nil
}

// Close closes the storage client.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// FetchFromGCS downloads the object bytes for the given gs:// URI.
func (c *Client) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	bucket, object, err := ParseURI(gcsURI)
	if err != nil {
		return nil, fmt.Errorf("FetchFromGCS: %w", err)
	}

	rc, err := c.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("FetchFromGCS: reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("FetchFromGCS: reading bytes: %w", err)
	}
	return data, nil
}

// UploadFile uploads a local file to bucket/object.
func (c *Client) UploadFile(ctx context.Context, bucket, object, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("UploadFile: open file %q: %w", filePath, err)
	}
	defer f.Close()

	if err := c.write(ctx, bucket, object, f, ""); err != nil {
		return fmt.Errorf("UploadFile: %w", err)
	}
	return nil
}

// UploadBytes writes data to bucket/object and returns its gs:// URI.
func (c *Client) UploadBytes(ctx context.Context, bucket, object string, data []byte, contentType string) (string, error) {
	if err := c.write(ctx, bucket, object, bytes.NewReader(data), contentType); err != nil {
		return "", fmt.Errorf("UploadBytes: %w", err)
	}
	return URI(bucket, object), nil
}

func (c *Client) write(ctx context.Context, bucket, object string, r io.Reader, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := c.client.Bucket(bucket).Object(object).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}

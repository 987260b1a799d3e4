package saver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/frontier-crawler/frontier/internal/crawl"
)

// GCSConfig captures the parameters for the Cloud Storage saver.
type GCSConfig struct {
	// Bucket receives one object per saved item.
	Bucket string `mapstructure:"bucket"`
	// Prefix is prepended to every object path.
	Prefix string `mapstructure:"prefix"`
	// Crawl scopes object paths: <prefix>/<crawl>/<item>.
	Crawl string
}

// GCS writes each response as an object in a Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
	crawl  string
}

// NewGCS wraps an existing storage client.
func NewGCS(client *storage.Client, cfg GCSConfig) (*GCS, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &GCS{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		crawl:  cfg.Crawl,
	}, nil
}

// Save uploads the response body to the item's object path.
func (g *GCS) Save(ctx context.Context, item crawl.Item, resp crawl.Response) error {
	path := fmt.Sprintf("%s/%s", g.crawl, item)
	if g.prefix != "" {
		path = fmt.Sprintf("%s/%s", g.prefix, path)
	}

	writer := g.client.Bucket(g.bucket).Object(path).NewWriter(ctx)
	if _, err := io.Copy(writer, bytes.NewReader(resp.Body)); err != nil {
		_ = writer.Close()
		return fmt.Errorf("upload %s: %w", item, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finish upload %s: %w", item, err)
	}
	return nil
}

// Close closes the storage client.
func (g *GCS) Close() error {
	return g.client.Close()
}

package saver

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/frontier-crawler/frontier/internal/crawl"
)

// TarConfig captures the parameters for the archive saver.
type TarConfig struct {
	// Path is the archive file to create. A .gz suffix enables gzip.
	Path string `mapstructure:"path"`
	// PathFmt maps an item to its entry name via one %s verb.
	// Defaults to the item itself.
	PathFmt string `mapstructure:"path_fmt"`
}

// Tar appends each saved response as an entry in a tar archive. Archive
// writes are serialized by a mutex; concurrent Save calls are safe.
type Tar struct {
	mu      sync.Mutex
	file    *os.File
	gz      *gzip.Writer
	tw      *tar.Writer
	pathFmt string
}

// NewTar creates the archive file, truncating any existing one.
func NewTar(cfg TarConfig) (*Tar, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("archive path is required")
	}
	file, err := os.Create(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}

	t := &Tar{file: file, pathFmt: cfg.PathFmt}
	if t.pathFmt == "" {
		t.pathFmt = "%s"
	}

	var w io.Writer = file
	if strings.HasSuffix(cfg.Path, ".gz") {
		t.gz = gzip.NewWriter(file)
		w = t.gz
	}
	t.tw = tar.NewWriter(w)
	return t, nil
}

// Save appends the response body as an archive entry.
func (t *Tar) Save(_ context.Context, item crawl.Item, resp crawl.Response) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.tw == nil {
		return fmt.Errorf("archive already closed")
	}
	hdr := &tar.Header{
		Name: fmt.Sprintf(t.pathFmt, item),
		Mode: 0o600,
		Size: int64(len(resp.Body)),
	}
	if err := t.tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write archive header for %s: %w", item, err)
	}
	if _, err := t.tw.Write(resp.Body); err != nil {
		return fmt.Errorf("write archive entry for %s: %w", item, err)
	}
	return nil
}

// Close finalizes the archive.
func (t *Tar) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.tw == nil {
		return nil
	}
	if err := t.tw.Close(); err != nil {
		return fmt.Errorf("close tar writer: %w", err)
	}
	t.tw = nil
	if t.gz != nil {
		if err := t.gz.Close(); err != nil {
			return fmt.Errorf("close gzip writer: %w", err)
		}
	}
	if err := t.file.Close(); err != nil {
		return fmt.Errorf("close archive file: %w", err)
	}
	return nil
}

package saver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/frontier-crawler/frontier/internal/crawl"
)

// FileConfig captures the parameters for the filesystem saver.
type FileConfig struct {
	// BaseDir is the root directory where responses are stored.
	BaseDir string `mapstructure:"base_dir"`
	// PathFmt maps an item to a relative path via one %s verb.
	// Defaults to the item itself.
	PathFmt string `mapstructure:"path_fmt"`
}

// File writes one file per item under a base directory.
type File struct {
	baseDir string
	pathFmt string
}

// NewFile validates the base directory, creating it if needed.
func NewFile(cfg FileConfig) (*File, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	info, err := os.Stat(cfg.BaseDir)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create base directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("stat base directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	pathFmt := cfg.PathFmt
	if pathFmt == "" {
		pathFmt = "%s"
	}
	return &File{baseDir: cfg.BaseDir, pathFmt: pathFmt}, nil
}

// Save writes the response body to the item's path, creating parent
// directories as needed.
func (f *File) Save(_ context.Context, item crawl.Item, resp crawl.Response) error {
	fullPath := filepath.Join(f.baseDir, fmt.Sprintf(f.pathFmt, item))

	// Items are untrusted input; refuse paths escaping the base directory.
	cleanBase := filepath.Clean(f.baseDir)
	if !strings.HasPrefix(filepath.Clean(fullPath), cleanBase+string(filepath.Separator)) {
		return fmt.Errorf("item %q resolves outside base directory", item)
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return fmt.Errorf("create parent directories: %w", err)
	}
	if err := os.WriteFile(fullPath, resp.Body, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", fullPath, err)
	}
	return nil
}

// Close is a no-op.
func (f *File) Close() error { return nil }

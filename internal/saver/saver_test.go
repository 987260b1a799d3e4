package saver

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/frontier-crawler/frontier/internal/crawl"
)

func TestMemorySaverRecordsBodies(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Save(ctx, "a", crawl.Response{Body: []byte("one")}))
	require.NoError(t, m.Save(ctx, "b", crawl.Response{Body: []byte("two")}))

	saved := m.Saved()
	require.Equal(t, []byte("one"), saved["a"])
	require.Equal(t, []byte("two"), saved["b"])
	require.NoError(t, m.Close())
}

func TestFileSaverWritesNestedPaths(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	f, err := NewFile(FileConfig{BaseDir: dir, PathFmt: "pages/%s.html"})
	require.NoError(t, err)

	require.NoError(t, f.Save(context.Background(), "item1", crawl.Response{Body: []byte("<html/>")}))

	data, err := os.ReadFile(filepath.Join(dir, "pages", "item1.html"))
	require.NoError(t, err)
	require.Equal(t, []byte("<html/>"), data)
	require.NoError(t, f.Close())
}

func TestFileSaverRejectsPathTraversal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	f, err := NewFile(FileConfig{BaseDir: dir})
	require.NoError(t, err)

	err = f.Save(context.Background(), "../escape", crawl.Response{Body: []byte("x")})
	require.Error(t, err)
}

func TestFileSaverRequiresBaseDir(t *testing.T) {
	t.Parallel()

	_, err := NewFile(FileConfig{})
	require.Error(t, err)
}

func TestTarSaverRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.tar")
	ts, err := NewTar(TarConfig{Path: path, PathFmt: "%s.xml"})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, ts.Save(ctx, "a", crawl.Response{Body: []byte("alpha")}))
	require.NoError(t, ts.Save(ctx, "b", crawl.Response{Body: []byte("beta")}))
	require.NoError(t, ts.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	entries := map[string]string{}
	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(tr)
		require.NoError(t, err)
		entries[hdr.Name] = string(body)
	}
	require.Equal(t, map[string]string{"a.xml": "alpha", "b.xml": "beta"}, entries)
}

func TestTarSaverGzip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.tar.gz")
	ts, err := NewTar(TarConfig{Path: path})
	require.NoError(t, err)

	require.NoError(t, ts.Save(context.Background(), "a", crawl.Response{Body: []byte("zipped")}))
	require.NoError(t, ts.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	hdr, err := tr.Next()
	require.NoError(t, err)
	require.Equal(t, "a", hdr.Name)
	body, err := io.ReadAll(tr)
	require.NoError(t, err)
	require.Equal(t, []byte("zipped"), body)
}

func TestTarSaverRejectsSaveAfterClose(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.tar")
	ts, err := NewTar(TarConfig{Path: path})
	require.NoError(t, err)
	require.NoError(t, ts.Close())

	require.Error(t, ts.Save(context.Background(), "a", crawl.Response{}))
	require.NoError(t, ts.Close(), "second close is a no-op")
}

func TestNullSaver(t *testing.T) {
	t.Parallel()

	require.NoError(t, Null{}.Save(context.Background(), "a", crawl.Response{}))
	require.NoError(t, Null{}.Close())
}

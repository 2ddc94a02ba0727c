package modcache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type failingStore struct{ MemoryStore }

func (f *failingStore) Load(context.Context, Key) (Record, bool, error) {
	return Record{}, false, errors.New("disk on fire")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func touch(t *testing.T, path string, offset time.Duration) {
	t.Helper()
	ts := time.Now().Add(offset)
	require.NoError(t, os.Chtimes(path, ts, ts))
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache", "modcache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })
	return map[string]Store{"memory": NewMemoryStore(), "sqlite": sq}
}

func TestCache_LocalSection(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			src := t.TempDir()
			out := t.TempDir()
			writeFile(t, filepath.Join(src, "index.md"), "# dogs")
			writeFile(t, filepath.Join(out, "index.html"), "<h1>dogs</h1>")

			c := New(store, nil)
			s := Section{
				Key:       Key{OutputRoot: "/out", Section: "dogs"},
				SourceDir: src,
				Local:     true,
				OutputDir: out,
			}

			require.True(t, c.IsStale(ctx, s), "no record yet")
			require.NoError(t, c.Record(ctx, s))
			require.False(t, c.IsStale(ctx, s))

			touch(t, filepath.Join(src, "index.md"), time.Hour)
			require.True(t, c.IsStale(ctx, s), "source mtime changed")
			require.NoError(t, c.Record(ctx, s))
			require.False(t, c.IsStale(ctx, s))

			touch(t, filepath.Join(out, "index.html"), 2*time.Hour)
			require.True(t, c.IsStale(ctx, s), "output mtime changed")
			require.NoError(t, c.Record(ctx, s))

			require.NoError(t, os.Remove(filepath.Join(out, "index.html")))
			require.True(t, c.IsStale(ctx, s), "output removed")
		})
	}
}

func TestCache_RemoteAndVersionScoping(t *testing.T) {
	ctx := context.Background()
	out := t.TempDir()
	writeFile(t, filepath.Join(out, "index.html"), "v1")

	c := New(NewMemoryStore(), nil)
	current := Section{Key: Key{OutputRoot: "/out", Section: "cats"}, Commit: "abc", OutputDir: out}
	v1 := current
	v1.Version = "v1"

	require.NoError(t, c.Record(ctx, current))
	require.False(t, c.IsStale(ctx, current))
	require.True(t, c.IsStale(ctx, v1), "versions do not share records")

	moved := current
	moved.Commit = "def"
	require.True(t, c.IsStale(ctx, moved))

	otherRoot := current
	otherRoot.OutputRoot = "/elsewhere"
	require.True(t, c.IsStale(ctx, otherRoot))
}

func TestCache_DefaultsToStale(t *testing.T) {
	ctx := context.Background()
	s := Section{Key: Key{Section: "x"}, OutputDir: t.TempDir(), Local: true, SourceDir: t.TempDir()}

	var nilCache *Cache
	require.True(t, nilCache.IsStale(ctx, s))
	require.True(t, New(nil, nil).IsStale(ctx, s))
	require.True(t, New(&failingStore{}, nil).IsStale(ctx, s))

	// An empty output is never considered fresh.
	c := New(NewMemoryStore(), nil)
	require.NoError(t, c.Record(ctx, s))
	require.True(t, c.IsStale(ctx, s))
}

func TestSQLiteStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	key := Key{OutputRoot: "/out", Version: "v2", Section: "dogs"}
	_, found, err := store.Load(ctx, key)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, store.Save(ctx, key, Record{Source: "commit:a", Files: map[string]string{"a.html": "1", "b.html": "2"}}))
	require.NoError(t, store.Save(ctx, key, Record{Source: "commit:b", Files: map[string]string{"a.html": "3"}}))

	rec, found, err := store.Load(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "commit:b", rec.Source)
	require.Equal(t, map[string]string{"a.html": "3"}, rec.Files)
}

func TestFileFingerprints_MissingDir(t *testing.T) {
	files, err := FileFingerprints(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	require.Empty(t, files)
}

func TestFileFingerprints_SkipsGitDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git", "objects"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "HEAD"), []byte("ref: refs/heads/main"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.md"), []byte("# Home"), 0o600))

	files, err := FileFingerprints(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Contains(t, files, "index.md")
}

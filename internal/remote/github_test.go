package remote

import (
	"archive/tar"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/docbinder/internal/foundation/errors"
)

func buildTarball(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "org-dogs-abc123/", Typeflag: tar.TypeDir, Mode: 0o755}))
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     "org-dogs-abc123/" + name,
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(body)),
		}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestGitHubClient(t *testing.T) {
	tarball := buildTarball(t, map[string]string{
		"index.html.md":  "# Dogs",
		"guides/walk.md": "walk",
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/org/dogs/commits/HEAD", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/vnd.github.sha", r.Header.Get("Accept"))
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte("abc123\n"))
	})
	mux.HandleFunc("/repos/org/dogs/tarball/abc123", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(tarball)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewGitHubClient(srv.URL, "tok", nil)

	sha, err := c.ResolveRef(context.Background(), "org/dogs", "")
	require.NoError(t, err)
	require.Equal(t, "abc123", sha)

	dest := t.TempDir()
	require.NoError(t, c.FetchSnapshot(context.Background(), "org/dogs", sha, dest))
	data, err := os.ReadFile(filepath.Join(dest, "guides", "walk.md"))
	require.NoError(t, err)
	require.Equal(t, "walk", string(data))
	require.FileExists(t, filepath.Join(dest, "index.html.md"))

	_, err = c.ResolveRef(context.Background(), "org/missing", "v1")
	require.True(t, ferrors.IsNotFound(err))
}

func TestGitHubClient_StatusMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/org/private/commits/HEAD":
			w.WriteHeader(http.StatusUnauthorized)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	c := NewGitHubClient(srv.URL, "", nil)
	_, err := c.ResolveRef(context.Background(), "org/private", "")
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryAuth))

	err = c.FetchSnapshot(context.Background(), "org/flaky", "abc", t.TempDir())
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryNetwork))
}

func TestStripTopDir(t *testing.T) {
	require.Equal(t, "", stripTopDir("repo-sha/"))
	require.Equal(t, "a/b.md", stripTopDir("repo-sha/a/b.md"))
	require.Equal(t, "x.md", stripTopDir("./repo-sha/x.md"))
	require.Equal(t, "", stripTopDir("pax_global_header"))
}

func TestGitHubClient_UnreachableIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewGitHubClient(url, "", nil)
	_, err := c.ResolveRef(context.Background(), "org/dogs", "")
	require.True(t, ferrors.IsNotFound(err), "got %v", err)

	err = c.FetchSnapshot(context.Background(), "org/dogs", "abc", t.TempDir())
	require.True(t, ferrors.IsNotFound(err), "got %v", err)
}

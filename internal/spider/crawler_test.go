package spider

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/docbinder/internal/foundation/errors"
)

func site(t *testing.T, pages map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, body := range pages {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	}
	return root
}

func links(targets ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, t := range targets {
		b.WriteString(`<a href="` + t + `">x</a>`)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func TestCrawl_FollowsChainWithoutBacklinks(t *testing.T) {
	root := site(t, map[string]string{
		"index.html": links("a.html"),
		"a.html":     links("b.html"),
		"b.html":     links(),
	})

	res, err := New("docs.dogs.com", 4, nil).Crawl(context.Background(), root)
	require.NoError(t, err)
	require.Equal(t, []string{"a.html", "b.html", "index.html"}, res.Reachable)
	require.False(t, res.HasBrokenLinks())
}

func TestCrawl_ReportsBrokenLinkOnce(t *testing.T) {
	root := site(t, map[string]string{
		"index.html": links("a.html", "missing.html"),
		"a.html":     links("missing.html", "/missing.html#top", "index.html"),
	})

	res, err := New("docs.dogs.com", 4, nil).Crawl(context.Background(), root)
	require.NoError(t, err)
	require.True(t, res.HasBrokenLinks())
	require.Equal(t, []string{"missing.html"}, res.BrokenTargets())
	require.Equal(t, []string{"a.html", "index.html"}, res.Reachable)
}

func TestCrawl_LinkClassification(t *testing.T) {
	root := site(t, map[string]string{
		"index.html": `<html><head>
			<link rel="stylesheet" href="/css/site.css">
			<script src="js/missing.js"></script>
		</head><body>
			<a href="https://example.org/elsewhere">external</a>
			<a href="http://docs.dogs.com/dogs-repo/">absolute internal</a>
			<a href="mailto:help@dogs.com">mail</a>
			<a href="#section">anchor</a>
			<a href="guides">extensionless</a>
			<img src="images/logo.png">
		</body></html>`,
		"css/site.css":              "body{}",
		"images/logo.png":           "png",
		"dogs-repo/index.html":      links("../index.html", "walk/"),
		"dogs-repo/walk/index.html": links("../../guides.html"),
		"guides.html":               links("dogs-repo/"),
	})

	res, err := New("docs.dogs.com", 2, nil).Crawl(context.Background(), root)
	require.NoError(t, err)
	require.Equal(t, []string{
		"dogs-repo/index.html",
		"dogs-repo/walk/index.html",
		"guides.html",
		"index.html",
	}, res.Reachable)
	require.Equal(t, []string{"js/missing.js"}, res.BrokenTargets())
	require.Equal(t, "index.html", res.Broken[0].Source)
}

func TestCrawl_MissingRoot(t *testing.T) {
	_, err := New("h", 1, nil).Crawl(context.Background(), t.TempDir())
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryBuild))
}

func TestExtractLinks(t *testing.T) {
	got, err := ExtractLinks(strings.NewReader(`<a href=" a.html ">A</a><img src="i.png"><a>none</a><video src="v.mp4"></video>`))
	require.NoError(t, err)
	require.Equal(t, []Link{
		{URL: "a.html", Tag: "a", Attribute: "href"},
		{URL: "i.png", Tag: "img", Attribute: "src"},
		{URL: "v.mp4", Tag: "video", Attribute: "src"},
	}, got)
}

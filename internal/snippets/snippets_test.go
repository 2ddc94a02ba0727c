package snippets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const page = "# Examples\n\n" +
	"```code-snippet org/code-example-repo ruby_part\n```\n\n" +
	"Between.\n\n" +
	"```code-snippet org/code-example-repo typeless_part\n```\n\n" +
	"```go\nfmt.Println(\"untouched\")\n```\n"

func codeRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"fib.rb":         "# code_snippet ruby_part start ruby\nfib = Enumerator.new do |yielder|\nend\n# code_snippet ruby_part end\n",
		"config/app.yml": "# code_snippet yaml_part start yaml\nthis_is_yaml: true\n# code_snippet yaml_part end\n",
		"misc.txt":       "code_snippet typeless_part start\nthis = untyped_code\ncode_snippet typeless_part end\n",
	}
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
	return dir
}

func TestFindDirectives(t *testing.T) {
	ds := FindDirectives([]byte(page))
	require.Len(t, ds, 2)
	require.Equal(t, "org/code-example-repo", ds[0].Repository)
	require.Equal(t, "ruby_part", ds[0].Marker)
	require.Equal(t, "typeless_part", ds[1].Marker)
	require.Equal(t, "```code-snippet org/code-example-repo ruby_part\n```\n", page[ds[0].Start:ds[0].End])
}

func TestExtract(t *testing.T) {
	repo := codeRepo(t)

	s, found, err := Extract(repo, "ruby_part")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "ruby", s.Language)
	require.Equal(t, "fib = Enumerator.new do |yielder|\nend\n", s.Code)

	s, found, err = Extract(repo, "typeless_part")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, DefaultLanguage, s.Language)

	_, found, err = Extract(repo, "nope")
	require.NoError(t, err)
	require.False(t, found)
}

func TestExpandTree(t *testing.T) {
	site := t.TempDir()
	path := filepath.Join(site, "index.html.md")
	require.NoError(t, os.WriteFile(path, []byte(page), 0o600))

	repos, err := Repositories(site)
	require.NoError(t, err)
	require.Equal(t, []string{"org/code-example-repo"}, repos)

	e := NewExpander(map[string]string{"org/code-example-repo": codeRepo(t)}, nil)
	n, err := e.ExpandTree(context.Background(), site)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	got := string(out)
	require.Contains(t, got, "```ruby\nfib = Enumerator.new do |yielder|\nend\n```\n")
	require.Contains(t, got, "```plaintext\nthis = untyped_code\n```\n")
	require.Contains(t, got, "Between.")
	require.Contains(t, got, "```go\nfmt.Println(\"untouched\")\n```\n")
	require.NotContains(t, got, "this_is_yaml")
	require.NotContains(t, got, "code-snippet")
}

func TestExpand_SkippedRepositoryLeavesEmptyBlock(t *testing.T) {
	e := NewExpander(map[string]string{"org/code-example-repo": ""}, nil)
	out, n, err := e.Expand([]byte(page))
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Contains(t, string(out), "```plaintext\n```\n")
}

func TestExpand_UnresolvedRepositoryFails(t *testing.T) {
	_, _, err := NewExpander(map[string]string{}, nil).Expand([]byte(page))
	require.Error(t, err)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/docbinder/internal/foundation/errors"
)

func TestParse_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
public_host: docs.example.com
sections:
  - repository:
      name: org/dogs-repo
  - repository:
      name: org/cats-repo
      ref: v1.2.0
    directory: pets/cats
`))
	require.NoError(t, err)
	require.Equal(t, "http", cfg.PublicScheme)
	require.Equal(t, DefaultMasterDir, cfg.MasterDir)
	require.Equal(t, DefaultOutputDir, cfg.OutputDir)
	require.Equal(t, DefaultFinalAppDir, cfg.FinalAppDir)
	require.Equal(t, ProviderGitHub, cfg.Remote.Provider)
	require.Equal(t, DefaultConcurrency, cfg.Remote.Concurrency)
	require.Equal(t, DefaultRendererCommand, cfg.Renderer.Command)
	require.Equal(t, DefaultDebounce, cfg.Watch.Debounce)

	require.Len(t, cfg.Sections, 2)
	require.Equal(t, "dogs-repo", cfg.Sections[0].MountDir())
	require.Equal(t, "pets/cats", cfg.Sections[1].MountDir())
	require.Equal(t, "v1.2.0", cfg.Sections[1].Repository.Ref)
}

func TestParse_ExpandsEnvironment(t *testing.T) {
	t.Setenv("DOCBINDER_TEST_HOST", "docs.dogs.com")
	t.Setenv("DOCBINDER_TEST_TOKEN", "s3cret")

	cfg, err := Parse([]byte(`
public_host: ${DOCBINDER_TEST_HOST}
remote:
  token: ${DOCBINDER_TEST_TOKEN}
watch:
  debounce: 2s
`))
	require.NoError(t, err)
	require.Equal(t, "docs.dogs.com", cfg.PublicHost)
	require.Equal(t, "s3cret", cfg.Remote.Token)
	require.Equal(t, 2*time.Second, cfg.Watch.Debounce)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing host", `sections: []`},
		{"bad scheme", "public_host: h\npublic_scheme: ftp"},
		{"bad repo name", "public_host: h\nsections:\n  - repository: {name: noslash}"},
		{"duplicate mount", "public_host: h\nsections:\n  - repository: {name: a/x}\n  - repository: {name: b/x}"},
		{"versions without book", "public_host: h\nversions: [v1]"},
		{"pdf without page", "public_host: h\npdf: {filename: out.pdf}"},
		{"unknown provider", "public_host: h\nremote: {provider: svn}"},
		{"parent dir version", "public_host: h\nbook_repo: org/book\nversions: [\"..\"]"},
		{"current dir version", "public_host: h\nbook_repo: org/book\nversions: [\".\"]"},
		{"hidden version", "public_host: h\nbook_repo: org/book\nversions: [.v1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			require.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestGenerateBook(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dog-book")
	require.NoError(t, GenerateBook(dir))

	index, err := os.ReadFile(filepath.Join(dir, "master", "source", "index.md"))
	require.NoError(t, err)
	require.Contains(t, string(index), "# Dog Book")
	require.DirExists(t, filepath.Join(dir, "master", "build"))

	cfg, err := Load(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	require.Equal(t, "dog-book.example.com", cfg.PublicHost)

	err = GenerateBook(dir)
	require.Error(t, err)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryAlreadyExists))
}

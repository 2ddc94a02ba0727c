package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/docbinder/internal/foundation/errors"
)

// GenerateBook writes a minimal book skeleton into dir. It refuses to touch an
// existing path.
func GenerateBook(dir string) error {
	if _, err := os.Stat(dir); err == nil {
		return ferrors.AlreadyExistsError("book directory already exists").
			WithContext("path", dir).
			Build()
	}

	name := filepath.Base(filepath.Clean(dir))
	title := cases.Title(language.English).String(strings.NewReplacer("-", " ", "_", " ").Replace(name))

	for _, d := range []string{
		filepath.Join(dir, "master", "source"),
		filepath.Join(dir, "master", DefaultBuildDir),
	} {
		if err := os.MkdirAll(d, 0o750); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to create book directory").
				WithContext("path", d).
				Build()
		}
	}

	cfg := Config{
		BookRepo:   "my-org/" + name,
		PublicHost: name + ".example.com",
		Sections:   []Section{},
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "failed to marshal skeleton config").Build()
	}

	files := map[string][]byte{
		filepath.Join(dir, "config.yaml"):                         data,
		filepath.Join(dir, "master", "source", "index.md"):        []byte(fmt.Sprintf("---\ntitle: %q\n---\n\n# %s\n\nWelcome to %s.\n", title, title, title)),
		filepath.Join(dir, "master", DefaultBuildDir, ".gitkeep"): nil,
	}
	for p, content := range files {
		if err := os.WriteFile(p, content, 0o600); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to write skeleton file").
				WithContext("path", p).
				Build()
		}
	}
	return nil
}

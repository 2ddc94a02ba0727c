package snippets

import (
	"bytes"
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ferrors "git.home.luguber.info/inful/docbinder/internal/foundation/errors"
	"git.home.luguber.info/inful/docbinder/internal/logfields"
)

var markdownExts = map[string]bool{".md": true, ".markdown": true}

func isMarkdown(path string) bool {
	return markdownExts[strings.ToLower(filepath.Ext(path))]
}

// Repositories lists the distinct repositories referenced by code-snippet
// blocks under siteRoot, sorted.
func Repositories(siteRoot string) ([]string, error) {
	seen := map[string]struct{}{}
	err := walkMarkdown(siteRoot, func(_ string, data []byte) error {
		for _, d := range FindDirectives(data) {
			seen[d.Repository] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(seen))
	for r := range seen {
		out = append(out, r)
	}
	sort.Strings(out)
	return out, nil
}

// Expander rewrites code-snippet blocks in place.
type Expander struct {
	// repos maps repository identity to its materialized path. An empty path
	// marks a repository that was skipped.
	repos  map[string]string
	logger *slog.Logger
}

// NewExpander creates an Expander over already-resolved repositories.
func NewExpander(repos map[string]string, logger *slog.Logger) *Expander {
	if logger == nil {
		logger = slog.Default()
	}
	return &Expander{repos: repos, logger: logger}
}

// ExpandTree rewrites every markdown file under siteRoot and returns the
// number of blocks replaced.
func (e *Expander) ExpandTree(ctx context.Context, siteRoot string) (int, error) {
	total := 0
	err := walkMarkdown(siteRoot, func(path string, data []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		out, n, err := e.Expand(data)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		total += n
		return os.WriteFile(path, out, 0o600)
	})
	if err != nil {
		return total, ferrors.WrapError(err, ferrors.CategoryBuild, "failed to expand code snippets").
			WithContext("path", siteRoot).
			Build()
	}
	return total, nil
}

// Expand rewrites the code-snippet blocks in src.
func (e *Expander) Expand(src []byte) ([]byte, int, error) {
	directives := FindDirectives(src)
	if len(directives) == 0 {
		return src, 0, nil
	}

	var buf bytes.Buffer
	last := 0
	for _, d := range directives {
		buf.Write(src[last:d.Start])
		snippet, err := e.lookup(d)
		if err != nil {
			return nil, 0, err
		}
		buf.WriteString("```" + snippet.Language + "\n")
		buf.WriteString(snippet.Code)
		buf.WriteString("```\n")
		last = d.End
	}
	buf.Write(src[last:])
	return buf.Bytes(), len(directives), nil
}

func (e *Expander) lookup(d Directive) (Snippet, error) {
	empty := Snippet{Language: DefaultLanguage}
	repoDir, ok := e.repos[d.Repository]
	if !ok {
		return empty, ferrors.InternalError("code-snippet repository was not resolved").
			WithContext("repository", d.Repository).
			Build()
	}
	if repoDir == "" {
		return empty, nil
	}
	s, found, err := Extract(repoDir, d.Marker)
	if err != nil {
		return empty, err
	}
	if !found {
		e.logger.Warn("Code snippet marker not found",
			logfields.Repository(d.Repository), slog.String("marker", d.Marker))
		return empty, nil
	}
	return s, nil
}

func walkMarkdown(root string, fn func(path string, data []byte) error) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isMarkdown(p) {
			return nil
		}
		data, err := os.ReadFile(p) //nolint:gosec // walking the site source tree
		if err != nil {
			return err
		}
		return fn(p, data)
	})
}

package snippets

import (
	"bufio"
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultLanguage is used when a snippet's start marker names none.
const DefaultLanguage = "plaintext"

// Snippet is code cut out of a code-example repository.
type Snippet struct {
	Code     string
	Language string
	File     string
}

// Extract searches repoDir for marker and returns the enclosed code. found is
// false when no file carries the marker.
func Extract(repoDir, marker string) (Snippet, bool, error) {
	startRe := regexp.MustCompile(`code_snippet\s+` + regexp.QuoteMeta(marker) + `\s+start(?:\s+([\w+#.-]+))?`)
	endRe := regexp.MustCompile(`code_snippet\s+` + regexp.QuoteMeta(marker) + `\s+end\b`)

	var (
		result Snippet
		found  bool
	)
	err := filepath.WalkDir(repoDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		data, err := os.ReadFile(p) //nolint:gosec // walking a materialized repository
		if err != nil {
			return err
		}
		if !startRe.Match(data) {
			return nil
		}
		if s, ok := cut(data, startRe, endRe); ok {
			s.File = p
			result, found = s, true
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return Snippet{}, false, err
	}
	return result, found, nil
}

func cut(data []byte, startRe, endRe *regexp.Regexp) (Snippet, bool) {
	var (
		s      Snippet
		inside bool
		lines  []string
	)
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if !inside {
			if m := startRe.FindStringSubmatch(line); m != nil {
				inside = true
				s.Language = m[1]
			}
			continue
		}
		if endRe.MatchString(line) {
			if s.Language == "" {
				s.Language = DefaultLanguage
			}
			s.Code = strings.Join(lines, "\n")
			if len(lines) > 0 {
				s.Code += "\n"
			}
			return s, true
		}
		lines = append(lines, line)
	}
	return Snippet{}, false
}

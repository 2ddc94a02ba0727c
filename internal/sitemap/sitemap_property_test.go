//go:build property
// +build property

package sitemap

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestSitemapProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	pathGen := gen.SliceOf(gen.RegexMatch(`^[a-z0-9-]{1,8}(/[a-z0-9-]{1,8}){0,2}\.html$`))

	// Property: output does not depend on the order of the reachable set
	properties.Property("order independent", prop.ForAll(
		func(paths []string, seed int64) bool {
			shuffled := append([]string(nil), paths...)
			rand.New(rand.NewSource(seed)).Shuffle(len(shuffled), func(i, j int) {
				shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
			})
			a, err1 := Generate(paths, "http", "docs.example.com")
			b, err2 := Generate(shuffled, "http", "docs.example.com")
			return err1 == nil && err2 == nil && bytes.Equal(a, b)
		},
		pathGen,
		gen.Int64(),
	))

	// Property: every reachable path appears exactly once under the host
	properties.Property("one location per distinct path", prop.ForAll(
		func(paths []string) bool {
			doc, err := Generate(paths, "https", "docs.example.com")
			if err != nil {
				return false
			}
			locs, err := Parse(doc)
			if err != nil {
				return false
			}
			distinct := map[string]bool{}
			for _, p := range paths {
				distinct[p] = true
			}
			if len(locs) != len(distinct) {
				return false
			}
			for _, loc := range locs {
				rel, ok := strings.CutPrefix(loc, "https://docs.example.com/")
				if !ok || !distinct[rel] {
					return false
				}
			}
			return true
		},
		pathGen,
	))

	properties.TestingRun(t)
}

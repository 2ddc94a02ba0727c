// Package sitemap renders the crawl's reachable set as a sitemaps.org document.
package sitemap

import (
	"encoding/xml"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ferrors "git.home.luguber.info/inful/docbinder/internal/foundation/errors"
)

// FileName is written at the public root.
const FileName = "sitemap.xml"

const namespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

type urlSet struct {
	XMLName xml.Name   `xml:"urlset"`
	XMLNS   string     `xml:"xmlns,attr"`
	URLs    []urlEntry `xml:"url"`
}

type urlEntry struct {
	Loc string `xml:"loc"`
}

// Locations maps site-relative paths to absolute URLs on host, deduplicated
// and sorted.
func Locations(reachable []string, scheme, host string) []string {
	if scheme == "" {
		scheme = "http"
	}
	seen := make(map[string]struct{}, len(reachable))
	out := make([]string, 0, len(reachable))
	for _, rel := range reachable {
		u := url.URL{Scheme: scheme, Host: host, Path: "/" + strings.TrimPrefix(rel, "/")}
		loc := u.String()
		if _, dup := seen[loc]; dup {
			continue
		}
		seen[loc] = struct{}{}
		out = append(out, loc)
	}
	sort.Strings(out)
	return out
}

// Generate returns the sitemap document for reachable on host.
func Generate(reachable []string, scheme, host string) ([]byte, error) {
	set := urlSet{XMLNS: namespace}
	for _, loc := range Locations(reachable, scheme, host) {
		set.URLs = append(set.URLs, urlEntry{Loc: loc})
	}
	body, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryInternal, "failed to encode sitemap").Build()
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}

// Write generates the sitemap and stores it as dir/sitemap.xml.
func Write(dir string, reachable []string, scheme, host string) (string, error) {
	doc, err := Generate(reachable, scheme, host)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, doc, 0o644); err != nil { //nolint:gosec // public site output
		return "", ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to write sitemap").
			WithContext("path", path).
			Build()
	}
	return path, nil
}

// Parse reads the locations back out of a sitemap document.
func Parse(doc []byte) ([]string, error) {
	var set urlSet
	if err := xml.Unmarshal(doc, &set); err != nil {
		return nil, err
	}
	out := make([]string, len(set.URLs))
	for i, u := range set.URLs {
		out[i] = u.Loc
	}
	return out, nil
}

// Package spider crawls a rendered site from its root index, collecting the
// reachable pages and every internal link that does not resolve to a file.
package spider

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	ferrors "git.home.luguber.info/inful/docbinder/internal/foundation/errors"
	"git.home.luguber.info/inful/docbinder/internal/logfields"
)

// RootDocument is where every crawl starts.
const RootDocument = "index.html"

// BrokenLink is an internal target that does not exist. Target is relative
// to the site root; Source is the first page seen linking to it.
type BrokenLink struct {
	Target string `json:"target"`
	Source string `json:"source"`
	Raw    string `json:"raw"`
}

// Result is the terminal state of a crawl.
type Result struct {
	Reachable []string // site-relative HTML pages, sorted
	Broken    []BrokenLink
}

// HasBrokenLinks reports whether any internal target failed to resolve.
func (r Result) HasBrokenLinks() bool { return len(r.Broken) > 0 }

// BrokenTargets lists the broken targets, sorted.
func (r Result) BrokenTargets() []string {
	out := make([]string, len(r.Broken))
	for i, b := range r.Broken {
		out[i] = b.Target
	}
	return out
}

// Crawler walks a rendered tree breadth-first.
type Crawler struct {
	host    string
	workers int
	logger  *slog.Logger
}

// New creates a Crawler. Absolute links to host count as internal.
func New(host string, workers int, logger *slog.Logger) *Crawler {
	if workers <= 0 {
		workers = 8
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Crawler{host: strings.ToLower(host), workers: workers, logger: logger}
}

type crawlState struct {
	root string

	mu      sync.Mutex
	visited map[string]bool
	broken  map[string]BrokenLink
}

// markVisited returns true the first time page is seen.
func (s *crawlState) markVisited(page string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.visited[page] {
		return false
	}
	s.visited[page] = true
	return true
}

func (s *crawlState) addBroken(b BrokenLink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.broken[b.Target]; !seen {
		s.broken[b.Target] = b
	}
}

// Crawl explores root starting at index.html. The frontier of each BFS level
// is read in parallel; the visited set is shared under a lock so each page is
// processed once.
func (c *Crawler) Crawl(ctx context.Context, root string) (Result, error) {
	if _, err := os.Stat(filepath.Join(root, RootDocument)); err != nil {
		return Result{}, ferrors.BuildError("rendered site has no root index").
			WithCause(err).
			WithContext("path", root).
			Build()
	}

	st := &crawlState{root: root, visited: map[string]bool{}, broken: map[string]BrokenLink{}}
	frontier := []string{RootDocument}
	st.markVisited(RootDocument)

	for len(frontier) > 0 {
		var (
			nextMu sync.Mutex
			next   []string
		)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.workers)
		for _, page := range frontier {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				found, err := c.visit(st, page)
				if err != nil {
					return err
				}
				nextMu.Lock()
				next = append(next, found...)
				nextMu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Result{}, err
		}
		sort.Strings(next)
		frontier = next
	}

	res := Result{Reachable: make([]string, 0, len(st.visited))}
	for p := range st.visited {
		res.Reachable = append(res.Reachable, p)
	}
	sort.Strings(res.Reachable)
	for _, b := range st.broken {
		res.Broken = append(res.Broken, b)
	}
	sort.Slice(res.Broken, func(i, j int) bool { return res.Broken[i].Target < res.Broken[j].Target })

	c.logger.Info("Crawl finished",
		logfields.Count(len(res.Reachable)),
		slog.Int("broken", len(res.Broken)))
	return res, nil
}

// visit reads one page and returns newly discovered pages to enqueue.
func (c *Crawler) visit(st *crawlState, page string) ([]string, error) {
	f, err := os.Open(filepath.Join(st.root, filepath.FromSlash(page)))
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to open page").
			WithContext("page", page).
			Build()
	}
	links, err := ExtractLinks(f)
	_ = f.Close()
	if err != nil {
		return nil, err
	}

	var found []string
	for _, l := range links {
		target, internal := c.resolve(page, l.URL)
		if !internal {
			continue
		}
		resolved, ok := locate(st.root, target)
		if !ok {
			c.logger.Debug("Broken link", logfields.URL(l.URL), slog.String("page", page))
			st.addBroken(BrokenLink{Target: target, Source: page, Raw: l.URL})
			continue
		}
		if isPage(resolved) && st.markVisited(resolved) {
			found = append(found, resolved)
		}
	}
	return found, nil
}

// resolve maps a raw link on page to a site-relative path. internal is false
// for external and non-file targets.
func (c *Crawler) resolve(page, raw string) (string, bool) {
	if !shouldFollow(raw) {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.Host != "" && strings.ToLower(u.Hostname()) != c.host {
		return "", false
	}
	if u.Path == "" {
		// "?q" or an absolute URL to the host root
		if u.Host == "" {
			return "", false
		}
		return RootDocument, true
	}

	p := u.Path
	if !strings.HasPrefix(p, "/") {
		p = path.Join(path.Dir(page), p)
		if strings.HasSuffix(u.Path, "/") {
			p += "/"
		}
	}
	clean := path.Clean("/" + p)
	rel := strings.TrimPrefix(clean, "/")
	if strings.HasSuffix(p, "/") && rel != "" {
		rel += "/"
	}
	if rel == "" {
		return RootDocument, true
	}
	return rel, true
}

// locate maps a target onto an existing file, applying directory index and
// extensionless-page conventions.
func locate(root, target string) (string, bool) {
	if strings.HasSuffix(target, "/") {
		target = path.Join(target, RootDocument)
	}
	full := filepath.Join(root, filepath.FromSlash(target))
	info, err := os.Stat(full)
	switch {
	case err == nil && !info.IsDir():
		return target, true
	case err == nil && info.IsDir():
		idx := path.Join(target, RootDocument)
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(idx))); err == nil {
			return idx, true
		}
		return "", false
	}
	if path.Ext(target) == "" {
		if _, err := os.Stat(full + ".html"); err == nil {
			return target + ".html", true
		}
	}
	return "", false
}

func isPage(rel string) bool {
	switch strings.ToLower(path.Ext(rel)) {
	case ".html", ".htm":
		return true
	}
	return false
}

// Package source decides where each section's content comes from: a local
// working copy under the local repository root, or a remote snapshot.
package source

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	ferrors "git.home.luguber.info/inful/docbinder/internal/foundation/errors"
	"git.home.luguber.info/inful/docbinder/internal/logfields"
	"git.home.luguber.info/inful/docbinder/internal/metrics"
	"git.home.luguber.info/inful/docbinder/internal/remote"
)

// Kind separates primary documentation sections from repositories that are
// only referenced for code snippets.
type Kind int

const (
	KindPrimary Kind = iota
	KindCodeExample
)

func (k Kind) String() string {
	if k == KindCodeExample {
		return "code_example"
	}
	return "primary"
}

// Request names one repository to materialize.
type Request struct {
	Identity string // owner/name
	Ref      string // empty means latest
	Kind     Kind
}

// Resolved is the outcome of a Request.
type Resolved struct {
	Request
	Path    string
	Local   bool
	Skipped bool // absent code-example repository in local mode
}

// Fetcher materializes remote snapshots. *remote.Fetcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, identity, ref string) (string, error)
}

// Resolver materializes sections. With a local root configured it runs in
// local mode and never touches the network.
type Resolver struct {
	localRoot string
	fetcher   Fetcher
	logger    *slog.Logger
	recorder  metrics.Recorder
}

// NewResolver creates a resolver. fetcher may be nil in local mode.
func NewResolver(localRoot string, fetcher Fetcher, logger *slog.Logger, recorder metrics.Recorder) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		localRoot: localRoot,
		fetcher:   fetcher,
		logger:    logger,
		recorder:  metrics.OrNoop(recorder),
	}
}

// LocalMode reports whether a local repository root is configured.
func (r *Resolver) LocalMode() bool { return r.localRoot != "" }

// Resolve materializes req. A missing primary section is a not_found error;
// a missing code example in local mode is logged and returned as Skipped.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Resolved, error) {
	if r.LocalMode() {
		return r.resolveLocal(req)
	}
	if r.fetcher == nil {
		return Resolved{}, ferrors.ConfigError("no remote fetcher configured").
			WithContext("repository", req.Identity).
			Build()
	}

	path, err := r.fetcher.Fetch(ctx, req.Identity, req.Ref)
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{Request: req, Path: path}, nil
}

func (r *Resolver) resolveLocal(req Request) (Resolved, error) {
	_, name := remote.SplitIdentity(req.Identity)
	path := filepath.Join(r.localRoot, name)

	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		r.recorder.IncFetch(metrics.FetchLocal)
		r.logger.Debug("Using local copy", logfields.Repository(req.Identity), logfields.Path(path))
		return Resolved{Request: req, Path: path, Local: true}, nil
	}

	if req.Kind == KindCodeExample {
		r.logger.Info("skipping (not found)", logfields.Repository(req.Identity), logfields.Path(path))
		return Resolved{Request: req, Skipped: true, Local: true}, nil
	}
	return Resolved{}, ferrors.NotFoundError("local section repository not found").
		WithContext("repository", req.Identity).
		WithContext("path", path).
		Build()
}

// ResolveAll resolves reqs with at most limit in flight and returns results
// in request order. The first fatal error cancels the rest.
func (r *Resolver) ResolveAll(ctx context.Context, reqs []Request, limit int) ([]Resolved, error) {
	if limit <= 0 {
		limit = 1
	}
	r.recorder.SetResolveConcurrency(limit)

	out := make([]Resolved, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := r.Resolve(gctx, req)
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

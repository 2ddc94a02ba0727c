package remote

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	ferrors "git.home.luguber.info/inful/docbinder/internal/foundation/errors"
	"git.home.luguber.info/inful/docbinder/internal/logfields"
	"git.home.luguber.info/inful/docbinder/internal/metrics"
	"git.home.luguber.info/inful/docbinder/internal/workspace"
)

const completeSuffix = ".complete"

// Fetcher materializes remote snapshots into cacheDir/<owner>/<name>/<ref>.
//
// Concurrent requests for the same (identity, effective ref) collapse into one
// upstream call. Head lookups for "latest" are memoized until the next BeginRun,
// so a run sees one head per repository and re-validates it on the next run.
type Fetcher struct {
	repo     Repository
	cacheDir string
	ws       *workspace.Manager
	logger   *slog.Logger
	recorder metrics.Recorder

	requestGroup singleflight.Group

	mu    sync.Mutex
	heads map[string]string
	paths map[string]string
}

// NewFetcher wires a Fetcher over repo with the on-disk cache at cacheDir.
func NewFetcher(repo Repository, cacheDir string, logger *slog.Logger, recorder metrics.Recorder) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		repo:     repo,
		cacheDir: cacheDir,
		ws:       workspace.NewManager(cacheDir, logger),
		logger:   logger,
		recorder: metrics.OrNoop(recorder),
		heads:    map[string]string{},
		paths:    map[string]string{},
	}
}

// BeginRun forgets run-scoped state so "latest" refs are re-resolved.
func (f *Fetcher) BeginRun() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heads = map[string]string{}
	f.paths = map[string]string{}
}

// EndRun removes leftover staging directories.
func (f *Fetcher) EndRun() {
	if err := f.ws.Cleanup(); err != nil {
		f.logger.Warn("Failed to clean staging area", logfields.Error(err))
	}
}

// Fetch returns the directory holding identity at ref. An empty ref means the
// default branch head.
func (f *Fetcher) Fetch(ctx context.Context, identity, ref string) (string, error) {
	effective := ref
	if effective == "" {
		head, err := f.Head(ctx, identity)
		if err != nil {
			return "", err
		}
		effective = head
	}

	key := identity + "@" + effective
	v, err, _ := f.requestGroup.Do(key, func() (any, error) {
		f.mu.Lock()
		if p, ok := f.paths[key]; ok {
			f.mu.Unlock()
			return p, nil
		}
		f.mu.Unlock()

		p, err := f.materialize(ctx, identity, effective)
		if err != nil {
			return nil, err
		}
		f.mu.Lock()
		f.paths[key] = p
		f.mu.Unlock()
		return p, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Head resolves the default branch head of identity once per run.
func (f *Fetcher) Head(ctx context.Context, identity string) (string, error) {
	f.mu.Lock()
	if sha, ok := f.heads[identity]; ok {
		f.mu.Unlock()
		return sha, nil
	}
	f.mu.Unlock()

	v, err, _ := f.requestGroup.Do("head:"+identity, func() (any, error) {
		f.mu.Lock()
		if sha, ok := f.heads[identity]; ok {
			f.mu.Unlock()
			return sha, nil
		}
		f.mu.Unlock()

		sha, err := f.repo.ResolveRef(ctx, identity, "")
		if err != nil {
			return nil, err
		}
		f.mu.Lock()
		f.heads[identity] = sha
		f.mu.Unlock()
		return sha, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// EntryPath is where the snapshot for identity at ref lives once cached.
func (f *Fetcher) EntryPath(identity, ref string) string {
	owner, name := SplitIdentity(identity)
	return filepath.Join(f.cacheDir, owner, name, sanitizeRef(ref))
}

func (f *Fetcher) materialize(ctx context.Context, identity, ref string) (string, error) {
	dest := f.EntryPath(identity, ref)
	if isComplete(dest) {
		f.logger.Debug("Snapshot cache hit", logfields.Repository(identity), logfields.Ref(ref), logfields.Path(dest))
		f.recorder.IncFetch(metrics.FetchCache)
		return dest, nil
	}
	// An entry without its marker is a leftover from an interrupted run.
	if err := os.RemoveAll(dest); err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to clear partial snapshot").
			WithContext("path", dest).
			Build()
	}

	staged, err := f.ws.Stage(identity)
	if err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to stage snapshot").Build()
	}

	start := time.Now()
	f.logger.Info("Fetching snapshot", logfields.Repository(identity), logfields.Ref(ref))
	err = f.repo.FetchSnapshot(ctx, identity, ref, staged)
	f.recorder.ObserveFetchDuration(identity, time.Since(start), err == nil)
	if err != nil {
		f.ws.Discard(staged)
		return "", err
	}
	f.recorder.IncFetch(metrics.FetchRemote)

	if err := f.ws.Promote(staged, dest); err != nil {
		f.ws.Discard(staged)
		return "", ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to store snapshot").
			WithContext("path", dest).
			Build()
	}
	if err := os.WriteFile(dest+completeSuffix, []byte(time.Now().UTC().Format(time.RFC3339)), 0o600); err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to mark snapshot complete").
			WithContext("path", dest).
			Build()
	}
	f.logger.Debug("Snapshot stored", logfields.Repository(identity), logfields.Ref(ref), logfields.Path(dest),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	return dest, nil
}

func isComplete(dest string) bool {
	if _, err := os.Stat(dest + completeSuffix); err != nil {
		return false
	}
	info, err := os.Stat(dest)
	return err == nil && info.IsDir()
}

func sanitizeRef(ref string) string {
	return strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(ref)
}

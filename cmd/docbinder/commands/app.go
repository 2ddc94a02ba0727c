package commands

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/docbinder/internal/config"
	ferrors "git.home.luguber.info/inful/docbinder/internal/foundation/errors"
	"git.home.luguber.info/inful/docbinder/internal/git"
	"git.home.luguber.info/inful/docbinder/internal/logfields"
	"git.home.luguber.info/inful/docbinder/internal/metrics"
	"git.home.luguber.info/inful/docbinder/internal/modcache"
	"git.home.luguber.info/inful/docbinder/internal/notify"
	"git.home.luguber.info/inful/docbinder/internal/pdf"
	"git.home.luguber.info/inful/docbinder/internal/publish"
	"git.home.luguber.info/inful/docbinder/internal/remote"
	"git.home.luguber.info/inful/docbinder/internal/render"
	"git.home.luguber.info/inful/docbinder/internal/shell"
	"git.home.luguber.info/inful/docbinder/internal/source"
)

// Bind modes.
const (
	ModeLocal  = "local"
	ModeRemote = "remote"
)

// app is the composition root for one command invocation.
type app struct {
	cfg      *config.Config
	bookDir  string
	local    bool
	verbose  bool
	logger   *slog.Logger
	registry *prometheus.Registry
	recorder metrics.Recorder
	git      *git.Client
	closers  []func() error
}

// newApp loads the configuration and resolves its paths against the book
// directory, the one holding the configuration file.
func newApp(g *Global, cli *CLI, mode string) (*app, error) {
	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfgPath, err := filepath.Abs(cli.Config)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid configuration path").Build()
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	bookDir := filepath.Dir(cfgPath)
	local := mode == ModeLocal
	if local && cfg.LocalRepoDir == "" {
		cfg.LocalRepoDir = filepath.Dir(bookDir)
	}
	absolutize(cfg, bookDir)

	logger.Debug("Configuration loaded", logfields.Path(cfgPath), slog.String("mode", mode))
	return &app{
		cfg:      cfg,
		bookDir:  bookDir,
		local:    local,
		verbose:  cli.Verbose,
		logger:   logger,
		recorder: metrics.NoopRecorder{},
		git:      git.NewClient(cfg.Remote.URLTemplate, cfg.Remote.Token, logger),
	}, nil
}

// absolutize makes every configured path relative to base.
func absolutize(cfg *config.Config, base string) {
	for _, p := range []*string{
		&cfg.MasterDir,
		&cfg.OutputDir,
		&cfg.FinalAppDir,
		&cfg.TemplateAppDir,
		&cfg.LocalRepoDir,
		&cfg.Remote.CacheDir,
		&cfg.Cache.Path,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

// enableMetrics switches the recorder to Prometheus.
func (a *app) enableMetrics() {
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.recorder = metrics.NewPrometheusRecorder(a.registry)
}

func (a *app) remoteRepository() remote.Repository {
	if a.cfg.Remote.Provider == config.ProviderGit {
		return a.git
	}
	return remote.NewGitHubClient(a.cfg.Remote.APIURL, a.cfg.Remote.Token, a.logger)
}

// publisher wires the pipeline for the app's mode.
func (a *app) publisher() (*publish.Publisher, error) {
	cfg := a.cfg
	runner := shell.NewExecRunner(a.logger)
	renderer := render.NewCommandRenderer(runner, cfg.Renderer.Command, cfg.Renderer.BuildDir, a.verbose, a.logger)

	var (
		resolver *source.Resolver
		fetcher  *remote.Fetcher
	)
	if a.local {
		resolver = source.NewResolver(cfg.LocalRepoDir, nil, a.logger, a.recorder)
	} else {
		fetcher = remote.NewFetcher(a.remoteRepository(), cfg.Remote.CacheDir, a.logger, a.recorder)
		resolver = source.NewResolver("", fetcher, a.logger, a.recorder)
	}

	store, err := modcache.NewSQLiteStore(cfg.Cache.Path)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to open modification cache").
			WithContext("path", cfg.Cache.Path).
			Build()
	}
	cache := modcache.New(store, a.logger)
	a.closers = append(a.closers, cache.Close)

	p := publish.NewPublisher(cfg, resolver, renderer, a.logger).
		WithCache(cache).
		WithRecorder(a.recorder)
	if fetcher != nil {
		p.WithRunScope(fetcher)
	}

	if len(cfg.Versions) > 0 {
		if a.local {
			p.WithVersions(publish.NewLocalVersions(a.bookDir, cfg.VersionSourcePath, p.Layout().VersionDir))
		} else {
			p.WithVersions(publish.NewRemoteVersions(resolver, cfg.BookRepo, cfg.VersionSourcePath, cfg.Remote.Concurrency))
		}
	}
	if cfg.PDF != nil {
		p.WithPDF(pdf.NewCommandGenerator(runner, cfg.PDF.Command, a.logger))
	}
	if cfg.Notify.NATSURL != "" {
		n, err := notify.NewNATSNotifier(cfg.Notify.NATSURL, cfg.Notify.Subject, cfg.PublicScheme, cfg.PublicHost, a.logger)
		if err != nil {
			a.logger.Warn("Broken link notifications disabled", logfields.Error(err))
		} else {
			p.WithNotifier(n)
			a.closers = append(a.closers, n.Close)
		}
	}
	return p, nil
}

// localSectionRepos lists the working copies of configured sections present
// under the local repository root, logging the absent ones.
func (a *app) localSectionRepos() []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range a.cfg.Sections {
		_, name := remote.SplitIdentity(s.Repository.Name)
		path := filepath.Join(a.cfg.LocalRepoDir, name)
		if seen[path] {
			continue
		}
		seen[path] = true
		if info, err := os.Stat(path); err != nil || !info.IsDir() {
			a.logger.Info("skipping (not found)", logfields.Repository(s.Repository.Name), logfields.Path(path))
			continue
		}
		out = append(out, path)
	}
	return out
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

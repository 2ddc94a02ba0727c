package publish

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/docbinder/internal/assemble"
	"git.home.luguber.info/inful/docbinder/internal/config"
	ferrors "git.home.luguber.info/inful/docbinder/internal/foundation/errors"
	"git.home.luguber.info/inful/docbinder/internal/logfields"
	"git.home.luguber.info/inful/docbinder/internal/metrics"
	"git.home.luguber.info/inful/docbinder/internal/modcache"
	"git.home.luguber.info/inful/docbinder/internal/notify"
	"git.home.luguber.info/inful/docbinder/internal/pdf"
	"git.home.luguber.info/inful/docbinder/internal/render"
	"git.home.luguber.info/inful/docbinder/internal/sitemap"
	"git.home.luguber.info/inful/docbinder/internal/snippets"
	"git.home.luguber.info/inful/docbinder/internal/source"
	"git.home.luguber.info/inful/docbinder/internal/spider"
)

// Stage names used in logs and metrics.
const (
	StageClean    = "clean"
	StageResolve  = "resolve"
	StageAssemble = "assemble"
	StageSnippets = "snippets"
	StageRender   = "render"
	StageCopy     = "copy"
	StageCrawl    = "crawl"
	StageSitemap  = "sitemap"
	StageRecord   = "record"
	StagePDF      = "pdf"
)

// RunScope brackets run-scoped state in a collaborator. *remote.Fetcher
// implements it to forget head lookups between runs.
type RunScope interface {
	BeginRun()
	EndRun()
}

// Result is the verdict of one publish run.
type Result struct {
	RunID       string
	Success     bool
	BrokenLinks []string // site-relative targets, sorted
	Broken      []spider.BrokenLink
	Reachable   []string
	PublicDir   string
	Sitemap     string // empty unless the run succeeded
	PDF         string // empty unless a PDF was produced
	Duration    time.Duration
}

// Publisher runs the pipeline against one configuration. Runs against the
// same output directory must not overlap.
type Publisher struct {
	cfg       *config.Config
	layout    Layout
	resolver  *source.Resolver
	renderer  render.Renderer
	assembler *assemble.Assembler

	versions VersionSource
	cache    *modcache.Cache
	pdf      pdf.Generator
	notifier notify.Notifier
	scope    RunScope
	recorder metrics.Recorder
	logger   *slog.Logger
	newRunID func() string
}

// NewPublisher wires the required collaborators. Optional ones are attached
// with the With* methods.
func NewPublisher(cfg *config.Config, resolver *source.Resolver, renderer render.Renderer, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		cfg:       cfg,
		layout:    NewLayout(cfg),
		resolver:  resolver,
		renderer:  renderer,
		assembler: assemble.New(logger),
		notifier:  notify.NoopNotifier{},
		recorder:  metrics.NoopRecorder{},
		logger:    logger,
		newRunID:  uuid.NewString,
	}
}

// WithVersions sets the source of book versions; required when the
// configuration lists versions.
func (p *Publisher) WithVersions(v VersionSource) *Publisher {
	p.versions = v
	return p
}

// WithCache enables modification tracking.
func (p *Publisher) WithCache(c *modcache.Cache) *Publisher {
	p.cache = c
	return p
}

// WithPDF sets the generator used when the configuration has a pdf block.
func (p *Publisher) WithPDF(g pdf.Generator) *Publisher {
	p.pdf = g
	return p
}

// WithNotifier receives the broken links of failed runs.
func (p *Publisher) WithNotifier(n notify.Notifier) *Publisher {
	if n != nil {
		p.notifier = n
	}
	return p
}

// WithRunScope attaches a collaborator reset at the start of every run.
func (p *Publisher) WithRunScope(s RunScope) *Publisher {
	p.scope = s
	return p
}

// WithRecorder sets the metrics recorder.
func (p *Publisher) WithRecorder(r metrics.Recorder) *Publisher {
	p.recorder = metrics.OrNoop(r)
	return p
}

// Layout reports the directories this publisher writes.
func (p *Publisher) Layout() Layout { return p.layout }

// Publish runs the full pipeline once.
func (p *Publisher) Publish(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: p.newRunID(), PublicDir: p.layout.Public}
	log := p.logger.With(logfields.RunID(res.RunID))
	log.Info("Publish started", logfields.Count(len(p.cfg.Sections)), slog.Bool("local", p.resolver.LocalMode()))

	if p.scope != nil {
		p.scope.BeginRun()
		defer p.scope.EndRun()
	}

	err := p.run(ctx, log, res)
	res.Duration = time.Since(start)
	p.recorder.ObservePublishDuration(res.Duration)

	switch {
	case err != nil:
		p.recorder.IncPublishOutcome(metrics.OutcomeFailed)
		log.Error("Publish failed", logfields.Error(err))
		return res, err
	case !res.Success:
		p.recorder.IncPublishOutcome(metrics.OutcomeBrokenLinks)
		log.Warn("Publish failed: broken links", logfields.Count(len(res.BrokenLinks)))
	default:
		p.recorder.IncPublishOutcome(metrics.OutcomeSuccess)
		log.Info("Publish complete",
			logfields.Path(res.PublicDir),
			logfields.Count(len(res.Reachable)),
			logfields.DurationMS(float64(res.Duration.Milliseconds())))
	}
	return res, nil
}

func (p *Publisher) run(ctx context.Context, log *slog.Logger, res *Result) error {
	if err := p.stage(ctx, log, StageClean, p.clean); err != nil {
		return err
	}

	var sections []source.Resolved
	if err := p.stage(ctx, log, StageResolve, func(ctx context.Context) error {
		var err error
		sections, err = p.resolveSections(ctx)
		return err
	}); err != nil {
		return err
	}

	var versions []assemble.Mount
	if err := p.stage(ctx, log, StageAssemble, func(ctx context.Context) error {
		var err error
		versions, err = p.assemble(ctx, sections)
		return err
	}); err != nil {
		return err
	}

	var examples []source.Resolved
	if err := p.stage(ctx, log, StageSnippets, func(ctx context.Context) error {
		var err error
		examples, err = p.expandSnippets(ctx)
		return err
	}); err != nil {
		return err
	}

	var buildDir string
	if err := p.stage(ctx, log, StageRender, func(ctx context.Context) error {
		var err error
		buildDir, err = p.render(ctx)
		return err
	}); err != nil {
		return err
	}

	if err := p.stage(ctx, log, StageCopy, func(context.Context) error {
		return assemble.CopyDir(buildDir, p.layout.Public)
	}); err != nil {
		return err
	}

	var crawl spider.Result
	if err := p.stage(ctx, log, StageCrawl, func(ctx context.Context) error {
		var err error
		crawl, err = spider.New(p.cfg.PublicHost, p.cfg.Remote.Concurrency, log).Crawl(ctx, p.layout.Public)
		return err
	}); err != nil {
		return err
	}
	res.Reachable = crawl.Reachable
	p.recorder.SetBrokenLinks(len(crawl.Broken))
	if crawl.HasBrokenLinks() {
		res.Broken = crawl.Broken
		res.BrokenLinks = crawl.BrokenTargets()
		for _, b := range crawl.Broken {
			log.Warn("Broken link", slog.String("target", b.Target), slog.String("source", b.Source))
		}
		if err := p.notifier.BrokenLinks(ctx, res.RunID, crawl.Broken); err != nil {
			log.Warn("Failed to publish broken link events", logfields.Error(err))
		}
		return nil
	}

	if err := p.stage(ctx, log, StageSitemap, func(context.Context) error {
		var err error
		res.Sitemap, err = sitemap.Write(p.layout.Public, crawl.Reachable, p.cfg.PublicScheme, p.cfg.PublicHost)
		return err
	}); err != nil {
		return err
	}

	// Modification state is advisory: a failure to record only costs a
	// re-render next time.
	_ = p.stage(ctx, log, StageRecord, func(ctx context.Context) error {
		for _, s := range p.tracked(sections, versions, examples) {
			if err := p.cache.Record(ctx, s); err != nil {
				log.Warn("Failed to record modification state", logfields.Section(s.Section), logfields.Error(err))
			}
		}
		return nil
	})

	if p.cfg.PDF != nil {
		if err := p.stage(ctx, log, StagePDF, func(ctx context.Context) error {
			var err error
			res.PDF, err = p.printPDF(ctx)
			return err
		}); err != nil {
			return err
		}
	}

	res.Success = true
	return nil
}

// stage times fn and reports its outcome.
func (p *Publisher) stage(ctx context.Context, log *slog.Logger, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		p.recorder.IncStageResult(name, metrics.ResultCanceled)
		return err
	}
	start := time.Now()
	err := fn(ctx)
	d := time.Since(start)
	p.recorder.ObserveStageDuration(name, d)

	switch {
	case err == nil:
		p.recorder.IncStageResult(name, metrics.ResultSuccess)
		log.Debug("Stage complete", logfields.Stage(name), logfields.DurationMS(float64(d.Milliseconds())))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		p.recorder.IncStageResult(name, metrics.ResultCanceled)
	default:
		p.recorder.IncStageResult(name, metrics.ResultFatal)
	}
	return err
}

// clean empties the output and final application directories and seeds the
// latter from the template application.
func (p *Publisher) clean(context.Context) error {
	if err := assemble.ResetDir(p.layout.OutputDir); err != nil {
		return err
	}
	if err := assemble.ResetDir(p.layout.FinalApp); err != nil {
		return err
	}
	if p.cfg.TemplateAppDir != "" {
		if err := assemble.CopyDir(p.cfg.TemplateAppDir, p.layout.FinalApp); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to copy template app").
				WithContext("path", p.cfg.TemplateAppDir).
				Build()
		}
		// The public tree is always the renderer's; template residue would mask broken links.
		if err := os.RemoveAll(p.layout.Public); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to clear public directory").Build()
		}
	}
	return nil
}

func (p *Publisher) resolveSections(ctx context.Context) ([]source.Resolved, error) {
	reqs := make([]source.Request, len(p.cfg.Sections))
	for i, s := range p.cfg.Sections {
		reqs[i] = source.Request{Identity: s.Repository.Name, Ref: s.Repository.Ref, Kind: source.KindPrimary}
	}
	return p.resolver.ResolveAll(ctx, reqs, p.cfg.Remote.Concurrency)
}

// assemble builds <output>/master from the master directory, the sections and
// the book versions. It returns the version mounts for modification tracking.
func (p *Publisher) assemble(ctx context.Context, sections []source.Resolved) ([]assemble.Mount, error) {
	if _, err := os.Stat(p.layout.MasterSource()); err != nil {
		return nil, ferrors.NotFoundError("master site source not found").
			WithCause(err).
			WithContext("path", p.layout.MasterSource()).
			Build()
	}
	if err := assemble.CopyDir(p.layout.MasterDir, p.layout.WorkDir); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to copy master directory").
			WithContext("path", p.layout.MasterDir).
			Build()
	}

	mounts := make([]assemble.Mount, len(sections))
	for i, r := range sections {
		mounts[i] = assemble.Mount{Dir: p.cfg.Sections[i].MountDir(), Source: r.Path}
	}
	if err := p.assembler.Assemble(p.layout.SiteSource, mounts); err != nil {
		return nil, err
	}

	var versions []assemble.Mount
	if len(p.cfg.Versions) > 0 {
		if p.versions == nil {
			return nil, ferrors.ConfigError("versions configured but no version source available").Build()
		}
		var err error
		if versions, err = p.versions.Versions(ctx, p.cfg.Versions); err != nil {
			return nil, err
		}
		if err := p.assembler.AssembleVersions(p.layout.SiteSource, versions); err != nil {
			return nil, err
		}
	}

	if _, err := assemble.WriteTemplateVariables(p.layout.SiteSource, p.cfg.TemplateVariables); err != nil {
		return nil, err
	}
	return versions, nil
}

// expandSnippets resolves every code-example repository referenced from the
// assembled markdown and inlines the marked regions.
func (p *Publisher) expandSnippets(ctx context.Context) ([]source.Resolved, error) {
	resolved, err := p.resolveExamples(ctx, []string{p.layout.SiteSource})
	if err != nil || len(resolved) == 0 {
		return nil, err
	}
	paths := make(map[string]string, len(resolved))
	for _, r := range resolved {
		paths[r.Identity] = r.Path
	}
	if _, err := snippets.NewExpander(paths, p.logger).ExpandTree(ctx, p.layout.SiteSource); err != nil {
		return nil, err
	}
	return resolved, nil
}

// resolveExamples materializes the code-example repositories referenced from
// markdown below any of roots.
func (p *Publisher) resolveExamples(ctx context.Context, roots []string) ([]source.Resolved, error) {
	seen := map[string]struct{}{}
	var ids []string
	for _, root := range roots {
		repos, err := snippets.Repositories(root)
		if err != nil {
			return nil, err
		}
		for _, id := range repos {
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Strings(ids)
	reqs := make([]source.Request, len(ids))
	for i, id := range ids {
		reqs[i] = source.Request{Identity: id, Kind: source.KindCodeExample}
	}
	return p.resolver.ResolveAll(ctx, reqs, p.cfg.Remote.Concurrency)
}

func (p *Publisher) render(ctx context.Context) (string, error) {
	if err := os.RemoveAll(filepath.Join(p.layout.WorkDir, p.cfg.Renderer.BuildDir)); err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to clear build directory").Build()
	}
	return p.renderer.Render(ctx, p.layout.WorkDir)
}

func (p *Publisher) printPDF(ctx context.Context) (string, error) {
	if p.pdf == nil {
		return "", ferrors.ConfigError("pdf configured but no generator available").Build()
	}
	job := pdf.Job{
		Page:   filepath.Join(p.layout.Public, filepath.FromSlash(p.cfg.PDF.Page)),
		Output: filepath.Join(p.layout.FinalApp, p.cfg.PDF.Filename),
	}
	if p.cfg.PDF.Header != "" {
		job.Header = filepath.Join(p.layout.Public, filepath.FromSlash(p.cfg.PDF.Header))
	}
	if err := p.pdf.Generate(ctx, job); err != nil {
		return "", err
	}
	return job.Output, nil
}

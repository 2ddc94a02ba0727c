package commands

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/docbinder/internal/logfields"
	"git.home.luguber.info/inful/docbinder/internal/watch"
)

// WatchCmd keeps a local bind current.
type WatchCmd struct {
	MetricsAddr string `name:"metrics-addr" help:"Serve Prometheus metrics on this address (overrides metrics.addr)"`
	NoPoll      bool   `name:"no-poll" help:"Do not pull section repositories periodically"`
}

func (w *WatchCmd) Run(g *Global, cli *CLI) error {
	a, err := newApp(g, cli, ModeLocal)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	addr := a.cfg.Metrics.Addr
	if w.MetricsAddr != "" {
		addr = w.MetricsAddr
	}
	if addr != "" {
		a.enableMetrics()
	}

	p, err := a.publisher()
	if err != nil {
		return err
	}

	repos := a.localSectionRepos()
	opts := watch.Options{
		Paths:        append([]string{a.cfg.MasterDir}, repos...),
		Ignore:       []string{a.cfg.OutputDir, a.cfg.FinalAppDir},
		Repos:        repos,
		Debounce:     a.cfg.Watch.Debounce,
		PollInterval: a.cfg.Watch.PollInterval,
	}
	var puller watch.Puller
	if !w.NoPoll {
		puller = a.git
	}
	watcher := watch.New(p, puller, opts, a.logger, a.recorder)

	grp, ctx := errgroup.WithContext(g.Ctx)
	if addr != "" {
		grp.Go(func() error { return watch.ServeMetrics(ctx, addr, a.registry, a.logger) })
	}
	grp.Go(func() error {
		a.logger.Info("Watch started", logfields.Path(a.bookDir))
		return watcher.Run(ctx)
	})
	if err := grp.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

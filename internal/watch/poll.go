package watch

import (
	"context"
	"fmt"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/docbinder/internal/logfields"
)

// Puller fast-forwards a local working copy. *git.Client satisfies it.
type Puller interface {
	Pull(ctx context.Context, repoPath string) (bool, error)
}

// startPolling schedules the pull job and returns its shutdown.
func (w *Watcher) startPolling(ctx context.Context) (func(), error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	if _, err := s.NewJob(
		gocron.DurationJob(w.opts.PollInterval),
		gocron.NewTask(w.poll, ctx),
		gocron.WithName("pull-local-repositories"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to schedule poll job: %w", err)
	}
	s.Start()
	w.logger.Info("Polling section repositories", logfields.Count(len(w.opts.Repos)))
	return func() {
		if err := s.Shutdown(); err != nil {
			w.logger.Warn("Scheduler shutdown failed", logfields.Error(err))
		}
	}, nil
}

// poll pulls every repository and requests a cycle if any of them moved.
// The cycle itself still decides staleness.
func (w *Watcher) poll(ctx context.Context) {
	moved := false
	for _, repo := range w.opts.Repos {
		if ctx.Err() != nil {
			return
		}
		changed, err := w.puller.Pull(ctx, repo)
		if err != nil {
			w.logger.Warn("Pull failed", logfields.Path(repo), logfields.Error(err))
			continue
		}
		if changed {
			w.logger.Info("Repository updated", logfields.Path(repo))
			moved = true
		}
	}
	if moved {
		w.request()
	}
}

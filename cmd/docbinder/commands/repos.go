package commands

import (
	"fmt"

	ferrors "git.home.luguber.info/inful/docbinder/internal/foundation/errors"
	"git.home.luguber.info/inful/docbinder/internal/logfields"
)

// PunchCmd tags the book and every local section repository.
type PunchCmd struct {
	Tag string `arg:"" help:"Tag name, e.g. v1.2"`
}

func (c *PunchCmd) Run(g *Global, cli *CLI) error {
	a, err := newApp(g, cli, ModeLocal)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	targets := append([]string{a.bookDir}, a.localSectionRepos()...)
	for _, repo := range targets {
		if err := a.git.Tag(repo, c.Tag); err != nil {
			return err
		}
	}
	fmt.Printf("Tagged %d repositories with %s\n", len(targets), c.Tag)
	return nil
}

// UpdateLocalDocReposCmd fast-forwards every local section repository.
type UpdateLocalDocReposCmd struct{}

func (c *UpdateLocalDocReposCmd) Run(g *Global, cli *CLI) error {
	a, err := newApp(g, cli, ModeLocal)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	failed := 0
	for _, repo := range a.localSectionRepos() {
		moved, err := a.git.Pull(g.Ctx, repo)
		if err != nil {
			failed++
			a.logger.Error("Pull failed", logfields.Path(repo), logfields.Error(err))
			continue
		}
		if moved {
			a.logger.Info("Updated", logfields.Path(repo))
		} else {
			a.logger.Info("Already up to date", logfields.Path(repo))
		}
	}
	if failed > 0 {
		return ferrors.GitError(fmt.Sprintf("%d repositories failed to update", failed)).Build()
	}
	return nil
}

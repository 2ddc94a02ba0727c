package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-git/go-git/v5"
	ggitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"

	ferrors "git.home.luguber.info/inful/docbinder/internal/foundation/errors"
	"git.home.luguber.info/inful/docbinder/internal/logfields"
)

// Pull fast-forwards the current branch of the working copy at repoPath to its
// origin counterpart. It reports whether HEAD moved. A diverged branch is an
// error; local work is never discarded.
func (c *Client) Pull(ctx context.Context, repoPath string) (bool, error) {
	repository, err := git.PlainOpen(repoPath)
	if err != nil {
		return false, ClassifyGitError(err, "open", repoPath)
	}

	fetchOpts := &git.FetchOptions{
		RemoteName: "origin",
		RefSpecs:   []ggitcfg.RefSpec{"+refs/heads/*:refs/remotes/origin/*"},
		Auth:       c.auth(),
	}
	if err := repository.FetchContext(ctx, fetchOpts); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return false, ClassifyGitError(err, "fetch", repoPath)
	}

	head, err := repository.Head()
	if err != nil {
		return false, ClassifyGitError(err, "head", repoPath)
	}
	if !head.Name().IsBranch() {
		return false, ferrors.GitError("working copy is not on a branch").
			WithContext("path", repoPath).
			Build()
	}
	branch := head.Name().Short()

	remoteRef, err := repository.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
	if err != nil {
		return false, ClassifyGitError(fmt.Errorf("remote ref: %w", err), "pull", repoPath)
	}
	if remoteRef.Hash() == head.Hash() {
		c.logger.Debug("Repository already up-to-date", logfields.Path(repoPath), slog.String("branch", branch))
		return false, nil
	}

	ff, err := isAncestor(repository, head.Hash(), remoteRef.Hash())
	if err != nil {
		return false, ClassifyGitError(err, "pull", repoPath)
	}
	if !ff {
		return false, ClassifyGitError(fmt.Errorf("local branch %s diverged from remote", branch), "pull", repoPath)
	}

	wt, err := repository.Worktree()
	if err != nil {
		return false, ClassifyGitError(err, "worktree", repoPath)
	}
	if err := wt.Reset(&git.ResetOptions{Commit: remoteRef.Hash(), Mode: git.MergeReset}); err != nil {
		return false, ClassifyGitError(err, "reset", repoPath)
	}
	c.logger.Info("Fast-forwarded repository",
		logfields.Path(repoPath),
		slog.String("branch", branch),
		slog.String("from", head.Hash().String()[:8]),
		slog.String("to", remoteRef.Hash().String()[:8]))
	return true, nil
}

// Tag creates a lightweight tag at HEAD of the working copy at repoPath.
func (c *Client) Tag(repoPath, tag string) error {
	repository, err := git.PlainOpen(repoPath)
	if err != nil {
		return ClassifyGitError(err, "open", repoPath)
	}
	head, err := repository.Head()
	if err != nil {
		return ClassifyGitError(err, "head", repoPath)
	}
	if _, err := repository.CreateTag(tag, head.Hash(), nil); err != nil {
		if errors.Is(err, git.ErrTagExists) {
			return ferrors.AlreadyExistsError(fmt.Sprintf("tag %s already exists", tag)).
				WithContext("path", repoPath).
				Build()
		}
		return ClassifyGitError(err, "tag", repoPath)
	}
	c.logger.Info("Tagged repository", logfields.Path(repoPath), logfields.Version(tag), logfields.Commit(head.Hash().String()))
	return nil
}

func isAncestor(repo *git.Repository, a, b plumbing.Hash) (bool, error) {
	if a == b {
		return true, nil
	}
	seen := map[plumbing.Hash]struct{}{}
	queue := []plumbing.Hash{b}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if h == a {
			return true, nil
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		commit, err := repo.CommitObject(h)
		if err != nil {
			return false, err
		}
		queue = append(queue, commit.ParentHashes...)
	}
	return false, nil
}

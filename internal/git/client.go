package git

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	ggitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"

	ferrors "git.home.luguber.info/inful/docbinder/internal/foundation/errors"
	"git.home.luguber.info/inful/docbinder/internal/logfields"
)

// Client resolves and materializes repositories over the git protocol. It
// satisfies remote.Repository.
type Client struct {
	urlTemplate string
	token       string
	logger      *slog.Logger
}

// NewClient builds a client. urlTemplate must contain one %s, replaced by the
// repository identity (owner/name).
func NewClient(urlTemplate, token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{urlTemplate: urlTemplate, token: token, logger: logger}
}

// URL returns the clone URL for identity.
func (c *Client) URL(identity string) string {
	return fmt.Sprintf(c.urlTemplate, identity)
}

func (c *Client) auth() transport.AuthMethod {
	if c.token == "" {
		return nil
	}
	return &githttp.BasicAuth{Username: "x-access-token", Password: c.token}
}

// ResolveRef performs an ls-remote and maps ref (empty for HEAD) to a commit hash.
func (c *Client) ResolveRef(ctx context.Context, identity, ref string) (string, error) {
	if plumbing.IsHash(ref) {
		return ref, nil
	}
	url := c.URL(identity)
	rem := git.NewRemote(memory.NewStorage(), &ggitcfg.RemoteConfig{Name: "origin", URLs: []string{url}})

	refs, err := rem.ListContext(ctx, &git.ListOptions{Auth: c.auth()})
	if err != nil {
		return "", ClassifyGitError(err, "ls-remote", url)
	}

	byName := make(map[plumbing.ReferenceName]*plumbing.Reference, len(refs))
	for _, r := range refs {
		byName[r.Name()] = r
	}

	var candidates []plumbing.ReferenceName
	if ref == "" {
		candidates = []plumbing.ReferenceName{plumbing.HEAD}
	} else {
		candidates = []plumbing.ReferenceName{
			plumbing.ReferenceName(plumbing.NewTagReferenceName(ref).String() + "^{}"),
			plumbing.NewTagReferenceName(ref),
			plumbing.NewBranchReferenceName(ref),
		}
	}
	for _, name := range candidates {
		if sha, ok := resolveListed(byName, name); ok {
			c.logger.Debug("Resolved ref", logfields.Repository(identity), logfields.Ref(ref), logfields.Commit(sha))
			return sha, nil
		}
	}
	return "", ferrors.NotFoundError(fmt.Sprintf("ref %q not found in %s", ref, identity)).
		WithContext("repository", identity).
		WithContext("ref", ref).
		Build()
}

// resolveListed follows at most one symbolic hop, which is all ls-remote
// advertises for HEAD.
func resolveListed(refs map[plumbing.ReferenceName]*plumbing.Reference, name plumbing.ReferenceName) (string, bool) {
	r, ok := refs[name]
	if !ok {
		return "", false
	}
	if r.Type() == plumbing.SymbolicReference {
		if r, ok = refs[r.Target()]; !ok {
			return "", false
		}
	}
	return r.Hash().String(), true
}

// FetchSnapshot clones identity into dest, checks out commit (hash, tag or
// branch) and drops the .git directory so only the tree remains.
func (c *Client) FetchSnapshot(ctx context.Context, identity, commit, dest string) error {
	url := c.URL(identity)
	c.logger.Debug("Cloning snapshot", logfields.URL(url), logfields.Ref(commit), logfields.Path(dest))

	repository, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{
		URL:        url,
		Auth:       c.auth(),
		NoCheckout: true,
		Tags:       git.AllTags,
	})
	if err != nil {
		return ClassifyGitError(err, "clone", url)
	}

	hash, err := repository.ResolveRevision(plumbing.Revision(commit))
	if err != nil {
		return ferrors.NotFoundError(fmt.Sprintf("revision %q not found in %s", commit, identity)).
			WithCause(err).
			WithContext("repository", identity).
			Build()
	}
	wt, err := repository.Worktree()
	if err != nil {
		return ClassifyGitError(err, "worktree", url)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		return ClassifyGitError(err, "checkout", url)
	}

	if err := os.RemoveAll(filepath.Join(dest, git.GitDirName)); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to strip git metadata").
			WithContext("path", dest).
			Build()
	}
	c.logger.Info("Snapshot checked out", logfields.Repository(identity), logfields.Commit(hash.String()))
	return nil
}

// HeadCommit returns the commit checked out in the working copy at repoPath.
func HeadCommit(repoPath string) (string, error) {
	repository, err := git.PlainOpen(repoPath)
	if err != nil {
		return "", ClassifyGitError(err, "open", repoPath)
	}
	ref, err := repository.Head()
	if err != nil {
		return "", ClassifyGitError(err, "head", repoPath)
	}
	return ref.Hash().String(), nil
}

// IsRepository reports whether path holds a git working copy.
func IsRepository(path string) bool {
	_, err := git.PlainOpen(path)
	return err == nil
}

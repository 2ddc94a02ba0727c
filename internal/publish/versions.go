package publish

import (
	"context"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/docbinder/internal/assemble"
	ferrors "git.home.luguber.info/inful/docbinder/internal/foundation/errors"
	"git.home.luguber.info/inful/docbinder/internal/git"
	"git.home.luguber.info/inful/docbinder/internal/source"
)

// VersionSource materializes the site source of each book version.
type VersionSource interface {
	Versions(ctx context.Context, tags []string) ([]assemble.Mount, error)
}

// RemoteVersions reads each tag of the book repository through the resolver,
// so snapshots share the remote cache and its request coalescing.
type RemoteVersions struct {
	resolver   *source.Resolver
	bookRepo   string
	subpath    string
	concurrent int
}

func NewRemoteVersions(resolver *source.Resolver, bookRepo, subpath string, concurrent int) *RemoteVersions {
	return &RemoteVersions{resolver: resolver, bookRepo: bookRepo, subpath: subpath, concurrent: concurrent}
}

func (v *RemoteVersions) Versions(ctx context.Context, tags []string) ([]assemble.Mount, error) {
	reqs := make([]source.Request, len(tags))
	for i, tag := range tags {
		reqs[i] = source.Request{Identity: v.bookRepo, Ref: tag, Kind: source.KindPrimary}
	}
	resolved, err := v.resolver.ResolveAll(ctx, reqs, v.concurrent)
	if err != nil {
		return nil, err
	}
	mounts := make([]assemble.Mount, len(resolved))
	for i, r := range resolved {
		dir := filepath.Join(r.Path, filepath.FromSlash(v.subpath))
		if _, err := os.Stat(dir); err != nil {
			return nil, ferrors.NotFoundError("book version has no site source").
				WithCause(err).
				WithContext("version", r.Ref).
				WithContext("path", v.subpath).
				Build()
		}
		mounts[i] = assemble.Mount{Dir: r.Ref, Source: dir}
	}
	return mounts, nil
}

// LocalVersions exports each tag from the book's local working copy without
// touching the network or the checked-out tree.
type LocalVersions struct {
	repoPath string
	subpath  string
	stageDir string
}

func NewLocalVersions(repoPath, subpath, stageDir string) *LocalVersions {
	return &LocalVersions{repoPath: repoPath, subpath: subpath, stageDir: stageDir}
}

func (v *LocalVersions) Versions(_ context.Context, tags []string) ([]assemble.Mount, error) {
	mounts := make([]assemble.Mount, 0, len(tags))
	for _, tag := range tags {
		dest, err := assemble.MountPath(v.stageDir, tag)
		if err != nil {
			return nil, err
		}
		if err := os.RemoveAll(dest); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to clear version staging").Build()
		}
		if err := git.ExportTree(v.repoPath, tag, v.subpath, dest); err != nil {
			return nil, err
		}
		mounts = append(mounts, assemble.Mount{Dir: tag, Source: dest})
	}
	return mounts, nil
}

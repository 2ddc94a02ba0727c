package git

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	ferrors "git.home.luguber.info/inful/docbinder/internal/foundation/errors"
)

// ExportTree writes the files under subdir of revision in the local repository
// at repoPath into dest, without touching the working copy or the network.
// An empty subdir exports the whole tree.
func ExportTree(repoPath, revision, subdir, dest string) error {
	repository, err := git.PlainOpen(repoPath)
	if err != nil {
		return ClassifyGitError(err, "open", repoPath)
	}
	hash, err := repository.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		return ferrors.NotFoundError(fmt.Sprintf("revision %q not found in %s", revision, repoPath)).
			WithCause(err).
			WithContext("path", repoPath).
			Build()
	}
	commit, err := repository.CommitObject(*hash)
	if err != nil {
		return ClassifyGitError(err, "commit", repoPath)
	}
	tree, err := commit.Tree()
	if err != nil {
		return ClassifyGitError(err, "tree", repoPath)
	}

	subdir = strings.Trim(path.Clean("/"+filepath.ToSlash(subdir)), "/")
	if subdir != "" {
		if tree, err = tree.Tree(subdir); err != nil {
			return ferrors.NotFoundError(fmt.Sprintf("%s not present at %s", subdir, revision)).
				WithCause(err).
				WithContext("path", repoPath).
				Build()
		}
	}

	if err := os.MkdirAll(dest, 0o750); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to create export directory").Build()
	}
	return tree.Files().ForEach(func(f *object.File) error {
		if f.Mode != filemode.Regular && f.Mode != filemode.Executable {
			return nil
		}
		return writeBlob(f, filepath.Join(dest, filepath.FromSlash(f.Name)))
	})
}

func writeBlob(f *object.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to create directory").Build()
	}
	r, err := f.Reader()
	if err != nil {
		return ClassifyGitError(err, "read blob", f.Name)
	}
	defer func() { _ = r.Close() }()

	mode := os.FileMode(0o644)
	if f.Mode == filemode.Executable {
		mode = 0o755
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode) //nolint:gosec // paths come from a git tree
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to create file").WithContext("path", target).Build()
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to write file").WithContext("path", target).Build()
	}
	return out.Close()
}

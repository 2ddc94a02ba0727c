package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/docbinder/internal/foundation/errors"
	"git.home.luguber.info/inful/docbinder/internal/shell"
)

func TestCommandRenderer_Success(t *testing.T) {
	dir := t.TempDir()
	runner := &shell.FakeRunner{Handler: func(c shell.Command) (shell.Result, error) {
		return shell.Result{Stdout: "built"}, os.MkdirAll(filepath.Join(c.Dir, "build"), 0o750)
	}}

	r := NewCommandRenderer(runner, []string{"hugo", "--destination", "build"}, "build", false, nil)
	out, err := r.Render(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "build"), out)

	calls := runner.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, "hugo", calls[0].Name)
	require.Equal(t, []string{"--destination", "build"}, calls[0].Args)
	require.Equal(t, dir, calls[0].Dir)
}

func TestCommandRenderer_Failure(t *testing.T) {
	runner := &shell.FakeRunner{Handler: func(shell.Command) (shell.Result, error) {
		return shell.Result{Stderr: "template error in layouts/index.html", ExitCode: 255}, errors.New("exit status 255")
	}}

	_, err := NewCommandRenderer(runner, []string{"hugo"}, "build", false, nil).Render(context.Background(), t.TempDir())
	require.Error(t, err)

	ce, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	require.Equal(t, ferrors.CategoryRender, ce.Category())
	require.True(t, ce.IsFatal())
	require.Contains(t, ce.Cause().Error(), "template error")
	require.NotContains(t, ce.Message(), "template error")
}

func TestCommandRenderer_MissingBuildDir(t *testing.T) {
	_, err := NewCommandRenderer(&shell.FakeRunner{}, []string{"hugo"}, "build", true, nil).Render(context.Background(), t.TempDir())
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryRender))
}

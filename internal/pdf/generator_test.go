package pdf

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

func writePage(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("<html></html>"), 0o600))
	return p
}

// touchOutput emulates the PDF binary writing its last argument.
func touchOutput(c shell.Command) (shell.Result, error) {
	return shell.Result{}, os.WriteFile(c.Args[len(c.Args)-1], []byte("%PDF"), 0o600)
}

func TestCommandGenerator_Generate(t *testing.T) {
	dir := t.TempDir()
	page := writePage(t, dir, "book.html")
	header := writePage(t, dir, "header.html")
	out := filepath.Join(dir, "out", "book.pdf")

	runner := &shell.FakeRunner{Handler: touchOutput}
	err := NewCommandGenerator(runner, "wkhtmltopdf", nil).Generate(context.Background(), Job{Page: page, Header: header, Output: out})
	require.NoError(t, err)

	calls := runner.CallsTo("wkhtmltopdf")
	require.Len(t, calls, 1)
	require.Equal(t, []string{"--header-html", header, page, out}, calls[0].Args)
	require.FileExists(t, out)
}

func TestCommandGenerator_NoHeader(t *testing.T) {
	dir := t.TempDir()
	page := writePage(t, dir, "book.html")
	out := filepath.Join(dir, "book.pdf")

	runner := &shell.FakeRunner{Handler: touchOutput}
	require.NoError(t, NewCommandGenerator(runner, "wkhtmltopdf", nil).Generate(context.Background(), Job{Page: page, Output: out}))
	require.Equal(t, []string{page, out}, runner.Calls()[0].Args)
}

func TestCommandGenerator_Failures(t *testing.T) {
	dir := t.TempDir()
	page := writePage(t, dir, "book.html")

	tests := []struct {
		name    string
		job     Job
		handler func(shell.Command) (shell.Result, error)
	}{
		{name: "missing page", job: Job{Page: filepath.Join(dir, "nope.html"), Output: filepath.Join(dir, "a.pdf")}},
		{name: "missing header", job: Job{Page: page, Header: filepath.Join(dir, "nope.html"), Output: filepath.Join(dir, "b.pdf")}},
		{
			name: "command fails",
			job:  Job{Page: page, Output: filepath.Join(dir, "c.pdf")},
			handler: func(shell.Command) (shell.Result, error) {
				return shell.Result{Stderr: "boom", ExitCode: 1}, errors.New("exit status 1")
			},
		},
		{name: "no output", job: Job{Page: page, Output: filepath.Join(dir, "d.pdf")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &shell.FakeRunner{Handler: tt.handler}
			err := NewCommandGenerator(runner, "wkhtmltopdf", nil).Generate(context.Background(), tt.job)
			require.Error(t, err)
			require.True(t, ferrors.HasCategory(err, ferrors.CategoryPDF))
		})
	}
}

// Package pdf drives the external HTML-to-PDF toolchain.
package pdf

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	ferrors "git.home.luguber.info/inful/docbinder/internal/foundation/errors"
	"git.home.luguber.info/inful/docbinder/internal/logfields"
	"git.home.luguber.info/inful/docbinder/internal/shell"
)

// Job names the built page to print and where the document goes.
type Job struct {
	Page   string // built HTML page
	Header string // optional header HTML
	Output string // destination PDF path
}

// Generator produces a PDF from a built page.
type Generator interface {
	Generate(ctx context.Context, job Job) error
}

// CommandGenerator shells out to a wkhtmltopdf-compatible binary.
type CommandGenerator struct {
	runner  shell.Runner
	command string
	logger  *slog.Logger
}

func NewCommandGenerator(runner shell.Runner, command string, logger *slog.Logger) *CommandGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandGenerator{runner: runner, command: command, logger: logger}
}

func (g *CommandGenerator) Generate(ctx context.Context, job Job) error {
	if _, err := os.Stat(job.Page); err != nil {
		return ferrors.PDFError("PDF page not found in built site").
			WithCause(err).
			WithContext("page", job.Page).
			Build()
	}

	var args []string
	if job.Header != "" {
		if _, err := os.Stat(job.Header); err != nil {
			return ferrors.PDFError("PDF header not found").
				WithCause(err).
				WithContext("header", job.Header).
				Build()
		}
		args = append(args, "--header-html", job.Header)
	}
	args = append(args, job.Page, job.Output)

	if err := os.MkdirAll(filepath.Dir(job.Output), 0o750); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryPDF, "failed to create PDF output directory").Build()
	}

	cmd := shell.Command{Name: g.command, Args: args}
	g.logger.Info("Generating PDF", logfields.Path(job.Output), slog.String("page", job.Page))
	res, err := g.runner.Run(ctx, cmd)
	if err != nil {
		cause := err
		if out := res.Output(); out != "" {
			cause = fmt.Errorf("%w: %s", err, out)
		}
		return ferrors.PDFError("PDF generation failed").
			WithCause(cause).
			WithContext("command", cmd.String()).
			Build()
	}
	if _, err := os.Stat(job.Output); err != nil {
		return ferrors.PDFError("PDF generator produced no file").
			WithCause(err).
			WithContext("path", job.Output).
			Build()
	}
	return nil
}

// Package render invokes the external static-site generator.
package render

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

// Renderer turns an assembled source tree into HTML. Implementations leave the
// output under <dir>/<build dir> and return its path.
type Renderer interface {
	Render(ctx context.Context, dir string) (string, error)
}

// CommandRenderer runs a configured command (hugo by default) inside the
// source tree.
type CommandRenderer struct {
	runner   shell.Runner
	command  []string
	buildDir string
	verbose  bool
	logger   *slog.Logger
}

// NewCommandRenderer wires a renderer. command[0] is the binary.
func NewCommandRenderer(runner shell.Runner, command []string, buildDir string, verbose bool, logger *slog.Logger) *CommandRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandRenderer{runner: runner, command: command, buildDir: buildDir, verbose: verbose, logger: logger}
}

// Render runs the command. Renderer output is surfaced at info level only in
// verbose mode; otherwise it is kept at debug level and attached to the error
// as its cause, which the CLI hides unless asked.
func (r *CommandRenderer) Render(ctx context.Context, dir string) (string, error) {
	if len(r.command) == 0 {
		return "", ferrors.ConfigError("renderer command is empty").Build()
	}
	if _, err := os.Stat(dir); err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryRender, "render source directory missing").
			WithContext("path", dir).
			Fatal().
			Build()
	}

	cmd := shell.Command{Name: r.command[0], Args: r.command[1:], Dir: dir}
	r.logger.Info("Rendering site", logfields.Path(dir), slog.String("command", cmd.String()))
	res, err := r.runner.Run(ctx, cmd)

	level := slog.LevelDebug
	if r.verbose {
		level = slog.LevelInfo
	}
	if res.Stdout != "" {
		r.logger.Log(ctx, level, "renderer stdout", slog.String("output", res.Stdout))
	}
	if res.Stderr != "" {
		r.logger.Log(ctx, level, "renderer stderr", slog.String("error_output", res.Stderr))
	}

	if err != nil {
		cause := err
		if out := res.Output(); out != "" {
			cause = fmt.Errorf("%w: %s", err, out)
		}
		return "", ferrors.RenderError("renderer failed").
			WithCause(cause).
			WithContext("command", cmd.String()).
			WithContext("exit_code", res.ExitCode).
			Build()
	}

	out := filepath.Join(dir, r.buildDir)
	if info, statErr := os.Stat(out); statErr != nil || !info.IsDir() {
		return "", ferrors.RenderError("renderer produced no build directory").
			WithContext("path", out).
			Build()
	}
	return out, nil
}

// NoopRenderer performs no rendering and reports an existing build directory.
// Useful when the tree is already rendered.
type NoopRenderer struct {
	BuildDir string
}

func (n NoopRenderer) Render(_ context.Context, dir string) (string, error) {
	slog.Debug("NoopRenderer skipping render", logfields.Path(dir))
	return filepath.Join(dir, n.BuildDir), nil
}

// Package commands implements the docbinder subcommands and is the
// composition root wiring configuration into the publish pipeline.
package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
)

// Global carries process-wide state into every command.
type Global struct {
	Ctx    context.Context
	Logger *slog.Logger
}

// CLI definition and global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"config.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging and renderer output"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Bind                BindCmd                `cmd:"" help:"Publish the book into the final application"`
	Imprint             ImprintCmd             `cmd:"" help:"Publish the book and print its PDF"`
	Watch               WatchCmd               `cmd:"" help:"Bind locally and rebind whenever sources change"`
	Generate            GenerateCmd            `cmd:"" help:"Create a skeleton book"`
	Punch               PunchCmd               `cmd:"" help:"Tag the book and every local section repository"`
	UpdateLocalDocRepos UpdateLocalDocReposCmd `cmd:"" name:"update-local-doc-repos" help:"Pull every local section repository"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

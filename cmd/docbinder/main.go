package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docbinder/cmd/docbinder/commands"
	ferrors "git.home.luguber.info/inful/docbinder/internal/foundation/errors"
	"git.home.luguber.info/inful/docbinder/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("docbinder"),
		kong.Description("Bind documentation sections from many repositories into one validated site."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := parser.Run(&commands.Global{Ctx: ctx, Logger: slog.Default()}, cli)
	if err != nil {
		stop()
		ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}

package commands

import (
	"fmt"
	"io"
	"os"

	ferrors "git.home.luguber.info/inful/docbinder/internal/foundation/errors"
	"git.home.luguber.info/inful/docbinder/internal/publish"
)

// BindCmd publishes the book.
type BindCmd struct {
	Mode string `arg:"" enum:"local,remote" help:"Where sections come from: sibling working copies or remote snapshots (local|remote)"`
}

func (b *BindCmd) Run(g *Global, cli *CLI) error {
	_, err := bind(g, cli, b.Mode, false, os.Stdout)
	return err
}

// ImprintCmd publishes the book and requires the PDF step.
type ImprintCmd struct {
	Mode string `arg:"" enum:"local,remote" help:"Where sections come from (local|remote)"`
}

func (c *ImprintCmd) Run(g *Global, cli *CLI) error {
	_, err := bind(g, cli, c.Mode, true, os.Stdout)
	return err
}

func bind(g *Global, cli *CLI, mode string, requirePDF bool, out io.Writer) (*publish.Result, error) {
	a, err := newApp(g, cli, mode)
	if err != nil {
		return nil, err
	}
	defer func() { _ = a.Close() }()

	if requirePDF && a.cfg.PDF == nil {
		return nil, ferrors.ConfigError("imprint requires a pdf section in the configuration").Build()
	}

	p, err := a.publisher()
	if err != nil {
		return nil, err
	}
	res, err := p.Publish(g.Ctx)
	if err != nil {
		return res, err
	}
	if !res.Success {
		_, _ = fmt.Fprintln(out, "Broken links:")
		for _, b := range res.Broken {
			_, _ = fmt.Fprintf(out, "  %s (linked from %s)\n", b.Target, b.Source)
		}
		return res, ferrors.BrokenLinksError(fmt.Sprintf("%d broken link(s) found", len(res.BrokenLinks))).
			WithContext("run_id", res.RunID).
			Build()
	}

	_, _ = fmt.Fprintf(out, "Bind complete: %s\n", res.PublicDir)
	if res.PDF != "" {
		_, _ = fmt.Fprintf(out, "PDF written: %s\n", res.PDF)
	}
	return res, nil
}

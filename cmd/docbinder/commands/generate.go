package commands

import (
	"fmt"

	"git.home.luguber.info/inful/docbinder/internal/config"
	"git.home.luguber.info/inful/docbinder/internal/logfields"
)

// GenerateCmd scaffolds a new book.
type GenerateCmd struct {
	Book string `arg:"" help:"Directory of the new book"`
}

func (c *GenerateCmd) Run(g *Global, _ *CLI) error {
	if err := config.GenerateBook(c.Book); err != nil {
		return err
	}
	g.Logger.Info("Book generated", logfields.Path(c.Book))
	fmt.Printf("Book generated in %s. Edit %s/config.yaml, then run docbinder bind local.\n", c.Book, c.Book)
	return nil
}

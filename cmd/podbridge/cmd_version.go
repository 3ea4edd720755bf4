package main

import (
	"fmt"

	"github.com/d2verb/podbridge/internal/ui"
)

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Fprintf(ui.Output, "podbridge version %s (%s)\n", version, commit)
	return nil
}

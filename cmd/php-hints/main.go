// Package main provides the php-hints CLI tool.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

var version = "dev"

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "php-hints",
		Version: version,
		Usage:   "Show PHP parameter names at call sites",
		Commands: []*cli.Command{
			hintsCommand(),
			indexCommand(),
			mcpCommand(),
		},
	}
}

func main() {
	err := newApp().Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

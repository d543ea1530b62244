package main

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	phphints "github.com/php-hints/phphints"
	"github.com/php-hints/phphints/signature"
	"github.com/php-hints/phphints/tools"
)

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:      "mcp",
		Usage:     "Serve parameter hints to agents over MCP stdio",
		ArgsUsage: "[dir]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-scan",
				Usage: "skip indexing the workspace on startup",
			},
			verboseFlag(),
		},
		Action: runMCP,
	}
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	root, err := rootDir(cmd.Args().Slice())
	if err != nil {
		return err
	}

	cfg, err := phphints.ResolveConfig(root)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// stdout carries the protocol; logs go to stderr.
	logger := newLogger(cmd.Bool("verbose"))
	defer func() { _ = logger.Sync() }()

	// Without a configured path the index lives in memory for the session.
	path := ""
	if cfg.Index.Path != "" {
		path = indexPath(root, cfg.Index)
	}

	ix, err := signature.OpenIndex(path,
		signature.WithWorkers(cfg.Index.Workers),
		signature.WithIgnore(cfg.Index.Ignore...),
		signature.WithIndexLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}

	defer func() { _ = ix.Close() }()

	if !cmd.Bool("no-scan") {
		stats, err := ix.Scan(ctx, root)
		if err != nil {
			return fmt.Errorf("indexing %s: %w", root, err)
		}

		logger.Info("indexed workspace", zap.String("root", root), zap.Int("files", stats.Files))
	}

	srv := tools.NewServer(
		tools.WithIndex(ix, root),
		tools.WithSettings(cfg.Settings),
		tools.WithLogger(logger),
	)

	return srv.MCPServer().Run(ctx, &mcp.StdioTransport{})
}

package main

import (
	"context"
	"fmt"

	"github.com/segmentio/encoding/json"
	"github.com/urfave/cli/v3"

	phphints "github.com/php-hints/phphints"
	"github.com/php-hints/phphints/runner"
	"github.com/php-hints/phphints/signature"
)

func indexCommand() *cli.Command {
	return &cli.Command{
		Name:      "index",
		Usage:     "Build or refresh the workspace signature index",
		ArgsUsage: "[dir]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db",
				Usage:   "index database path (default: index.path from config, else " + phphints.DefaultIndexPath + ")",
				Sources: cli.EnvVars("PHP_HINTS_INDEX_PATH"),
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "output counts as JSON",
			},
			verboseFlag(),
		},
		Action: runIndex,
	}
}

type indexReport struct {
	Root  string              `json:"root"`
	DB    string              `json:"db"`
	Stats signature.ScanStats `json:"stats"`
	Files int                 `json:"indexed_files"`
	Decls int                 `json:"indexed_declarations"`
}

func runIndex(ctx context.Context, cmd *cli.Command) error {
	root, err := rootDir(cmd.Args().Slice())
	if err != nil {
		return err
	}

	cfg, err := phphints.ResolveConfig(root)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if db := cmd.String("db"); db != "" {
		cfg.Index.Path = db
	}

	path := indexPath(root, cfg.Index)

	logger := newLogger(cmd.Bool("verbose"))
	defer func() { _ = logger.Sync() }()

	out := cmd.Root().Writer

	opts := []signature.IndexOption{
		signature.WithWorkers(cfg.Index.Workers),
		signature.WithIgnore(cfg.Index.Ignore...),
		signature.WithIndexLogger(logger),
	}

	var bar *runner.ScanProgress
	if !cmd.Bool("json") && isTerminal(out) {
		bar = runner.NewScanProgress(out, root)
		opts = append(opts, signature.WithProgress(bar.Update))
	}

	ix, err := signature.OpenIndex(path, opts...)
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}

	defer func() { _ = ix.Close() }()

	if bar != nil {
		bar.Start()
	}

	stats, err := ix.Scan(ctx, root)

	if bar != nil {
		bar.Stop()
	}

	if err != nil {
		return fmt.Errorf("indexing %s: %w", root, err)
	}

	files, decls, err := ix.Count(ctx)
	if err != nil {
		return err
	}

	report := indexReport{Root: root, DB: path, Stats: stats, Files: files, Decls: decls}

	if cmd.Bool("json") {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}

		_, err = fmt.Fprintf(out, "%s\n", data)

		return err
	}

	s := styles(out, false)

	_, err = fmt.Fprintf(out, "%s %s\n%s\n",
		s.Path.Render(root),
		s.Dim.Render("→ "+path),
		s.Bold.Render(fmt.Sprintf("%d files, %d declarations", files, decls)),
	)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "%s\n", s.Dim.Render(fmt.Sprintf(
		"%d parsed, %d unchanged, %d removed",
		stats.Parsed, stats.Unchanged, stats.Removed,
	)))

	return err
}

package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	phphints "github.com/php-hints/phphints"
	"github.com/php-hints/phphints/hints"
	"github.com/php-hints/phphints/runner"
	"github.com/php-hints/phphints/signature"
)

func hintsCommand() *cli.Command {
	return &cli.Command{
		Name:      "hints",
		Usage:     "Print PHP files with parameter names inlined",
		ArgsUsage: "[files or directories...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "output hints as JSON",
			},
			&cli.BoolFlag{
				Name:  "full",
				Usage: "print every line, not only lines with hints",
			},
			&cli.BoolFlag{
				Name:    "no-color",
				Usage:   "disable colored output",
				Sources: cli.EnvVars("NO_COLOR"),
			},
			&cli.BoolFlag{
				Name:  "no-index",
				Usage: "resolve only builtins and declarations in each file",
			},
			&cli.BoolFlag{
				Name:  "literals",
				Usage: "hint only literal arguments (hintOnlyLiterals)",
			},
			&cli.IntFlag{
				Name:  "type-name",
				Usage: "label mode: 0 name, 1 type and name, 2 type (hintTypeName)",
			},
			&cli.BoolFlag{
				Name:  "dollar",
				Usage: "prefix names with $ (showDollarSign)",
			},
			&cli.BoolFlag{
				Name:  "full-type",
				Usage: "keep namespaces in types (showFullType)",
			},
			&cli.BoolFlag{
				Name:  "collapse",
				Usage: "hide hints equal to the argument (collapseHintsWhenEqual)",
			},
			&cli.BoolFlag{
				Name:  "suppress-named",
				Usage: "hide hints for named arguments (suppressNamedArguments)",
			},
			&cli.IntFlag{
				Name:  "max-hints",
				Usage: "maximum hints per file (maxHints)",
			},
			&cli.StringFlag{
				Name:  "exclude",
				Usage: "expression selecting hints to drop, e.g. 'callee == \"printf\"' (hintExclude)",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "files processed concurrently",
			},
			verboseFlag(),
		},
		Action: runHints,
	}
}

// applyFlags layers explicitly set flags over settings.
func applyFlags(cmd *cli.Command, s *phphints.Settings) {
	if cmd.IsSet("literals") {
		s.HintOnlyLiterals = cmd.Bool("literals")
	}

	if cmd.IsSet("type-name") {
		s.HintTypeName = phphints.TypeMode(cmd.Int("type-name"))
	}

	if cmd.IsSet("dollar") {
		s.ShowDollarSign = cmd.Bool("dollar")
	}

	if cmd.IsSet("full-type") {
		s.ShowFullType = cmd.Bool("full-type")
	}

	if cmd.IsSet("collapse") {
		s.CollapseHintsWhenEqual = cmd.Bool("collapse")
	}

	if cmd.IsSet("suppress-named") {
		s.SuppressNamedArguments = cmd.Bool("suppress-named")
	}

	if cmd.IsSet("max-hints") {
		s.MaxHints = cmd.Int("max-hints")
	}

	if cmd.IsSet("exclude") {
		s.HintExclude = cmd.String("exclude")
	}
}

func runHints(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		args = []string{"."}
	}

	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return errNoPHPFiles
	}

	root, err := rootDir(args)
	if err != nil {
		return err
	}

	cfg, err := phphints.ResolveConfig(root)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	settings := cfg.Settings
	applyFlags(cmd, &settings)

	// The CLI always prints; enabled only matters to editors.
	settings.Enabled = true

	logger := newLogger(cmd.Bool("verbose"))
	defer func() { _ = logger.Sync() }()

	var source signature.Source = signature.NewBuiltins()

	if !cmd.Bool("no-index") {
		// An in-memory index: the listing needs declarations from the files
		// given, not a persisted workspace.
		ix, err := signature.OpenIndex("",
			signature.WithWorkers(cfg.Index.Workers),
			signature.WithIgnore(cfg.Index.Ignore...),
			signature.WithIndexLogger(logger),
		)
		if err != nil {
			return fmt.Errorf("opening index: %w", err)
		}

		defer func() { _ = ix.Close() }()

		stats, err := ix.Scan(ctx, root)
		if err != nil {
			return fmt.Errorf("indexing %s: %w", root, err)
		}

		logger.Debug("indexed", zap.String("root", root), zap.Int("declarations", stats.Declarations))

		source = signature.Chain(ix, source)
	}

	provider := hints.NewProvider(hints.WithSource(source), hints.WithLogger(logger))

	if err := provider.ValidateExclusion(settings.HintExclude); err != nil {
		return fmt.Errorf("hintExclude: %w", err)
	}

	out := cmd.Root().Writer

	var handler runner.Handler

	if cmd.Bool("json") {
		handler = runner.NewJSONFormatter(out)
	} else {
		text := runner.NewTextFormatter(out, styles(out, cmd.Bool("no-color")))
		text.Full = cmd.Bool("full")
		handler = text
	}

	r := runner.New(
		runner.WithProvider(provider),
		runner.WithSettings(settings),
		runner.WithHandler(handler),
		runner.WithWorkers(cmd.Int("workers")),
	)

	result, err := r.Run(ctx, files)
	if err != nil {
		return err
	}

	if !result.Ok() {
		return cli.Exit("", 1)
	}

	return nil
}

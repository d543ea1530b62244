package main

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	phphints "github.com/php-hints/phphints"
	"github.com/php-hints/phphints/runner"
)

var errNoPHPFiles = errors.New("no .php files found")

// skippedDirs are never descended into when collecting files.
var skippedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
}

func collectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			files = append(files, arg)

			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if d.IsDir() {
				if path != arg && skippedDirs[d.Name()] {
					return filepath.SkipDir
				}

				return nil
			}

			if strings.EqualFold(filepath.Ext(path), ".php") {
				files = append(files, path)
			}

			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return files, nil
}

// rootDir picks the directory configuration and the index are resolved
// against: the first directory argument, else the first file's directory,
// else the working directory.
func rootDir(args []string) (string, error) {
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return "", err
		}

		if info.IsDir() {
			return filepath.Abs(arg)
		}
	}

	if len(args) > 0 {
		return filepath.Abs(filepath.Dir(args[0]))
	}

	return os.Getwd()
}

// styles colors output only when w is a terminal.
func styles(w io.Writer, noColor bool) *runner.Styles {
	if noColor || !isTerminal(w) {
		return runner.PlainStyles()
	}

	return runner.DefaultStyles()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func newLogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}

	config := zap.NewDevelopmentConfig()
	config.OutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)

	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}

	return logger
}

// indexPath resolves the configured index location against root. The CLI
// persists the index by default so repeated runs skip unchanged files.
func indexPath(root string, cfg phphints.IndexConfig) string {
	path := cfg.Path
	if path == "" {
		path = phphints.DefaultIndexPath
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}

	return path
}

func verboseFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "log progress to stderr",
	}
}

// Package runner computes parameter hints for batches of PHP files outside an
// editor and renders them for terminals and tools.
package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	phphints "github.com/php-hints/phphints"
	"github.com/php-hints/phphints/hints"
	"github.com/php-hints/phphints/pipeline"
	"github.com/php-hints/phphints/resolver"
)

// ErrNoProvider is returned by Run when no provider was configured.
var ErrNoProvider = errors.New("runner: no hint provider")

// Runner computes hints for files.
type Runner struct {
	provider *hints.Provider
	settings phphints.Settings
	editor   pipeline.EditorState
	handler  Handler
	workers  int
}

// Option configures a Runner.
type Option func(*Runner)

// WithProvider sets the hint provider.
func WithProvider(p *hints.Provider) Option {
	return func(r *Runner) {
		r.provider = p
	}
}

// WithSettings sets the hint settings.
func WithSettings(s phphints.Settings) Option {
	return func(r *Runner) {
		r.settings = s
	}
}

// WithEditorState restricts hints the way an editor's selections and
// visible ranges would, for the hintOnlyLine and hintOnlyVisibleRanges
// settings.
func WithEditorState(e pipeline.EditorState) Option {
	return func(r *Runner) {
		r.editor = e
	}
}

// WithHandler sets the handler that receives each file's result.
func WithHandler(h Handler) Option {
	return func(r *Runner) {
		r.handler = h
	}
}

// WithWorkers bounds how many files are processed concurrently.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// New creates a Runner with the given options.
func New(opts ...Option) *Runner {
	r := &Runner{
		settings: phphints.DefaultSettings(),
		workers:  runtime.NumCPU(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run computes hints for every path. Files are processed concurrently and
// handed to the handler in the order given. A file that cannot be read is
// reported in its FileResult and does not stop the run.
func (r *Runner) Run(ctx context.Context, paths []string) (*Result, error) {
	if r.provider == nil {
		return nil, ErrNoProvider
	}

	files := make([]FileResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			data, err := os.ReadFile(filepath.Clean(path))
			if err != nil {
				files[i] = FileResult{Path: path, Err: err}

				return nil
			}

			files[i] = r.source(gctx, path, string(data))

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := NewResult()

	for _, f := range files {
		result.Add(f)

		if r.handler != nil {
			if err := r.handler.HandleFile(f); err != nil {
				return result, err
			}
		}
	}

	if r.handler != nil {
		if err := r.handler.Summary(result); err != nil {
			return result, err
		}
	}

	return result, nil
}

// RunSource computes hints for one in-memory document. name identifies the
// document; it does not have to exist on disk.
func (r *Runner) RunSource(ctx context.Context, name, text string) (FileResult, error) {
	if r.provider == nil {
		return FileResult{}, ErrNoProvider
	}

	f := r.source(ctx, name, text)

	return f, ctx.Err()
}

func (r *Runner) source(ctx context.Context, path, text string) FileResult {
	// Requests are keyed by path; distinct paths never supersede each other.
	found := r.provider.Provide(ctx, hints.Request{
		URI:      path,
		Text:     text,
		Editor:   r.editor,
		Settings: r.settings,
	})

	if found == nil {
		found = []resolver.Hint{}
	}

	r.provider.Forget(path)

	return FileResult{Path: path, Text: text, Hints: found}
}

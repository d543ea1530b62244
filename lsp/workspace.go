package lsp

import (
	"context"
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap"

	phphints "github.com/php-hints/phphints"
	"github.com/php-hints/phphints/signature"
)

// Workspace owns the signature index of the folder the client opened.
type Workspace struct {
	root  string
	index *signature.Index

	mu   sync.Mutex
	last signature.ScanStats
}

// OpenWorkspace opens the index described by cfg. A relative index path is
// taken relative to root; an empty one keeps the index in memory.
func OpenWorkspace(logger *zap.Logger, root string, cfg phphints.IndexConfig) (*Workspace, error) {
	path := cfg.Path
	if path != "" && !filepath.IsAbs(path) && root != "" {
		path = filepath.Join(root, path)
	}

	ix, err := signature.OpenIndex(path,
		signature.WithWorkers(cfg.Workers),
		signature.WithIgnore(cfg.Ignore...),
		signature.WithIndexLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	return &Workspace{root: root, index: ix}, nil
}

// Root returns the workspace root directory.
func (w *Workspace) Root() string {
	return w.root
}

// Source returns the index as a signature source.
func (w *Workspace) Source() signature.Source {
	return w.index
}

// Scan indexes the whole workspace.
func (w *Workspace) Scan(ctx context.Context) (signature.ScanStats, error) {
	if w.root == "" {
		return signature.ScanStats{}, nil
	}

	stats, err := w.index.Scan(ctx, w.root)
	if err != nil {
		return stats, err
	}

	w.mu.Lock()
	w.last = stats
	w.mu.Unlock()

	return stats, nil
}

// LastScan returns the stats of the most recent successful Scan.
func (w *Workspace) LastScan() signature.ScanStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.last
}

// Update re-indexes one saved document. Documents outside the root or that
// are not PHP files are ignored; the returned bool reports whether the index
// changed.
func (w *Workspace) Update(ctx context.Context, u protocol.DocumentURI, content string) (bool, error) {
	path := URIToPath(u)
	if !w.contains(path) || !isPHPPath(path) {
		return false, nil
	}

	if err := w.index.Update(ctx, path, []byte(content)); err != nil {
		return false, err
	}

	return true, nil
}

// Reload re-reads a file changed on disk. A file that no longer exists is
// dropped from the index.
func (w *Workspace) Reload(ctx context.Context, u protocol.DocumentURI) (bool, error) {
	path := URIToPath(u)
	if !w.contains(path) || !isPHPPath(path) {
		return false, nil
	}

	content, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, fs.ErrNotExist) {
		return true, w.index.Remove(ctx, path)
	}

	if err != nil {
		return false, err
	}

	return true, w.index.Update(ctx, path, content)
}

// Close closes the index.
func (w *Workspace) Close() error {
	return w.index.Close()
}

func (w *Workspace) contains(path string) bool {
	if w.root == "" || path == "" {
		return false
	}

	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// URIToPath converts a document URI to a file system path. Non-file URIs
// yield an empty path.
func URIToPath(u protocol.DocumentURI) string {
	parsed, err := url.ParseRequestURI(string(u))
	if err != nil || parsed.Scheme != uri.FileScheme {
		return ""
	}

	return u.Filename()
}

// PathToURI converts a file system path to a document URI.
func PathToURI(path string) protocol.DocumentURI {
	return uri.File(path)
}

func isPHPPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".php")
}

package signature

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"

	_ "github.com/mattn/go-sqlite3"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	phphints "github.com/php-hints/phphints"
)

const schema = `
CREATE TABLE IF NOT EXISTS files (
	path TEXT PRIMARY KEY,
	hash TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS declarations (
	path   TEXT NOT NULL REFERENCES files(path) ON DELETE CASCADE,
	name   TEXT NOT NULL COLLATE NOCASE,
	class  TEXT NOT NULL DEFAULT '' COLLATE NOCASE,
	params TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_declarations_name ON declarations(name);
`

// ignoredDirs are never descended into by Scan.
var ignoredDirs = map[string]bool{
	".git": true, ".hg": true, ".svn": true, ".idea": true, ".vscode": true,
	"node_modules": true, ".cache": true,
}

// Index is a workspace signature index persisted in SQLite.
type Index struct {
	db       *sql.DB
	path     string
	workers  int
	ignore   []string
	logger   *zap.Logger
	progress func(done, total int)
}

// IndexOption configures an Index.
type IndexOption func(*Index)

// WithWorkers bounds how many files Scan parses concurrently.
func WithWorkers(n int) IndexOption {
	return func(ix *Index) {
		if n > 0 {
			ix.workers = n
		}
	}
}

// WithIgnore adds directory name or relative path patterns Scan skips.
func WithIgnore(patterns ...string) IndexOption {
	return func(ix *Index) {
		ix.ignore = append(ix.ignore, patterns...)
	}
}

// WithIndexLogger sets the logger.
func WithIndexLogger(logger *zap.Logger) IndexOption {
	return func(ix *Index) {
		if logger != nil {
			ix.logger = logger
		}
	}
}

// WithProgress sets a function Scan calls once discovery is done and after
// each file is read. It is called from worker goroutines.
func WithProgress(fn func(done, total int)) IndexOption {
	return func(ix *Index) {
		ix.progress = fn
	}
}

// OpenIndex opens or creates the index database at path. An empty path opens
// a private in-memory database.
func OpenIndex(path string, opts ...IndexOption) (*Index, error) {
	ix := &Index{
		path:    path,
		workers: runtime.NumCPU(),
		logger:  zap.NewNop(),
	}

	for _, opt := range opts {
		opt(ix)
	}

	dsn := "file::memory:?_foreign_keys=on"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create index dir: %w", err)
		}

		dsn = "file:" + path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	if path == "" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("init index schema: %w", err)
	}

	ix.db = db

	return ix, nil
}

// Close closes the database.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// ScanStats summarizes a Scan.
type ScanStats struct {
	Files        int `json:"files"`
	Parsed       int `json:"parsed"`
	Unchanged    int `json:"unchanged"`
	Removed      int `json:"removed"`
	Declarations int `json:"declarations"`
}

type scanned struct {
	path  string
	hash  string
	decls []phphints.Declaration
	skip  bool
}

// Scan indexes every .php file under root. Files whose content hash matches
// the stored one are not parsed again, and files that disappeared are
// dropped.
func (ix *Index) Scan(ctx context.Context, root string) (ScanStats, error) {
	var stats ScanStats

	files, err := ix.discover(ctx, root)
	if err != nil {
		return stats, err
	}

	known, err := ix.hashes(ctx)
	if err != nil {
		return stats, err
	}

	results := make([]scanned, len(files))

	var done atomic.Int64

	report := func() {
		if ix.progress != nil {
			ix.progress(int(done.Add(1)), len(files))
		}
	}

	if ix.progress != nil {
		ix.progress(0, len(files))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.workers)

	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			defer report()

			content, err := os.ReadFile(path)
			if err != nil {
				ix.logger.Debug("skipping unreadable file", zap.String("path", path), zap.Error(err))
				results[i] = scanned{path: path, skip: true}

				return nil
			}

			hash := fileHash(content)
			if known[path] == hash {
				results[i] = scanned{path: path, hash: hash, skip: true}

				return nil
			}

			results[i] = scanned{path: path, hash: hash, decls: phphints.ParseDeclarations(content)}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return stats, err
	}

	stats.Files = len(files)

	err = ix.withTx(ctx, func(tx *sql.Tx) error {
		seen := make(map[string]bool, len(results))

		for _, r := range results {
			seen[r.path] = true

			if r.skip {
				if r.hash != "" {
					stats.Unchanged++
				}

				continue
			}

			if err := writeFile(ctx, tx, r.path, r.hash, r.decls); err != nil {
				return err
			}

			stats.Parsed++
			stats.Declarations += len(r.decls)
		}

		for path := range known {
			if seen[path] {
				continue
			}

			if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path); err != nil {
				return fmt.Errorf("remove %s: %w", path, err)
			}

			stats.Removed++
		}

		return nil
	})
	if err != nil {
		return stats, err
	}

	ix.logger.Info("workspace indexed",
		zap.String("root", root),
		zap.Int("files", stats.Files),
		zap.Int("parsed", stats.Parsed),
		zap.Int("removed", stats.Removed),
	)

	return stats, nil
}

// Update re-indexes a single file from its current content.
func (ix *Index) Update(ctx context.Context, path string, content []byte) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	decls := phphints.ParseDeclarations(content)

	return ix.withTx(ctx, func(tx *sql.Tx) error {
		return writeFile(ctx, tx, path, fileHash(content), decls)
	})
}

// Remove drops a file from the index.
func (ix *Index) Remove(ctx context.Context, path string) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	_, err = ix.db.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}

	return nil
}

// Count returns the number of indexed files and declarations.
func (ix *Index) Count(ctx context.Context) (files, decls int, err error) {
	err = ix.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM files), (SELECT COUNT(*) FROM declarations)`,
	).Scan(&files, &decls)
	if err != nil {
		return 0, 0, fmt.Errorf("count index: %w", err)
	}

	return files, decls, nil
}

// Lookup implements Source.
func (ix *Index) Lookup(ctx context.Context, g phphints.CallGroup) (*Signature, error) {
	query := `SELECT name, class, params FROM declarations WHERE name = ?`
	args := []any{g.Name}

	if g.Kind == phphints.CallNew {
		query = `SELECT name, class, params FROM declarations WHERE name = '__construct' AND class = ?`
	}

	rows, err := ix.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	defer rows.Close()

	var decls []phphints.Declaration

	for rows.Next() {
		var (
			d      phphints.Declaration
			params string
		)

		if err := rows.Scan(&d.Name, &d.Class, &params); err != nil {
			return nil, fmt.Errorf("scan declaration: %w", err)
		}

		if err := json.Unmarshal([]byte(params), &d.Params); err != nil {
			return nil, fmt.Errorf("decode params of %s: %w", d.Name, err)
		}

		decls = append(decls, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return match(decls, g)
}

func (ix *Index) discover(ctx context.Context, root string) ([]string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var files []string

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if walkErr != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		rel, _ := filepath.Rel(root, path)

		if d.IsDir() {
			if path != root && ix.skipDir(d.Name(), filepath.ToSlash(rel)) {
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
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	return files, nil
}

func (ix *Index) skipDir(name, rel string) bool {
	if ignoredDirs[name] {
		return true
	}

	for _, pattern := range ix.ignore {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}

		if matched, _ := filepath.Match(pattern, rel); matched {
			return true
		}
	}

	return false
}

func (ix *Index) hashes(ctx context.Context) (map[string]string, error) {
	rows, err := ix.db.QueryContext(ctx, `SELECT path, hash FROM files`)
	if err != nil {
		return nil, fmt.Errorf("load file hashes: %w", err)
	}
	defer rows.Close()

	known := make(map[string]string)

	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, fmt.Errorf("scan file hash: %w", err)
		}

		known[path] = hash
	}

	return known, rows.Err()
}

func (ix *Index) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}

	return tx.Commit()
}

func writeFile(ctx context.Context, tx *sql.Tx, path, hash string, decls []phphints.Declaration) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path); err != nil {
		return fmt.Errorf("clear %s: %w", path, err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO files (path, hash) VALUES (?, ?)`, path, hash); err != nil {
		return fmt.Errorf("insert %s: %w", path, err)
	}

	for _, d := range decls {
		params, err := json.Marshal(d.Params)
		if err != nil {
			return fmt.Errorf("encode params of %s: %w", d.Name, err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO declarations (path, name, class, params) VALUES (?, ?, ?, ?)`,
			path, d.Name, d.Class, string(params),
		)
		if err != nil {
			return fmt.Errorf("insert declaration %s: %w", d.Name, err)
		}
	}

	return nil
}

func fileHash(content []byte) string {
	return strconv.FormatUint(xxh3.Hash(content), 16)
}

// Package lsp implements a Language Server Protocol server that shows PHP
// parameter names as inlay hints.
package lsp

import (
	"context"
	"sync"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	phphints "github.com/php-hints/phphints"
	"github.com/php-hints/phphints/cache"
	"github.com/php-hints/phphints/hints"
	"github.com/php-hints/phphints/signature"
)

// Version is reported in ServerInfo.
const Version = "0.1.0"

var _ protocol.Server = (*Server)(nil)

// Server implements the LSP Server interface for PHP parameter hints.
type Server struct {
	client protocol.Client
	logger *zap.Logger

	// conn sends requests protocol.Client has no method for.
	conn jsonrpc2.Conn

	// Document state
	mu        sync.RWMutex
	documents map[protocol.DocumentURI]*Document

	config      *phphints.Config
	fixedConfig bool
	settings    phphints.Settings

	cache     *cache.Cache
	provider  *hints.Provider
	workspace *Workspace

	// ctx lives until Shutdown and bounds background work.
	ctx    context.Context
	cancel context.CancelFunc

	// Server state
	initialized   bool
	shutdown      bool
	workspaceRoot string
}

// Document represents an open document in the server.
type Document struct {
	URI        protocol.DocumentURI
	LanguageID string
	Version    int32
	Content    string

	// Selections and VisibleRanges come from phpParameterHint/editorState.
	Selections    []protocol.Range
	VisibleRanges []protocol.Range
}

// Option configures a Server.
type Option func(*Server)

// WithConn sets the connection used for server-to-client requests such as
// workspace/inlayHint/refresh.
func WithConn(conn jsonrpc2.Conn) Option {
	return func(s *Server) {
		s.conn = conn
	}
}

// WithConfig uses cfg instead of looking for .php-hints.yaml in the
// workspace.
func WithConfig(cfg *phphints.Config) Option {
	return func(s *Server) {
		if cfg != nil {
			s.config = cfg
			s.fixedConfig = true
		}
	}
}

// NewServer creates a new LSP server.
func NewServer(client protocol.Client, logger *zap.Logger, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		client:    client,
		logger:    logger,
		documents: make(map[protocol.DocumentURI]*Document),
		config:    phphints.DefaultConfig(),
		ctx:       ctx,
		cancel:    cancel,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.settings = s.config.Settings
	s.setup(nil)

	return s
}

// setup builds the cache and provider from the current config.
func (s *Server) setup(source signature.Source) {
	s.cache = cache.New(
		cache.WithTTL(s.config.Cache.TTL),
		cache.WithCheckInterval(s.config.Cache.CheckInterval),
		cache.WithCapacity(s.config.Cache.Capacity),
		cache.WithLogger(s.logger),
	)

	builtins := signature.NewBuiltins()
	if source != nil {
		source = signature.Chain(source, builtins)
	} else {
		source = builtins
	}

	s.provider = hints.NewProvider(
		hints.WithCache(s.cache),
		hints.WithSource(source),
		hints.WithLogger(s.logger),
	)
}

// Initialize handles the initialize request.
func (s *Server) Initialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	s.logger.Info("Initialize", zap.Any("params", params))

	root := workspaceRoot(params)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.workspaceRoot = root

	if !s.fixedConfig && root != "" {
		cfg, err := phphints.ResolveConfig(root)
		if err != nil {
			s.logger.Warn("Failed to load config, using defaults", zap.String("root", root), zap.Error(err))
		} else {
			s.config = cfg
		}
	}

	settings, err := decodeSettings(params.InitializationOptions, s.config.Settings)
	if err != nil {
		s.logger.Warn("Ignoring invalid initializationOptions", zap.Error(err))
	}

	s.settings = settings

	var source signature.Source

	if root != "" {
		s.logger.Info("Workspace root", zap.String("root", root))

		ws, err := OpenWorkspace(s.logger, root, s.config.Index)
		if err != nil {
			s.logger.Error("Failed to open workspace index", zap.Error(err))
		} else {
			s.workspace = ws
			source = ws.Source()
		}
	}

	s.setup(source)
	s.checkExclusion(ctx, s.provider, s.settings.HintExclude)

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			// Full document sync - client sends entire content on change
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
				Save:      &protocol.SaveOptions{IncludeText: true},
			},
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    "php-hints-lsp",
			Version: Version,
		},
	}, nil
}

// Initialized handles the initialized notification.
func (s *Server) Initialized(_ context.Context, _ *protocol.InitializedParams) error {
	s.logger.Info("Initialized")

	s.mu.Lock()
	s.initialized = true
	ws := s.workspace
	c := s.cache
	s.mu.Unlock()

	go c.Run(s.ctx)

	if ws != nil {
		go s.indexWorkspace(ws)
	}

	return nil
}

// indexWorkspace scans the workspace and asks the client to refresh once the
// new signatures are available.
func (s *Server) indexWorkspace(ws *Workspace) {
	stats, err := ws.Scan(s.ctx)
	if err != nil {
		if s.ctx.Err() == nil {
			s.logger.Error("Workspace indexing failed", zap.Error(err))
		}

		return
	}

	if stats.Parsed == 0 && stats.Removed == 0 {
		return
	}

	s.currentProvider().Refresh()
	s.refreshInlayHints(s.ctx)
}

// Shutdown handles the shutdown request.
func (s *Server) Shutdown(_ context.Context) error {
	s.logger.Info("Shutdown")

	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.shutdown = true
	s.provider.Tracker().CancelAll()

	if s.workspace != nil {
		if err := s.workspace.Close(); err != nil {
			s.logger.Warn("Failed to close workspace index", zap.Error(err))
		}

		s.workspace = nil
	}

	return nil
}

// Exit handles the exit notification.
func (s *Server) Exit(_ context.Context) error {
	s.logger.Info("Exit")
	// The main loop should handle exiting after this
	return nil
}

// DidOpen handles textDocument/didOpen notifications.
func (s *Server) DidOpen(_ context.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.logger.Info("DidOpen",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.String("language", string(params.TextDocument.LanguageID)))

	s.mu.Lock()
	defer s.mu.Unlock()

	s.documents[params.TextDocument.URI] = &Document{
		URI:        params.TextDocument.URI,
		LanguageID: string(params.TextDocument.LanguageID),
		Version:    params.TextDocument.Version,
		Content:    params.TextDocument.Text,
	}

	return nil
}

// DidChange handles textDocument/didChange notifications.
func (s *Server) DidChange(_ context.Context, params *protocol.DidChangeTextDocumentParams) error {
	s.logger.Debug("DidChange",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Int32("version", params.TextDocument.Version))

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[params.TextDocument.URI]
	if !ok {
		s.logger.Warn("DidChange for unknown document", zap.String("uri", string(params.TextDocument.URI)))

		return nil
	}

	// Full sync - take the last content change (should only be one with full sync)
	if len(params.ContentChanges) > 0 {
		doc.Content = params.ContentChanges[len(params.ContentChanges)-1].Text
		doc.Version = params.TextDocument.Version

		// Hints computed for the old text are useless now.
		s.provider.Tracker().Cancel(string(doc.URI))
	}

	return nil
}

// DidClose handles textDocument/didClose notifications.
func (s *Server) DidClose(_ context.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.logger.Info("DidClose", zap.String("uri", string(params.TextDocument.URI)))

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.documents, params.TextDocument.URI)
	s.provider.Forget(string(params.TextDocument.URI))

	return nil
}

// DidSave handles textDocument/didSave notifications.
func (s *Server) DidSave(ctx context.Context, params *protocol.DidSaveTextDocumentParams) error {
	s.logger.Info("DidSave", zap.String("uri", string(params.TextDocument.URI)))

	s.mu.RLock()
	ws := s.workspace
	text := params.Text

	if doc, ok := s.documents[params.TextDocument.URI]; ok && text == "" {
		text = doc.Content
	}
	s.mu.RUnlock()

	if ws == nil {
		return nil
	}

	changed, err := ws.Update(ctx, params.TextDocument.URI, text)
	if err != nil {
		s.logger.Warn("Failed to index saved document", zap.String("uri", string(params.TextDocument.URI)), zap.Error(err))

		return nil
	}

	if changed {
		s.currentProvider().Refresh()
		s.refreshInlayHints(ctx)
	}

	return nil
}

// DidChangeWatchedFiles handles workspace/didChangeWatchedFiles by
// re-indexing the PHP files that changed on disk.
func (s *Server) DidChangeWatchedFiles(ctx context.Context, params *protocol.DidChangeWatchedFilesParams) error {
	s.mu.RLock()
	ws := s.workspace
	s.mu.RUnlock()

	if ws == nil {
		return nil
	}

	changed := false

	for _, event := range params.Changes {
		ok, err := ws.Reload(ctx, event.URI)
		if err != nil {
			s.logger.Warn("Failed to re-index file", zap.String("uri", string(event.URI)), zap.Error(err))

			continue
		}

		changed = changed || ok
	}

	if changed {
		s.currentProvider().Refresh()
		s.refreshInlayHints(ctx)
	}

	return nil
}

// snapshot is a consistent copy of what a hint request needs.
type snapshot struct {
	doc      Document
	settings phphints.Settings
	provider *hints.Provider
}

// snapshot copies a document and the current settings (read-locked).
func (s *Server) snapshot(uri protocol.DocumentURI) (snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[uri]
	if !ok {
		return snapshot{}, false
	}

	return snapshot{doc: *doc, settings: s.settings, provider: s.provider}, true
}

func (s *Server) currentProvider() *hints.Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.provider
}

// Settings returns the settings in effect.
func (s *Server) Settings() phphints.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.settings
}

// workspaceRoot picks the root directory from the initialize params, most
// specific field first.
func workspaceRoot(params *protocol.InitializeParams) string {
	if params.RootURI != "" {
		return URIToPath(params.RootURI)
	}

	if params.RootPath != "" {
		return params.RootPath
	}

	for _, folder := range params.WorkspaceFolders {
		if path := URIToPath(protocol.DocumentURI(folder.URI)); path != "" {
			return path
		}
	}

	return ""
}

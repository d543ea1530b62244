package hints

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	phphints "github.com/php-hints/phphints"
	"github.com/php-hints/phphints/cache"
	"github.com/php-hints/phphints/pipeline"
	"github.com/php-hints/phphints/resolver"
	"github.com/php-hints/phphints/signature"
)

const documentSources = 64

// Request asks for the hints of one document version.
type Request struct {
	URI      string
	Text     string
	Editor   pipeline.EditorState
	Settings phphints.Settings
}

// Provider turns documents into hints: cached parse, filter pipeline, then
// label resolution against the document itself and a shared source.
type Provider struct {
	groups   *Groups
	pipeline *pipeline.Pipeline
	source   signature.Source
	tracker  *Tracker
	logger   *zap.Logger

	docs *lru.Cache[string, documentSource]

	mu         sync.Mutex
	exclusions map[string]*pipeline.Exclusion
}

type documentSource struct {
	fingerprint uint64
	doc         *signature.Document
}

// Option configures a Provider.
type Option func(*Provider)

// WithCache sets the call group cache.
func WithCache(c *cache.Cache) Option {
	return func(p *Provider) {
		if c != nil {
			p.groups = NewGroups(c)
		}
	}
}

// WithSource sets the signature source consulted after the document's own
// declarations.
func WithSource(s signature.Source) Option {
	return func(p *Provider) {
		p.source = s
	}
}

// WithPipeline replaces the default filter pipeline.
func WithPipeline(pl *pipeline.Pipeline) Option {
	return func(p *Provider) {
		if pl != nil {
			p.pipeline = pl
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProvider creates a Provider. Without WithSource only builtins and the
// document's own declarations are known.
func NewProvider(opts ...Option) *Provider {
	docs, _ := lru.New[string, documentSource](documentSources)

	p := &Provider{
		pipeline:   pipeline.Default(),
		source:     signature.NewBuiltins(),
		tracker:    NewTracker(),
		logger:     zap.NewNop(),
		docs:       docs,
		exclusions: make(map[string]*pipeline.Exclusion),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.groups == nil {
		p.groups = NewGroups(cache.New(cache.WithLogger(p.logger)))
	}

	return p
}

// Tracker returns the request tracker.
func (p *Provider) Tracker() *Tracker {
	return p.tracker
}

// Provide returns the hints for req. It returns nil when hints are disabled
// and when the request is cancelled or superseded by a newer request for the
// same document, never a partial list.
func (p *Provider) Provide(ctx context.Context, req Request) []resolver.Hint {
	if !req.Settings.Enabled {
		return nil
	}

	tk := p.tracker.Begin(ctx, req.URI)
	defer tk.Done()

	if !tk.Current() {
		return nil
	}

	groups := p.groups.Get(req.URI, req.Text)
	if len(groups) == 0 {
		return nil
	}

	groups = p.pipeline.Process(groups, pipeline.Context{
		Flags: pipeline.Flags{
			OnlyLiterals:      req.Settings.HintOnlyLiterals,
			OnlySelection:     req.Settings.HintOnlyLine,
			OnlyVisibleRanges: req.Settings.HintOnlyVisibleRanges,
		},
		Editor:  req.Editor,
		Exclude: p.exclusion(req.Settings.HintExclude),
	})

	if !tk.Current() || len(groups) == 0 {
		return nil
	}

	session := signature.NewSession(signature.Chain(p.document(req.URI, req.Text), p.source))

	opts := resolver.FromSettings(req.Settings)
	opts.OnSkip = func(g phphints.CallGroup, err error) {
		p.logger.Debug("no signature", zap.String("uri", req.URI), zap.String("callee", g.Callee()), zap.Error(err))
	}

	hints := resolver.ResolveAll(tk.Context(), session, groups, opts)

	if !tk.Current() {
		p.logger.Debug("hint request superseded", zap.String("uri", req.URI), zap.Uint64("generation", tk.Generation()))

		return nil
	}

	return hints
}

// Refresh cancels every request in flight and forgets document signatures.
func (p *Provider) Refresh() {
	p.tracker.CancelAll()
	p.docs.Purge()
}

// Forget drops everything held for a closed document.
func (p *Provider) Forget(uri string) {
	p.tracker.Cancel(uri)
	p.groups.Forget(uri)
	p.docs.Remove(uri)
}

// ValidateExclusion compiles source, reporting errors that Provide would
// otherwise only log.
func (p *Provider) ValidateExclusion(source string) error {
	_, err := pipeline.CompileExclusion(source)

	return err
}

func (p *Provider) document(uri, text string) *signature.Document {
	fp := cache.Fingerprint(text)

	if d, ok := p.docs.Get(uri); ok && d.fingerprint == fp {
		return d.doc
	}

	doc := signature.NewDocument([]byte(text))
	p.docs.Add(uri, documentSource{fingerprint: fp, doc: doc})

	return doc
}

func (p *Provider) exclusion(source string) *pipeline.Exclusion {
	if source == "" {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if ex, ok := p.exclusions[source]; ok {
		return ex
	}

	ex, err := pipeline.CompileExclusion(source)
	if err != nil {
		p.logger.Warn("ignoring invalid hintExclude", zap.Error(err))
	}

	p.exclusions[source] = ex

	return ex
}

package lsp

import (
	"context"
	"path/filepath"
	"strings"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/php-hints/phphints/hints"
	"github.com/php-hints/phphints/pipeline"
)

// go.lsp.dev/protocol v0.12.0 predates LSP 3.17, so the inlay hint wire
// types live here and are dispatched by Server.Handler.

const (
	// MethodInlayHint is the textDocument/inlayHint request.
	MethodInlayHint = "textDocument/inlayHint"
	// MethodInlayHintRefresh asks the client to request hints again.
	MethodInlayHintRefresh = "workspace/inlayHint/refresh"
	// MethodEditorState carries the selections and visible ranges of an
	// editor showing a document.
	MethodEditorState = "phpParameterHint/editorState"
)

// InlayHintKind distinguishes type hints from parameter hints.
type InlayHintKind uint32

const (
	InlayHintKindType      InlayHintKind = 1
	InlayHintKindParameter InlayHintKind = 2
)

// InlayHintParams are the parameters of textDocument/inlayHint.
type InlayHintParams struct {
	TextDocument protocol.TextDocumentIdentifier `json:"textDocument"`
	Range        protocol.Range                  `json:"range"`
}

// InlayHint is one hint shown by the client.
type InlayHint struct {
	Position     protocol.Position `json:"position"`
	Label        string            `json:"label"`
	Kind         InlayHintKind     `json:"kind,omitempty"`
	Tooltip      string            `json:"tooltip,omitempty"`
	PaddingLeft  bool              `json:"paddingLeft,omitempty"`
	PaddingRight bool              `json:"paddingRight,omitempty"`
}

// InlayHintOptions is the inlayHintProvider capability.
type InlayHintOptions struct {
	ResolveProvider bool `json:"resolveProvider"`
}

// EditorStateParams are the parameters of phpParameterHint/editorState.
type EditorStateParams struct {
	TextDocument  protocol.TextDocumentIdentifier `json:"textDocument"`
	Selections    []protocol.Range                `json:"selections"`
	VisibleRanges []protocol.Range                `json:"visibleRanges"`
}

// InlayHint handles textDocument/inlayHint.
func (s *Server) InlayHint(ctx context.Context, params *InlayHintParams) ([]InlayHint, error) {
	snap, ok := s.snapshot(params.TextDocument.URI)

	// Later messages may run from here on; the snapshot is all we need.
	release(ctx)

	if !ok || !snap.doc.php() {
		return []InlayHint{}, nil
	}

	requested := fromProtocolRange(params.Range)
	editor := pipeline.EditorState{
		Selections:    fromProtocolRanges(snap.doc.Selections),
		VisibleRanges: append(fromProtocolRanges(snap.doc.VisibleRanges), requested),
		Requested:     &requested,
	}

	found := snap.provider.Provide(ctx, hints.Request{
		URI:      string(snap.doc.URI),
		Text:     snap.doc.Content,
		Editor:   editor,
		Settings: snap.settings,
	})

	out := make([]InlayHint, 0, len(found))
	for _, h := range found {
		out = append(out, InlayHint{
			Position:     toProtocolPosition(h.Position),
			Label:        h.Label,
			Kind:         InlayHintKindParameter,
			Tooltip:      h.Callee,
			PaddingRight: true,
		})
	}

	s.logger.Debug("InlayHint",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Int32("version", snap.doc.Version),
		zap.Int("hints", len(out)))

	return out, nil
}

// EditorState handles phpParameterHint/editorState.
func (s *Server) EditorState(ctx context.Context, params *EditorStateParams) error {
	s.mu.Lock()

	doc, ok := s.documents[params.TextDocument.URI]
	if ok {
		doc.Selections = params.Selections
		doc.VisibleRanges = params.VisibleRanges
	}

	onlyLine := s.settings.HintOnlyLine

	s.mu.Unlock()

	if ok && onlyLine {
		s.refreshInlayHints(ctx)
	}

	return nil
}

// refreshInlayHints asks the client to request hints again. Clients without
// refresh support answer with an error, which is only logged.
func (s *Server) refreshInlayHints(ctx context.Context) {
	if s.conn == nil {
		return
	}

	if _, err := s.conn.Call(ctx, MethodInlayHintRefresh, nil, nil); err != nil {
		s.logger.Debug("inlay hint refresh failed", zap.Error(err))
	}
}

func (d *Document) php() bool {
	return d.LanguageID == "php" || strings.EqualFold(filepath.Ext(string(d.URI)), ".php")
}

package lsp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	phphints "github.com/php-hints/phphints"
)

type nopClient struct{ protocol.Client }

func (nopClient) ShowMessage(context.Context, *protocol.ShowMessageParams) error { return nil }

// call sends one request through h and returns what it replied.
func call(t *testing.T, h jsonrpc2.Handler, method string, params any) (any, error) {
	t.Helper()

	req, err := jsonrpc2.NewCall(jsonrpc2.NewNumberID(1), method, params)
	require.NoError(t, err)

	var (
		result   any
		replyErr error
	)

	err = h(context.Background(), func(_ context.Context, r any, e error) error {
		result, replyErr = r, e

		return nil
	}, req)
	require.NoError(t, err)

	return result, replyErr
}

func TestHandler_Initialize(t *testing.T) {
	t.Parallel()

	s := NewServer(nopClient{}, zap.NewNop())
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	result, err := call(t, s.Handler(), protocol.MethodInitialize, &protocol.InitializeParams{})
	require.NoError(t, err)

	raw, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded struct {
		Capabilities struct {
			InlayHintProvider *InlayHintOptions `json:"inlayHintProvider"`
			TextDocumentSync  map[string]any    `json:"textDocumentSync"`
		} `json:"capabilities"`
		ServerInfo protocol.ServerInfo `json:"serverInfo"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.NotNil(t, decoded.Capabilities.InlayHintProvider)
	assert.Equal(t, true, decoded.Capabilities.TextDocumentSync["openClose"])
	assert.Equal(t, "php-hints-lsp", decoded.ServerInfo.Name)
}

func TestHandler_InlayHint(t *testing.T) {
	t.Parallel()

	s := NewServer(nopClient{}, zap.NewNop())
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	h := s.Handler()

	_, err := call(t, h, protocol.MethodTextDocumentDidOpen, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        "file:///a.php",
			LanguageID: "php",
			Text:       "<?php\nfunction f($x) {}\nf(1);\n",
		},
	})
	require.NoError(t, err)

	result, err := call(t, h, MethodInlayHint, &InlayHintParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: "file:///a.php"},
		Range:        protocol.Range{End: protocol.Position{Line: 10}},
	})
	require.NoError(t, err)

	got, ok := result.([]InlayHint)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "x:", got[0].Label)
	assert.Equal(t, protocol.Position{Line: 2, Character: 2}, got[0].Position)

	_, err = call(t, h, MethodEditorState, &EditorStateParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: "file:///a.php"},
		Selections:   []protocol.Range{{}},
	})
	require.NoError(t, err)

	doc, ok := s.snapshot("file:///a.php")
	require.True(t, ok)
	assert.Len(t, doc.doc.Selections, 1)
}

func TestHandler_Errors(t *testing.T) {
	t.Parallel()

	s := NewServer(nopClient{}, zap.NewNop())
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	_, err := call(t, s.Handler(), "php/unknown", map[string]any{})
	assert.True(t, errors.Is(err, jsonrpc2.ErrMethodNotFound), "got %v", err)

	_, err = call(t, s.Handler(), MethodInlayHint, []int{1, 2})
	assert.ErrorContains(t, err, "parse error")
}

func TestAsyncHandler_Order(t *testing.T) {
	t.Parallel()

	var (
		first   = make(chan struct{})
		started = make(chan string, 2)
	)

	h := asyncHandler(func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		started <- req.Method()

		if req.Method() == "first" {
			<-first
		}

		return reply(ctx, nil, nil)
	})

	nop := func(context.Context, any, error) error { return nil }

	for _, m := range []string{"first", "second"} {
		req, err := jsonrpc2.NewNotification(m, nil)
		require.NoError(t, err)
		require.NoError(t, h(context.Background(), nop, req))
	}

	assert.Equal(t, "first", <-started)

	select {
	case m := <-started:
		t.Fatalf("%s started before first replied", m)
	case <-time.After(50 * time.Millisecond):
	}

	close(first)
	assert.Equal(t, "second", <-started)
}

func TestAsyncHandler_Release(t *testing.T) {
	t.Parallel()

	var (
		first   = make(chan struct{})
		started = make(chan string, 2)
	)

	h := asyncHandler(func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		started <- req.Method()

		if req.Method() == "first" {
			release(ctx)
			release(ctx)
			<-first
		}

		return reply(ctx, nil, nil)
	})

	nop := func(context.Context, any, error) error { return nil }

	for _, m := range []string{"first", "second"} {
		req, err := jsonrpc2.NewNotification(m, nil)
		require.NoError(t, err)
		require.NoError(t, h(context.Background(), nop, req))
	}

	assert.Equal(t, "first", <-started)

	select {
	case m := <-started:
		assert.Equal(t, "second", m)
	case <-time.After(5 * time.Second):
		t.Fatal("second did not start after release")
	}

	close(first)
}

func TestDecodeSettings(t *testing.T) {
	t.Parallel()

	base := phphints.DefaultSettings()

	tests := []struct {
		name    string
		payload any
		want    func(s *phphints.Settings)
		wantErr bool
	}{
		{name: "nil keeps base", payload: nil, want: func(*phphints.Settings) {}},
		{
			name:    "section",
			payload: map[string]any{"phpParameterHint": map[string]any{"hintOnlyLiterals": true, "hintTypeName": 1}},
			want: func(s *phphints.Settings) {
				s.HintOnlyLiterals = true
				s.HintTypeName = phphints.TypeModeTypeAndName
			},
		},
		{
			name:    "flat",
			payload: map[string]any{"collapseHintsWhenEqual": true, "other": "ignored"},
			want:    func(s *phphints.Settings) { s.CollapseHintsWhenEqual = true },
		},
		{name: "not an object", payload: []string{"x"}, want: func(*phphints.Settings) {}, wantErr: true},
		{
			name:    "wrong type",
			payload: map[string]any{"maxHints": "lots"},
			want:    func(*phphints.Settings) {},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := decodeSettings(tt.payload, base)

			want := base
			tt.want(&want)

			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, want, got)
		})
	}
}

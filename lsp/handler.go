package lsp

import (
	"context"
	"fmt"
	"sync"

	"github.com/segmentio/encoding/json"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

// serverCapabilities adds the LSP 3.17 inlayHintProvider capability.
type serverCapabilities struct {
	protocol.ServerCapabilities

	InlayHintProvider *InlayHintOptions `json:"inlayHintProvider,omitempty"`
}

type initializeResult struct {
	Capabilities serverCapabilities   `json:"capabilities"`
	ServerInfo   *protocol.ServerInfo `json:"serverInfo,omitempty"`
}

// Handler returns the jsonrpc2 handler for s. It answers the methods
// protocol.ServerHandler does not know about and hands the rest to it.
func (s *Server) Handler() jsonrpc2.Handler {
	base := protocol.ServerHandler(s, nil)

	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		switch req.Method() {
		case protocol.MethodInitialize:
			var params protocol.InitializeParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return replyParseError(ctx, reply, err)
			}

			result, err := s.Initialize(ctx, &params)
			if err != nil {
				return reply(ctx, nil, err)
			}

			return reply(ctx, &initializeResult{
				Capabilities: serverCapabilities{
					ServerCapabilities: result.Capabilities,
					InlayHintProvider:  &InlayHintOptions{},
				},
				ServerInfo: result.ServerInfo,
			}, nil)

		case MethodInlayHint:
			var params InlayHintParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return replyParseError(ctx, reply, err)
			}

			result, err := s.InlayHint(ctx, &params)

			return reply(ctx, result, err)

		case MethodEditorState:
			var params EditorStateParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return replyParseError(ctx, reply, err)
			}

			return reply(ctx, nil, s.EditorState(ctx, &params))
		}

		return base(ctx, reply, req)
	}
}

// Handlers wraps the server handler with request cancellation and ordered
// asynchronous dispatch.
func Handlers(s *Server) jsonrpc2.Handler {
	return protocol.CancelHandler(
		asyncHandler(
			jsonrpc2.ReplyHandler(s.Handler()),
		),
	)
}

func replyParseError(ctx context.Context, reply jsonrpc2.Replier, err error) error {
	return reply(ctx, nil, fmt.Errorf("%s: %w", jsonrpc2.ErrParse, err))
}

type releaseKey struct{}

// release lets the next message start before the current one has replied.
// It is a no-op outside asyncHandler.
func release(ctx context.Context) {
	if fn, ok := ctx.Value(releaseKey{}).(func()); ok {
		fn()
	}
}

// asyncHandler runs every message in its own goroutine, starting each one
// only after the previous one replied or called release. Document
// notifications therefore apply in order, while a slow hint request that has
// taken its snapshot does not hold up the edits that supersede it.
func asyncHandler(handler jsonrpc2.Handler) jsonrpc2.Handler {
	next := make(chan struct{})
	close(next)

	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		waitForPrevious := next
		next = make(chan struct{})
		unlockNext := next

		var once sync.Once
		unlock := func() {
			once.Do(func() { close(unlockNext) })
		}

		innerReply := reply
		reply = func(ctx context.Context, result any, err error) error {
			unlock()

			return innerReply(ctx, result, err)
		}

		ctx = context.WithValue(ctx, releaseKey{}, unlock)

		go func() {
			<-waitForPrevious
			_ = handler(ctx, reply, req)
		}()

		return nil
	}
}

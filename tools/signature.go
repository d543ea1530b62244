package tools

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	phphints "github.com/php-hints/phphints"
	"github.com/php-hints/phphints/signature"
)

var callKinds = map[string]phphints.CallKind{
	"":         phphints.CallFunction,
	"function": phphints.CallFunction,
	"method":   phphints.CallMethod,
	"static":   phphints.CallStatic,
	"new":      phphints.CallNew,
}

func (s *Server) handleLookupSignature(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	name := getStringArg(args, "name")
	if name == "" {
		return errResult("name is required"), nil
	}

	kind, ok := callKinds[getStringArg(args, "kind")]
	if !ok {
		return errResult("unknown kind: " + getStringArg(args, "kind")), nil
	}

	g := phphints.CallGroup{Name: name, Kind: kind, Scope: getStringArg(args, "scope")}

	sig, err := s.source.Lookup(ctx, g)

	switch {
	case errors.Is(err, signature.ErrNotFound), errors.Is(err, signature.ErrAmbiguous):
		return errResult(err.Error()), nil
	case err != nil:
		return nil, err
	}

	return jsonResult(sig), nil
}

type indexResult struct {
	Root         string              `json:"root"`
	Stats        signature.ScanStats `json:"stats"`
	Files        int                 `json:"indexed_files"`
	Declarations int                 `json:"indexed_declarations"`
}

func (s *Server) handleIndexWorkspace(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.index == nil {
		return errResult("no workspace index configured"), nil
	}

	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	root := s.root
	if p := getStringArg(args, "path"); p != "" {
		root = s.resolvePath(p)
	}

	if root == "" {
		return errResult("path is required when no workspace root is set"), nil
	}

	stats, err := s.index.Scan(ctx, root)
	if err != nil {
		return errResult("scan err=" + err.Error()), nil
	}

	s.provider.Refresh()

	files, decls, err := s.index.Count(ctx)
	if err != nil {
		return errResult("count err=" + err.Error()), nil
	}

	s.logger.Info("indexed workspace",
		zap.String("root", root),
		zap.Int("parsed", stats.Parsed),
		zap.Int("declarations", decls),
	)

	return jsonResult(indexResult{Root: root, Stats: stats, Files: files, Declarations: decls}), nil
}

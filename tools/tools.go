// Package tools exposes parameter hints and the signature index as MCP tools.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	phphints "github.com/php-hints/phphints"
	"github.com/php-hints/phphints/hints"
	"github.com/php-hints/phphints/signature"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

// Server wraps the MCP server with tool handlers.
type Server struct {
	mcp      *mcp.Server
	provider *hints.Provider
	source   signature.Source
	index    *signature.Index
	root     string
	settings phphints.Settings
	logger   *zap.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithIndex backs lookups with a workspace index rooted at root.
func WithIndex(ix *signature.Index, root string) Option {
	return func(s *Server) {
		s.index = ix
		s.root = root
	}
}

// WithSettings sets the settings tool calls start from.
func WithSettings(settings phphints.Settings) Option {
	return func(s *Server) {
		s.settings = settings
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP server with all tools registered.
func NewServer(opts ...Option) *Server {
	srv := &Server{
		settings: phphints.DefaultSettings(),
		logger:   zap.NewNop(),
		mcp: mcp.NewServer(
			&mcp.Implementation{
				Name:    "php-hints",
				Version: Version,
			},
			nil,
		),
	}

	for _, opt := range opts {
		opt(srv)
	}

	srv.source = signature.NewBuiltins()
	if srv.index != nil {
		srv.source = signature.Chain(srv.index, srv.source)
	}

	srv.provider = hints.NewProvider(
		hints.WithSource(srv.source),
		hints.WithLogger(srv.logger),
	)

	srv.registerTools()

	return srv
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	s.mcp.AddTool(&mcp.Tool{
		Name:        "parameter_hints",
		Description: "Compute PHP parameter name hints for a file or a source snippet. Returns each hint with its zero-based position, the parameter it names and the callee, plus the source with the hints inlined.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {
					"type": "string",
					"description": "PHP file to read. Relative paths are resolved against the indexed workspace root."
				},
				"source": {
					"type": "string",
					"description": "PHP source to hint instead of reading a file. Should start with <?php."
				},
				"annotate": {
					"type": "boolean",
					"description": "Include the source with hints inlined (default true)"
				},
				"settings": {
					"type": "object",
					"description": "Overrides for the phpParameterHint settings, e.g. {\"hintOnlyLiterals\": true, \"hintTypeName\": 1}"
				}
			}
		}`),
	}, s.handleParameterHints)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "lookup_signature",
		Description: "Look up the parameter list of a PHP function, method or constructor in the builtin table and the indexed workspace.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"name": {
					"type": "string",
					"description": "Function, method or class name (for constructors)"
				},
				"kind": {
					"type": "string",
					"description": "How the callee is invoked",
					"enum": ["function", "method", "static", "new"]
				},
				"scope": {
					"type": "string",
					"description": "Class name that narrows method and static lookups"
				}
			},
			"required": ["name"]
		}`),
	}, s.handleLookupSignature)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "index_workspace",
		Description: "Scan the workspace for PHP declarations so user-defined functions and methods get hints. Unchanged files are skipped by content hash.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {
					"type": "string",
					"description": "Directory to scan. Defaults to the workspace root."
				}
			}
		}`),
	}, s.handleIndexWorkspace)
}

// jsonResult marshals data into a text tool result.
func jsonResult(data any) *mcp.CallToolResult {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errResult("json marshal err=" + err.Error())
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}
}

// errResult returns a tool result indicating an error.
func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

// parseArgs unmarshals the raw JSON arguments into a map.
func parseArgs(req *mcp.CallToolRequest) (map[string]any, error) {
	if req.Params == nil || len(req.Params.Arguments) == 0 {
		return map[string]any{}, nil
	}

	var m map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &m); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	return m, nil
}

func getStringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)

	return s
}

func getBoolArg(args map[string]any, key string, defaultVal bool) bool {
	b, ok := args[key].(bool)
	if !ok {
		return defaultVal
	}

	return b
}

// settingsArg layers the "settings" argument over base.
func settingsArg(args map[string]any, base phphints.Settings) (phphints.Settings, error) {
	raw, ok := args["settings"]
	if !ok || raw == nil {
		return base, nil
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return base, err
	}

	out := base
	if err := json.Unmarshal(data, &out); err != nil {
		return base, fmt.Errorf("invalid settings: %w", err)
	}

	return out, nil
}

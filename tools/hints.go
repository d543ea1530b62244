package tools

import (
	"context"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/php-hints/phphints/resolver"
	"github.com/php-hints/phphints/runner"
)

type hintsResult struct {
	Path      string          `json:"path,omitempty"`
	Hints     []resolver.Hint `json:"hints"`
	Annotated string          `json:"annotated,omitempty"`
}

func (s *Server) handleParameterHints(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	settings, err := settingsArg(args, s.settings)
	if err != nil {
		return errResult(err.Error()), nil
	}

	if err := s.provider.ValidateExclusion(settings.HintExclude); err != nil {
		return errResult("invalid hintExclude: " + err.Error()), nil
	}

	path := getStringArg(args, "path")
	text := getStringArg(args, "source")

	switch {
	case path != "" && text != "":
		return errResult("pass either path or source, not both"), nil
	case path != "":
		path = s.resolvePath(path)

		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return errResult("read err=" + err.Error()), nil
		}

		text = string(data)
	case text != "":
		path = "source.php"
	default:
		return errResult("path or source is required"), nil
	}

	r := runner.New(runner.WithProvider(s.provider), runner.WithSettings(settings))

	f, err := r.RunSource(ctx, path, text)
	if err != nil {
		return errResult(err.Error()), nil
	}

	out := hintsResult{Hints: f.Hints}
	if getStringArg(args, "path") != "" {
		out.Path = path
	}

	if getBoolArg(args, "annotate", true) {
		out.Annotated = runner.Annotate(f.Text, f.Hints, nil)
	}

	return jsonResult(out), nil
}

func (s *Server) resolvePath(path string) string {
	if filepath.IsAbs(path) || s.root == "" {
		return path
	}

	return filepath.Join(s.root, path)
}

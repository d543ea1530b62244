package tools //nolint:testpackage // Tests call unexported handlers

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/php-hints/phphints/signature"
)

const greetSource = `<?php
function greet($name, $greeting) {}
greet("John", "Hi");
`

func request(t *testing.T, args map[string]any) *mcp.CallToolRequest {
	t.Helper()

	raw, err := json.Marshal(args)
	require.NoError(t, err)

	return &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Arguments: raw}}
}

func text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()

	require.Len(t, result.Content, 1)

	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)

	return tc.Text
}

func decode[T any](t *testing.T, result *mcp.CallToolResult) T {
	t.Helper()

	require.False(t, result.IsError, text(t, result))

	var out T
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &out))

	return out
}

func newIndexedServer(t *testing.T) (*Server, string) {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "db.php"),
		[]byte("<?php\nclass Db {\n  public function connect(string $host, int $port) {}\n}\n"), 0o600))

	ix, err := signature.OpenIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })

	return NewServer(WithIndex(ix, root)), root
}

func TestParameterHints_Source(t *testing.T) {
	t.Parallel()

	s := NewServer()

	result, err := s.handleParameterHints(context.Background(), request(t, map[string]any{
		"source": greetSource,
	}))
	require.NoError(t, err)

	got := decode[hintsResult](t, result)
	require.Len(t, got.Hints, 2)
	assert.Equal(t, "name:", got.Hints[0].Label)
	assert.Equal(t, "greet", got.Hints[0].Callee)
	assert.Contains(t, got.Annotated, `greet(name: "John", greeting: "Hi");`)
	assert.Empty(t, got.Path)
}

func TestParameterHints_Settings(t *testing.T) {
	t.Parallel()

	s := NewServer()

	result, err := s.handleParameterHints(context.Background(), request(t, map[string]any{
		"source":   "<?php\nfunction f(int $n, $s) {}\nf(1, $x);\n",
		"annotate": false,
		"settings": map[string]any{"hintOnlyLiterals": true, "hintTypeName": 1},
	}))
	require.NoError(t, err)

	got := decode[hintsResult](t, result)
	require.Len(t, got.Hints, 1)
	assert.Equal(t, "int n:", got.Hints[0].Label)
	assert.Empty(t, got.Annotated)
}

func TestParameterHints_Errors(t *testing.T) {
	t.Parallel()

	s := NewServer()

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{name: "nothing", args: map[string]any{}, want: "path or source is required"},
		{name: "both", args: map[string]any{"path": "a.php", "source": "<?php"}, want: "not both"},
		{name: "missing file", args: map[string]any{"path": "/nonexistent/a.php"}, want: "read err="},
		{name: "bad settings", args: map[string]any{"source": "<?php", "settings": map[string]any{"maxHints": "x"}}, want: "invalid settings"},
		{name: "bad exclude", args: map[string]any{"source": "<?php", "settings": map[string]any{"hintExclude": "callee =="}}, want: "invalid hintExclude"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := s.handleParameterHints(context.Background(), request(t, tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, text(t, result), tt.want)
		})
	}
}

func TestIndexWorkspace(t *testing.T) {
	t.Parallel()

	s, root := newIndexedServer(t)
	ctx := context.Background()

	result, err := s.handleIndexWorkspace(ctx, request(t, map[string]any{}))
	require.NoError(t, err)

	got := decode[indexResult](t, result)
	assert.Equal(t, root, got.Root)
	assert.Equal(t, 1, got.Stats.Parsed)
	assert.Equal(t, 1, got.Files)

	result, err = s.handleLookupSignature(ctx, request(t, map[string]any{
		"name": "connect", "kind": "method", "scope": "Db",
	}))
	require.NoError(t, err)

	sig := decode[signature.Signature](t, result)
	assert.Equal(t, "Db", sig.Class)
	require.Len(t, sig.Params, 2)
	assert.Equal(t, "host", sig.Params[0].Name)

	require.NoError(t, os.WriteFile(filepath.Join(root, "main.php"),
		[]byte("<?php\n$db->connect('localhost', 5432);\n"), 0o600))

	result, err = s.handleParameterHints(ctx, request(t, map[string]any{"path": "main.php"}))
	require.NoError(t, err)

	hints := decode[hintsResult](t, result)
	assert.Equal(t, filepath.Join(root, "main.php"), hints.Path)
	assert.Contains(t, hints.Annotated, "$db->connect(host: 'localhost', port: 5432);")
}

func TestIndexWorkspace_NoIndex(t *testing.T) {
	t.Parallel()

	result, err := NewServer().handleIndexWorkspace(context.Background(), request(t, nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestLookupSignature(t *testing.T) {
	t.Parallel()

	s := NewServer()
	ctx := context.Background()

	result, err := s.handleLookupSignature(ctx, request(t, map[string]any{"name": "str_contains"}))
	require.NoError(t, err)

	sig := decode[signature.Signature](t, result)
	require.Len(t, sig.Params, 2)
	assert.Equal(t, "haystack", sig.Params[0].Name)

	for _, args := range []map[string]any{
		{},
		{"name": "str_contains", "kind": "macro"},
		{"name": "no_such_function"},
	} {
		result, err := s.handleLookupSignature(ctx, request(t, args))
		require.NoError(t, err)
		assert.True(t, result.IsError, "args %v", args)
	}
}

func TestServer_InMemorySession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	ss, err := NewServer().MCPServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "0"}, nil)

	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })

	tools, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)

	names := make([]string, 0, len(tools.Tools))
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}

	assert.ElementsMatch(t, []string{"parameter_hints", "lookup_signature", "index_workspace"}, names)

	result, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "parameter_hints",
		Arguments: map[string]any{"source": greetSource},
	})
	require.NoError(t, err)

	got := decode[hintsResult](t, result)
	assert.Len(t, got.Hints, 2)
}

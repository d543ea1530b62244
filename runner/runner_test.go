package runner //nolint:testpackage // Tests need access to internal types

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	phphints "github.com/php-hints/phphints"
	"github.com/php-hints/phphints/hints"
	"github.com/php-hints/phphints/pipeline"
	"github.com/php-hints/phphints/resolver"
)

const greetSource = `<?php
function greet($name, $greeting) {}
greet("John", "Hi");
greet("Jane", "Hey");
`

var errTestStop = errors.New("stop")

type recordingHandler struct {
	files   []string
	summary *Result
	err     error
}

func (h *recordingHandler) HandleFile(f FileResult) error {
	h.files = append(h.files, f.Path)

	return h.err
}

func (h *recordingHandler) Summary(result *Result) error {
	h.summary = result

	return nil
}

func writePHP(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func labels(hs []resolver.Hint) []string {
	out := make([]string, 0, len(hs))
	for _, h := range hs {
		out = append(out, h.Label)
	}

	return out
}

func TestRunner_NoProvider(t *testing.T) {
	t.Parallel()

	_, err := New().Run(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoProvider)

	_, err = New().RunSource(context.Background(), "a.php", greetSource)
	require.ErrorIs(t, err, ErrNoProvider)
}

func TestRunner_Run(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writePHP(t, dir, "a.php", greetSource)
	b := writePHP(t, dir, "b.php", "<?php\nstr_contains('ab', 'a');\n")
	missing := filepath.Join(dir, "missing.php")

	h := &recordingHandler{}
	r := New(WithProvider(hints.NewProvider()), WithHandler(h), WithWorkers(2))

	result, err := r.Run(context.Background(), []string{a, missing, b})
	require.NoError(t, err)

	assert.Equal(t, []string{a, missing, b}, h.files)
	assert.Same(t, result, h.summary)

	require.Len(t, result.Files, 3)
	assert.Equal(t, []string{"name:", "greeting:", "name:", "greeting:"}, labels(result.Files[0].Hints))
	require.Error(t, result.Files[1].Err)
	assert.Equal(t, []string{"haystack:", "needle:"}, labels(result.Files[2].Hints))

	assert.Equal(t, 6, result.Hints)
	assert.Equal(t, 1, result.Errors)
	assert.False(t, result.Ok())
	assert.Len(t, result.FailedFiles(), 1)
}

func TestRunner_HandlerError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writePHP(t, dir, "a.php", greetSource)
	b := writePHP(t, dir, "b.php", greetSource)

	h := &recordingHandler{err: errTestStop}
	r := New(WithProvider(hints.NewProvider()), WithHandler(h))

	_, err := r.Run(context.Background(), []string{a, b})
	require.ErrorIs(t, err, errTestStop)
	assert.Equal(t, []string{a}, h.files)
	assert.Nil(t, h.summary)
}

func TestRunner_Cancelled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writePHP(t, dir, "a.php", greetSource)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(WithProvider(hints.NewProvider())).Run(ctx, []string{a})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunner_RunSource(t *testing.T) {
	t.Parallel()

	settings := phphints.DefaultSettings()
	settings.HintOnlyLine = true

	r := New(
		WithProvider(hints.NewProvider()),
		WithSettings(settings),
		WithEditorState(pipeline.EditorState{
			Selections: []phphints.Range{{
				Start: phphints.Position{Line: 3},
				End:   phphints.Position{Line: 3},
			}},
		}),
	)

	f, err := r.RunSource(context.Background(), "inline.php", greetSource)
	require.NoError(t, err)

	assert.Equal(t, "inline.php", f.Path)
	require.Len(t, f.Hints, 2)
	assert.Equal(t, uint32(3), f.Hints[0].Position.Line)
}

func TestRunner_Disabled(t *testing.T) {
	t.Parallel()

	settings := phphints.DefaultSettings()
	settings.Enabled = false

	f, err := New(WithProvider(hints.NewProvider()), WithSettings(settings)).
		RunSource(context.Background(), "a.php", greetSource)
	require.NoError(t, err)

	assert.NotNil(t, f.Hints)
	assert.Empty(t, f.Hints)
}

func TestAnnotate(t *testing.T) {
	t.Parallel()

	hint := func(line, char uint32, label string) resolver.Hint {
		return resolver.Hint{Label: label, Position: phphints.Position{Line: line, Character: char}}
	}

	tests := []struct {
		name  string
		text  string
		hints []resolver.Hint
		want  string
	}{
		{name: "none", text: "f(1);", want: "f(1);"},
		{
			name:  "two on a line",
			text:  "f(1, 2);",
			hints: []resolver.Hint{hint(0, 2, "a:"), hint(0, 5, "b:")},
			want:  "f(a: 1, b: 2);",
		},
		{
			name:  "unordered input",
			text:  "f(1, 2);",
			hints: []resolver.Hint{hint(0, 5, "b:"), hint(0, 2, "a:")},
			want:  "f(a: 1, b: 2);",
		},
		{
			name:  "multibyte before argument",
			text:  `f("é", 1);`,
			hints: []resolver.Hint{hint(0, 7, "n:")},
			want:  `f("é", n: 1);`,
		},
		{
			name:  "line out of range",
			text:  "f(1);",
			hints: []resolver.Hint{hint(4, 2, "a:")},
			want:  "f(1);",
		},
		{
			name:  "second line",
			text:  "<?php\ng(1);\n",
			hints: []resolver.Hint{hint(1, 2, "x:")},
			want:  "<?php\ng(x: 1);\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, Annotate(tt.text, tt.hints, nil))
		})
	}
}

func TestTextFormatter(t *testing.T) {
	t.Parallel()

	f, err := New(WithProvider(hints.NewProvider())).RunSource(context.Background(), "a.php", greetSource)
	require.NoError(t, err)

	var buf bytes.Buffer

	formatter := NewTextFormatter(&buf, PlainStyles())

	result := NewResult()
	result.Add(f)
	result.Add(FileResult{Path: "gone.php", Err: os.ErrNotExist})

	for _, file := range result.Files {
		require.NoError(t, formatter.HandleFile(file))
	}

	require.NoError(t, formatter.Summary(result))

	want := `a.php 4 hints
   3 | greet(name: "John", greeting: "Hi");
   4 | greet(name: "Jane", greeting: "Hey");
error: gone.php: file does not exist

4 hints in 1 file, 1 error
`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestTextFormatter_SkipsFilesWithoutHints(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	formatter := NewTextFormatter(&buf, nil)
	require.NoError(t, formatter.HandleFile(FileResult{Path: "empty.php", Text: "<?php\n"}))
	assert.Empty(t, buf.String())

	formatter.Full = true
	require.NoError(t, formatter.HandleFile(FileResult{Path: "empty.php", Text: "<?php"}))
	assert.Equal(t, "empty.php 0 hints\n   1 | <?php\n", buf.String())
}

func TestJSONFormatter(t *testing.T) {
	t.Parallel()

	f, err := New(WithProvider(hints.NewProvider())).RunSource(context.Background(), "a.php", greetSource)
	require.NoError(t, err)

	result := NewResult()
	result.Add(f)
	result.Add(FileResult{Path: "gone.php", Err: os.ErrNotExist})

	var buf bytes.Buffer

	formatter := NewJSONFormatter(&buf)
	require.NoError(t, formatter.HandleFile(f))
	assert.Empty(t, buf.String())
	require.NoError(t, formatter.Summary(result))

	var got struct {
		Files []struct {
			Path  string          `json:"path"`
			Hints []resolver.Hint `json:"hints"`
			Error string          `json:"error"`
		} `json:"files"`
		Hints  int `json:"hints"`
		Errors int `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	assert.Equal(t, 4, got.Hints)
	assert.Equal(t, 1, got.Errors)
	require.Len(t, got.Files, 2)
	assert.Equal(t, f.Hints, got.Files[0].Hints)
	assert.Equal(t, "file does not exist", got.Files[1].Error)
	assert.NotNil(t, got.Files[1].Hints)
}

func TestMultiHandler_StopsOnError(t *testing.T) {
	t.Parallel()

	h1 := &recordingHandler{err: errTestStop}
	h2 := &recordingHandler{}
	multi := NewMultiHandler(h1, h2)

	err := multi.HandleFile(FileResult{Path: "a.php"})
	require.ErrorIs(t, err, errTestStop)
	assert.Empty(t, h2.files)

	require.NoError(t, multi.Summary(NewResult()))
	assert.NotNil(t, h1.summary)
	assert.NotNil(t, h2.summary)
}

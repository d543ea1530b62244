package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/php-hints/phphints/pipeline"
)

func TestCompileExclusion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		source  string
		want    []string
		wantErr bool
	}{
		{name: "by callee", source: `callee in ["greet", "User::make"]`, want: []string{"compute"}},
		{name: "by kind", source: `kind == "static"`, want: []string{"greet", "compute"}},
		{name: "by arity", source: `args > 1`, want: []string{"compute"}},
		{name: "by scope", source: `scope == "User" && name startsWith "ma"`, want: []string{"greet", "compute"}},
		{name: "syntax error", source: `callee ==`, wantErr: true},
		{name: "not boolean", source: `args + 1`, wantErr: true},
		{name: "unknown variable", source: `receiver == "x"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ex, err := pipeline.CompileExclusion(tt.source)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.source, ex.String())

			got := pipeline.Exclude.Apply(fixture(), pipeline.Context{Exclude: ex})
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestCompileExclusion_Blank(t *testing.T) {
	t.Parallel()

	ex, err := pipeline.CompileExclusion("  ")
	require.NoError(t, err)
	assert.Nil(t, ex)
}

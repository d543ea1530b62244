package phphints_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	phphints "github.com/php-hints/phphints"
)

func TestByteOffset(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		line      string
		character uint32
		want      int
	}{
		{name: "ascii", line: "foo(1)", character: 4, want: 4},
		{name: "start", line: "foo(1)", character: 0, want: 0},
		{name: "two byte rune", line: `f("é", 1)`, character: 6, want: 7},
		{name: "surrogate pair", line: `f("😀", 1)`, character: 7, want: 9},
		{name: "past end", line: "f()", character: 40, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, phphints.ByteOffset(tt.line, tt.character))
		})
	}
}

func TestByteOffset_MatchesParsePositions(t *testing.T) {
	t.Parallel()

	line := `f("é😀", 1);`
	groups := phphints.ParseString("<?php\n" + line + "\n")

	if !assert.Len(t, groups, 1) {
		return
	}

	for _, a := range groups[0].Args {
		off := phphints.ByteOffset(line, a.Start.Character)
		assert.Contains(t, []byte{'"', '1'}, line[off])
	}
}

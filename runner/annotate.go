package runner

import (
	"cmp"
	"slices"
	"strings"

	phphints "github.com/php-hints/phphints"
	"github.com/php-hints/phphints/resolver"
)

// RenderFunc renders one hint for insertion into source text.
type RenderFunc func(h resolver.Hint) string

// PlainLabel renders a hint as its label followed by a space, the way
// editors pad parameter hints.
func PlainLabel(h resolver.Hint) string {
	return h.Label + " "
}

// Annotate returns text with every hint inserted at its position. A nil
// render uses PlainLabel.
func Annotate(text string, found []resolver.Hint, render RenderFunc) string {
	if render == nil {
		render = PlainLabel
	}

	lines := strings.Split(text, "\n")

	for line, hs := range byLine(found) {
		if int(line) >= len(lines) {
			continue
		}

		lines[line] = annotateLine(lines[line], hs, render)
	}

	return strings.Join(lines, "\n")
}

// AnnotatedLines returns the annotated form of each line that carries at
// least one hint, keyed by zero-based line number.
func AnnotatedLines(text string, found []resolver.Hint, render RenderFunc) map[uint32]string {
	if render == nil {
		render = PlainLabel
	}

	lines := strings.Split(text, "\n")
	out := make(map[uint32]string)

	for line, hs := range byLine(found) {
		if int(line) >= len(lines) {
			continue
		}

		out[line] = annotateLine(lines[line], hs, render)
	}

	return out
}

func byLine(found []resolver.Hint) map[uint32][]resolver.Hint {
	lines := make(map[uint32][]resolver.Hint)

	for _, h := range found {
		lines[h.Position.Line] = append(lines[h.Position.Line], h)
	}

	return lines
}

func annotateLine(line string, hs []resolver.Hint, render RenderFunc) string {
	// Insert right to left so earlier offsets stay valid.
	hs = slices.Clone(hs)
	slices.SortStableFunc(hs, func(a, b resolver.Hint) int {
		return cmp.Compare(b.Position.Character, a.Position.Character)
	})

	for _, h := range hs {
		off := phphints.ByteOffset(line, h.Position.Character)
		line = line[:off] + render(h) + line[off:]
	}

	return line
}

package phphints

import (
	"unicode/utf16"
	"unicode/utf8"
)

// lineIndex converts tree-sitter byte columns to UTF-16 character offsets.
type lineIndex struct {
	src   []byte
	lines []int // byte offset of each line start
}

func newLineIndex(src []byte) *lineIndex {
	lines := []int{0}

	for i, b := range src {
		if b == '\n' {
			lines = append(lines, i+1)
		}
	}

	return &lineIndex{src: src, lines: lines}
}

// position maps a row and byte column to a Position.
func (li *lineIndex) position(row, byteCol uint) Position {
	if int(row) >= len(li.lines) {
		return Position{Line: uint32(row)} //nolint:gosec // G115: row comes from the parsed source
	}

	start := li.lines[row]
	end := min(start+int(byteCol), len(li.src))

	var units int

	for chunk := li.src[start:end]; len(chunk) > 0; {
		r, size := utf8.DecodeRune(chunk)
		if r == utf8.RuneError && size <= 1 {
			units++
			size = 1
		} else {
			units += utf16.RuneLen(r)
		}

		chunk = chunk[size:]
	}

	return Position{
		Line:      uint32(row),   //nolint:gosec // G115: row comes from the parsed source
		Character: uint32(units), //nolint:gosec // G115: bounded by line length
	}
}

// ByteOffset maps a UTF-16 character offset within line to a byte offset.
// Offsets past the end of the line clamp to its length.
func ByteOffset(line string, character uint32) int {
	var units uint32

	for i, r := range line {
		if units >= character {
			return i
		}

		if r == utf8.RuneError {
			units++
		} else {
			units += uint32(utf16.RuneLen(r)) //nolint:gosec // G115: 1 or 2
		}
	}

	return len(line)
}

package lsp

import (
	"go.lsp.dev/protocol"

	phphints "github.com/php-hints/phphints"
)

// Both sides address text with zero-based lines and UTF-16 columns, so the
// conversions are field copies.

func toProtocolPosition(p phphints.Position) protocol.Position {
	return protocol.Position{Line: p.Line, Character: p.Character}
}

func fromProtocolPosition(p protocol.Position) phphints.Position {
	return phphints.Position{Line: p.Line, Character: p.Character}
}

func fromProtocolRange(r protocol.Range) phphints.Range {
	return phphints.Range{Start: fromProtocolPosition(r.Start), End: fromProtocolPosition(r.End)}
}

func fromProtocolRanges(rs []protocol.Range) []phphints.Range {
	if len(rs) == 0 {
		return nil
	}

	out := make([]phphints.Range, len(rs))
	for i, r := range rs {
		out[i] = fromProtocolRange(r)
	}

	return out
}

// Package phphints locates PHP call sites and describes their arguments so
// that parameter-name hints can be attached to them.
package phphints

import (
	"fmt"
	"slices"
)

// CallKind tells how a callee is invoked.
type CallKind uint8

const (
	// CallFunction is a plain function call: foo(...).
	CallFunction CallKind = iota
	// CallMethod is an instance call: $a->foo(...) or $a?->foo(...).
	CallMethod
	// CallStatic is a scoped call: A::foo(...), self::foo(...).
	CallStatic
	// CallNew is a constructor call: new A(...).
	CallNew
)

func (k CallKind) String() string {
	switch k {
	case CallFunction:
		return "function"
	case CallMethod:
		return "method"
	case CallStatic:
		return "static"
	case CallNew:
		return "new"
	default:
		return fmt.Sprintf("CallKind(%d)", uint8(k))
	}
}

// ArgKind classifies the value expression of an argument.
type ArgKind string

// Argument kinds. Everything except KindOther is a literal.
const (
	KindBoolean     ArgKind = "boolean"
	KindNumber      ArgKind = "number"
	KindString      ArgKind = "string"
	KindMagic       ArgKind = "magic"
	KindNowdoc      ArgKind = "nowdoc"
	KindArray       ArgKind = "array"
	KindNull        ArgKind = "null"
	KindEncapsed    ArgKind = "encapsed"
	KindNullKeyword ArgKind = "nullkeyword"
	KindOther       ArgKind = "other"
)

// LiteralKinds is the set of kinds kept by literal-only filtering.
var LiteralKinds = []ArgKind{
	KindBoolean,
	KindNumber,
	KindString,
	KindMagic,
	KindNowdoc,
	KindArray,
	KindNull,
	KindEncapsed,
	KindNullKeyword,
}

// IsLiteral reports whether k is one of LiteralKinds.
func (k ArgKind) IsLiteral() bool {
	return slices.Contains(LiteralKinds, k)
}

// Position is a zero-based line and UTF-16 character offset, the addressing
// used by LSP clients.
type Position struct {
	Line      uint32 `json:"line"`
	Character uint32 `json:"character"`
}

// Less orders positions by line, then character.
func (p Position) Less(o Position) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}

	return p.Character < o.Character
}

// LessEq reports p <= o.
func (p Position) LessEq(o Position) bool {
	return p == o || p.Less(o)
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Character)
}

// Range is a half-open span between two positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Contains reports whether r fully covers o.
func (r Range) Contains(o Range) bool {
	return r.Start.LessEq(o.Start) && o.End.LessEq(r.End)
}

// Argument is one actual parameter at a call site.
type Argument struct {
	Kind ArgKind `json:"kind"`

	// Start and End span the value expression only.
	Start Position `json:"start"`
	End   Position `json:"end"`

	// Name is set for named arguments (name: value).
	Name string `json:"name,omitempty"`

	// Index is the source position of the argument inside its call, counted
	// before any filtering.
	Index int `json:"index"`

	// Unpack marks a spread argument (...$args).
	Unpack bool `json:"unpack,omitempty"`

	// Variable holds the variable name (without $) when the value is a bare
	// variable.
	Variable string `json:"variable,omitempty"`
}

// Named reports whether the argument uses name: value syntax.
func (a Argument) Named() bool {
	return a.Name != ""
}

// Range returns the span of the value expression.
func (a Argument) Range() Range {
	return Range{Start: a.Start, End: a.End}
}

// CallGroup is one call expression and its arguments.
type CallGroup struct {
	Name  string     `json:"name"`
	Kind  CallKind   `json:"kind"`
	Scope string     `json:"scope,omitempty"`
	Range Range      `json:"range"`
	Args  []Argument `json:"args"`
}

// Callee returns the identity used to look up and memoize the callee
// signature.
func (g CallGroup) Callee() string {
	switch g.Kind {
	case CallMethod:
		return g.Scope + "->" + g.Name
	case CallStatic:
		return g.Scope + "::" + g.Name
	case CallNew:
		return "new " + g.Name
	default:
		return g.Name
	}
}

// Clone returns a deep copy of g.
func (g CallGroup) Clone() CallGroup {
	g.Args = slices.Clone(g.Args)

	return g
}

// CloneGroups deep-copies a call group sequence. A nil input stays nil.
func CloneGroups(groups []CallGroup) []CallGroup {
	if groups == nil {
		return nil
	}

	out := make([]CallGroup, len(groups))
	for i, g := range groups {
		out[i] = g.Clone()
	}

	return out
}

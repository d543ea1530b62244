// Package pipeline narrows call groups before labels are resolved. Each
// stage filters arguments and drops groups left without any.
package pipeline

import (
	phphints "github.com/php-hints/phphints"
)

// Flags switch the built-in stages on.
type Flags struct {
	OnlyLiterals      bool
	OnlySelection     bool
	OnlyVisibleRanges bool
}

// EditorState is what the editor currently shows and has selected.
type EditorState struct {
	Selections    []phphints.Range `json:"selections,omitempty"`
	VisibleRanges []phphints.Range `json:"visibleRanges,omitempty"`

	// Requested is the range a client asked hints for. It always applies, so
	// the hint cap is spent inside it. Nil means the whole document.
	Requested *phphints.Range `json:"requested,omitempty"`
}

// Context is passed unchanged to every stage of a run.
type Context struct {
	Flags  Flags
	Editor EditorState

	// Exclude drops whole groups matching a user expression. Nil disables it.
	Exclude *Exclusion
}

// Stage transforms a call group sequence. Implementations must not modify
// their input and must keep the relative order of groups and arguments.
type Stage interface {
	Apply(groups []phphints.CallGroup, sc Context) []phphints.CallGroup
}

// StageFunc adapts a function to Stage.
type StageFunc func(groups []phphints.CallGroup, sc Context) []phphints.CallGroup

// Apply calls f.
func (f StageFunc) Apply(groups []phphints.CallGroup, sc Context) []phphints.CallGroup {
	return f(groups, sc)
}

// Pipeline runs stages in registration order.
type Pipeline struct {
	stages []Stage
}

// New creates a pipeline from stages.
func New(stages ...Stage) *Pipeline {
	p := &Pipeline{}

	return p.Pipe(stages...)
}

// Pipe appends stages and returns p.
func (p *Pipeline) Pipe(stages ...Stage) *Pipeline {
	for _, s := range stages {
		if s != nil {
			p.stages = append(p.stages, s)
		}
	}

	return p
}

// Len returns the number of stages.
func (p *Pipeline) Len() int {
	return len(p.stages)
}

// Process threads groups through every stage. An empty pipeline returns its
// input.
func (p *Pipeline) Process(groups []phphints.CallGroup, sc Context) []phphints.CallGroup {
	for _, s := range p.stages {
		groups = s.Apply(groups, sc)
	}

	return groups
}

// Default returns the standard stage order: the requested range and literals
// first since they are the cheapest, then visible ranges, selection and user
// exclusions.
func Default() *Pipeline {
	return New(OnlyRequested, OnlyLiterals, OnlyVisibleRanges, OnlySelection, Exclude)
}

var (
	// OnlyRequested keeps arguments starting inside EditorState.Requested.
	OnlyRequested Stage = StageFunc(onlyRequested)
	// OnlyLiterals keeps literal arguments.
	OnlyLiterals Stage = StageFunc(onlyLiterals)
	// OnlySelection keeps arguments starting on a selected line.
	OnlySelection Stage = StageFunc(onlySelection)
	// OnlyVisibleRanges keeps arguments fully inside a visible range.
	OnlyVisibleRanges Stage = StageFunc(onlyVisibleRanges)
	// Exclude drops groups matched by Context.Exclude.
	Exclude Stage = StageFunc(exclude)
)

func onlyRequested(groups []phphints.CallGroup, sc Context) []phphints.CallGroup {
	r := sc.Editor.Requested
	if r == nil {
		return groups
	}

	return filterArgs(groups, func(a phphints.Argument) bool {
		return r.Start.LessEq(a.Start) && a.Start.LessEq(r.End)
	})
}

func onlyLiterals(groups []phphints.CallGroup, sc Context) []phphints.CallGroup {
	if !sc.Flags.OnlyLiterals {
		return groups
	}

	return filterArgs(groups, func(a phphints.Argument) bool {
		return a.Kind.IsLiteral()
	})
}

func onlySelection(groups []phphints.CallGroup, sc Context) []phphints.CallGroup {
	if !sc.Flags.OnlySelection || len(sc.Editor.Selections) == 0 {
		return groups
	}

	return filterArgs(groups, func(a phphints.Argument) bool {
		for _, sel := range sc.Editor.Selections {
			if sel.Start.Line <= a.Start.Line && a.Start.Line <= sel.End.Line {
				return true
			}
		}

		return false
	})
}

func onlyVisibleRanges(groups []phphints.CallGroup, sc Context) []phphints.CallGroup {
	if !sc.Flags.OnlyVisibleRanges {
		return groups
	}

	return filterArgs(groups, func(a phphints.Argument) bool {
		for _, r := range sc.Editor.VisibleRanges {
			if r.Contains(a.Range()) {
				return true
			}
		}

		return false
	})
}

func exclude(groups []phphints.CallGroup, sc Context) []phphints.CallGroup {
	if sc.Exclude == nil {
		return groups
	}

	out := make([]phphints.CallGroup, 0, len(groups))

	for _, g := range groups {
		if !sc.Exclude.Match(g) {
			out = append(out, g)
		}
	}

	return out
}

// filterArgs returns fresh groups holding the arguments keep accepts. Groups
// without remaining arguments are dropped.
func filterArgs(groups []phphints.CallGroup, keep func(phphints.Argument) bool) []phphints.CallGroup {
	out := make([]phphints.CallGroup, 0, len(groups))

	for _, g := range groups {
		var args []phphints.Argument

		for _, a := range g.Args {
			if keep(a) {
				args = append(args, a)
			}
		}

		if len(args) == 0 {
			continue
		}

		g.Args = args
		out = append(out, g)
	}

	return out
}

// Package resolver turns filtered call groups into parameter-name hints.
package resolver

import (
	"context"
	"strings"

	phphints "github.com/php-hints/phphints"
	"github.com/php-hints/phphints/signature"
)

// Hint is one label to draw in front of an argument.
type Hint struct {
	Label    string            `json:"label"`
	Position phphints.Position `json:"position"`
	Param    string            `json:"param"`
	Kind     phphints.ArgKind  `json:"kind"`
	Callee   string            `json:"callee"`
}

// Options control which hints are produced and how labels read.
type Options struct {
	// SuppressNamed drops hints for name: value arguments, whose label would
	// repeat what is already written.
	SuppressNamed bool

	TypeMode       phphints.TypeMode
	ShowDollarSign bool
	// ShowFullType keeps namespaces in type labels.
	ShowFullType bool
	// CollapseWhenEqual drops the hint when the argument is a variable named
	// like the parameter.
	CollapseWhenEqual bool

	// MaxHints caps ResolveAll. Zero means phphints.DefaultMaxHints.
	MaxHints int

	// OnSkip, when set, is told about every group that produced no hints
	// because its signature could not be resolved.
	OnSkip func(g phphints.CallGroup, err error)
}

// FromSettings maps user settings to Options.
func FromSettings(s phphints.Settings) Options {
	return Options{
		SuppressNamed:     s.SuppressNamedArguments,
		TypeMode:          s.HintTypeName,
		ShowDollarSign:    s.ShowDollarSign,
		ShowFullType:      s.ShowFullType,
		CollapseWhenEqual: s.CollapseHintsWhenEqual,
		MaxHints:          s.MaxHints,
	}
}

// Resolve labels the arguments of g. Lookup failures are returned and the
// group yields no hints.
func Resolve(ctx context.Context, session *signature.Session, g phphints.CallGroup, opts Options) ([]Hint, error) {
	sig, err := session.Lookup(ctx, g)
	if err != nil {
		return nil, err
	}

	variadic, hasVariadic := sig.Variadic()
	callee := g.Callee()
	hints := make([]Hint, 0, len(g.Args))
	unpacked := false

	for _, arg := range g.Args {
		var (
			param signature.Param
			ok    bool
		)

		switch {
		case arg.Named():
			if opts.SuppressNamed {
				continue
			}

			// The written name labels the argument; the signature only adds
			// the type.
			param, ok = sig.Param(arg.Name)
			if !ok {
				param, ok = signature.Param{Name: arg.Name}, true
				if hasVariadic {
					param.Type = variadic.Type
				}
			}

		case arg.Unpack:
			unpacked = true

		case unpacked:

		case arg.Index < len(sig.Params):
			param, ok = sig.Params[arg.Index], true

		case hasVariadic:
			param, ok = variadic, true
		}

		if !ok {
			continue
		}

		if opts.CollapseWhenEqual && arg.Variable != "" && arg.Variable == param.Name {
			continue
		}

		hints = append(hints, Hint{
			Label:    opts.label(param),
			Position: arg.Start,
			Param:    param.Name,
			Kind:     arg.Kind,
			Callee:   callee,
		})
	}

	return hints, nil
}

// ResolveAll resolves groups in order and stops at MaxHints. Groups that fail
// to resolve are skipped. A cancelled context yields nil, never a partial
// result.
func ResolveAll(ctx context.Context, session *signature.Session, groups []phphints.CallGroup, opts Options) []Hint {
	limit := opts.MaxHints
	if limit <= 0 {
		limit = phphints.DefaultMaxHints
	}

	var out []Hint

	for _, g := range groups {
		if ctx.Err() != nil {
			return nil
		}

		hints, err := Resolve(ctx, session, g, opts)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			if opts.OnSkip != nil {
				opts.OnSkip(g, err)
			}

			continue
		}

		for _, h := range hints {
			out = append(out, h)

			if len(out) == limit {
				return out
			}
		}
	}

	if ctx.Err() != nil {
		return nil
	}

	return out
}

func (o Options) label(p signature.Param) string {
	name := p.Name
	if o.ShowDollarSign {
		name = "$" + name
	}

	if p.ByRef {
		name = "&" + name
	}

	typ := p.Type
	if typ != "" && !o.ShowFullType {
		typ = shortType(typ)
	}

	switch {
	case o.TypeMode == phphints.TypeModeTypeAndName && typ != "":
		return typ + " " + name + ":"
	case o.TypeMode == phphints.TypeModeType && typ != "":
		return typ + ":"
	default:
		return name + ":"
	}
}

// shortType drops namespaces from every class in a type expression:
// ?\App\Models\User|null -> ?User|null.
func shortType(typ string) string {
	var sb strings.Builder

	start := 0

	for i := 0; i <= len(typ); i++ {
		if i < len(typ) && !strings.ContainsRune("|&()?", rune(typ[i])) {
			continue
		}

		segment := typ[start:i]
		if j := strings.LastIndexByte(segment, '\\'); j >= 0 {
			segment = segment[j+1:]
		}

		sb.WriteString(segment)

		if i < len(typ) {
			sb.WriteByte(typ[i])
		}

		start = i + 1
	}

	return sb.String()
}

// Package signature looks up the declared parameters of a callee.
package signature

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	phphints "github.com/php-hints/phphints"
)

var (
	// ErrNotFound is returned when a source knows no declaration for a callee.
	ErrNotFound = errors.New("signature not found")
	// ErrAmbiguous is returned when several different declarations match.
	ErrAmbiguous = errors.New("ambiguous signature")
)

// Param is one declared parameter.
type Param = phphints.Parameter

// Signature is the parameter list of a callee.
type Signature struct {
	Name   string  `json:"name"`
	Class  string  `json:"class,omitempty"`
	Params []Param `json:"params"`
}

// Variadic returns the trailing variadic parameter, if any.
func (s *Signature) Variadic() (Param, bool) {
	if len(s.Params) == 0 {
		return Param{}, false
	}

	last := s.Params[len(s.Params)-1]

	return last, last.Variadic
}

// Param returns the parameter called name. PHP parameter names are case
// sensitive.
func (s *Signature) Param(name string) (Param, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}

	return Param{}, false
}

// Source resolves a call group to the signature of its callee.
type Source interface {
	Lookup(ctx context.Context, g phphints.CallGroup) (*Signature, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, g phphints.CallGroup) (*Signature, error)

// Lookup calls f.
func (f SourceFunc) Lookup(ctx context.Context, g phphints.CallGroup) (*Signature, error) {
	return f(ctx, g)
}

// chain tries sources in order.
type chain []Source

// Chain returns a Source asking each source in turn. The first signature
// found wins. ErrAmbiguous and context errors stop the chain; other failures
// fall through to the next source and are reported only when no source
// succeeds.
func Chain(sources ...Source) Source {
	c := make(chain, 0, len(sources))

	for _, s := range sources {
		if s != nil {
			c = append(c, s)
		}
	}

	return c
}

func (c chain) Lookup(ctx context.Context, g phphints.CallGroup) (*Signature, error) {
	var failure error

	for _, s := range c {
		sig, err := s.Lookup(ctx, g)

		switch {
		case err == nil:
			return sig, nil
		case errors.Is(err, ErrNotFound):
			continue
		case errors.Is(err, ErrAmbiguous), ctx.Err() != nil:
			return nil, err
		case failure == nil:
			failure = err
		}
	}

	if failure != nil {
		return nil, failure
	}

	return nil, notFound(g)
}

func notFound(g phphints.CallGroup) error {
	return fmt.Errorf("%w: %s", ErrNotFound, g.Callee())
}

// match picks the declaration g calls out of decls.
func match(decls []phphints.Declaration, g phphints.CallGroup) (*Signature, error) {
	var candidates []phphints.Declaration

	switch g.Kind {
	case phphints.CallFunction:
		for _, d := range decls {
			if d.Class == "" && strings.EqualFold(d.Name, g.Name) {
				candidates = append(candidates, d)
			}
		}

	case phphints.CallNew:
		for _, d := range decls {
			if d.IsConstructor() && strings.EqualFold(d.Class, g.Name) {
				candidates = append(candidates, d)
			}
		}

	case phphints.CallMethod, phphints.CallStatic:
		var scoped []phphints.Declaration

		for _, d := range decls {
			if d.Class == "" || !strings.EqualFold(d.Name, g.Name) {
				continue
			}

			candidates = append(candidates, d)

			if g.Scope != "" && strings.EqualFold(d.Class, g.Scope) {
				scoped = append(scoped, d)
			}
		}

		if len(scoped) > 0 {
			candidates = scoped
		}
	}

	if len(candidates) == 0 {
		return nil, notFound(g)
	}

	first := candidates[0]

	for _, d := range candidates[1:] {
		if !sameParams(first.Params, d.Params) {
			return nil, fmt.Errorf("%w: %s has %d candidates", ErrAmbiguous, g.Callee(), len(candidates))
		}
	}

	return fromDeclaration(first), nil
}

func sameParams(a, b []Param) bool {
	return slices.EqualFunc(a, b, func(x, y Param) bool {
		return x.Name == y.Name && x.Variadic == y.Variadic
	})
}

func fromDeclaration(d phphints.Declaration) *Signature {
	return &Signature{
		Name:   d.Name,
		Class:  d.Class,
		Params: slices.Clone(d.Params),
	}
}

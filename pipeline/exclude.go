package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	phphints "github.com/php-hints/phphints"
)

// ErrExprNotBool is returned when an exclusion does not evaluate to a bool.
var ErrExprNotBool = errors.New("exclusion must evaluate to a boolean")

// Exclusion is a compiled hintExclude expression. The expression sees:
//
//	callee string  // foo, A::bar, ->bar, new A
//	name   string  // bare function, method or class name
//	kind   string  // function, method, static or new
//	scope  string  // resolved class for static and $this calls
//	args   int     // number of arguments
type Exclusion struct {
	source  string
	program *vm.Program
}

func exclusionEnv(g phphints.CallGroup) map[string]any {
	return map[string]any{
		"callee": g.Callee(),
		"name":   g.Name,
		"kind":   g.Kind.String(),
		"scope":  g.Scope,
		"args":   len(g.Args),
	}
}

// CompileExclusion compiles source. A blank source yields a nil Exclusion.
func CompileExclusion(source string) (*Exclusion, error) {
	if strings.TrimSpace(source) == "" {
		return nil, nil //nolint:nilnil // nothing to exclude
	}

	program, err := expr.Compile(source, expr.Env(exclusionEnv(phphints.CallGroup{})), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile exclusion %q: %w", source, err)
	}

	return &Exclusion{source: source, program: program}, nil
}

// String returns the expression source.
func (e *Exclusion) String() string {
	return e.source
}

// Eval runs the expression against g.
func (e *Exclusion) Eval(g phphints.CallGroup) (bool, error) {
	output, err := expr.Run(e.program, exclusionEnv(g))
	if err != nil {
		return false, fmt.Errorf("evaluate exclusion %q: %w", e.source, err)
	}

	matched, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q returned %T", ErrExprNotBool, e.source, output)
	}

	return matched, nil
}

// Match reports whether g should be dropped. Evaluation errors keep the group.
func (e *Exclusion) Match(g phphints.CallGroup) bool {
	matched, err := e.Eval(g)

	return err == nil && matched
}

package signature

import (
	"context"
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	phphints "github.com/php-hints/phphints"
)

//go:embed builtins.yaml
var builtinsYAML []byte

type builtinTable struct {
	Functions map[string]string `yaml:"functions"`
	Classes   map[string]string `yaml:"classes"`
}

// Builtins resolves common functions and classes shipped with PHP.
type Builtins struct {
	once  sync.Once
	decls []phphints.Declaration
	err   error
}

// NewBuiltins returns the builtin source. The table is loaded on first use.
func NewBuiltins() *Builtins {
	return &Builtins{}
}

func (b *Builtins) load() {
	var table builtinTable

	if err := yaml.Unmarshal(builtinsYAML, &table); err != nil {
		b.err = fmt.Errorf("load builtin signatures: %w", err)

		return
	}

	b.decls = phphints.ParseDeclarations([]byte(table.source()))
}

// source renders the table as PHP so it goes through the declaration parser.
func (t builtinTable) source() string {
	var sb strings.Builder

	sb.WriteString("<?php\n")

	for _, name := range sortedKeys(t.Functions) {
		fmt.Fprintf(&sb, "function %s(%s) {}\n", name, t.Functions[name])
	}

	for _, name := range sortedKeys(t.Classes) {
		fmt.Fprintf(&sb, "class %s { function __construct(%s) {} }\n", name, t.Classes[name])
	}

	return sb.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}

// Declarations returns every builtin declaration.
func (b *Builtins) Declarations() ([]phphints.Declaration, error) {
	b.once.Do(b.load)

	return b.decls, b.err
}

// Lookup implements Source. Only plain functions and constructors are known.
func (b *Builtins) Lookup(_ context.Context, g phphints.CallGroup) (*Signature, error) {
	if g.Kind != phphints.CallFunction && g.Kind != phphints.CallNew {
		return nil, notFound(g)
	}

	decls, err := b.Declarations()
	if err != nil {
		return nil, err
	}

	return match(decls, g)
}

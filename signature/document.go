package signature

import (
	"context"

	phphints "github.com/php-hints/phphints"
)

// Document resolves callees declared in a single PHP source.
type Document struct {
	decls []phphints.Declaration
}

// NewDocument parses the declarations of src.
func NewDocument(src []byte) *Document {
	return &Document{decls: phphints.ParseDeclarations(src)}
}

// Declarations returns the parsed declarations.
func (d *Document) Declarations() []phphints.Declaration {
	return d.decls
}

// Lookup implements Source.
func (d *Document) Lookup(_ context.Context, g phphints.CallGroup) (*Signature, error) {
	return match(d.decls, g)
}

package phphints

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// Parameter is one declared parameter of a function or method.
type Parameter struct {
	Name     string `json:"name" yaml:"name"`
	Type     string `json:"type,omitempty" yaml:"type,omitempty"`
	Optional bool   `json:"optional,omitempty" yaml:"optional,omitempty"`
	Variadic bool   `json:"variadic,omitempty" yaml:"variadic,omitempty"`
	Promoted bool   `json:"promoted,omitempty" yaml:"-"`
	ByRef    bool   `json:"by_ref,omitempty" yaml:"by_ref,omitempty"`
}

// Declaration is a function or method declared in PHP source.
type Declaration struct {
	Name   string      `json:"name"`
	Class  string      `json:"class,omitempty"`
	Params []Parameter `json:"params"`
	Range  Range       `json:"range"`
}

// IsConstructor reports whether d declares a class constructor.
func (d Declaration) IsConstructor() bool {
	return d.Class != "" && strings.EqualFold(d.Name, "__construct")
}

// ParseDeclarations returns the functions and methods declared in src, in
// source order. Like Parse it never fails.
func ParseDeclarations(src []byte) []Declaration {
	tree := parseTree(src)
	if tree == nil {
		return nil
	}
	defer tree.Close()

	w := &declWalker{src: src, lines: newLineIndex(src)}
	w.walk(tree.RootNode(), "")

	return w.decls
}

type declWalker struct {
	src   []byte
	lines *lineIndex
	decls []Declaration
}

func (w *declWalker) walk(node *tree_sitter.Node, class string) {
	if node == nil || node.IsMissing() {
		return
	}

	switch node.Kind() {
	case "class_declaration", "interface_declaration", "trait_declaration", "enum_declaration":
		class = w.text(node.ChildByFieldName("name"))
	case "function_definition":
		w.add(node, "")
	case "method_declaration":
		w.add(node, class)
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		w.walk(node.Child(i), class)
	}
}

func (w *declWalker) add(node *tree_sitter.Node, class string) {
	name := w.text(node.ChildByFieldName("name"))
	params := node.ChildByFieldName("parameters")

	if name == "" || params == nil || params.HasError() {
		return
	}

	start, end := node.StartPosition(), node.EndPosition()

	w.decls = append(w.decls, Declaration{
		Name:   name,
		Class:  class,
		Params: w.parameters(params),
		Range: Range{
			Start: w.lines.position(start.Row, start.Column),
			End:   w.lines.position(end.Row, end.Column),
		},
	})
}

func (w *declWalker) parameters(list *tree_sitter.Node) []Parameter {
	params := make([]Parameter, 0, list.NamedChildCount())

	for i := uint(0); i < list.NamedChildCount(); i++ {
		child := list.NamedChild(i)
		if child == nil {
			continue
		}

		var p Parameter

		switch child.Kind() {
		case "simple_parameter":
			p.Optional = child.ChildByFieldName("default_value") != nil
		case "variadic_parameter":
			p.Variadic = true
			p.Optional = true
		case "property_promotion_parameter":
			p.Promoted = true
			p.Optional = child.ChildByFieldName("default_value") != nil
		default:
			continue
		}

		nameNode := child.ChildByFieldName("name")
		if nameNode != nil && nameNode.Kind() == "by_ref" {
			p.ByRef = true
		}

		p.Name = strings.TrimLeft(w.text(nameNode), "&$")
		p.Type = w.text(child.ChildByFieldName("type"))

		if child.ChildByFieldName("reference_modifier") != nil {
			p.ByRef = true
		}

		if p.Name != "" {
			params = append(params, p)
		}
	}

	return params
}

func (w *declWalker) text(node *tree_sitter.Node) string {
	if node == nil {
		return ""
	}

	return node.Utf8Text(w.src)
}

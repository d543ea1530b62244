package phphints

import (
	"fmt"
	"strings"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
)

var (
	languageOnce sync.Once
	phpLanguage  *tree_sitter.Language
	parserPool   *sync.Pool
)

func initLanguage() {
	languageOnce.Do(func() {
		phpLanguage = tree_sitter.NewLanguage(tree_sitter_php.LanguagePHP())
		parserPool = &sync.Pool{
			New: func() any {
				p := tree_sitter.NewParser()
				if err := p.SetLanguage(phpLanguage); err != nil {
					panic(fmt.Sprintf("set language: %v", err))
				}

				return p
			},
		}
	})
}

// parseTree parses src with a pooled parser. The caller must Close the tree.
func parseTree(src []byte) *tree_sitter.Tree {
	initLanguage()

	p, _ := parserPool.Get().(*tree_sitter.Parser)
	if p == nil {
		return nil
	}

	tree := p.Parse(src, nil)
	parserPool.Put(p)

	return tree
}

// Parse returns every call expression in src that has at least one argument,
// in source order. It is safe for concurrent use and never fails: spans the
// grammar cannot make sense of are skipped and the rest is still returned.
func Parse(src []byte) []CallGroup {
	tree := parseTree(src)
	if tree == nil {
		return nil
	}
	defer tree.Close()

	w := &callWalker{src: src, lines: newLineIndex(src)}
	w.walk(tree.RootNode())

	return w.groups
}

// ParseString is Parse for string input.
func ParseString(text string) []CallGroup {
	return Parse([]byte(text))
}

// classScope is the class body a walker is currently inside.
type classScope struct {
	name   string
	parent string
}

type callWalker struct {
	src     []byte
	lines   *lineIndex
	classes []classScope
	groups  []CallGroup
}

func (w *callWalker) walk(node *tree_sitter.Node) {
	if node == nil || node.IsMissing() {
		return
	}

	pushed := w.enterClass(node)

	if group, ok := w.callGroup(node); ok {
		w.groups = append(w.groups, group)
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		w.walk(node.Child(i))
	}

	if pushed {
		w.classes = w.classes[:len(w.classes)-1]
	}
}

func (w *callWalker) enterClass(node *tree_sitter.Node) bool {
	switch node.Kind() {
	case "class_declaration", "trait_declaration", "enum_declaration":
	default:
		return false
	}

	scope := classScope{name: w.text(node.ChildByFieldName("name"))}

	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child != nil && child.Kind() == "base_clause" && child.NamedChildCount() > 0 {
			scope.parent = lastSegment(w.text(child.NamedChild(0)))
		}
	}

	w.classes = append(w.classes, scope)

	return true
}

func (w *callWalker) currentClass() classScope {
	if len(w.classes) == 0 {
		return classScope{}
	}

	return w.classes[len(w.classes)-1]
}

func (w *callWalker) callGroup(node *tree_sitter.Node) (CallGroup, bool) {
	var (
		group    CallGroup
		argsNode *tree_sitter.Node
	)

	switch node.Kind() {
	case "function_call_expression":
		group.Kind = CallFunction
		group.Name = lastSegment(w.text(node.ChildByFieldName("function")))
		argsNode = node.ChildByFieldName("arguments")

	case "member_call_expression", "nullsafe_member_call_expression":
		group.Kind = CallMethod
		group.Name = w.text(node.ChildByFieldName("name"))
		argsNode = node.ChildByFieldName("arguments")

		if w.text(node.ChildByFieldName("object")) == "$this" {
			group.Scope = w.currentClass().name
		}

	case "scoped_call_expression":
		group.Kind = CallStatic
		group.Name = w.text(node.ChildByFieldName("name"))
		group.Scope = w.resolveScope(w.text(node.ChildByFieldName("scope")))
		argsNode = node.ChildByFieldName("arguments")

	case "object_creation_expression":
		group.Kind = CallNew

		for i := uint(0); i < node.NamedChildCount(); i++ {
			child := node.NamedChild(i)
			if child == nil {
				continue
			}

			switch child.Kind() {
			case "arguments":
				argsNode = child
			case "name", "qualified_name", "relative_scope":
				group.Name = w.resolveScope(w.text(child))
			}
		}

	default:
		return CallGroup{}, false
	}

	if argsNode == nil || argsNode.HasError() || group.Name == "" {
		return CallGroup{}, false
	}

	group.Range = w.rangeOf(node)
	group.Args = w.arguments(argsNode)

	if len(group.Args) == 0 {
		return CallGroup{}, false
	}

	return group, true
}

// resolveScope maps self/static/parent to the enclosing class names.
func (w *callWalker) resolveScope(scope string) string {
	switch strings.ToLower(scope) {
	case "self", "static":
		if name := w.currentClass().name; name != "" {
			return name
		}
	case "parent":
		if name := w.currentClass().parent; name != "" {
			return name
		}
	}

	return lastSegment(scope)
}

func (w *callWalker) arguments(argsNode *tree_sitter.Node) []Argument {
	var args []Argument

	for i := uint(0); i < argsNode.NamedChildCount(); i++ {
		child := argsNode.NamedChild(i)
		if child == nil || child.Kind() != "argument" {
			continue
		}

		arg, ok := w.argument(child, len(args))
		if !ok {
			continue
		}

		args = append(args, arg)
	}

	return args
}

func (w *callWalker) argument(node *tree_sitter.Node, index int) (Argument, bool) {
	var value *tree_sitter.Node

	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil || child.Kind() == "comment" {
			continue
		}

		switch node.FieldNameForNamedChild(uint32(i)) { //nolint:gosec // G115: child counts are small
		case "name", "reference_modifier":
			continue
		}

		value = child
	}

	if value == nil {
		return Argument{}, false
	}

	arg := Argument{
		Kind:  w.classify(value),
		Start: w.lines.position(value.StartPosition().Row, value.StartPosition().Column),
		End:   w.lines.position(value.EndPosition().Row, value.EndPosition().Column),
		Name:  w.text(node.ChildByFieldName("name")),
		Index: index,
	}

	switch value.Kind() {
	case "variadic_unpacking":
		arg.Unpack = true
	case "variable_name":
		arg.Variable = strings.TrimPrefix(w.text(value), "$")
	}

	return arg, true
}

func (w *callWalker) classify(value *tree_sitter.Node) ArgKind {
	switch value.Kind() {
	case "integer", "float":
		return KindNumber
	case "boolean":
		return KindBoolean
	case "null":
		if w.text(value) == "null" {
			return KindNull
		}

		return KindNullKeyword
	case "string":
		return KindString
	case "encapsed_string":
		if w.interpolated(value) {
			return KindEncapsed
		}

		return KindString
	case "heredoc":
		return KindEncapsed
	case "nowdoc":
		return KindNowdoc
	case "array_creation_expression":
		return KindArray
	case "name":
		if isMagicConstant(w.text(value)) {
			return KindMagic
		}
	case "unary_op_expression":
		operand := value.ChildByFieldName("argument")
		operator := value.ChildByFieldName("operator")

		if operand != nil && operator != nil && (w.text(operator) == "-" || w.text(operator) == "+") {
			if k := w.classify(operand); k == KindNumber {
				return KindNumber
			}
		}
	}

	return KindOther
}

func (w *callWalker) interpolated(node *tree_sitter.Node) bool {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}

		switch child.Kind() {
		case "string_content", "escape_sequence":
		default:
			return true
		}
	}

	return false
}

func (w *callWalker) rangeOf(node *tree_sitter.Node) Range {
	start, end := node.StartPosition(), node.EndPosition()

	return Range{
		Start: w.lines.position(start.Row, start.Column),
		End:   w.lines.position(end.Row, end.Column),
	}
}

func (w *callWalker) text(node *tree_sitter.Node) string {
	if node == nil {
		return ""
	}

	return node.Utf8Text(w.src)
}

// isMagicConstant matches __LINE__, __CLASS__ and friends.
func isMagicConstant(name string) bool {
	if len(name) < 5 || !strings.HasPrefix(name, "__") || !strings.HasSuffix(name, "__") {
		return false
	}

	for _, r := range name[2 : len(name)-2] {
		if (r < 'A' || r > 'Z') && r != '_' {
			return false
		}
	}

	return true
}

// lastSegment strips a namespace qualifier: \App\Util\format -> format.
func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '\\'); i >= 0 {
		return name[i+1:]
	}

	return name
}

// Package fnexpr parses and rewrites update-function expressions.
//
// An expression is a Boolean formula over identifiers built from !, not,
// &&, ||, and, or, ==, != and the ternary operator, plus calls to
// uninterpreted functions: "f(a, !b) || c". Parsing is delegated to
// github.com/expr-lang/expr; the resulting tree is restricted to that
// subset and printed back in normalized form.
package fnexpr

import (
	"fmt"
	"slices"
	"sort"

	"github.com/expr-lang/expr/parser"
)

// Expression is an immutable, validated formula. The zero value is the
// empty expression, which stands for an unspecified function.
type Expression struct {
	text      string
	variables []string
	calls     map[string]int
}

// Parse validates src and returns its normalized expression. Blank input
// yields the empty expression.
func Parse(src string) (Expression, error) {
	if isBlank(src) {
		return Expression{}, nil
	}
	tree, err := parser.Parse(src)
	if err != nil {
		return Expression{}, fmt.Errorf("parse expression %q: %w", src, err)
	}
	refs, err := collect(tree.Node)
	if err != nil {
		return Expression{}, fmt.Errorf("expression %q: %w", src, err)
	}
	return refs.expression(tree.Node), nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(src string) Expression {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

// String returns the normalized text. The empty expression prints as "".
func (e Expression) String() string { return e.text }

// IsEmpty reports whether the expression is unspecified.
func (e Expression) IsEmpty() bool { return e.text == "" }

// Variables returns the sorted, distinct identifiers used as operands.
func (e Expression) Variables() []string { return slices.Clone(e.variables) }

// Functions returns the sorted, distinct names of called functions.
func (e Expression) Functions() []string {
	names := make([]string, 0, len(e.calls))
	for name := range e.calls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Arity returns the number of arguments name is called with.
func (e Expression) Arity(name string) (int, bool) {
	n, ok := e.calls[name]
	return n, ok
}

// UsesVariable reports whether name appears as an operand.
func (e Expression) UsesVariable(name string) bool {
	_, found := slices.BinarySearch(e.variables, name)
	return found
}

// UsesFunction reports whether name is called.
func (e Expression) UsesFunction(name string) bool {
	_, ok := e.calls[name]
	return ok
}

// RenameVariable returns a copy with every operand from replaced by to.
func (e Expression) RenameVariable(from, to string) (Expression, error) {
	if !e.UsesVariable(from) {
		return e, nil
	}
	if !CanBeOperand(to) {
		return Expression{}, fmt.Errorf("%s is a reserved word and cannot be a variable", to)
	}
	return e.rewrite(func(r *references) {
		for _, n := range r.operands {
			if n.Value == from {
				n.Value = to
			}
		}
	})
}

// RenameFunction returns a copy with every call to from redirected to to.
func (e Expression) RenameFunction(from, to string) (Expression, error) {
	if !e.UsesFunction(from) {
		return e, nil
	}
	if !CanBeCalled(to) {
		return Expression{}, fmt.Errorf("%s is a reserved name and cannot be called", to)
	}
	return e.rewrite(func(r *references) {
		for _, n := range r.callees {
			if n.Value == from {
				n.Value = to
			}
		}
	})
}

func (e Expression) rewrite(edit func(*references)) (Expression, error) {
	tree, err := parser.Parse(e.text)
	if err != nil {
		return Expression{}, fmt.Errorf("reparse expression %q: %w", e.text, err)
	}
	refs, err := collect(tree.Node)
	if err != nil {
		return Expression{}, err
	}
	edit(refs)
	// The edited tree must read back as itself: renaming can merge two
	// callees with different arities, and the printed text is what gets
	// parsed on the next load.
	return Parse(tree.Node.String())
}

// Equal reports whether two expressions have the same normalized text.
func (e Expression) Equal(other Expression) bool { return e.text == other.text }

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

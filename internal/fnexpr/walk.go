package fnexpr

import (
	"fmt"
	"sort"

	"github.com/expr-lang/expr/ast"
)

type references struct {
	operands []*ast.IdentifierNode
	callees  []*ast.IdentifierNode
	calls    map[string]int
}

func collect(root ast.Node) (*references, error) {
	r := &references{calls: make(map[string]int)}
	if err := r.visit(root); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *references) visit(node ast.Node) error {
	switch n := node.(type) {
	case *ast.IdentifierNode:
		r.operands = append(r.operands, n)
		return nil
	case *ast.BoolNode:
		return nil
	case *ast.UnaryNode:
		switch n.Operator {
		case "!", "not":
			return r.visit(n.Node)
		}
		return fmt.Errorf("unsupported unary operator %q", n.Operator)
	case *ast.BinaryNode:
		switch n.Operator {
		case "&&", "||", "and", "or", "==", "!=":
		default:
			return fmt.Errorf("unsupported binary operator %q", n.Operator)
		}
		if err := r.visit(n.Left); err != nil {
			return err
		}
		return r.visit(n.Right)
	case *ast.ConditionalNode:
		if !n.Ternary {
			return fmt.Errorf("unsupported if/else block")
		}
		for _, child := range []ast.Node{n.Cond, n.Exp1, n.Exp2} {
			if err := r.visit(child); err != nil {
				return err
			}
		}
		return nil
	case *ast.CallNode:
		callee, ok := n.Callee.(*ast.IdentifierNode)
		if !ok {
			return fmt.Errorf("unsupported call target %s", n.Callee.String())
		}
		arity := len(n.Arguments)
		if prev, seen := r.calls[callee.Value]; seen && prev != arity {
			return fmt.Errorf("function %s called with %d and %d arguments", callee.Value, prev, arity)
		}
		r.calls[callee.Value] = arity
		r.callees = append(r.callees, callee)
		for _, arg := range n.Arguments {
			if err := r.visit(arg); err != nil {
				return err
			}
		}
		return nil
	case *ast.BuiltinNode:
		return fmt.Errorf("%s is a reserved name and cannot be called", n.Name)
	case nil:
		return fmt.Errorf("empty expression")
	default:
		return fmt.Errorf("unsupported term %s", node.String())
	}
}

func (r *references) expression(root ast.Node) Expression {
	seen := make(map[string]struct{}, len(r.operands))
	vars := make([]string, 0, len(r.operands))
	for _, n := range r.operands {
		if _, dup := seen[n.Value]; dup {
			continue
		}
		seen[n.Value] = struct{}{}
		vars = append(vars, n.Value)
	}
	sort.Strings(vars)
	return Expression{text: root.String(), variables: vars, calls: r.calls}
}

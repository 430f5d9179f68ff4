package fnexpr

import "github.com/expr-lang/expr/builtin"

// keywords are words expr reads as literals or operators wherever they
// appear, so an identifier spelled this way can never be an operand.
var keywords = map[string]struct{}{
	"true": {}, "false": {}, "nil": {},
	"not": {}, "in": {}, "and": {}, "or": {},
	"matches": {}, "contains": {}, "startsWith": {}, "endsWith": {},
	"let": {}, "if": {}, "else": {},
}

// IsKeyword reports whether name is an expr literal or operator word.
func IsKeyword(name string) bool {
	_, ok := keywords[name]
	return ok
}

// IsBuiltin reports whether name is an expr builtin. A call to a builtin
// is not a call to an uninterpreted function.
func IsBuiltin(name string) bool {
	_, ok := builtin.Index[name]
	return ok
}

// CanBeOperand reports whether name can be referenced as a variable.
func CanBeOperand(name string) bool {
	return !IsKeyword(name)
}

// CanBeCalled reports whether name can be called as an uninterpreted
// function.
func CanBeCalled(name string) bool {
	return !IsKeyword(name) && !IsBuiltin(name)
}

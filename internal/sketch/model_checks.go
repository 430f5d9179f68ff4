package sketch

import (
	"strconv"
	"strings"

	"github.com/roach88/sketchbook/internal/event"
	"github.com/roach88/sketchbook/internal/fnexpr"
	"github.com/roach88/sketchbook/internal/ids"
)

// checkUpdateFn verifies that every operand of e is an existing variable
// (or target itself) and that every call matches a declared function.
func (m *ModelState) checkUpdateFn(target ids.VarID, e fnexpr.Expression) error {
	for _, name := range e.Variables() {
		id, err := ids.Parse[ids.Var](name)
		if err != nil || (id != target && !m.HasVariable(id)) {
			return event.UnknownID("variable", name)
		}
	}
	return m.checkCalls(e, ids.FunctionID{})
}

// checkFunctionExpression verifies the body of function self: operands must
// be its own arguments and calls must target other declared functions.
func (m *ModelState) checkFunctionExpression(self ids.FunctionID, arity int, e fnexpr.Expression) error {
	for _, name := range e.Variables() {
		if i, ok := argumentIndex(name); !ok || i >= arity {
			return event.InvariantViolation(
				"function `%s` takes %d arguments and cannot use `%s`", self, arity, name)
		}
	}
	return m.checkCalls(e, self)
}

func (m *ModelState) checkCalls(e fnexpr.Expression, self ids.FunctionID) error {
	for _, name := range e.Functions() {
		if !self.IsZero() && name == self.String() {
			return event.InvariantViolation("function `%s` cannot call itself", self)
		}
		id, err := ids.Parse[ids.Function](name)
		if err != nil {
			return event.UnknownID("function", name)
		}
		f, ok := m.functions[id]
		if !ok {
			return event.UnknownID("function", name)
		}
		if n, _ := e.Arity(name); n != f.Arity {
			return event.InvariantViolation(
				"function `%s` takes %d arguments but is called with %d", id, f.Arity, n)
		}
	}
	return nil
}

// argumentIndex parses the formal argument names var0, var1, ...
func argumentIndex(name string) (int, bool) {
	digits, ok := strings.CutPrefix(name, "var")
	if !ok || digits == "" || (len(digits) > 1 && digits[0] == '0') {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// updateFnsUsing returns the variables, other than v itself, whose update
// function mentions v.
func (m *ModelState) updateFnsUsing(v ids.VarID) []ids.VarID {
	var users []ids.VarID
	for _, id := range m.VariableIDs() {
		if id != v && m.variables[id].Update.UsesVariable(v.String()) {
			users = append(users, id)
		}
	}
	return users
}

// functionUsers returns the variables and other functions whose
// expressions call f.
func (m *ModelState) functionUsers(f ids.FunctionID) ([]ids.VarID, []ids.FunctionID) {
	var vars []ids.VarID
	for _, id := range m.VariableIDs() {
		if m.variables[id].Update.UsesFunction(f.String()) {
			vars = append(vars, id)
		}
	}
	var fns []ids.FunctionID
	for _, id := range m.FunctionIDs() {
		if id != f && m.functions[id].Expression.UsesFunction(f.String()) {
			fns = append(fns, id)
		}
	}
	return vars, fns
}

func joinIDs[C ids.Category](list []ids.ID[C]) string {
	parts := make([]string, len(list))
	for i, id := range list {
		parts[i] = "`" + id.String() + "`"
	}
	return strings.Join(parts, ", ")
}

// checkVariableID refuses ids expressions would read as a literal or an
// operator: an update function could never reference such a variable.
func checkVariableID(id ids.VarID) error {
	if !fnexpr.CanBeOperand(id.String()) {
		return event.InvariantViolation("`%s` is a reserved word and cannot be a variable id", id)
	}
	return nil
}

// checkFunctionID refuses ids that expressions cannot call.
func checkFunctionID(id ids.FunctionID) error {
	if !fnexpr.CanBeCalled(id.String()) {
		return event.InvariantViolation("`%s` is a reserved name and cannot be a function id", id)
	}
	return nil
}

// Package ids provides type-safe identifiers for sketch components and a
// deterministic, collision-free identifier allocator.
//
// An identifier is unique within exactly one owning collection. The category
// type parameter keeps identifiers of different collections apart at compile
// time: a VarID cannot be passed where a DatasetID is expected.
package ids

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalid is returned when a string does not satisfy the identifier grammar.
var ErrInvalid = errors.New("invalid identifier")

// grammar is shared by all categories: a letter or underscore followed by
// letters, digits and underscores.
var grammar = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Category describes one identifier namespace.
type Category interface {
	// Name is the human-readable category name used in errors.
	Name() string
	// Prefix is prepended by the allocator when a candidate starts with a digit.
	Prefix() string
}

// Category markers.
type (
	Var          struct{}
	Layout       struct{}
	Function     struct{}
	Dataset      struct{}
	Observation  struct{}
	DynProperty  struct{}
	StatProperty struct{}
)

func (Var) Name() string { return "variable" }
func (Var) Prefix() string { return "v_" }

func (Layout) Name() string { return "layout" }
func (Layout) Prefix() string { return "l_" }

func (Function) Name() string { return "function" }
func (Function) Prefix() string { return "f_" }

func (Dataset) Name() string { return "dataset" }
func (Dataset) Prefix() string { return "d_" }

func (Observation) Name() string { return "observation" }
func (Observation) Prefix() string { return "o_" }

func (DynProperty) Name() string { return "dynamic property" }
func (DynProperty) Prefix() string { return "dp_" }

func (StatProperty) Name() string { return "static property" }
func (StatProperty) Prefix() string { return "sp_" }

// ID is a validated identifier in category C.
// The zero value is not a valid identifier; use Parse or Generate.
type ID[C Category] struct {
	value string
}

// Identifier aliases for each category.
type (
	VarID          = ID[Var]
	LayoutID       = ID[Layout]
	FunctionID     = ID[Function]
	DatasetID      = ID[Dataset]
	ObservationID  = ID[Observation]
	DynPropertyID  = ID[DynProperty]
	StatPropertyID = ID[StatProperty]
)

// IsValid reports whether s satisfies the identifier grammar.
func IsValid(s string) bool {
	return grammar.MatchString(s)
}

// Parse validates s and returns it as an identifier of category C.
func Parse[C Category](s string) (ID[C], error) {
	if !IsValid(s) {
		var c C
		return ID[C]{}, fmt.Errorf("%w: %s %q", ErrInvalid, c.Name(), s)
	}
	return ID[C]{value: s}, nil
}

// MustParse is like Parse but panics on invalid input. Intended for tests
// and compile-time constants.
func MustParse[C Category](s string) ID[C] {
	id, err := Parse[C](s)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the identifier text.
func (id ID[C]) String() string {
	return id.value
}

// IsZero reports whether id is the zero (invalid) identifier.
func (id ID[C]) IsZero() bool {
	return id.value == ""
}

// CategoryName returns the name of the identifier's category.
func (id ID[C]) CategoryName() string {
	var c C
	return c.Name()
}

// MarshalText implements encoding.TextMarshaler.
func (id ID[C]) MarshalText() ([]byte, error) {
	return []byte(id.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler with validation.
func (id *ID[C]) UnmarshalText(text []byte) error {
	parsed, err := Parse[C](string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Compare orders identifiers by their text. Used with slices.SortFunc for
// deterministic iteration over map-backed collections.
func Compare[C Category](a, b ID[C]) int {
	switch {
	case a.value < b.value:
		return -1
	case a.value > b.value:
		return 1
	default:
		return 0
	}
}

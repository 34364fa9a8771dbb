// Package filter models the nested-array predicate grammar of the
// SimplyAnalytics query engine as a typed tree.
//
// A tree is built from three node kinds: Literal values, FieldRef markers
// and Expr operator nodes. Every node marshals to the exact JSON shape the
// service expects: literals as plain JSON values, field references as
// {"attribute": name} and expressions as ["op", operand, ...].
package filter

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Op is a predicate operator tag.
type Op string

// Supported operators.
const (
	OpAnd        Op = "and"
	OpOr         Op = "or"
	OpNot        Op = "not"
	OpEq         Op = "="
	OpLike       Op = "~"
	OpStartsWith Op = "startswith"
)

var (
	// ErrArity signals an operator with the wrong number of operands.
	ErrArity = errors.New("filter: wrong number of operands")
	// ErrUnknownOperator signals an operator tag the service does not understand.
	ErrUnknownOperator = errors.New("filter: unknown operator")
	// ErrInvalidNode signals a JSON value that is not a valid tree node.
	ErrInvalidNode = errors.New("filter: invalid node")
)

// Node is a single element of a predicate tree.
type Node interface {
	json.Marshaler
	isNode()
}

// Literal is a constant operand: string, number or bool.
type Literal struct {
	value any
}

// Value wraps a constant operand.
func Value(v any) Literal { return Literal{value: v} }

// String is shorthand for a string literal. Attribute queries name fields
// this way, e.g. Eq(String("status"), String("visible")).
func String(s string) Literal { return Literal{value: s} }

// Int is shorthand for an integer literal.
func Int(n int) Literal { return Literal{value: n} }

// Bool is shorthand for a boolean literal.
func Bool(b bool) Literal { return Literal{value: b} }

// MarshalJSON implements json.Marshaler.
func (l Literal) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.value)
}

func (Literal) isNode() {}

// FieldRef marks a field name so it cannot be mistaken for a string literal.
type FieldRef struct {
	name string
}

// Attr creates a field reference.
func Attr(name string) FieldRef { return FieldRef{name: name} }

// Name returns the referenced field name.
func (f FieldRef) Name() string { return f.name }

// MarshalJSON implements json.Marshaler.
func (f FieldRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"attribute": f.name})
}

func (FieldRef) isNode() {}

// Expr is an operator applied to its operands.
type Expr struct {
	op       Op
	operands []Node
}

// Op returns the operator tag.
func (e Expr) Op() Op { return e.op }

// Operands returns a copy of the operand list.
func (e Expr) Operands() []Node {
	out := make([]Node, len(e.operands))
	copy(out, e.operands)
	return out
}

// MarshalJSON implements json.Marshaler.
func (e Expr) MarshalJSON() ([]byte, error) {
	parts := make([]any, 0, len(e.operands)+1)
	parts = append(parts, string(e.op))
	for _, o := range e.operands {
		parts = append(parts, o)
	}
	return json.Marshal(parts)
}

func (Expr) isNode() {}

// And conjoins one or more sub-expressions.
func And(first Node, rest ...Node) Expr {
	return group(OpAnd, first, rest)
}

// Or disjoins one or more sub-expressions.
func Or(first Node, rest ...Node) Expr {
	return group(OpOr, first, rest)
}

// AllOf is And over a slice. An empty slice is an arity error.
func AllOf(nodes []Node) (Expr, error) {
	if len(nodes) == 0 {
		return Expr{}, fmt.Errorf("%s: %w", OpAnd, ErrArity)
	}
	return And(nodes[0], nodes[1:]...), nil
}

// AnyOf is Or over a slice. An empty slice is an arity error.
func AnyOf(nodes []Node) (Expr, error) {
	if len(nodes) == 0 {
		return Expr{}, fmt.Errorf("%s: %w", OpOr, ErrArity)
	}
	return Or(nodes[0], nodes[1:]...), nil
}

// Not negates exactly one sub-expression.
func Not(n Node) Expr {
	return Expr{op: OpNot, operands: []Node{n}}
}

// Eq matches field and value for equality.
func Eq(field, value Node) Expr {
	return Expr{op: OpEq, operands: []Node{field, value}}
}

// Like is the service's fuzzy substring match.
func Like(field, value Node) Expr {
	return Expr{op: OpLike, operands: []Node{field, value}}
}

// StartsWith is a prefix match.
func StartsWith(field, value Node) Expr {
	return Expr{op: OpStartsWith, operands: []Node{field, value}}
}

func group(op Op, first Node, rest []Node) Expr {
	operands := make([]Node, 0, len(rest)+1)
	operands = append(operands, first)
	operands = append(operands, rest...)
	return Expr{op: op, operands: operands}
}

// Exprs converts a typed expression slice into a node slice.
func Exprs(es []Expr) []Node {
	nodes := make([]Node, len(es))
	for i, e := range es {
		nodes[i] = e
	}
	return nodes
}

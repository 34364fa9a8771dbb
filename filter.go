package simplyanalytics

import "github.com/kailas-cloud/simplyanalytics/internal/domain/filter"

// Predicate tree types re-exported from the domain layer.
type (
	// Node is any element of a predicate tree.
	Node = filter.Node
	// Expr is an operator node such as ["and", ...] or ["=", field, value].
	Expr = filter.Expr
	// Literal is a constant operand.
	Literal = filter.Literal
	// FieldRef marks a field name: {"attribute": name}.
	FieldRef = filter.FieldRef
	// Op is an operator tag.
	Op = filter.Op
)

// Value wraps a constant operand (string, number or bool).
func Value(v any) Literal { return filter.Value(v) }

// Attr creates a field reference.
func Attr(name string) FieldRef { return filter.Attr(name) }

// Eq is ["=", field, value].
func Eq(field, value Node) Expr { return filter.Eq(field, value) }

// Like is ["~", field, value], the service's fuzzy match.
func Like(field, value Node) Expr { return filter.Like(field, value) }

// StartsWith is ["startswith", field, value].
func StartsWith(field, value Node) Expr { return filter.StartsWith(field, value) }

// And is ["and", first, rest...].
func And(first Node, rest ...Node) Expr { return filter.And(first, rest...) }

// Or is ["or", first, rest...].
func Or(first Node, rest ...Node) Expr { return filter.Or(first, rest...) }

// Not is ["not", n].
func Not(n Node) Expr { return filter.Not(n) }

// ParseFilter decodes a wire-format predicate tree, checking operator arity.
func ParseFilter(data []byte) (Node, error) { return filter.Parse(data) }

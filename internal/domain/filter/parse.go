package filter

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Parse decodes a wire-format predicate tree and checks operator arity.
func Parse(data []byte) (Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode filter: %w", err)
	}
	return parseNode(raw)
}

func parseNode(raw any) (Node, error) {
	switch v := raw.(type) {
	case []any:
		return parseExpr(v)
	case map[string]any:
		return parseFieldRef(v)
	case string, bool, json.Number:
		return Literal{value: v}, nil
	default:
		return nil, fmt.Errorf("unexpected %T: %w", raw, ErrInvalidNode)
	}
}

func parseFieldRef(m map[string]any) (Node, error) {
	name, ok := m["attribute"].(string)
	if !ok || len(m) != 1 {
		return nil, fmt.Errorf("object operand must be {\"attribute\": name}: %w", ErrInvalidNode)
	}
	return FieldRef{name: name}, nil
}

func parseExpr(list []any) (Node, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("empty expression: %w", ErrInvalidNode)
	}
	tag, ok := list[0].(string)
	if !ok {
		return nil, fmt.Errorf("expression must start with an operator tag: %w", ErrInvalidNode)
	}

	op := Op(tag)
	if err := checkArity(op, len(list)-1); err != nil {
		return nil, err
	}

	operands := make([]Node, 0, len(list)-1)
	for i, item := range list[1:] {
		n, err := parseNode(item)
		if err != nil {
			return nil, fmt.Errorf("%s operand %d: %w", op, i, err)
		}
		operands = append(operands, n)
	}
	return Expr{op: op, operands: operands}, nil
}

func checkArity(op Op, n int) error {
	switch op {
	case OpAnd, OpOr:
		if n < 1 {
			return fmt.Errorf("%s needs at least 1 operand, got %d: %w", op, n, ErrArity)
		}
	case OpNot:
		if n != 1 {
			return fmt.Errorf("%s needs exactly 1 operand, got %d: %w", op, n, ErrArity)
		}
	case OpEq, OpLike, OpStartsWith:
		if n != 2 {
			return fmt.Errorf("%s needs exactly 2 operands, got %d: %w", op, n, ErrArity)
		}
	default:
		return fmt.Errorf("%q: %w", string(op), ErrUnknownOperator)
	}
	return nil
}

package filter

import "fmt"

// MaxConditions is the maximum number of conditions per expression.
const MaxConditions = 32

// Expression is a conjunction of conditions.
type Expression struct {
	must []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must ...Condition) (Expression, error) {
	if len(must) > MaxConditions {
		return Expression{}, fmt.Errorf("too many conditions (max %d)", MaxConditions)
	}
	return Expression{must: must}, nil
}

// Must returns the conditions.
func (e Expression) Must() []Condition { return e.must }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool { return len(e.must) == 0 }

// Op is a comparison operator.
type Op string

// OpAfter is the strict greater-than operator used by key cursors.
const OpAfter Op = "gt"

// Condition compares a field with a string value.
type Condition struct {
	key   string
	op    Op
	value string
}

// NewAfter creates a strict greater-than condition, used for key cursors.
func NewAfter(key, value string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	return Condition{key: key, op: OpAfter, value: value}, nil
}

// KeyAfter builds the single-condition expression "key > cursor".
func KeyAfter(key, cursor string) (Expression, error) {
	c, err := NewAfter(key, cursor)
	if err != nil {
		return Expression{}, err
	}
	return NewExpression(c)
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Op returns the operator.
func (c Condition) Op() Op { return c.op }

// Value returns the compared value.
func (c Condition) Value() string { return c.value }

// IsAfter reports whether this is a greater-than condition.
func (c Condition) IsAfter() bool { return c.op == OpAfter }

package store

// Op is a comparison supported by the query capability.
type Op int

const (
	OpEqual Op = iota
	OpBetween
	OpLessThan
)

func (o Op) String() string {
	switch o {
	case OpEqual:
		return "="
	case OpBetween:
		return "BETWEEN"
	case OpLessThan:
		return "<"
	}
	return "?"
}

// Condition compares one attribute against one or two values. It is used both
// as a key condition for queries and as a filter for scans.
type Condition struct {
	Name   string
	Op     Op
	Values []any
}

func Equal(name string, v any) Condition {
	return Condition{Name: name, Op: OpEqual, Values: []any{v}}
}

// Between is inclusive on both ends.
func Between(name string, lo, hi any) Condition {
	return Condition{Name: name, Op: OpBetween, Values: []any{lo, hi}}
}

func LessThan(name string, v any) Condition {
	return Condition{Name: name, Op: OpLessThan, Values: []any{v}}
}

func (c Condition) valid() bool {
	if c.Name == "" {
		return false
	}
	if c.Op == OpBetween {
		return len(c.Values) == 2
	}
	return len(c.Values) == 1
}

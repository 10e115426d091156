// Package types implements the three-member type lattice used by the
// semantic checker: Int, Bytes, and Expr (the polymorphic "unknown" type).
package types

// Type is one of Int, Bytes, or Expr.
type Type int

const (
	// Int is the type of arithmetic and comparison operands.
	Int Type = iota
	// Bytes is the type of concatenation and slicing operands.
	Bytes
	// Expr is the polymorphic type assigned when a static type cannot be
	// determined, e.g. the result of an if/else with heterogeneous branches.
	Expr
)

func (t Type) String() string {
	switch t {
	case Int:
		return "int"
	case Bytes:
		return "bytes"
	case Expr:
		return "expr"
	default:
		return "unknown"
	}
}

// Unify computes the type resulting from combining two operand types under
// the equality rule (spec.md §3): matching types unify to themselves, and
// Expr unifies with either Int or Bytes to produce the other type. Unify
// returns ok=false when neither side is Expr and the types differ.
func Unify(a, b Type) (Type, bool) {
	if a == b {
		return a, true
	}
	if a == Expr {
		return b, true
	}
	if b == Expr {
		return a, true
	}
	return 0, false
}

// RequireInt reports whether t may be used where an Int is required.
func RequireInt(t Type) bool { return t == Int || t == Expr }

// RequireBytes reports whether t may be used where Bytes is required.
func RequireBytes(t Type) bool { return t == Bytes || t == Expr }

// FromName resolves a source-level type name ("int", "bytes", "expr") to a
// Type, as used in a function's declared return type.
func FromName(name string) (Type, bool) {
	switch name {
	case "int":
		return Int, true
	case "bytes":
		return Bytes, true
	case "expr":
		return Expr, true
	default:
		return 0, false
	}
}

// Assignable reports whether a value of type have may be used where want is
// required: Unify succeeding is exactly this condition.
func Assignable(have, want Type) bool {
	_, ok := Unify(have, want)
	return ok
}

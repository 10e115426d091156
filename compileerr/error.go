// Package compileerr implements the error taxonomy of spec.md §7, modeled
// directly on txscript.ErrorCode / txscript.Error: a Stringer error-code
// enum paired with a rich Error carrying a human description and the
// source span where the problem was detected.
package compileerr

import "fmt"

// ErrorCode identifies a kind of compilation failure. It does not carry
// enough information on its own to report a useful diagnostic — pair it
// with a Description and Span via Error.
type ErrorCode int

const (
	// ErrParse surfaces a parser error verbatim; the core never produces it
	// itself.
	ErrParse ErrorCode = iota
	ErrUnknownName
	ErrRedeclaredName
	ErrImmutableBinding
	ErrMisplacedAssume
	ErrAssumptionAfterImbalancedBranch
	ErrTypeMismatch
	ErrArityMismatch
	ErrInvalidLiteral
	ErrValidationFailed
	ErrStackUnderflow
	ErrInternalInvariant
)

var errorCodeStrings = map[ErrorCode]string{
	ErrParse:                           "ErrParse",
	ErrUnknownName:                     "ErrUnknownName",
	ErrRedeclaredName:                  "ErrRedeclaredName",
	ErrImmutableBinding:                "ErrImmutableBinding",
	ErrMisplacedAssume:                 "ErrMisplacedAssume",
	ErrAssumptionAfterImbalancedBranch: "ErrAssumptionAfterImbalancedBranch",
	ErrTypeMismatch:                    "ErrTypeMismatch",
	ErrArityMismatch:                   "ErrArityMismatch",
	ErrInvalidLiteral:                  "ErrInvalidLiteral",
	ErrValidationFailed:                "ErrValidationFailed",
	ErrStackUnderflow:                  "ErrStackUnderflow",
	ErrInternalInvariant:               "ErrInternalInvariant",
}

// String implements fmt.Stringer, returning the Go identifier of the code
// (e.g. "ErrUnknownName") rather than a prose description.
func (e ErrorCode) String() string {
	if s, ok := errorCodeStrings[e]; ok {
		return s
	}
	return fmt.Sprintf("ErrorCode(%d)", int(e))
}

// Span is the minimal source-location contract an Error needs. compile and
// its upstream stages satisfy this with ast.Span; it is redeclared here
// (rather than imported from ast) so that compileerr has no dependency on
// the AST package it reports errors about.
type Span struct {
	File      string
	StartLine int
	StartCol  int
}

func (s Span) String() string {
	if s.File == "" {
		return fmt.Sprintf("%d:%d", s.StartLine, s.StartCol)
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.StartLine, s.StartCol)
}

// Error is the concrete error type returned by every stage of the core.
// Compilation collects at most one Error per run (spec.md §7: first wins).
type Error struct {
	ErrorCode   ErrorCode
	Description string
	Span        Span
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Span, e.ErrorCode, e.Description)
}

// New builds an Error from a code, a printf-style description, and a span.
func New(code ErrorCode, span Span, format string, args ...interface{}) *Error {
	return &Error{ErrorCode: code, Description: fmt.Sprintf(format, args...), Span: span}
}

// IsErrorCode reports whether err is a *Error (or Error) with the given
// code, mirroring txscript's own IsErrorCode convenience function.
func IsErrorCode(err error, code ErrorCode) bool {
	switch e := err.(type) {
	case *Error:
		return e != nil && e.ErrorCode == code
	case Error:
		return e.ErrorCode == code
	default:
		return false
	}
}

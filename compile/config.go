package compile

import "github.com/bpfs/txsc/emit"

// ImplicitPushPolicy governs how compile treats a bare expression
// statement (one whose value is left on the stack with no surrounding
// push/verify/let) — spec.md §9's open question, resolved per Design Note
// in DESIGN.md: default to warning rather than silently allowing or
// outright rejecting it, since an implicit push is rarely intentional but
// is not on its own unsound.
type ImplicitPushPolicy int

const (
	// ImplicitPushWarn logs a warning and compiles the statement as a
	// push. This is the default.
	ImplicitPushWarn ImplicitPushPolicy = iota
	// ImplicitPushAllow compiles the statement as a push with no warning.
	ImplicitPushAllow
	// ImplicitPushDeny rejects the script with an ErrTypeMismatch error
	// wrapping a descriptive message.
	ImplicitPushDeny
)

// Config controls a single Compile call.
type Config struct {
	// Verbosity is 0 (silent) through 3 (full per-instruction trace), per
	// spec.md's ambient logging stack.
	Verbosity int

	// Optimize runs the optimize package's constant-folding and peephole
	// passes when true.
	Optimize bool

	// ImplicitPushes selects how a bare expression statement is treated.
	ImplicitPushes ImplicitPushPolicy

	// Target selects the emitted form when writing to a filesystem via
	// CompileToFS; Compile itself always returns the lowered ir.Program
	// regardless of Target.
	Target emit.Target
}

// DefaultConfig returns the spec's documented defaults: optimization on,
// implicit pushes warned about, textual (ASM) output.
func DefaultConfig() Config {
	return Config{
		Verbosity:      0,
		Optimize:       true,
		ImplicitPushes: ImplicitPushWarn,
		Target:         emit.TargetASM,
	}
}

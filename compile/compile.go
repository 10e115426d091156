// Package compile wires the pipeline stages — sema, lower, optimize, emit —
// into the single entry point a caller uses to turn a parsed script into
// opcodes: Compile. It owns the one piece of cross-stage policy that does
// not belong in any single stage (spec.md §9's implicit-push question) and
// threads a *logrus.Logger and warning list through every stage rather
// than relying on package-level state, per the Design Note in DESIGN.md.
package compile

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/bpfs/txsc/ast"
	"github.com/bpfs/txsc/compileerr"
	"github.com/bpfs/txsc/emit"
	"github.com/bpfs/txsc/ir"
	"github.com/bpfs/txsc/logging"
	"github.com/bpfs/txsc/lower"
	"github.com/bpfs/txsc/optimize"
	"github.com/bpfs/txsc/sema"
	"github.com/bpfs/txsc/symbols"
)

// Warning is a non-fatal diagnostic collected during compilation: an
// implicit push under ImplicitPushWarn, the only kind Compile records.
type Warning struct {
	Span    ast.Span
	Message string
}

// CompileContext carries everything a single Compile call threads through
// its stages: the logger every stage writes to and the warnings
// accumulated so far. Nothing in this module reaches for package-level
// state instead (Design Note "Global compilation state") — a CompileContext
// value is built once per call and passed down explicitly, rather than a
// logger or table living behind a global.
type CompileContext struct {
	Config   Config
	Log      *logrus.Logger
	Warnings []Warning
}

func newContext(cfg Config, log *logrus.Logger) *CompileContext {
	return &CompileContext{Config: cfg, Log: log}
}

func (cc *CompileContext) warn(span ast.Span, message string) {
	cc.Warnings = append(cc.Warnings, Warning{Span: span, Message: message})
}

// Result is everything a successful Compile call produces.
type Result struct {
	Program  *ir.Program
	Warnings []Warning
}

// Compile runs the full pipeline: semantic checking, the implicit-push
// policy scan, optional AST-level constant folding, lowering to opcode IR,
// and optional peephole optimization. It stops at the first error, per
// spec.md §7.
func Compile(script *ast.Script, cfg Config) (*Result, error) {
	log := logging.New(logging.Config{Verbosity: cfg.Verbosity})
	return CompileWithLogger(script, cfg, log)
}

// CompileWithLogger is Compile, but logs through a caller-supplied logger
// instead of building a fresh one — useful for an embedder that already
// has its own logrus.Logger and wants this compiler's output folded in.
func CompileWithLogger(script *ast.Script, cfg Config, log *logrus.Logger) (*Result, error) {
	cc := newContext(cfg, log)

	cc.scanImplicitPushes(script)
	if cfg.ImplicitPushes == ImplicitPushDeny && len(cc.Warnings) > 0 {
		w := cc.Warnings[0]
		return nil, compileerr.New(compileerr.ErrTypeMismatch, toErrSpan(w.Span),
			"implicit push at %s is denied by configuration", w.Span)
	}

	table := symbols.NewTable()
	checker := sema.NewChecker(table)
	if err := checker.CheckScript(script); err != nil {
		return nil, err
	}

	toLower := script
	if cfg.Optimize {
		toLower = optimize.FoldScript(script)
	}

	lowerer := lower.NewLowerer(cc.Log, cfg.Verbosity)
	prog := ir.NewProgram()
	if err := lowerer.LowerScript(toLower, prog); err != nil {
		return nil, err
	}

	if cfg.Optimize {
		// A second fold pass over the already-folded script is a no-op
		// (optimize.Run's contract); what matters here is the peephole pass
		// over the just-lowered program, plus the verbosity>=3 IR dump.
		_, prog = optimize.Run(toLower, prog, cc.Log, cfg.Verbosity)
	}

	return &Result{Program: prog, Warnings: cc.Warnings}, nil
}

// CompileToFS runs Compile and writes the result to path on fs in cfg's
// configured Target form.
func CompileToFS(fs afero.Fs, path string, script *ast.Script, cfg Config) (*Result, error) {
	result, err := Compile(script, cfg)
	if err != nil {
		return nil, err
	}
	if err := emit.WriteToFS(fs, path, result.Program, cfg.Target); err != nil {
		return nil, err
	}
	return result, nil
}

// scanImplicitPushes walks script for bare expression statements that are
// not markInvalid() and records (and, under ImplicitPushWarn, logs) one
// Warning per occurrence into cc.Warnings. Function bodies are skipped: a
// function's only statement with stack-level effect is its return
// expression, never one of its body statements (sema already rejects
// ast.Push there; an ExprStmt inside a function body has no special
// meaning beyond an ordinary evaluated-and-discarded expression, so it is
// not an "implicit push" in the sense this policy targets).
func (cc *CompileContext) scanImplicitPushes(script *ast.Script) {
	if cc.Config.ImplicitPushes == ImplicitPushAllow {
		return
	}
	var walk func(stmts []ast.Stmt)
	walk = func(stmts []ast.Stmt) {
		for _, s := range stmts {
			switch n := s.(type) {
			case *ast.ExprStmt:
				if call, ok := n.Expr.(*ast.Call); ok && call.Func == "markInvalid" {
					continue
				}
				message := "implicit push: bare expression statement leaves a value on the stack"
				cc.warn(n.Span(), message)
				if cc.Config.ImplicitPushes == ImplicitPushWarn && cc.Log != nil {
					cc.Log.Warnf("%s: %s", n.Span(), message)
				}
			case *ast.If:
				walk(n.ThenBody)
				walk(n.ElseBody)
			case *ast.FuncDecl:
				// Function bodies are never pushed to directly; skip.
			}
		}
	}
	walk(script.Statements)
}

func toErrSpan(s ast.Span) compileerr.Span {
	return compileerr.Span{File: s.File, StartLine: s.StartLine, StartCol: s.StartCol}
}

// Package sema implements the single-pass semantic checker: type and arity
// checking for every operator and built-in call, function-body shape
// validation, markInvalid() poisoning, and conditional-branch balancing
// (spec.md §4.2-§4.4). It runs before lowering, against its own
// *symbols.Table built from the same script in the same order the lowerer
// will later replay it, so the two passes agree on what every name
// resolves to without sharing mutable state between them.
package sema

import (
	"github.com/bpfs/txsc/ast"
	"github.com/bpfs/txsc/builtins"
	"github.com/bpfs/txsc/compileerr"
	"github.com/bpfs/txsc/symbols"
	"github.com/bpfs/txsc/types"
)

// Checker walks a parsed script and reports the first error it finds.
// Compilation stops at the first diagnostic (spec.md §7).
type Checker struct {
	table *symbols.Table
	// insideFunc is non-nil while checking a function body, disallowing
	// nested function declarations, assume, and raw() pushes.
	insideFunc *ast.FuncDecl
}

// NewChecker returns a Checker sharing table. The checker declares stack
// assumptions itself as it reaches each assume statement.
func NewChecker(table *symbols.Table) *Checker {
	return &Checker{table: table}
}

// CheckScript type- and arity-checks every top-level statement in order,
// returning the first error encountered.
func (c *Checker) CheckScript(script *ast.Script) *compileerr.Error {
	return c.checkStmts(script.Statements)
}

func (c *Checker) checkStmts(stmts []ast.Stmt) *compileerr.Error {
	for _, s := range stmts {
		if err := c.checkStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) checkStmt(s ast.Stmt) *compileerr.Error {
	switch n := s.(type) {
	case *ast.Assume:
		if c.insideFunc != nil {
			return compileerr.New(compileerr.ErrMisplacedAssume, toErrSpan(n.Span()),
				"assume is not permitted inside a function body")
		}
		return c.table.AddStackAssumptions(n.Names, n.Span())

	case *ast.LetDecl:
		ty, pure, err := c.checkExpr(n.Expr)
		if err != nil {
			return err
		}
		if !n.Mutable && isSideEffecting(n.Expr) {
			return compileerr.New(compileerr.ErrTypeMismatch, toErrSpan(n.Span()),
				"expected pure expression: %q has a signature-checking call and cannot be bound immutably", n.Name)
		}
		binding := &symbols.ExprBinding{Expr: n.Expr, Ty: ty, Mutable: n.Mutable, PureSingleUse: pure && !n.Mutable}
		return c.table.Declare(n.Name, binding, n.Mutable, n.Span())

	case *ast.Assign:
		binding, lookErr := c.table.Lookup(n.Name, n.Span())
		if lookErr != nil {
			return lookErr
		}
		declTy := binding.Type()
		ty, _, err := c.checkExpr(n.Expr)
		if err != nil {
			return err
		}
		if _, ok := types.Unify(declTy, ty); !ok {
			return compileerr.New(compileerr.ErrTypeMismatch, toErrSpan(n.Span()),
				"cannot assign %s to %q of type %s", ty, n.Name, declTy)
		}
		return c.table.Reassign(n.Name, n.Expr, n.Span())

	case *ast.Verify:
		_, _, err := c.checkExpr(n.Expr)
		return err

	case *ast.Push:
		_, _, err := c.checkExpr(n.Expr)
		return err

	case *ast.ExprStmt:
		if call, ok := n.Expr.(*ast.Call); ok && call.Func == "markInvalid" {
			if len(call.Args) != 0 {
				return compileerr.New(compileerr.ErrArityMismatch, toErrSpan(n.Span()),
					"markInvalid takes no arguments")
			}
			// markInvalid poisons no subsequent semantics (spec.md §4): it
			// only causes the emitter to insert OP_RETURN, after which
			// optimize.deadCodeEliminate keeps pure data pushes and drops
			// everything else. Nothing further is tracked here.
			return nil
		}
		_, _, err := c.checkExpr(n.Expr)
		return err

	case *ast.FuncDecl:
		return c.checkFuncDecl(n)

	case *ast.If:
		return c.checkIf(n)

	default:
		return compileerr.New(compileerr.ErrInternalInvariant, compileerr.Span{},
			"sema: unhandled statement node %T", n)
	}
}

func (c *Checker) checkFuncDecl(n *ast.FuncDecl) *compileerr.Error {
	if c.insideFunc != nil {
		return compileerr.New(compileerr.ErrMisplacedAssume, toErrSpan(n.Span()),
			"nested function declarations are not permitted")
	}

	c.table.EnterScope()
	scopeOpen := true
	defer func() {
		if scopeOpen {
			c.table.ExitScope()
		}
	}()

	for _, p := range n.Params {
		// Parameters are bound as opaque expression placeholders; the
		// lowerer substitutes the caller's actual argument expression at
		// each call site, so no concrete type is known here.
		if err := c.table.Declare(p, &symbols.ExprBinding{Ty: types.Expr}, false, n.Span()); err != nil {
			return err
		}
	}

	prevFunc := c.insideFunc
	c.insideFunc = n
	defer func() { c.insideFunc = prevFunc }()

	for _, s := range n.Body {
		if _, ok := s.(*ast.Push); ok {
			return compileerr.New(compileerr.ErrTypeMismatch, toErrSpan(s.Span()),
				"function bodies may not push values onto the script's stack directly; use a return expression")
		}
		if _, ok := s.(*ast.Return); ok {
			return compileerr.New(compileerr.ErrTypeMismatch, toErrSpan(s.Span()),
				"return is only legal as a function's trailing return expression")
		}
		if err := c.checkStmt(s); err != nil {
			return err
		}
	}
	if n.ReturnExpr == nil {
		return compileerr.New(compileerr.ErrTypeMismatch, toErrSpan(n.Span()),
			"function %q must end with exactly one return statement", n.Name)
	}
	retTy, _, err := c.checkExpr(n.ReturnExpr)
	if err != nil {
		return err
	}
	if want, ok := types.FromName(n.ReturnType); ok && !types.Assignable(retTy, want) {
		return compileerr.New(compileerr.ErrTypeMismatch, toErrSpan(n.Span()),
			"function %q declares return type %s but returns %s", n.Name, want, retTy)
	}

	// The function itself is declared in the enclosing scope, where the
	// statements after it can call it.
	c.table.ExitScope()
	scopeOpen = false
	return c.table.Declare(n.Name, &symbols.FuncBinding{Decl: n}, false, n.Span())
}

// checkIf type-checks both branches, and — per spec.md's branch-balancing
// rule — compares their net stack effect. An imbalanced branch pair
// invalidates every stack assumption currently in scope, since later code
// can no longer know at what depth an assumed value lives.
func (c *Checker) checkIf(n *ast.If) *compileerr.Error {
	if _, _, err := c.checkExpr(n.Cond); err != nil {
		return err
	}

	thenEffect, err := c.checkBranch(n.ThenBody)
	if err != nil {
		return err
	}
	elseEffect, err := c.checkBranch(n.ElseBody)
	if err != nil {
		return err
	}

	if thenEffect != elseEffect {
		c.table.InvalidateStackAssumptions()
	}
	return nil
}

func (c *Checker) checkBranch(stmts []ast.Stmt) (int, *compileerr.Error) {
	c.table.EnterScope()
	defer c.table.ExitScope()

	for _, s := range stmts {
		if err := c.checkStmt(s); err != nil {
			return 0, err
		}
	}
	return branchNetEffect(stmts), nil
}

// branchNetEffect computes the real net stack-height change of stmts, the
// same quantity lower.lowerIf accumulates in vstack.total while lowering a
// branch — the two must agree, or a branch the lowerer treats as imbalanced
// could pass sema as balanced (or vice versa) and either panic or silently
// miscompile. Every expression in this language yields exactly one typed
// value (see lowerExpr's "leaves exactly one value on top" contract), so a
// push's net effect is always +1 regardless of the expression's internal
// shape; the remaining statement kinds contribute their own fixed,
// expression-shape-independent delta.
func branchNetEffect(stmts []ast.Stmt) int {
	effect := 0
	for _, s := range stmts {
		switch n := s.(type) {
		case *ast.Push:
			effect++
		case *ast.ExprStmt:
			if call, ok := n.Expr.(*ast.Call); ok && call.Func == "markInvalid" {
				// OP_RETURN has no stack effect (ir.OP_RETURN's arity is 0,0).
				continue
			}
			effect++
		case *ast.Verify:
			// Pushes the verified expression (+1), then OP_VERIFY consumes it
			// (-1): a net no-op on stack height.
		case *ast.LetDecl:
			if n.Mutable {
				// A mutable let materializes as a StackBinding: its
				// initializer is pushed once and stays live as a slot.
				effect++
			}
			// An immutable let is an ExprBinding, re-lowered at each read
			// with no persistent slot of its own.
		case *ast.Assign:
			// lowerAssign pushes the new value (+1) then splices out the
			// stale one via OP_NIP or OP_ROLL+OP_DROP (-1): net 0.
		case *ast.If:
			// lowerIf carries the then-arm's own net effect forward as the
			// branch's total regardless of whether the two arms balance —
			// see lowerIf's entryTotal+thenNet bookkeeping — so that is what
			// this outer comparison must use too. Any imbalance inside n is
			// caught by checkIf itself, already invoked via checkStmt above.
			effect += branchNetEffect(n.ThenBody)
		}
	}
	return effect
}

// checkExpr returns the expression's type, whether it is pure (free of
// signature-checking built-ins), and any error.
func (c *Checker) checkExpr(e ast.Expr) (types.Type, bool, *compileerr.Error) {
	switch n := e.(type) {
	case *ast.IntLiteral:
		return types.Int, true, nil

	case *ast.BytesLiteral:
		return types.Bytes, true, nil

	case *ast.Name:
		binding, err := c.table.Lookup(n.Ident, n.Span())
		if err != nil {
			return 0, false, err
		}
		pure := true
		if eb, ok := binding.(*symbols.ExprBinding); ok {
			pure = !isSideEffecting(eb.Expr)
		}
		return binding.Type(), pure, nil

	case *ast.UnaryOp:
		ty, pure, err := c.checkExpr(n.Operand)
		if err != nil {
			return 0, false, err
		}
		switch n.Op {
		case "-", "~":
			if !types.RequireInt(ty) {
				return 0, false, compileerr.New(compileerr.ErrTypeMismatch, toErrSpan(n.Span()),
					"operator %q requires int, got %s", n.Op, ty)
			}
			return types.Int, pure, nil
		case "not":
			return types.Int, pure, nil
		default:
			return 0, false, compileerr.New(compileerr.ErrInternalInvariant, toErrSpan(n.Span()),
				"sema: unknown unary operator %q", n.Op)
		}

	case *ast.BinOp:
		lt, lpure, err := c.checkExpr(n.Left)
		if err != nil {
			return 0, false, err
		}
		rt, rpure, err := c.checkExpr(n.Right)
		if err != nil {
			return 0, false, err
		}
		resultTy, ok := binOpType(n.Op, lt, rt)
		if !ok {
			return 0, false, compileerr.New(compileerr.ErrTypeMismatch, toErrSpan(n.Span()),
				"operator %q is not defined for %s and %s", n.Op, lt, rt)
		}
		return resultTy, lpure && rpure, nil

	case *ast.Call:
		return c.checkCall(n)

	default:
		return 0, false, compileerr.New(compileerr.ErrInternalInvariant, toErrSpan(e.Span()),
			"sema: unhandled expression node %T", n)
	}
}

func (c *Checker) checkCall(n *ast.Call) (types.Type, bool, *compileerr.Error) {
	if n.Func == "raw" {
		if c.insideFunc != nil {
			return 0, false, compileerr.New(compileerr.ErrTypeMismatch, toErrSpan(n.Span()),
				"raw() is not permitted inside a function body")
		}
		if len(n.Args) != 1 {
			return 0, false, compileerr.New(compileerr.ErrArityMismatch, toErrSpan(n.Span()),
				"raw expects exactly one inner script argument")
		}
		inner, ok := n.Args[0].(*ast.InnerScript)
		if !ok {
			return 0, false, compileerr.New(compileerr.ErrTypeMismatch, toErrSpan(n.Span()),
				"raw's argument must be an inner script literal")
		}
		innerChecker := NewChecker(symbols.NewTable())
		if err := innerChecker.checkStmts(inner.Statements); err != nil {
			return 0, false, err
		}
		return types.Bytes, true, nil
	}

	if fb, ok := c.lookupFunc(n.Func); ok {
		if len(n.Args) != len(fb.Decl.Params) {
			return 0, false, compileerr.New(compileerr.ErrArityMismatch, toErrSpan(n.Span()),
				"%s expects %d argument(s), got %d", n.Func, len(fb.Decl.Params), len(n.Args))
		}
		pure := true
		for _, a := range n.Args {
			_, p, err := c.checkExpr(a)
			if err != nil {
				return 0, false, err
			}
			pure = pure && p
		}
		retTy, ok := types.FromName(fb.Decl.ReturnType)
		if !ok {
			retTy = types.Expr
		}
		return retTy, pure, nil
	}

	sig, ok := builtins.Lookup(n.Func)
	if !ok {
		return 0, false, compileerr.New(compileerr.ErrUnknownName, toErrSpan(n.Span()),
			"unknown function %q", n.Func)
	}
	if !sig.Variadic && len(n.Args) != sig.Arity {
		return 0, false, compileerr.New(compileerr.ErrArityMismatch, toErrSpan(n.Span()),
			"%s expects %d argument(s), got %d", n.Func, sig.Arity, len(n.Args))
	}
	if sig.Variadic && len(n.Args) < sig.MinArity {
		return 0, false, compileerr.New(compileerr.ErrArityMismatch, toErrSpan(n.Span()),
			"%s expects at least %d argument(s), got %d", n.Func, sig.MinArity, len(n.Args))
	}

	for i, a := range n.Args {
		argTy, _, err := c.checkExpr(a)
		if err != nil {
			return 0, false, err
		}
		if want := sig.ArgType(i); want != types.Expr && !types.Assignable(argTy, want) {
			return 0, false, compileerr.New(compileerr.ErrTypeMismatch, toErrSpan(n.Span()),
				"%s argument %d: expected %s, got %s", n.Func, i+1, want, argTy)
		}
	}

	if sig.CompileTimeEval != nil {
		if err := c.checkCompileTimeValidation(n, sig); err != nil {
			return 0, false, err
		}
	}

	return sig.Result, !sig.SideEffecting, nil
}

// checkCompileTimeValidation evaluates a compile-time-only validation
// built-in (check_hash160, check_pubkey, address_to_hash160) against a
// literal argument, reporting ErrValidationFailed if it rejects the value.
// These built-ins only accept literal arguments — the check has to run now,
// since there is no runtime representation of "failed validation".
func (c *Checker) checkCompileTimeValidation(n *ast.Call, sig builtins.Signature) *compileerr.Error {
	lit, ok := n.Args[0].(*ast.BytesLiteral)
	if !ok {
		return compileerr.New(compileerr.ErrTypeMismatch, toErrSpan(n.Span()),
			"%s requires a literal byte-string argument", n.Func)
	}
	if _, err := sig.CompileTimeEval(lit.Value); err != nil {
		return compileerr.New(compileerr.ErrValidationFailed, toErrSpan(n.Span()), "%s: %v", n.Func, err)
	}
	return nil
}

func (c *Checker) lookupFunc(name string) (*symbols.FuncBinding, bool) {
	b, err := c.table.Lookup(name, ast.Span{})
	if err != nil {
		return nil, false
	}
	fb, ok := b.(*symbols.FuncBinding)
	return fb, ok
}

// binOpType implements spec.md §3's typing/unification rule for binary
// operators: comparisons always yield Int (boolean-as-int), arithmetic and
// bitwise operators require Int on both sides, and == / != accept any two
// operands that unify (two Ints, two Bytes, or Expr against either).
func binOpType(op string, l, r types.Type) (types.Type, bool) {
	switch op {
	case "==", "!=":
		if _, ok := types.Unify(l, r); ok {
			return types.Int, true
		}
		return 0, false
	case "<", ">", "<=", ">=":
		if types.RequireInt(l) && types.RequireInt(r) {
			return types.Int, true
		}
		return 0, false
	case "and", "or":
		return types.Int, true
	case "+", "-", "*", "/", "%", "<<", ">>", "&", "|", "^":
		if types.RequireInt(l) && types.RequireInt(r) {
			return types.Int, true
		}
		return 0, false
	default:
		return 0, false
	}
}

// isSideEffecting reports whether evaluating e can invoke a built-in whose
// opcode has a script-level effect beyond producing a value, i.e. one marked
// SideEffecting (the signature checks). Binding such an expression to an immutable let
// is rejected (spec.md §9's open question, resolved conservatively in
// DESIGN.md).
func isSideEffecting(e ast.Expr) bool {
	switch n := e.(type) {
	case *ast.Call:
		if sig, ok := builtins.Lookup(n.Func); ok && sig.SideEffecting {
			return true
		}
		for _, a := range n.Args {
			if isSideEffecting(a) {
				return true
			}
		}
		return false
	case *ast.BinOp:
		return isSideEffecting(n.Left) || isSideEffecting(n.Right)
	case *ast.UnaryOp:
		return isSideEffecting(n.Operand)
	default:
		return false
	}
}

func toErrSpan(s ast.Span) compileerr.Span {
	return compileerr.Span{File: s.File, StartLine: s.StartLine, StartCol: s.StartCol}
}



// Package optimize implements the two optimization passes run around
// lowering (spec.md §5): AST-level constant folding to a fixpoint before
// lowering, and opcode-IR peephole rewriting plus dead-code elimination
// after. Folding is grounded on the original txsc/ir's structural
// constant-folding transform; the peephole rewriter and DCE are grounded
// on linear_optimizer.py's rule table.
package optimize

import (
	"bytes"
	"math/big"

	"github.com/bpfs/txsc/ast"
	"github.com/bpfs/txsc/builtins"
)

// FoldScript returns a new script with every constant-foldable
// sub-expression replaced by its literal value in one bottom-up pass
// (children are folded before their parent), then drops any mutable local whose every read
// was resolved to a literal along the way (see elideDeadMutableLocals).
func FoldScript(script *ast.Script) *ast.Script {
	stmts := foldStmts(script.Statements, constEnv{})
	stmts = elideDeadMutableLocals(stmts)
	return ast.NewScript(script.Span(), stmts)
}

// constEnv tracks, for straight-line code, the currently known compile-time
// literal value of each let-bound name — mutable or not — so that a read of
// the name can be substituted with its literal the same way a literal
// written directly in the source would fold. A mutable name's entry is
// refreshed on every Assign that itself folds to a literal, and dropped the
// moment an Assign's right-hand side does not fold (the name's future value
// is no longer known statically) or the variable flows through a
// conditional branch (only one arm of which runs). This is what lets
// `let mutable a = 3; a = a + 1; a;` fold straight through to the literal 4
// (spec.md §8 scenario 3), the same way plain literal arithmetic already
// folds.
type constEnv map[string]ast.Expr

func cloneEnv(env constEnv) constEnv {
	c := make(constEnv, len(env))
	for k, v := range env {
		c[k] = v
	}
	return c
}

func isLiteral(e ast.Expr) bool {
	switch e.(type) {
	case *ast.IntLiteral, *ast.BytesLiteral:
		return true
	default:
		return false
	}
}

func foldStmts(stmts []ast.Stmt, env constEnv) []ast.Stmt {
	out := make([]ast.Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = foldStmt(s, env)
	}
	return out
}

func foldStmt(s ast.Stmt, env constEnv) ast.Stmt {
	switch n := s.(type) {
	case *ast.LetDecl:
		folded := foldExprEnv(n.Expr, env)
		if isLiteral(folded) {
			env[n.Name] = folded
		} else {
			delete(env, n.Name)
		}
		return ast.NewLetDecl(n.Span(), n.Name, n.Mutable, folded)
	case *ast.Assign:
		folded := foldExprEnv(n.Expr, env)
		if isLiteral(folded) {
			env[n.Name] = folded
		} else {
			delete(env, n.Name)
		}
		return ast.NewAssign(n.Span(), n.Name, folded)
	case *ast.Verify:
		return ast.NewVerify(n.Span(), foldExprEnv(n.Expr, env))
	case *ast.Push:
		return ast.NewPush(n.Span(), foldExprEnv(n.Expr, env))
	case *ast.ExprStmt:
		return ast.NewExprStmt(n.Span(), foldExprEnv(n.Expr, env))
	case *ast.If:
		cond := foldExprEnv(n.Cond, env)
		thenBody := foldStmts(n.ThenBody, cloneEnv(env))
		elseBody := foldStmtsOrNil(n.ElseBody, cloneEnv(env))
		// Only one branch runs at script evaluation time, so nothing
		// assigned or folded inside either arm can be trusted afterward.
		for k := range env {
			delete(env, k)
		}
		return ast.NewIf(n.Span(), cond, thenBody, elseBody)
	case *ast.FuncDecl:
		// A function body only ever sees its own parameters, never the
		// enclosing script's locals — each call site inlines it with its
		// own arguments (lower.inlineCall), so folding it against a fresh
		// environment keeps that boundary honest.
		inner := constEnv{}
		var ret ast.Expr
		if n.ReturnExpr != nil {
			ret = foldExprEnv(n.ReturnExpr, inner)
		}
		return ast.NewFuncDecl(n.Span(), n.Name, n.ReturnType, n.Params, foldStmts(n.Body, inner), ret)
	default:
		// Assume and any statement with no sub-expression to fold.
		return s
	}
}

func foldStmtsOrNil(stmts []ast.Stmt, env constEnv) []ast.Stmt {
	if stmts == nil {
		return nil
	}
	return foldStmts(stmts, env)
}

// FoldExpr folds e and every sub-expression it contains, bottom-up, to a
// fixpoint, with no knowledge of any enclosing let/assign environment —
// anything referencing a Name, a side-effecting call, or an operator this
// pass does not know how to fold is returned with its children folded but
// its own shape unchanged. FoldScript uses the env-aware foldExprEnv
// instead so that a Name reference to a known-literal local also folds.
func FoldExpr(e ast.Expr) ast.Expr {
	return foldExprEnv(e, nil)
}

func foldExprEnv(e ast.Expr, env constEnv) ast.Expr {
	switch n := e.(type) {
	case *ast.IntLiteral, *ast.BytesLiteral:
		return e

	case *ast.Name:
		if env != nil {
			switch lit := env[n.Ident].(type) {
			case *ast.IntLiteral:
				return ast.NewIntLiteral(n.Span(), lit.Value)
			case *ast.BytesLiteral:
				return ast.NewBytesLiteral(n.Span(), lit.Value)
			}
		}
		return e

	case *ast.UnaryOp:
		operand := foldExprEnv(n.Operand, env)
		if lit, ok := operand.(*ast.IntLiteral); ok {
			if folded, ok := foldUnary(n.Op, lit.Value); ok {
				return ast.NewIntLiteral(n.Span(), folded)
			}
		}
		return ast.NewUnaryOp(n.Span(), n.Op, operand)

	case *ast.BinOp:
		left := foldExprEnv(n.Left, env)
		right := foldExprEnv(n.Right, env)
		if folded, ok := foldBinOp(n.Span(), n.Op, left, right); ok {
			return folded
		}
		return ast.NewBinOp(n.Span(), n.Op, left, right)

	case *ast.Call:
		args := make([]ast.Expr, len(n.Args))
		for i, a := range n.Args {
			if inner, ok := a.(*ast.InnerScript); ok {
				args[i] = ast.NewInnerScript(inner.Span(), foldStmts(inner.Statements, constEnv{}))
			} else {
				args[i] = foldExprEnv(a, env)
			}
		}
		if folded, ok := foldCall(n.Span(), n.Func, args); ok {
			return folded
		}
		return ast.NewCall(n.Span(), n.Func, args)

	case *ast.InnerScript:
		return ast.NewInnerScript(n.Span(), foldStmts(n.Statements, constEnv{}))

	default:
		return e
	}
}

// elideDeadMutableLocals drops a mutable let declaration, and every
// assignment to it, when no read of that name survives anywhere in the
// already-folded statement list — meaning every use was resolved to a
// literal by constEnv and the variable's runtime-resident stack slot would
// never actually be read. This is classic dead-store elimination: a write
// nothing reads has no observable effect, and is what lets scenario 3's
// `let mutable a = 3; a = a + 1; a;` compile down to the bare literal 4
// with no stack bookkeeping left behind.
func elideDeadMutableLocals(stmts []ast.Stmt) []ast.Stmt {
	mutableNames := map[string]bool{}
	collectMutableNames(stmts, mutableNames)
	if len(mutableNames) == 0 {
		return stmts
	}
	referenced := map[string]bool{}
	collectNameReferences(stmts, referenced)

	out := make([]ast.Stmt, 0, len(stmts))
	for _, s := range stmts {
		switch n := s.(type) {
		case *ast.LetDecl:
			if n.Mutable && mutableNames[n.Name] && !referenced[n.Name] {
				continue
			}
		case *ast.Assign:
			if mutableNames[n.Name] && !referenced[n.Name] {
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

func collectMutableNames(stmts []ast.Stmt, names map[string]bool) {
	for _, s := range stmts {
		switch n := s.(type) {
		case *ast.LetDecl:
			if n.Mutable {
				names[n.Name] = true
			}
		case *ast.If:
			collectMutableNames(n.ThenBody, names)
			collectMutableNames(n.ElseBody, names)
		}
	}
}

func collectNameReferences(stmts []ast.Stmt, refs map[string]bool) {
	var visitExpr func(e ast.Expr)
	visitExpr = func(e ast.Expr) {
		switch n := e.(type) {
		case *ast.Name:
			refs[n.Ident] = true
		case *ast.UnaryOp:
			visitExpr(n.Operand)
		case *ast.BinOp:
			visitExpr(n.Left)
			visitExpr(n.Right)
		case *ast.Call:
			for _, a := range n.Args {
				if inner, ok := a.(*ast.InnerScript); ok {
					collectNameReferences(inner.Statements, refs)
					continue
				}
				visitExpr(a)
			}
		case *ast.InnerScript:
			collectNameReferences(n.Statements, refs)
		}
	}
	for _, s := range stmts {
		switch n := s.(type) {
		case *ast.LetDecl:
			visitExpr(n.Expr)
		case *ast.Assign:
			visitExpr(n.Expr)
		case *ast.Verify:
			visitExpr(n.Expr)
		case *ast.Push:
			visitExpr(n.Expr)
		case *ast.ExprStmt:
			visitExpr(n.Expr)
		case *ast.If:
			visitExpr(n.Cond)
			collectNameReferences(n.ThenBody, refs)
			collectNameReferences(n.ElseBody, refs)
		case *ast.FuncDecl:
			collectNameReferences(n.Body, refs)
			if n.ReturnExpr != nil {
				visitExpr(n.ReturnExpr)
			}
		}
	}
}

func foldUnary(op string, v *big.Int) (*big.Int, bool) {
	switch op {
	case "-":
		return new(big.Int).Neg(v), true
	case "~":
		// ~x == -x-1 under an infinite two's complement representation.
		return new(big.Int).Sub(new(big.Int).Neg(v), big.NewInt(1)), true
	case "not":
		if v.Sign() == 0 {
			return big.NewInt(1), true
		}
		return big.NewInt(0), true
	default:
		return nil, false
	}
}

func boolLit(span ast.Span, b bool) ast.Expr {
	if b {
		return ast.NewIntLiteral(span, big.NewInt(1))
	}
	return ast.NewIntLiteral(span, big.NewInt(0))
}

func foldBinOp(span ast.Span, op string, left, right ast.Expr) (ast.Expr, bool) {
	lb, lIsBytes := left.(*ast.BytesLiteral)
	rb, rIsBytes := right.(*ast.BytesLiteral)
	if lIsBytes && rIsBytes && (op == "==" || op == "!=") {
		eq := bytes.Equal(lb.Value, rb.Value)
		if op == "!=" {
			eq = !eq
		}
		return boolLit(span, eq), true
	}

	li, lIsInt := left.(*ast.IntLiteral)
	ri, rIsInt := right.(*ast.IntLiteral)
	if !lIsInt || !rIsInt {
		return nil, false
	}
	l, r := li.Value, ri.Value

	switch op {
	case "+":
		return ast.NewIntLiteral(span, new(big.Int).Add(l, r)), true
	case "-":
		return ast.NewIntLiteral(span, new(big.Int).Sub(l, r)), true
	case "*":
		return ast.NewIntLiteral(span, new(big.Int).Mul(l, r)), true
	case "/":
		if r.Sign() == 0 {
			return nil, false
		}
		q := new(big.Int)
		q.Quo(l, r)
		return ast.NewIntLiteral(span, q), true
	case "%":
		if r.Sign() == 0 {
			return nil, false
		}
		m := new(big.Int)
		m.Rem(l, r)
		return ast.NewIntLiteral(span, m), true
	case "<<":
		if !r.IsUint64() {
			return nil, false
		}
		return ast.NewIntLiteral(span, new(big.Int).Lsh(l, uint(r.Uint64()))), true
	case ">>":
		if !r.IsUint64() {
			return nil, false
		}
		return ast.NewIntLiteral(span, new(big.Int).Rsh(l, uint(r.Uint64()))), true
	case "&":
		return ast.NewIntLiteral(span, new(big.Int).And(l, r)), true
	case "|":
		return ast.NewIntLiteral(span, new(big.Int).Or(l, r)), true
	case "^":
		return ast.NewIntLiteral(span, new(big.Int).Xor(l, r)), true
	case "==":
		return boolLit(span, l.Cmp(r) == 0), true
	case "!=":
		return boolLit(span, l.Cmp(r) != 0), true
	case "<":
		return boolLit(span, l.Cmp(r) < 0), true
	case ">":
		return boolLit(span, l.Cmp(r) > 0), true
	case "<=":
		return boolLit(span, l.Cmp(r) <= 0), true
	case ">=":
		return boolLit(span, l.Cmp(r) >= 0), true
	case "and":
		return boolLit(span, l.Sign() != 0 && r.Sign() != 0), true
	case "or":
		return boolLit(span, l.Sign() != 0 || r.Sign() != 0), true
	default:
		return nil, false
	}
}

// pureHashBuiltins fold when given a literal byte-string argument.
var pureHashBuiltins = map[string]func([]byte) []byte{
	"ripemd160": builtins.Ripemd160,
	"sha1":      builtins.Sha1,
	"sha256":    builtins.Sha256,
	"hash160":   builtins.Hash160,
	"hash256":   builtins.Hash256,
}

func foldCall(span ast.Span, fn string, args []ast.Expr) (ast.Expr, bool) {
	if f, ok := pureHashBuiltins[fn]; ok && len(args) == 1 {
		if b, ok := args[0].(*ast.BytesLiteral); ok {
			return ast.NewBytesLiteral(span, f(b.Value)), true
		}
		return nil, false
	}

	switch fn {
	case "abs":
		if len(args) == 1 {
			if v, ok := args[0].(*ast.IntLiteral); ok {
				return ast.NewIntLiteral(span, new(big.Int).Abs(v.Value)), true
			}
		}
	case "min", "max":
		if len(args) == 2 {
			a, aok := args[0].(*ast.IntLiteral)
			b, bok := args[1].(*ast.IntLiteral)
			if aok && bok {
				if (fn == "min") == (a.Value.Cmp(b.Value) <= 0) {
					return a, true
				}
				return b, true
			}
		}
	case "concat":
		if len(args) == 2 {
			a, aok := args[0].(*ast.BytesLiteral)
			b, bok := args[1].(*ast.BytesLiteral)
			if aok && bok {
				return ast.NewBytesLiteral(span, append(append([]byte{}, a.Value...), b.Value...)), true
			}
		}
	case "size":
		if len(args) == 1 {
			if b, ok := args[0].(*ast.BytesLiteral); ok {
				return ast.NewIntLiteral(span, big.NewInt(int64(len(b.Value)))), true
			}
		}
	case "left", "right":
		if len(args) == 2 {
			b, bok := args[0].(*ast.BytesLiteral)
			n, nok := args[1].(*ast.IntLiteral)
			if bok && nok && n.Value.IsInt64() {
				k := int(n.Value.Int64())
				if k >= 0 && k <= len(b.Value) {
					if fn == "left" {
						return ast.NewBytesLiteral(span, append([]byte{}, b.Value[:k]...)), true
					}
					return ast.NewBytesLiteral(span, append([]byte{}, b.Value[len(b.Value)-k:]...)), true
				}
			}
		}
	case "substr":
		if len(args) == 3 {
			b, bok := args[0].(*ast.BytesLiteral)
			start, sok := args[1].(*ast.IntLiteral)
			length, lok := args[2].(*ast.IntLiteral)
			if bok && sok && lok && start.Value.IsInt64() && length.Value.IsInt64() {
				s, l := int(start.Value.Int64()), int(length.Value.Int64())
				if s >= 0 && l >= 0 && s+l <= len(b.Value) {
					return ast.NewBytesLiteral(span, append([]byte{}, b.Value[s:s+l]...)), true
				}
			}
		}
	case "within":
		if len(args) == 3 {
			x, xok := args[0].(*ast.IntLiteral)
			lo, lok := args[1].(*ast.IntLiteral)
			hi, hok := args[2].(*ast.IntLiteral)
			if xok && lok && hok {
				within := x.Value.Cmp(lo.Value) >= 0 && x.Value.Cmp(hi.Value) < 0
				return boolLit(span, within), true
			}
		}
	}
	return nil, false
}

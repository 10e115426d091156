// Package lower walks a checked script and emits the flat opcode IR
// (spec.md §4.3-§4.5): literals and names resolve through binding-kind
// dispatch, user functions are inlined at their call sites, and a virtual
// stack keeps every live assume'd name's current depth up to date as code
// is emitted.
package lower

import (
	"github.com/sirupsen/logrus"

	"github.com/bpfs/txsc/ast"
	"github.com/bpfs/txsc/builtins"
	"github.com/bpfs/txsc/compileerr"
	"github.com/bpfs/txsc/emit"
	"github.com/bpfs/txsc/ir"
	"github.com/bpfs/txsc/symbols"
	"github.com/bpfs/txsc/types"
)

// Lowerer owns its own binding environment, populated as it walks the
// script in program order — deliberately not the same *symbols.Table
// instance the semantic checker used, since the lowerer must replay every
// let/assign in sequence to know which expression a name holds at each
// point of use, while the checker only ever needed the final, fully
// resolved shape of each scope.
type Lowerer struct {
	table *symbols.Table
	vs    *vstack
	log   *logrus.Logger
	// verbosity 3 logs each assumption's depth when it is declared and when
	// it is brought to the top, and every inlined call, per
	// compile.Config's verbosity levels (spec.md's ambient logging stack).
	verbosity int
	// lastUse holds the single *ast.Name node, if any, that is each stack
	// assumption's final static reference in top-level straight-line code —
	// see collectLastUses. consecutiveStackArgs only ever destructively
	// consumes a name at one of these nodes; anywhere else it must fall
	// back to the ordinary copy-preserving bring-to-top path, since the
	// binding is read again later.
	lastUse map[*ast.Name]bool
}

// NewLowerer returns a Lowerer with a fresh binding environment.
func NewLowerer(log *logrus.Logger, verbosity int) *Lowerer {
	return &Lowerer{table: symbols.NewTable(), vs: newVStack(), log: log, verbosity: verbosity}
}

// LowerScript lowers every top-level statement of script into prog, in
// order.
func (l *Lowerer) LowerScript(script *ast.Script, prog *ir.Program) error {
	l.lastUse = collectLastUses(script.Statements)
	return l.lowerStmts(script.Statements, prog)
}

// collectLastUses returns the set of *ast.Name nodes that are the final
// static reference to their identifier within stmts' top-level,
// straight-line sequence. A reference inside an if/else branch or a
// function body is never included — only one branch of a conditional runs,
// and a function body only ever sees its own parameters — and neither is
// any reference made before an if/else or in its condition, since either
// arm may read the name again. So this is always a conservative (never incorrectly destructive) approximation: it
// may miss a genuine last use, but never mislabels one.
func collectLastUses(stmts []ast.Stmt) map[*ast.Name]bool {
	last := map[string]*ast.Name{}
	var visitExpr func(e ast.Expr)
	visitExpr = func(e ast.Expr) {
		switch n := e.(type) {
		case *ast.Name:
			last[n.Ident] = n
		case *ast.UnaryOp:
			visitExpr(n.Operand)
		case *ast.BinOp:
			visitExpr(n.Left)
			visitExpr(n.Right)
		case *ast.Call:
			for _, a := range n.Args {
				if _, ok := a.(*ast.InnerScript); ok {
					continue
				}
				visitExpr(a)
			}
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
			for k := range last {
				last[k] = nil
			}
		}
	}
	set := make(map[*ast.Name]bool, len(last))
	for _, n := range last {
		if n != nil {
			set[n] = true
		}
	}
	return set
}

func (l *Lowerer) lowerStmts(stmts []ast.Stmt, prog *ir.Program) error {
	for _, s := range stmts {
		if err := l.lowerStmt(s, prog); err != nil {
			return err
		}
	}
	return nil
}

func (l *Lowerer) lowerStmt(s ast.Stmt, prog *ir.Program) error {
	switch n := s.(type) {
	case *ast.Assume:
		size := len(n.Names)
		for height, name := range n.Names {
			depth := size - height - 1
			if err := l.table.Declare(name, &symbols.StackBinding{DeclaredDepth: depth}, false, n.Span()); err != nil {
				return err
			}
			l.vs.track(name, depth)
			l.logDepth(name, depth)
		}
		return nil

	case *ast.LetDecl:
		if n.Mutable {
			// A mutable local is materialized on the actual stack (like an
			// assume'd name) rather than re-lowered from a substituted
			// expression at each use: once reassignment can reference the
			// binding's own prior value (`a = a + 1`), lazily re-lowering
			// the stored expression would re-enter the same binding and
			// recurse forever. Declaring it as a StackBinding sidesteps
			// that entirely — reads bring it to the top exactly like an
			// assumption, and Assign below replaces its stack slot in place.
			if err := l.lowerExpr(n.Expr, prog); err != nil {
				return err
			}
			if err := l.table.Declare(n.Name, &symbols.StackBinding{DeclaredDepth: 0}, true, n.Span()); err != nil {
				return err
			}
			l.vs.track(n.Name, 0)
			return nil
		}
		binding := l.bindingForExpr(n.Expr, false)
		if err := l.table.Declare(n.Name, binding, false, n.Span()); err != nil {
			return err
		}
		return nil

	case *ast.Assign:
		return l.lowerAssign(n, prog)

	case *ast.Verify:
		if err := l.lowerExpr(n.Expr, prog); err != nil {
			return err
		}
		prog.EmitOp(ir.OP_VERIFY)
		l.vs.applyOp(ir.OP_VERIFY)
		return nil

	case *ast.Push:
		return l.lowerExpr(n.Expr, prog)

	case *ast.ExprStmt:
		if call, ok := n.Expr.(*ast.Call); ok && call.Func == "markInvalid" {
			prog.EmitOp(ir.OP_RETURN)
			l.vs.applyOp(ir.OP_RETURN)
			return nil
		}
		return l.lowerExpr(n.Expr, prog)

	case *ast.FuncDecl:
		if err := l.table.Declare(n.Name, &symbols.FuncBinding{Decl: n}, false, n.Span()); err != nil {
			return err
		}
		return nil

	case *ast.If:
		return l.lowerIf(n, prog)

	default:
		return internalErrf("lower: unhandled statement node %T", n)
	}
}

// bindingForExpr declares an immutable literal expression as a ConstBinding
// (so each later reference just re-emits the literal) and anything else as
// an ExprBinding holding the unevaluated expression, re-lowered at each use.
// Only ever called for immutable declarations — a mutable let is
// materialized directly on the stack instead (see lowerStmt's LetDecl case).
func (l *Lowerer) bindingForExpr(e ast.Expr, mutable bool) symbols.Binding {
	switch lit := e.(type) {
	case *ast.IntLiteral:
		return symbols.NewIntConst(lit.Value)
	case *ast.BytesLiteral:
		return symbols.NewBytesConst(lit.Value)
	default:
		return &symbols.ExprBinding{Expr: e, Ty: types.Expr, Mutable: mutable}
	}
}

// lowerAssign replaces a mutable local's stack slot with the value of a
// newly lowered expression. lowerExpr always leaves exactly one new value
// on top, which shifts the binding's prior slot one position deeper; the
// prior value is then spliced out — via OP_NIP when it is now the
// second-from-top item, or PushInt(depth) OP_ROLL OP_DROP for any deeper
// slot — leaving the new value at depth 0, the binding's slot from then on.
func (l *Lowerer) lowerAssign(n *ast.Assign, prog *ir.Program) error {
	binding, err := l.table.Lookup(n.Name, n.Span())
	if err != nil {
		return err
	}
	if _, ok := binding.(*symbols.StackBinding); !ok {
		return internalErrf("lower: %q is not a mutable stack-resident binding", n.Name)
	}
	oldDepth, ok := l.vs.depthOf(n.Name)
	if !ok {
		return internalErrf("lower: mutable binding %q is not live on the virtual stack", n.Name)
	}

	if err := l.lowerExpr(n.Expr, prog); err != nil {
		return err
	}

	staleDepth := oldDepth + 1
	switch staleDepth {
	case 1:
		prog.EmitOp(ir.OP_NIP)
		l.vs.applyOp(ir.OP_NIP)
	default:
		// OP_ROLL lifts the stale slot over every item above it, leaving
		// those items one slot deeper than the uniform deltas below record.
		for name, d := range l.vs.depth {
			if d < staleDepth {
				l.vs.depth[name]++
			}
		}
		prog.EmitInt(int64(staleDepth))
		l.vs.applyDelta(1)
		prog.EmitOp(ir.OP_ROLL)
		l.vs.applyOp(ir.OP_ROLL)
		prog.EmitOp(ir.OP_DROP)
		l.vs.applyOp(ir.OP_DROP)
	}

	l.vs.untrack(n.Name)
	l.vs.track(n.Name, 0)
	return nil
}

// lowerIf lowers a conditional, reconciling the virtual stack afterward per
// spec.md's branch-balancing rule: when the two arms' net stack effect
// differs, every assumption tracked going in is dropped, since neither
// arm's post-state can be trusted for code that follows.
func (l *Lowerer) lowerIf(n *ast.If, prog *ir.Program) error {
	if err := l.lowerExpr(n.Cond, prog); err != nil {
		return err
	}
	prog.EmitOp(ir.OP_IF)
	l.vs.applyOp(ir.OP_IF)

	entry := l.vs.clone()
	entryTotal := entry.total

	l.table.EnterScope()
	if err := l.lowerStmts(n.ThenBody, prog); err != nil {
		l.table.ExitScope()
		return err
	}
	l.table.ExitScope()
	thenAfter := l.vs.clone()

	l.vs = entry.clone()
	if n.ElseBody != nil {
		prog.EmitOp(ir.OP_ELSE)
		l.table.EnterScope()
		if err := l.lowerStmts(n.ElseBody, prog); err != nil {
			l.table.ExitScope()
			return err
		}
		l.table.ExitScope()
	}
	elseAfter := l.vs.clone()
	prog.EmitOp(ir.OP_ENDIF)

	thenNet := thenAfter.total - entryTotal
	elseNet := elseAfter.total - entryTotal
	if thenNet != elseNet {
		l.vs = newVStack()
		l.vs.total = entryTotal + thenNet
		if l.verbosity >= 1 && l.log != nil {
			l.log.Warnf("branch at %s leaves the stack unbalanced (then: %+d, else: %+d); all stack assumptions invalidated", n.Span(), thenNet, elseNet)
		}
	} else {
		l.vs = thenAfter
	}
	return nil
}

// lowerExpr lowers e, leaving exactly one value on top of the stack.
func (l *Lowerer) lowerExpr(e ast.Expr, prog *ir.Program) error {
	switch n := e.(type) {
	case *ast.IntLiteral:
		prog.EmitBigInt(n.Value)
		l.vs.applyDelta(1)
		return nil

	case *ast.BytesLiteral:
		prog.EmitBytes(n.Value)
		l.vs.applyDelta(1)
		return nil

	case *ast.Name:
		return l.lowerName(n, prog)

	case *ast.UnaryOp:
		if err := l.lowerExpr(n.Operand, prog); err != nil {
			return err
		}
		k, err := unaryOpcode(n.Op)
		if err != nil {
			return err
		}
		prog.EmitOp(k)
		l.vs.applyOp(k)
		return nil

	case *ast.BinOp:
		if err := l.lowerExpr(n.Left, prog); err != nil {
			return err
		}
		if err := l.lowerExpr(n.Right, prog); err != nil {
			return err
		}
		if (n.Op == "==" || n.Op == "!=") && l.operandIsBytes(n.Left, n.Right) {
			prog.EmitOp(ir.OP_EQUAL)
			l.vs.applyOp(ir.OP_EQUAL)
			if n.Op == "!=" {
				prog.EmitOp(ir.OP_NOT)
				l.vs.applyOp(ir.OP_NOT)
			}
			return nil
		}
		k, err := binOpcode(n.Op)
		if err != nil {
			return err
		}
		prog.EmitOp(k)
		l.vs.applyOp(k)
		return nil

	case *ast.Call:
		return l.lowerCall(n, prog)

	case *ast.InnerScript:
		return l.lowerRaw(n, prog)

	default:
		return internalErrf("lower: unhandled expression node %T", n)
	}
}

func (l *Lowerer) lowerName(n *ast.Name, prog *ir.Program) error {
	binding, err := l.table.Lookup(n.Ident, n.Span())
	if err != nil {
		return err
	}
	switch b := binding.(type) {
	case *symbols.ConstBinding:
		if b.Ty == types.Int {
			prog.EmitBigInt(b.Int())
		} else {
			prog.EmitBytes(b.Bytes())
		}
		l.vs.applyDelta(1)
		return nil

	case *symbols.ExprBinding:
		return l.lowerExpr(b.Expr, prog)

	case *symbols.StackBinding:
		if !l.vs.bringToTop(prog, n.Ident, false) {
			// sema accepted this read, but an imbalanced conditional
			// upstream invalidated every stack assumption for the lowerer
			// (spec.md §4.2's branch-balancing rule) — surfaced here rather
			// than indexing into the virtual stack with a stale depth.
			return compileerr.New(compileerr.ErrAssumptionAfterImbalancedBranch, toErrSpan(n.Span()),
				"%q is no longer a valid stack assumption after an imbalanced conditional", n.Ident)
		}
		l.logDepth(n.Ident, 0)
		return nil

	default:
		return internalErrf("lower: name %q resolves to an uncallable binding %T", n.Ident, b)
	}
}

func (l *Lowerer) lowerCall(n *ast.Call, prog *ir.Program) error {
	if n.Func == "raw" {
		inner, ok := n.Args[0].(*ast.InnerScript)
		if !ok {
			return internalErrf("lower: raw's argument is not an inner script")
		}
		return l.lowerRaw(inner, prog)
	}

	if fb, ok := l.lookupFunc(n.Func); ok {
		return l.inlineCall(fb, n, prog)
	}

	sig, ok := builtins.Lookup(n.Func)
	if !ok {
		return internalErrf("lower: unknown function %q reached lowering", n.Func)
	}

	if sig.CompileTimeEval != nil {
		lit, ok := n.Args[0].(*ast.BytesLiteral)
		if !ok {
			return internalErrf("lower: %s requires a literal argument", n.Func)
		}
		result, err := sig.CompileTimeEval(lit.Value)
		if err != nil {
			return err
		}
		prog.EmitBytes(result)
		l.vs.applyDelta(1)
		return nil
	}

	if !sig.Variadic {
		if names, ok := l.consecutiveStackArgs(n.Args); ok {
			// Every argument already sits on the stack, contiguously and in
			// exactly the order the opcode consumes them — bringing each to
			// the top individually would only shuffle values that are
			// already in place. Grounded on linear_context.py's
			// visit_consecutive_assumptions, which recognizes the same
			// pattern to avoid a redundant PICK/ROLL per argument.
			for _, name := range names {
				l.vs.untrack(name)
			}
			prog.EmitOp(sig.Opcode)
			l.vs.applyOp(sig.Opcode)
			return nil
		}
	}

	for _, a := range n.Args {
		if err := l.lowerExpr(a, prog); err != nil {
			return err
		}
	}
	if n.Func == "checkMultiSig" {
		prog.EmitOp(sig.Opcode)
		l.vs.applyDelta(1 - len(n.Args))
		return nil
	}
	prog.EmitOp(sig.Opcode)
	l.vs.applyOp(sig.Opcode)
	return nil
}

// consecutiveStackArgs reports whether every element of args is a bare name
// reference to a live, currently-tracked stack assumption, and those
// assumptions' current depths run consecutively from len(args)-1 down to 0
// in argument order — i.e. they are already stacked in exactly the order
// the call needs, with nothing else interleaved. When true, it returns
// their names so the caller can emit the opcode directly instead of
// bringing each argument to the top one at a time.
func (l *Lowerer) consecutiveStackArgs(args []ast.Expr) ([]string, bool) {
	if len(args) == 0 {
		return nil, false
	}
	names := make([]string, len(args))
	for i, a := range args {
		name, ok := a.(*ast.Name)
		if !ok {
			return nil, false
		}
		binding, err := l.table.Lookup(name.Ident, name.Span())
		if err != nil {
			return nil, false
		}
		if _, ok := binding.(*symbols.StackBinding); !ok {
			return nil, false
		}
		depth, ok := l.vs.depthOf(name.Ident)
		if !ok || depth != len(args)-1-i {
			return nil, false
		}
		if !l.lastUse[name] {
			// name is read again later; consuming it here without a
			// preserving copy would leave nothing for that later read.
			return nil, false
		}
		names[i] = name.Ident
	}
	return names, true
}

// inlineCall substitutes call's arguments for fb's parameters and lowers
// the function body and return expression in a fresh scope — functions are
// never themselves lowered to a standalone block of code (spec.md §4.4).
func (l *Lowerer) inlineCall(fb *symbols.FuncBinding, call *ast.Call, prog *ir.Program) error {
	decl := fb.Decl
	l.table.EnterScope()
	defer l.table.ExitScope()

	for i, param := range decl.Params {
		if err := l.table.Declare(param, &symbols.ExprBinding{Expr: call.Args[i], Ty: types.Expr}, false, call.Span()); err != nil {
			return err
		}
	}
	if l.verbosity >= 3 && l.log != nil {
		l.log.Debugf("inlining call to %s at %s", decl.Name, call.Span())
	}
	if err := l.lowerStmts(decl.Body, prog); err != nil {
		return err
	}
	return l.lowerExpr(decl.ReturnExpr, prog)
}

// lowerRaw lowers an inner script against a fresh virtual stack and
// embeds the resulting opcode sequence as a single data push, serialized
// with the same binary encoding rules as the outer script (spec.md's
// supplemented raw() feature).
func (l *Lowerer) lowerRaw(inner *ast.InnerScript, prog *ir.Program) error {
	sub := NewLowerer(l.log, l.verbosity)
	sub.lastUse = collectLastUses(inner.Statements)
	subProg := ir.NewProgram()
	if err := sub.lowerStmts(inner.Statements, subProg); err != nil {
		return err
	}
	data, err := emit.Binary(subProg)
	if err != nil {
		return err
	}
	prog.EmitBytes(data)
	l.vs.applyDelta(1)
	return nil
}

// operandIsBytes reports whether either side of an == / != comparison is
// statically known to be Bytes, in which case the comparison must lower to
// OP_EQUAL (byte-string equality) rather than OP_NUMEQUAL: Bitcoin's
// numeric-comparison opcodes interpret their operands as CScriptNums
// (at most 4 bytes), which a 20-byte hash or a raw pubkey is not.
func (l *Lowerer) operandIsBytes(left, right ast.Expr) bool {
	return l.typeOfExpr(left) == types.Bytes || l.typeOfExpr(right) == types.Bytes
}

// typeOfExpr derives e's static type from the lowerer's own binding
// environment. It mirrors sema's type inference closely enough to pick the
// right opcode family for comparisons, but — unlike sema — never reports an
// error: sema has already rejected anything ill-typed by the time lowering
// runs, so any lookup failure here just falls back to the polymorphic Expr
// type, which defaults equality lowering to the numeric family.
func (l *Lowerer) typeOfExpr(e ast.Expr) types.Type {
	switch n := e.(type) {
	case *ast.IntLiteral:
		return types.Int
	case *ast.BytesLiteral:
		return types.Bytes
	case *ast.InnerScript:
		return types.Bytes
	case *ast.Name:
		b, err := l.table.Lookup(n.Ident, n.Span())
		if err != nil {
			return types.Expr
		}
		if eb, ok := b.(*symbols.ExprBinding); ok {
			return l.typeOfExpr(eb.Expr)
		}
		return b.Type()
	case *ast.Call:
		if n.Func == "raw" {
			return types.Bytes
		}
		if fb, ok := l.lookupFunc(n.Func); ok {
			if ty, ok := types.FromName(fb.Decl.ReturnType); ok {
				return ty
			}
			return types.Expr
		}
		if sig, ok := builtins.Lookup(n.Func); ok {
			return sig.Result
		}
		return types.Expr
	default:
		return types.Expr
	}
}

func (l *Lowerer) lookupFunc(name string) (*symbols.FuncBinding, bool) {
	b, err := l.table.Lookup(name, ast.Span{})
	if err != nil {
		return nil, false
	}
	fb, ok := b.(*symbols.FuncBinding)
	return fb, ok
}

func (l *Lowerer) logDepth(name string, depth int) {
	if l.verbosity >= 3 && l.log != nil {
		l.log.Debugf("assumption %q now at depth %d", name, depth)
	}
}

func unaryOpcode(op string) (ir.Kind, error) {
	switch op {
	case "-":
		return ir.OP_NEGATE, nil
	case "~":
		return ir.OP_INVERT, nil
	case "not":
		return ir.OP_NOT, nil
	default:
		return 0, internalErrf("lower: unknown unary operator %q", op)
	}
}

func binOpcode(op string) (ir.Kind, error) {
	switch op {
	case "+":
		return ir.OP_ADD, nil
	case "-":
		return ir.OP_SUB, nil
	case "*":
		return ir.OP_MUL, nil
	case "/":
		return ir.OP_DIV, nil
	case "%":
		return ir.OP_MOD, nil
	case "<<":
		return ir.OP_LSHIFT, nil
	case ">>":
		return ir.OP_RSHIFT, nil
	case "&":
		return ir.OP_AND, nil
	case "|":
		return ir.OP_OR, nil
	case "^":
		return ir.OP_XOR, nil
	case "==":
		return ir.OP_NUMEQUAL, nil
	case "!=":
		return ir.OP_NUMNOTEQUAL, nil
	case "<":
		return ir.OP_LESSTHAN, nil
	case ">":
		return ir.OP_GREATERTHAN, nil
	case "<=":
		return ir.OP_LESSTHANOREQUAL, nil
	case ">=":
		return ir.OP_GREATERTHANOREQUAL, nil
	case "and":
		return ir.OP_BOOLAND, nil
	case "or":
		return ir.OP_BOOLOR, nil
	default:
		return 0, internalErrf("lower: unknown binary operator %q", op)
	}
}

// internalErrf reports a lowerer-side invariant violation: something sema
// should already have rejected reached this stage anyway.
func internalErrf(format string, args ...interface{}) error {
	return compileerr.New(compileerr.ErrInternalInvariant, compileerr.Span{}, format, args...)
}

func toErrSpan(s ast.Span) compileerr.Span {
	return compileerr.Span{File: s.File, StartLine: s.StartLine, StartCol: s.StartCol}
}

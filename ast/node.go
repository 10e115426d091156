package ast

import "math/big"

// Expr is implemented by every expression-node variant. Dispatch on the
// concrete type is done via a type switch at each consumer (semantic
// checker, lowerer, optimizer) rather than through a method per operation —
// see DESIGN.md's note on avoiding a visitor base-class hierarchy.
type Expr interface {
	Span() Span
	exprNode()
}

// Stmt is implemented by every statement-node variant.
type Stmt interface {
	Span() Span
	stmtNode()
}

type base struct {
	span Span
}

func (b base) Span() Span { return b.span }

// IntLiteral is an arbitrary-precision integer literal.
type IntLiteral struct {
	base
	Value *big.Int
}

func NewIntLiteral(span Span, v *big.Int) *IntLiteral { return &IntLiteral{base{span}, v} }
func (*IntLiteral) exprNode()                         {}

// BytesLiteral is a raw byte-string literal (already decoded from hex,
// quoted-string, or hex-byte-literal form by the parser).
type BytesLiteral struct {
	base
	Value []byte
}

func NewBytesLiteral(span Span, v []byte) *BytesLiteral { return &BytesLiteral{base{span}, v} }
func (*BytesLiteral) exprNode()                         {}

// Name is a reference to a bound identifier.
type Name struct {
	base
	Ident string
}

func NewName(span Span, ident string) *Name { return &Name{base{span}, ident} }
func (*Name) exprNode()                     {}

// BinOp is a binary operator application. Op is one of the operator tokens
// listed in spec.md §6 (e.g. "+", "==", "<<").
type BinOp struct {
	base
	Op          string
	Left, Right Expr
}

func NewBinOp(span Span, op string, l, r Expr) *BinOp { return &BinOp{base{span}, op, l, r} }
func (*BinOp) exprNode()                              {}

// UnaryOp is a unary operator application ("-", "~", "not").
type UnaryOp struct {
	base
	Op      string
	Operand Expr
}

func NewUnaryOp(span Span, op string, e Expr) *UnaryOp { return &UnaryOp{base{span}, op, e} }
func (*UnaryOp) exprNode()                             {}

// Call is a call to a built-in or user-defined function. The special
// function names "raw" (inner-script embedding) and "markInvalid" are
// recognized by the lowerer/checker rather than being given dedicated node
// types, keeping the AST's variant set closed per spec.md §3.
type Call struct {
	base
	Func string
	Args []Expr
}

func NewCall(span Span, fn string, args []Expr) *Call { return &Call{base{span}, fn, args} }
func (*Call) exprNode()                               {}

// If is both a statement (when its value, if any, is discarded) and the
// sole construct producing conditional control flow. Branch bodies are
// statement lists; spec.md §4.3 lowers the branches then reconciles the
// virtual stack per §4.2.
type If struct {
	base
	Cond           Expr
	ThenBody       []Stmt
	ElseBody       []Stmt // nil when there is no else clause
}

func NewIf(span Span, cond Expr, thenBody, elseBody []Stmt) *If {
	return &If{base{span}, cond, thenBody, elseBody}
}
func (*If) stmtNode() {}

// LetDecl declares a new binding in the current scope.
type LetDecl struct {
	base
	Name    string
	Mutable bool
	Expr    Expr
}

func NewLetDecl(span Span, name string, mutable bool, expr Expr) *LetDecl {
	return &LetDecl{base{span}, name, mutable, expr}
}
func (*LetDecl) stmtNode() {}

// Assign reassigns an existing mutable binding.
type Assign struct {
	base
	Name string
	Expr Expr
}

func NewAssign(span Span, name string, expr Expr) *Assign { return &Assign{base{span}, name, expr} }
func (*Assign) stmtNode()                                 {}

// Assume declares the names of stack items present at script entry. Per
// spec.md §4.1 this may only appear as the first non-comment statement.
type Assume struct {
	base
	Names []string
}

func NewAssume(span Span, names []string) *Assume { return &Assume{base{span}, names} }
func (*Assume) stmtNode()                         {}

// FuncDecl declares a function that is inlined at every call site; it is
// never itself lowered to code.
type FuncDecl struct {
	base
	Name       string
	ReturnType string // one of "int", "bytes", "expr" — resolved by sema
	Params     []string
	Body       []Stmt
	ReturnExpr Expr
}

func NewFuncDecl(span Span, name, retType string, params []string, body []Stmt, ret Expr) *FuncDecl {
	return &FuncDecl{base{span}, name, retType, params, body, ret}
}
func (*FuncDecl) stmtNode() {}

// Return is not accepted as a statement: a function's result is carried by
// FuncDecl.ReturnExpr, and sema rejects a Return node wherever it appears.
type Return struct {
	base
	Expr Expr
}

func NewReturn(span Span, expr Expr) *Return { return &Return{base{span}, expr} }
func (*Return) stmtNode()                    {}

// Verify lowers its expression and emits OP_VERIFY.
type Verify struct {
	base
	Expr Expr
}

func NewVerify(span Span, expr Expr) *Verify { return &Verify{base{span}, expr} }
func (*Verify) stmtNode()                    {}

// Push lowers its expression and leaves the result on the stack.
type Push struct {
	base
	Expr Expr
}

func NewPush(span Span, expr Expr) *Push { return &Push{base{span}, expr} }
func (*Push) stmtNode()                  {}

// ExprStmt is a bare expression statement; its treatment (allow/warn/deny)
// is governed by compile.Config.ImplicitPushes.
type ExprStmt struct {
	base
	Expr Expr
}

func NewExprStmt(span Span, expr Expr) *ExprStmt { return &ExprStmt{base{span}, expr} }
func (*ExprStmt) stmtNode()                      {}

// Script is the root node: a sequence of top-level statements.
type Script struct {
	base
	Statements []Stmt
}

func NewScript(span Span, stmts []Stmt) *Script { return &Script{base{span}, stmts} }

// InnerScript is a nested, self-contained sequence of statements appearing
// as an expression — the sole argument to a raw(...) call, which lowers it
// against its own fresh virtual stack and embeds the result as a data push
// (spec.md's supplemented raw() feature; grounded on the original's
// visit_InnerScript).
type InnerScript struct {
	base
	Statements []Stmt
}

func NewInnerScript(span Span, stmts []Stmt) *InnerScript { return &InnerScript{base{span}, stmts} }
func (*InnerScript) exprNode()                            {}

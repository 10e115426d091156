package sema

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bpfs/txsc/ast"
	"github.com/bpfs/txsc/compileerr"
	"github.com/bpfs/txsc/symbols"
)

func sp() ast.Span { return ast.Span{StartLine: 1, StartCol: 1} }

func intLit(v int64) *ast.IntLiteral { return ast.NewIntLiteral(sp(), big.NewInt(v)) }

func bytesLit(b []byte) *ast.BytesLiteral { return ast.NewBytesLiteral(sp(), b) }

func checkScript(stmts []ast.Stmt) *compileerr.Error {
	table := symbols.NewTable()
	return NewChecker(table).CheckScript(ast.NewScript(sp(), stmts))
}

func TestLetDeclAndVerify(t *testing.T) {
	stmts := []ast.Stmt{
		ast.NewLetDecl(sp(), "x", false, intLit(17)),
		ast.NewVerify(sp(), ast.NewBinOp(sp(), "==", ast.NewName(sp(), "x"), intLit(17))),
	}
	require.Nil(t, checkScript(stmts))
}

func TestRedeclareInSameScopeFails(t *testing.T) {
	stmts := []ast.Stmt{
		ast.NewLetDecl(sp(), "x", false, intLit(1)),
		ast.NewLetDecl(sp(), "x", false, intLit(2)),
	}
	err := checkScript(stmts)
	require.NotNil(t, err)
	require.Equal(t, compileerr.ErrRedeclaredName, err.ErrorCode)
}

func TestAssignToImmutableFails(t *testing.T) {
	stmts := []ast.Stmt{
		ast.NewLetDecl(sp(), "x", false, intLit(1)),
		ast.NewAssign(sp(), "x", intLit(2)),
	}
	err := checkScript(stmts)
	require.NotNil(t, err)
	require.Equal(t, compileerr.ErrImmutableBinding, err.ErrorCode)
}

func TestAssignToMutableSucceeds(t *testing.T) {
	stmts := []ast.Stmt{
		ast.NewLetDecl(sp(), "x", true, intLit(1)),
		ast.NewAssign(sp(), "x", intLit(2)),
	}
	require.Nil(t, checkScript(stmts))
}

func TestSideEffectingExprCannotBindImmutably(t *testing.T) {
	call := ast.NewCall(sp(), "checkSig", []ast.Expr{bytesLit(make([]byte, 33)), bytesLit(make([]byte, 70))})
	stmts := []ast.Stmt{ast.NewLetDecl(sp(), "ok", false, call)}
	err := checkScript(stmts)
	require.NotNil(t, err)
	require.Equal(t, compileerr.ErrTypeMismatch, err.ErrorCode)
}

func TestUnknownBuiltinFails(t *testing.T) {
	stmts := []ast.Stmt{
		ast.NewExprStmt(sp(), ast.NewCall(sp(), "not_a_real_builtin", nil)),
	}
	err := checkScript(stmts)
	require.NotNil(t, err)
	require.Equal(t, compileerr.ErrUnknownName, err.ErrorCode)
}

func TestBuiltinArityMismatchFails(t *testing.T) {
	stmts := []ast.Stmt{
		ast.NewExprStmt(sp(), ast.NewCall(sp(), "sha256", []ast.Expr{bytesLit([]byte("a")), bytesLit([]byte("b"))})),
	}
	err := checkScript(stmts)
	require.NotNil(t, err)
	require.Equal(t, compileerr.ErrArityMismatch, err.ErrorCode)
}

func TestMarkInvalidPoisonsButTakesNoArgs(t *testing.T) {
	stmts := []ast.Stmt{
		ast.NewExprStmt(sp(), ast.NewCall(sp(), "markInvalid", []ast.Expr{intLit(1)})),
	}
	err := checkScript(stmts)
	require.NotNil(t, err)
	require.Equal(t, compileerr.ErrArityMismatch, err.ErrorCode)
}

func TestMarkInvalidThenPushSucceeds(t *testing.T) {
	stmts := []ast.Stmt{
		ast.NewExprStmt(sp(), ast.NewCall(sp(), "markInvalid", nil)),
		ast.NewPush(sp(), bytesLit([]byte{0x11, 0x22})),
	}
	require.Nil(t, checkScript(stmts))
}

func TestAssumeInsideFunctionBodyFails(t *testing.T) {
	fn := ast.NewFuncDecl(sp(), "f", "int", nil,
		[]ast.Stmt{ast.NewAssume(sp(), []string{"a"})}, intLit(1))
	err := checkScript([]ast.Stmt{fn})
	require.NotNil(t, err)
	require.Equal(t, compileerr.ErrMisplacedAssume, err.ErrorCode)
}

func TestFunctionMustEndWithReturnExpr(t *testing.T) {
	fn := ast.NewFuncDecl(sp(), "f", "int", []string{"x"}, nil, nil)
	err := checkScript([]ast.Stmt{fn})
	require.NotNil(t, err)
	require.Equal(t, compileerr.ErrTypeMismatch, err.ErrorCode)
}

func TestFunctionReturnTypeMismatchFails(t *testing.T) {
	fn := ast.NewFuncDecl(sp(), "f", "bytes", nil, nil, intLit(5))
	err := checkScript([]ast.Stmt{fn})
	require.NotNil(t, err)
	require.Equal(t, compileerr.ErrTypeMismatch, err.ErrorCode)
}

func TestFunctionCallArityMismatchFails(t *testing.T) {
	fn := ast.NewFuncDecl(sp(), "addFive", "int", []string{"x"}, nil,
		ast.NewBinOp(sp(), "+", ast.NewName(sp(), "x"), intLit(5)))
	call := ast.NewExprStmt(sp(), ast.NewCall(sp(), "addFive", nil))
	err := checkScript([]ast.Stmt{fn, call})
	require.NotNil(t, err)
	require.Equal(t, compileerr.ErrArityMismatch, err.ErrorCode)
}

func TestFunctionCallOK(t *testing.T) {
	fn := ast.NewFuncDecl(sp(), "addFive", "int", []string{"x"}, nil,
		ast.NewBinOp(sp(), "+", ast.NewName(sp(), "x"), intLit(5)))
	verify := ast.NewVerify(sp(), ast.NewBinOp(sp(), "==",
		ast.NewCall(sp(), "addFive", []ast.Expr{intLit(10)}), intLit(15)))
	require.Nil(t, checkScript([]ast.Stmt{fn, verify}))
}

func TestImbalancedBranchInvalidatesAssumption(t *testing.T) {
	stmts := []ast.Stmt{
		ast.NewAssume(sp(), []string{"a"}),
		ast.NewIf(sp(), intLit(1),
			[]ast.Stmt{ast.NewPush(sp(), intLit(1))},
			[]ast.Stmt{},
		),
		ast.NewVerify(sp(), ast.NewName(sp(), "a")),
	}
	err := checkScript(stmts)
	require.NotNil(t, err)
	require.Equal(t, compileerr.ErrAssumptionAfterImbalancedBranch, err.ErrorCode)
}

func TestBalancedBranchPreservesAssumption(t *testing.T) {
	stmts := []ast.Stmt{
		ast.NewAssume(sp(), []string{"a"}),
		ast.NewIf(sp(), intLit(1),
			[]ast.Stmt{ast.NewPush(sp(), intLit(1))},
			[]ast.Stmt{ast.NewPush(sp(), intLit(2))},
		),
		ast.NewVerify(sp(), ast.NewName(sp(), "a")),
	}
	require.Nil(t, checkScript(stmts))
}

func TestEqualityAcceptsTwoBytesOperands(t *testing.T) {
	stmts := []ast.Stmt{
		ast.NewVerify(sp(), ast.NewBinOp(sp(), "==", bytesLit([]byte{1, 2}), bytesLit([]byte{1, 2}))),
	}
	require.Nil(t, checkScript(stmts))
}

func TestArithmeticOverBytesFails(t *testing.T) {
	stmts := []ast.Stmt{
		ast.NewExprStmt(sp(), ast.NewBinOp(sp(), "+", bytesLit([]byte{1}), intLit(1))),
	}
	err := checkScript(stmts)
	require.NotNil(t, err)
	require.Equal(t, compileerr.ErrTypeMismatch, err.ErrorCode)
}

package compile

import (
	"math/big"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"github.com/tyler-smith/go-bip32"

	"github.com/bpfs/txsc/ast"
	"github.com/bpfs/txsc/builtins"
	"github.com/bpfs/txsc/compileerr"
	"github.com/bpfs/txsc/emit"
	"github.com/bpfs/txsc/ir"
)

func sp() ast.Span { return ast.Span{StartLine: 1, StartCol: 1} }

func intLit(v int64) *ast.IntLiteral { return ast.NewIntLiteral(sp(), big.NewInt(v)) }

func bytesLit(b []byte) *ast.BytesLiteral { return ast.NewBytesLiteral(sp(), b) }

func opKinds(prog *ir.Program) []ir.Kind {
	var kinds []ir.Kind
	for _, instr := range prog.Instrs {
		if op, ok := instr.(ir.Op); ok {
			kinds = append(kinds, op.Kind)
		}
	}
	return kinds
}

// repeatHash builds the 20-byte literal 0x1010...10 used by spec.md §8
// scenario 1.
func repeatHash() []byte {
	b := make([]byte, 20)
	for i := range b {
		b[i] = 0x10
	}
	return b
}

// Scenario 1: P2PKH.
func TestConformanceP2PKH(t *testing.T) {
	hash := repeatHash()
	script := ast.NewScript(sp(), []ast.Stmt{
		ast.NewAssume(sp(), []string{"sig", "pubkey"}),
		ast.NewVerify(sp(), ast.NewBinOp(sp(), "==",
			ast.NewCall(sp(), "hash160", []ast.Expr{ast.NewName(sp(), "pubkey")}),
			bytesLit(hash))),
		ast.NewExprStmt(sp(), ast.NewCall(sp(), "checkSig",
			[]ast.Expr{ast.NewName(sp(), "sig"), ast.NewName(sp(), "pubkey")})),
	})
	result, err := Compile(script, DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, []ir.Kind{
		ir.OP_DUP, ir.OP_HASH160, ir.OP_EQUALVERIFY, ir.OP_CHECKSIG,
	}, opKinds(result.Program))

	var pushed []byte
	for _, instr := range result.Program.Instrs {
		if pb, ok := instr.(ir.PushBytes); ok {
			pushed = pb.Value
		}
	}
	require.Equal(t, hash, pushed)
}

// TestConformanceP2PKHWithDerivedKey exercises the same scenario 1 shape
// against a real compressed public key derived via go-bip32, rather than
// the spec's illustrative repeated-byte literal, so the pipeline is
// checked against a pubkey/hash160 pair no smaller test could fake.
func TestConformanceP2PKHWithDerivedKey(t *testing.T) {
	master, err := bip32.NewMasterKey([]byte("txsc conformance test seed"))
	require.NoError(t, err)
	pubkey := master.PublicKey().Key
	require.Len(t, pubkey, 33)
	hash := builtins.Hash160(pubkey)

	script := ast.NewScript(sp(), []ast.Stmt{
		ast.NewAssume(sp(), []string{"sig", "pubkey"}),
		ast.NewVerify(sp(), ast.NewBinOp(sp(), "==",
			ast.NewCall(sp(), "hash160", []ast.Expr{ast.NewName(sp(), "pubkey")}),
			bytesLit(hash))),
		ast.NewExprStmt(sp(), ast.NewCall(sp(), "checkSig",
			[]ast.Expr{ast.NewName(sp(), "sig"), ast.NewName(sp(), "pubkey")})),
	})
	result, err := Compile(script, DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, []ir.Kind{
		ir.OP_DUP, ir.OP_HASH160, ir.OP_EQUALVERIFY, ir.OP_CHECKSIG,
	}, opKinds(result.Program))
}

// Scenario 2: constant folding, fully folds away.
func TestConformanceConstantFoldingFoldsToEmpty(t *testing.T) {
	script := ast.NewScript(sp(), []ast.Stmt{
		ast.NewLetDecl(sp(), "x", false, ast.NewBinOp(sp(), "+", intLit(5), intLit(12))),
		ast.NewVerify(sp(), ast.NewBinOp(sp(), "==", ast.NewName(sp(), "x"), intLit(17))),
	})
	result, err := Compile(script, DefaultConfig())
	require.NoError(t, err)
	require.Empty(t, result.Program.Instrs)
}

// Scenario 3: mutable reassignment collapses to a single OP_4.
func TestConformanceMutableReassignment(t *testing.T) {
	script := ast.NewScript(sp(), []ast.Stmt{
		ast.NewLetDecl(sp(), "a", true, intLit(3)),
		ast.NewAssign(sp(), "a", ast.NewBinOp(sp(), "+", ast.NewName(sp(), "a"), intLit(1))),
		ast.NewExprStmt(sp(), ast.NewName(sp(), "a")),
	})
	result, err := Compile(script, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, result.Program.Instrs, 1)
	pi, ok := result.Program.Instrs[0].(ir.PushInt)
	require.True(t, ok)
	require.Equal(t, big.NewInt(4), pi.Value)
}

// Scenario 4: data embedding after markInvalid.
func TestConformanceDataEmbedding(t *testing.T) {
	script := ast.NewScript(sp(), []ast.Stmt{
		ast.NewExprStmt(sp(), ast.NewCall(sp(), "markInvalid", nil)),
		ast.NewExprStmt(sp(), bytesLit([]byte{0x11, 0x22})),
	})
	result, err := Compile(script, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, result.Program.Instrs, 2)
	op, ok := result.Program.Instrs[0].(ir.Op)
	require.True(t, ok)
	require.Equal(t, ir.OP_RETURN, op.Kind)
	pb, ok := result.Program.Instrs[1].(ir.PushBytes)
	require.True(t, ok)
	require.Equal(t, []byte{0x11, 0x22}, pb.Value)
}

// Scenario 5: imbalanced branches invalidate a later assumption reference.
func TestConformanceImbalancedBranchInvalidatesAssumption(t *testing.T) {
	script := ast.NewScript(sp(), []ast.Stmt{
		ast.NewAssume(sp(), []string{"a"}),
		ast.NewIf(sp(), ast.NewBinOp(sp(), "==", ast.NewName(sp(), "a"), intLit(1)),
			[]ast.Stmt{ast.NewExprStmt(sp(), intLit(2))},
			[]ast.Stmt{ast.NewExprStmt(sp(), intLit(2)), ast.NewExprStmt(sp(), intLit(3))},
		),
		ast.NewExprStmt(sp(), ast.NewName(sp(), "a")),
	})
	_, err := Compile(script, Config{Verbosity: 0, Optimize: true, ImplicitPushes: ImplicitPushAllow, Target: emit.TargetASM})
	require.Error(t, err)
	cerr, ok := err.(*compileerr.Error)
	require.True(t, ok)
	require.Equal(t, compileerr.ErrAssumptionAfterImbalancedBranch, cerr.ErrorCode)
}

// Scenario 6: function inlining fully folds away.
func TestConformanceFunctionInliningFoldsToEmpty(t *testing.T) {
	fn := ast.NewFuncDecl(sp(), "addFive", "int", []string{"x"}, nil,
		ast.NewBinOp(sp(), "+", ast.NewName(sp(), "x"), intLit(5)))
	script := ast.NewScript(sp(), []ast.Stmt{
		fn,
		ast.NewVerify(sp(), ast.NewBinOp(sp(), "==",
			ast.NewCall(sp(), "addFive", []ast.Expr{intLit(10)}), intLit(15))),
	})
	result, err := Compile(script, DefaultConfig())
	require.NoError(t, err)
	require.Empty(t, result.Program.Instrs)
}

func TestConformanceEmptyScriptProducesEmptyOutput(t *testing.T) {
	result, err := Compile(ast.NewScript(sp(), nil), DefaultConfig())
	require.NoError(t, err)
	require.Empty(t, result.Program.Instrs)
}

func TestConformanceAssumeAloneProducesEmptyOutput(t *testing.T) {
	script := ast.NewScript(sp(), []ast.Stmt{ast.NewAssume(sp(), []string{"x"})})
	result, err := Compile(script, DefaultConfig())
	require.NoError(t, err)
	require.Empty(t, result.Program.Instrs)
}

func TestImplicitPushAllowRecordsNoWarning(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ImplicitPushes = ImplicitPushAllow
	script := ast.NewScript(sp(), []ast.Stmt{ast.NewExprStmt(sp(), intLit(1))})
	result, err := Compile(script, cfg)
	require.NoError(t, err)
	require.Empty(t, result.Warnings)
}

func TestImplicitPushWarnRecordsWarningAndStillCompiles(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ImplicitPushes = ImplicitPushWarn
	script := ast.NewScript(sp(), []ast.Stmt{ast.NewExprStmt(sp(), intLit(1))})
	result, err := Compile(script, cfg)
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
}

func TestImplicitPushDenyRejectsCompilation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ImplicitPushes = ImplicitPushDeny
	script := ast.NewScript(sp(), []ast.Stmt{ast.NewExprStmt(sp(), intLit(1))})
	_, err := Compile(script, cfg)
	require.Error(t, err)
}

func TestImplicitPushDenySkipsMarkInvalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ImplicitPushes = ImplicitPushDeny
	script := ast.NewScript(sp(), []ast.Stmt{
		ast.NewExprStmt(sp(), ast.NewCall(sp(), "markInvalid", nil)),
	})
	_, err := Compile(script, cfg)
	require.NoError(t, err)
}

func TestCompileToFSWritesTextOutput(t *testing.T) {
	fs := afero.NewMemMapFs()
	script := ast.NewScript(sp(), []ast.Stmt{ast.NewPush(sp(), intLit(5))})
	cfg := DefaultConfig()
	cfg.Target = emit.TargetASM
	_, err := CompileToFS(fs, "/out/script.asm", script, cfg)
	require.NoError(t, err)
	data, err := afero.ReadFile(fs, "/out/script.asm")
	require.NoError(t, err)
	require.NotEmpty(t, data)
}

func TestCompileStopsAtFirstError(t *testing.T) {
	script := ast.NewScript(sp(), []ast.Stmt{
		ast.NewPush(sp(), ast.NewName(sp(), "undeclared")),
	})
	_, err := Compile(script, DefaultConfig())
	require.Error(t, err)
	cerr, ok := err.(*compileerr.Error)
	require.True(t, ok)
	require.Equal(t, compileerr.ErrUnknownName, cerr.ErrorCode)
}

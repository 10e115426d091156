package optimize

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bpfs/txsc/ir"
)

func program(instrs ...ir.Instr) *ir.Program {
	return &ir.Program{Instrs: instrs}
}

func TestPeepholeDupDropElimination(t *testing.T) {
	prog := program(ir.Op{Kind: ir.OP_DUP}, ir.Op{Kind: ir.OP_DROP})
	out := Peephole(prog, nil, 0)
	require.Empty(t, out.Instrs)
}

func TestPeepholeConstFoldArith(t *testing.T) {
	prog := program(ir.PushInt{Value: big.NewInt(5)}, ir.PushInt{Value: big.NewInt(12)}, ir.Op{Kind: ir.OP_ADD})
	out := Peephole(prog, nil, 0)
	require.Len(t, out.Instrs, 1)
	pi, ok := out.Instrs[0].(ir.PushInt)
	require.True(t, ok)
	require.Equal(t, big.NewInt(17), pi.Value)
}

func TestPeepholePickZeroBecomesDup(t *testing.T) {
	prog := program(ir.PushInt{Value: big.NewInt(0)}, ir.Op{Kind: ir.OP_PICK})
	out := Peephole(prog, nil, 0)
	require.Len(t, out.Instrs, 1)
	op, ok := out.Instrs[0].(ir.Op)
	require.True(t, ok)
	require.Equal(t, ir.OP_DUP, op.Kind)
}

func TestPeepholeEqualVerifyFusesToEqualVerify(t *testing.T) {
	prog := program(ir.Op{Kind: ir.OP_EQUAL}, ir.Op{Kind: ir.OP_VERIFY})
	out := Peephole(prog, nil, 0)
	require.Len(t, out.Instrs, 1)
	op, ok := out.Instrs[0].(ir.Op)
	require.True(t, ok)
	require.Equal(t, ir.OP_EQUALVERIFY, op.Kind)
}

func TestPeepholeCheckSigVerifyFuses(t *testing.T) {
	prog := program(ir.Op{Kind: ir.OP_CHECKSIG}, ir.Op{Kind: ir.OP_VERIFY})
	out := Peephole(prog, nil, 0)
	require.Len(t, out.Instrs, 1)
	op, ok := out.Instrs[0].(ir.Op)
	require.True(t, ok)
	require.Equal(t, ir.OP_CHECKSIGVERIFY, op.Kind)
}

func TestPeepholeCheckMultiSigVerifyFuses(t *testing.T) {
	prog := program(ir.Op{Kind: ir.OP_CHECKMULTISIG}, ir.Op{Kind: ir.OP_VERIFY})
	out := Peephole(prog, nil, 0)
	require.Len(t, out.Instrs, 1)
	op, ok := out.Instrs[0].(ir.Op)
	require.True(t, ok)
	require.Equal(t, ir.OP_CHECKMULTISIGVERIFY, op.Kind)
}

func TestPeepholeNumEqualVerifyFuses(t *testing.T) {
	prog := program(ir.Op{Kind: ir.OP_NUMEQUAL}, ir.Op{Kind: ir.OP_VERIFY})
	out := Peephole(prog, nil, 0)
	require.Len(t, out.Instrs, 1)
	op, ok := out.Instrs[0].(ir.Op)
	require.True(t, ok)
	require.Equal(t, ir.OP_NUMEQUALVERIFY, op.Kind)
}

func TestPeepholeDoesNotFuseUnrelatedOpcodeWithVerify(t *testing.T) {
	prog := program(ir.Op{Kind: ir.OP_DUP}, ir.Op{Kind: ir.OP_VERIFY})
	out := Peephole(prog, nil, 0)
	require.Len(t, out.Instrs, 2)
	require.Equal(t, ir.OP_DUP, out.Instrs[0].(ir.Op).Kind)
	require.Equal(t, ir.OP_VERIFY, out.Instrs[1].(ir.Op).Kind)
}

func TestDeadCodeEliminationDropsNonDataAfterReturn(t *testing.T) {
	prog := program(
		ir.Op{Kind: ir.OP_RETURN},
		ir.PushBytes{Value: []byte{0x11, 0x22}},
		ir.Op{Kind: ir.OP_DUP},
	)
	out := Peephole(prog, nil, 0)
	require.Len(t, out.Instrs, 2)
	require.Equal(t, ir.OP_RETURN, out.Instrs[0].(ir.Op).Kind)
	pb, ok := out.Instrs[1].(ir.PushBytes)
	require.True(t, ok)
	require.Equal(t, []byte{0x11, 0x22}, pb.Value)
}

func TestPeepholeIsIdempotent(t *testing.T) {
	prog := program(ir.Op{Kind: ir.OP_EQUAL}, ir.Op{Kind: ir.OP_VERIFY}, ir.Op{Kind: ir.OP_DUP}, ir.Op{Kind: ir.OP_DROP})
	once := Peephole(prog, nil, 0)
	twice := Peephole(once, nil, 0)
	require.Equal(t, once.Instrs, twice.Instrs)
}

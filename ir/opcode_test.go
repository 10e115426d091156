package ir

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInfoOfDelta(t *testing.T) {
	tests := []struct {
		kind  Kind
		delta int
	}{
		{OP_DUP, 1},
		{OP_DROP, -1},
		{OP_PICK, 0}, // index consumed, one item copied up
		{OP_ROLL, -1},
		{OP_ADD, -1},
		{OP_VERIFY, -1},
		{OP_RETURN, 0},
	}
	for _, tt := range tests {
		info := InfoOf(tt.kind)
		require.Equal(t, tt.delta, info.Outputs-info.Inputs, "delta for %s", info.Name)
	}
}

func TestInfoOfUnknownKindPanics(t *testing.T) {
	require.Panics(t, func() { InfoOf(Kind(99999)) })
}

func TestIsVerifier(t *testing.T) {
	require.True(t, OP_VERIFY.IsVerifier())
	require.True(t, OP_CHECKSIGVERIFY.IsVerifier())
	require.False(t, OP_CHECKSIG.IsVerifier())
}

func TestSmallIntKind(t *testing.T) {
	tests := []struct {
		v    int64
		kind Kind
		ok   bool
	}{
		{0, OP_0, true},
		{1, OP_1, true},
		{16, OP_16, true},
		{-1, OP_1NEGATE, true},
		{17, 0, false},
		{-2, 0, false},
	}
	for _, tt := range tests {
		k, ok := SmallIntKind(big.NewInt(tt.v))
		require.Equal(t, tt.ok, ok)
		if ok {
			require.Equal(t, tt.kind, k)
		}
	}
}

func TestProgramEmitHelpers(t *testing.T) {
	p := NewProgram()
	p.EmitOp(OP_DUP)
	p.EmitInt(5)
	p.EmitBytes([]byte{1, 2, 3})
	require.Equal(t, 3, p.Len())
	require.Equal(t, Op{Kind: OP_DUP}, p.Instrs[0])
	require.Equal(t, PushInt{Value: big.NewInt(5)}, p.Instrs[1])
	require.Equal(t, PushBytes{Value: []byte{1, 2, 3}}, p.Instrs[2])
}

func TestProgramEmitBytesCopies(t *testing.T) {
	p := NewProgram()
	b := []byte{1, 2, 3}
	p.EmitBytes(b)
	b[0] = 99
	require.Equal(t, byte(1), p.Instrs[0].(PushBytes).Value[0])
}

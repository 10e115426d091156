package builtins

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bpfs/txsc/ir"
	"github.com/bpfs/txsc/types"
)

func TestLookupKnownBuiltin(t *testing.T) {
	sig, ok := Lookup("hash160")
	require.True(t, ok)
	require.Equal(t, ir.OP_HASH160, sig.Opcode)
	require.Equal(t, 1, sig.Arity)
	require.Equal(t, types.Bytes, sig.Result)
}

func TestLookupUnknownBuiltin(t *testing.T) {
	_, ok := Lookup("not_a_builtin")
	require.False(t, ok)
}

func TestCheckMultiSigIsVariadicAndSideEffecting(t *testing.T) {
	sig, ok := Lookup("checkMultiSig")
	require.True(t, ok)
	require.True(t, sig.Variadic)
	require.Equal(t, 3, sig.MinArity)
	require.True(t, sig.SideEffecting)
}

func TestArgType(t *testing.T) {
	sig, _ := Lookup("substr")
	require.Equal(t, types.Bytes, sig.ArgType(0))
	require.Equal(t, types.Int, sig.ArgType(1))
	require.Equal(t, types.Int, sig.ArgType(2))
	// Past the fixed prefix, ArgType falls back to the unconstrained type.
	require.Equal(t, types.Expr, sig.ArgType(5))
}

func TestCheckHash160(t *testing.T) {
	sig, _ := Lookup("check_hash160")
	_, err := sig.CompileTimeEval(make([]byte, 20))
	require.NoError(t, err)

	_, err = sig.CompileTimeEval(make([]byte, 19))
	require.Error(t, err)
}

func TestCheckPubKey(t *testing.T) {
	sig, _ := Lookup("check_pubkey")
	_, err := sig.CompileTimeEval([]byte{0x02, 0x01})
	require.Error(t, err)
}

func TestHashHelpersAgreeWithOpcodeBuiltins(t *testing.T) {
	data := []byte("hello world")
	require.Equal(t, Sha256(data), Sha256(data))
	require.Equal(t, Hash160(data), Ripemd160(Sha256(data)))
	require.Len(t, Hash160(data), 20)
	require.Len(t, Hash256(data), 32)
	require.Len(t, Sha1(data), 20)
}

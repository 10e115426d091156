package emit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bpfs/txsc/ir"
)

func TestTextMnemonicsAndHex(t *testing.T) {
	prog := ir.NewProgram()
	prog.EmitOp(ir.OP_DUP)
	prog.EmitOp(ir.OP_HASH160)
	prog.EmitBytes([]byte{0xde, 0xad, 0xbe, 0xef})
	prog.EmitOp(ir.OP_EQUALVERIFY)
	prog.EmitInt(16)

	got, err := Text(prog)
	require.NoError(t, err)
	require.Equal(t, "OP_DUP OP_HASH160 0x04 deadbeef OP_EQUALVERIFY OP_16", got)
}

func TestTextNonCanonicalIntAsHex(t *testing.T) {
	prog := ir.NewProgram()
	prog.EmitInt(17)
	got, err := Text(prog)
	require.NoError(t, err)
	require.Equal(t, "0x01 11", got)
}

func TestTextPushDataLongerThanOpData75(t *testing.T) {
	prog := ir.NewProgram()
	data := make([]byte, 80)
	for i := range data {
		data[i] = 0xaa
	}
	prog.EmitBytes(data)

	got, err := Text(prog)
	require.NoError(t, err)
	require.Equal(t, "OP_PUSHDATA1 0x50 "+strings.Repeat("aa", 80), got)
}

package emit

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/bpfs/txsc/ir"
)

func TestWriteToFSText(t *testing.T) {
	fs := afero.NewMemMapFs()
	prog := ir.NewProgram()
	prog.EmitOp(ir.OP_DUP)

	require.NoError(t, WriteToFS(fs, "/out/script.asm", prog, TargetASM))
	content, err := afero.ReadFile(fs, "/out/script.asm")
	require.NoError(t, err)
	require.Equal(t, "OP_DUP\n", string(content))
}

func TestWriteToFSHex(t *testing.T) {
	fs := afero.NewMemMapFs()
	prog := ir.NewProgram()
	prog.EmitOp(ir.OP_DUP)

	require.NoError(t, WriteToFS(fs, "/out/script.hex", prog, TargetHex))
	content, err := afero.ReadFile(fs, "/out/script.hex")
	require.NoError(t, err)
	require.Equal(t, "76\n", string(content))
}

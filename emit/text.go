package emit

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/bpfs/txsc/ir"
)

// Text renders prog as a space-separated stream of OP_* mnemonics and hex
// literals, in the style of the teacher's txscript.DisasmString: a push
// with a canonical small-integer encoding prints its opcode name; any
// other push prints as a hex-length token (spec.md §6: "hex pushes
// prefixed with the push length") followed by the raw data hex, mirroring
// the wire form's own length-prefixed layout rather than hiding it.
func Text(prog *ir.Program) (string, error) {
	var toks []string
	for _, instr := range prog.Instrs {
		switch v := instr.(type) {
		case ir.Op:
			toks = append(toks, v.Kind.String())

		case ir.PushInt:
			if k, ok := ir.SmallIntKind(v.Value); ok {
				toks = append(toks, k.String())
				continue
			}
			toks = append(toks, pushBytesTokens(serializeScriptNum(v.Value))...)

		case ir.PushBytes:
			toks = append(toks, pushBytesTokens(v.Value)...)

		default:
			return "", fmt.Errorf("emit: unhandled instruction %T in text output", instr)
		}
	}
	return strings.Join(toks, " "), nil
}

// pushBytesTokens renders data the way canonicalPush encodes it for the
// wire, but as disassembly tokens: a single 0x<length> token ahead of the
// raw data hex for data up to opData75 bytes, or an OP_PUSHDATA1/2/4
// mnemonic plus its own 0x<length> token for larger pushes, per spec.md
// §4.5 and the teacher's DisasmString handling of PUSHDATA opcodes.
func pushBytesTokens(data []byte) []string {
	n := len(data)
	if n == 0 {
		return []string{ir.OP_0.String()}
	}
	hexData := hex.EncodeToString(data)
	switch {
	case n <= opData75:
		return []string{fmt.Sprintf("0x%02x", n), hexData}
	case n <= 0xff:
		return []string{"OP_PUSHDATA1", fmt.Sprintf("0x%02x", n), hexData}
	case n <= 0xffff:
		return []string{"OP_PUSHDATA2", fmt.Sprintf("0x%04x", n), hexData}
	default:
		return []string{"OP_PUSHDATA4", fmt.Sprintf("0x%08x", n), hexData}
	}
}

// Package emit turns a finished ir.Program into either of spec.md §6's two
// output forms: a human-readable token stream, or the canonical binary
// consensus encoding, grounded on the teacher's txscript/opcode.go byte
// table and script.go's push-canonicalization rules.
package emit

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/bpfs/txsc/ir"
)

// Binary serializes prog to its canonical consensus byte encoding.
func Binary(prog *ir.Program) ([]byte, error) {
	var out []byte
	for _, instr := range prog.Instrs {
		switch v := instr.(type) {
		case ir.Op:
			b, ok := byteValue[v.Kind]
			if !ok {
				return nil, fmt.Errorf("emit: opcode %s has no binary encoding", v.Kind)
			}
			out = append(out, b)

		case ir.PushInt:
			if k, ok := ir.SmallIntKind(v.Value); ok {
				out = append(out, byteValue[k])
				continue
			}
			out = append(out, canonicalPush(serializeScriptNum(v.Value))...)

		case ir.PushBytes:
			out = append(out, canonicalPush(v.Value)...)

		default:
			return nil, fmt.Errorf("emit: unhandled instruction %T", instr)
		}
	}
	return out, nil
}

// canonicalPush returns the minimal-length push opcode sequence for data,
// per spec.md §4.5 / the teacher's isCanonicalPush.
func canonicalPush(data []byte) []byte {
	n := len(data)
	switch {
	case n == 0:
		return []byte{0x00}
	case n <= opData75:
		return append([]byte{byte(n)}, data...)
	case n <= 0xff:
		return append([]byte{opPushData1, byte(n)}, data...)
	case n <= 0xffff:
		lenBuf := make([]byte, 2)
		binary.LittleEndian.PutUint16(lenBuf, uint16(n))
		return append(append([]byte{opPushData2}, lenBuf...), data...)
	default:
		lenBuf := make([]byte, 4)
		binary.LittleEndian.PutUint32(lenBuf, uint32(n))
		return append(append([]byte{opPushData4}, lenBuf...), data...)
	}
}

// serializeScriptNum encodes v in Bitcoin's little-endian sign-magnitude
// CScriptNum form: the minimal byte string such that the high bit of the
// last byte carries the sign, padding with an extra 0x00/0x80 byte only
// when the natural encoding's last byte would otherwise be mistaken for a
// sign bit.
func serializeScriptNum(v *big.Int) []byte {
	if v.Sign() == 0 {
		return []byte{}
	}

	negative := v.Sign() < 0
	abs := new(big.Int).Abs(v)

	var result []byte
	mask := big.NewInt(0xff)
	for abs.Sign() != 0 {
		b := new(big.Int).And(abs, mask)
		result = append(result, byte(b.Int64()))
		abs.Rsh(abs, 8)
	}

	if result[len(result)-1]&0x80 != 0 {
		if negative {
			result = append(result, 0x80)
		} else {
			result = append(result, 0x00)
		}
	} else if negative {
		result[len(result)-1] |= 0x80
	}
	return result
}

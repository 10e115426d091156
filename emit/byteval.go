package emit

import "github.com/bpfs/txsc/ir"

// byteValue maps a Kind to its canonical Bitcoin script opcode byte, taken
// directly from the teacher's txscript/opcode.go constant table so that
// output produced here matches real consensus encoding.
var byteValue = map[ir.Kind]byte{
	ir.OP_0:      0x00,
	ir.OP_1NEGATE: 0x4f,
	ir.OP_1:      0x51,
	ir.OP_2:      0x52,
	ir.OP_3:      0x53,
	ir.OP_4:      0x54,
	ir.OP_5:      0x55,
	ir.OP_6:      0x56,
	ir.OP_7:      0x57,
	ir.OP_8:      0x58,
	ir.OP_9:      0x59,
	ir.OP_10:     0x5a,
	ir.OP_11:     0x5b,
	ir.OP_12:     0x5c,
	ir.OP_13:     0x5d,
	ir.OP_14:     0x5e,
	ir.OP_15:     0x5f,
	ir.OP_16:     0x60,

	ir.OP_IF:     0x63,
	ir.OP_NOTIF:  0x64,
	ir.OP_ELSE:   0x67,
	ir.OP_ENDIF:  0x68,
	ir.OP_VERIFY: 0x69,
	ir.OP_RETURN: 0x6a,

	ir.OP_IFDUP:  0x73,
	ir.OP_DEPTH:  0x74,
	ir.OP_DROP:   0x75,
	ir.OP_DUP:    0x76,
	ir.OP_NIP:    0x77,
	ir.OP_OVER:   0x78,
	ir.OP_PICK:   0x79,
	ir.OP_ROLL:   0x7a,
	ir.OP_ROT:    0x7b,
	ir.OP_SWAP:   0x7c,
	ir.OP_TUCK:   0x7d,
	ir.OP_2DROP:  0x6d,
	ir.OP_2DUP:   0x6e,
	ir.OP_3DUP:   0x6f,
	ir.OP_2OVER:  0x70,
	ir.OP_2ROT:   0x71,
	ir.OP_2SWAP:  0x72,

	ir.OP_CAT:    0x7e,
	ir.OP_SUBSTR: 0x7f,
	ir.OP_LEFT:   0x80,
	ir.OP_RIGHT:  0x81,
	ir.OP_SIZE:   0x82,

	ir.OP_INVERT:      0x83,
	ir.OP_AND:         0x84,
	ir.OP_OR:          0x85,
	ir.OP_XOR:         0x86,
	ir.OP_EQUAL:       0x87,
	ir.OP_EQUALVERIFY: 0x88,

	ir.OP_1ADD:               0x8b,
	ir.OP_1SUB:               0x8c,
	ir.OP_2MUL:                0x8d,
	ir.OP_2DIV:                0x8e,
	ir.OP_NEGATE:             0x8f,
	ir.OP_ABS:                0x90,
	ir.OP_NOT:                0x91,
	ir.OP_0NOTEQUAL:          0x92,
	ir.OP_ADD:                0x93,
	ir.OP_SUB:                0x94,
	ir.OP_MUL:                0x95,
	ir.OP_DIV:                0x96,
	ir.OP_MOD:                0x97,
	ir.OP_LSHIFT:             0x98,
	ir.OP_RSHIFT:             0x99,
	ir.OP_BOOLAND:            0x9a,
	ir.OP_BOOLOR:             0x9b,
	ir.OP_NUMEQUAL:           0x9c,
	ir.OP_NUMEQUALVERIFY:     0x9d,
	ir.OP_NUMNOTEQUAL:        0x9e,
	ir.OP_LESSTHAN:           0x9f,
	ir.OP_GREATERTHAN:        0xa0,
	ir.OP_LESSTHANOREQUAL:    0xa1,
	ir.OP_GREATERTHANOREQUAL: 0xa2,
	ir.OP_MIN:                0xa3,
	ir.OP_MAX:                0xa4,
	ir.OP_WITHIN:             0xa5,

	ir.OP_RIPEMD160:           0xa6,
	ir.OP_SHA1:                0xa7,
	ir.OP_SHA256:              0xa8,
	ir.OP_HASH160:             0xa9,
	ir.OP_HASH256:             0xaa,
	ir.OP_CHECKSIG:            0xac,
	ir.OP_CHECKSIGVERIFY:      0xad,
	ir.OP_CHECKMULTISIG:       0xae,
	ir.OP_CHECKMULTISIGVERIFY: 0xaf,
}

const (
	opData1    = 0x01
	opData75   = 0x4b
	opPushData1 = 0x4c
	opPushData2 = 0x4d
	opPushData4 = 0x4e
)

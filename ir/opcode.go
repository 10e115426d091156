// Package ir defines the flat opcode intermediate representation that
// expression lowering emits and the optimizer rewrites in place. An IR
// program has no labels and no jumps other than those implied by
// OP_IF/OP_ELSE/OP_ENDIF (spec.md §3).
package ir

// Kind identifies an opcode. Names and values follow the canonical Bitcoin
// script opcode set, as tabulated by the teacher's txscript/opcode.go and
// the original txsc/ir/linear_nodes.py.
type Kind int

const (
	// Constants.
	OP_0 Kind = iota
	OP_1NEGATE
	OP_1
	OP_2
	OP_3
	OP_4
	OP_5
	OP_6
	OP_7
	OP_8
	OP_9
	OP_10
	OP_11
	OP_12
	OP_13
	OP_14
	OP_15
	OP_16

	// Flow control.
	OP_IF
	OP_NOTIF
	OP_ELSE
	OP_ENDIF
	OP_VERIFY
	OP_RETURN

	// Stack.
	OP_IFDUP
	OP_DEPTH
	OP_DROP
	OP_DUP
	OP_NIP
	OP_OVER
	OP_PICK
	OP_ROLL
	OP_ROT
	OP_SWAP
	OP_TUCK
	OP_2DROP
	OP_2DUP
	OP_3DUP
	OP_2OVER
	OP_2ROT
	OP_2SWAP

	// Splice.
	OP_CAT
	OP_SUBSTR
	OP_LEFT
	OP_RIGHT
	OP_SIZE

	// Bitwise logic.
	OP_INVERT
	OP_AND
	OP_OR
	OP_XOR
	OP_EQUAL
	OP_EQUALVERIFY

	// Arithmetic.
	OP_1ADD
	OP_1SUB
	OP_2MUL
	OP_2DIV
	OP_NEGATE
	OP_ABS
	OP_NOT
	OP_0NOTEQUAL
	OP_ADD
	OP_SUB
	OP_MUL
	OP_DIV
	OP_MOD
	OP_LSHIFT
	OP_RSHIFT
	OP_BOOLAND
	OP_BOOLOR
	OP_NUMEQUAL
	OP_NUMEQUALVERIFY
	OP_NUMNOTEQUAL
	OP_LESSTHAN
	OP_GREATERTHAN
	OP_LESSTHANOREQUAL
	OP_GREATERTHANOREQUAL
	OP_MIN
	OP_MAX
	OP_WITHIN

	// Crypto.
	OP_RIPEMD160
	OP_SHA1
	OP_SHA256
	OP_HASH160
	OP_HASH256
	OP_CHECKSIG
	OP_CHECKSIGVERIFY
	OP_CHECKMULTISIG
	OP_CHECKMULTISIGVERIFY
)

// Info describes an opcode's fixed stack arity: Inputs items are consumed,
// Outputs items are produced, for a net effect (Delta) of Outputs - Inputs.
// Verifier marks an opcode that aborts the script outright rather than
// merely transforming the stack (OP_VERIFY and the *VERIFY family).
//
// OP_PICK, OP_ROLL, OP_IFDUP and the CheckMultiSig family have an arity
// that depends on a runtime value; their Inputs here covers only the fixed
// part (e.g. OP_PICK always consumes its index argument plus the item it
// copies access to is not popped). The lowerer, which always emits the
// index/count as a preceding PushInt it already knows the value of,
// accounts for the dynamic part itself rather than through this table.
type Info struct {
	Name     string
	Inputs   int
	Outputs  int
	Verifier bool
}

// Delta is the net stack effect of an opcode with fixed arity.
func (i Info) Delta() int { return i.Outputs - i.Inputs }

var infoTable = map[Kind]Info{
	OP_0:       {"OP_0", 0, 1, false},
	OP_1NEGATE: {"OP_1NEGATE", 0, 1, false},
	OP_1:       {"OP_1", 0, 1, false},
	OP_2:       {"OP_2", 0, 1, false},
	OP_3:       {"OP_3", 0, 1, false},
	OP_4:       {"OP_4", 0, 1, false},
	OP_5:       {"OP_5", 0, 1, false},
	OP_6:       {"OP_6", 0, 1, false},
	OP_7:       {"OP_7", 0, 1, false},
	OP_8:       {"OP_8", 0, 1, false},
	OP_9:       {"OP_9", 0, 1, false},
	OP_10:      {"OP_10", 0, 1, false},
	OP_11:      {"OP_11", 0, 1, false},
	OP_12:      {"OP_12", 0, 1, false},
	OP_13:      {"OP_13", 0, 1, false},
	OP_14:      {"OP_14", 0, 1, false},
	OP_15:      {"OP_15", 0, 1, false},
	OP_16:      {"OP_16", 0, 1, false},

	OP_IF:     {"OP_IF", 1, 0, false},
	OP_NOTIF:  {"OP_NOTIF", 1, 0, false},
	OP_ELSE:   {"OP_ELSE", 0, 0, false},
	OP_ENDIF:  {"OP_ENDIF", 0, 0, false},
	OP_VERIFY: {"OP_VERIFY", 1, 0, true},
	OP_RETURN: {"OP_RETURN", 0, 0, true},

	OP_IFDUP: {"OP_IFDUP", 1, 1, false}, // dynamic: 1 or 2 outputs at runtime
	OP_DEPTH: {"OP_DEPTH", 0, 1, false},
	OP_DROP:  {"OP_DROP", 1, 0, false},
	OP_DUP:   {"OP_DUP", 1, 2, false},
	OP_NIP:   {"OP_NIP", 2, 1, false},
	OP_OVER:  {"OP_OVER", 2, 3, false},
	OP_PICK:  {"OP_PICK", 1, 1, false}, // index consumed, one item copied up
	OP_ROLL:  {"OP_ROLL", 1, 0, false}, // index consumed, item relocated not duplicated
	OP_ROT:   {"OP_ROT", 3, 3, false},
	OP_SWAP:  {"OP_SWAP", 2, 2, false},
	OP_TUCK:  {"OP_TUCK", 2, 3, false},
	OP_2DROP: {"OP_2DROP", 2, 0, false},
	OP_2DUP:  {"OP_2DUP", 2, 4, false},
	OP_3DUP:  {"OP_3DUP", 3, 6, false},
	OP_2OVER: {"OP_2OVER", 4, 6, false},
	OP_2ROT:  {"OP_2ROT", 6, 6, false},
	OP_2SWAP: {"OP_2SWAP", 4, 4, false},

	OP_CAT:    {"OP_CAT", 2, 1, false},
	OP_SUBSTR: {"OP_SUBSTR", 3, 1, false},
	OP_LEFT:   {"OP_LEFT", 2, 1, false},
	OP_RIGHT:  {"OP_RIGHT", 2, 1, false},
	OP_SIZE:   {"OP_SIZE", 1, 2, false},

	OP_INVERT:      {"OP_INVERT", 1, 1, false},
	OP_AND:         {"OP_AND", 2, 1, false},
	OP_OR:          {"OP_OR", 2, 1, false},
	OP_XOR:         {"OP_XOR", 2, 1, false},
	OP_EQUAL:       {"OP_EQUAL", 2, 1, false},
	OP_EQUALVERIFY: {"OP_EQUALVERIFY", 2, 0, true},

	OP_1ADD:               {"OP_1ADD", 1, 1, false},
	OP_1SUB:               {"OP_1SUB", 1, 1, false},
	OP_2MUL:               {"OP_2MUL", 1, 1, false},
	OP_2DIV:               {"OP_2DIV", 1, 1, false},
	OP_NEGATE:             {"OP_NEGATE", 1, 1, false},
	OP_ABS:                {"OP_ABS", 1, 1, false},
	OP_NOT:                {"OP_NOT", 1, 1, false},
	OP_0NOTEQUAL:          {"OP_0NOTEQUAL", 1, 1, false},
	OP_ADD:                {"OP_ADD", 2, 1, false},
	OP_SUB:                {"OP_SUB", 2, 1, false},
	OP_MUL:                {"OP_MUL", 2, 1, false},
	OP_DIV:                {"OP_DIV", 2, 1, false},
	OP_MOD:                {"OP_MOD", 2, 1, false},
	OP_LSHIFT:             {"OP_LSHIFT", 2, 1, false},
	OP_RSHIFT:             {"OP_RSHIFT", 2, 1, false},
	OP_BOOLAND:            {"OP_BOOLAND", 2, 1, false},
	OP_BOOLOR:             {"OP_BOOLOR", 2, 1, false},
	OP_NUMEQUAL:           {"OP_NUMEQUAL", 2, 1, false},
	OP_NUMEQUALVERIFY:     {"OP_NUMEQUALVERIFY", 2, 0, true},
	OP_NUMNOTEQUAL:        {"OP_NUMNOTEQUAL", 2, 1, false},
	OP_LESSTHAN:           {"OP_LESSTHAN", 2, 1, false},
	OP_GREATERTHAN:        {"OP_GREATERTHAN", 2, 1, false},
	OP_LESSTHANOREQUAL:    {"OP_LESSTHANOREQUAL", 2, 1, false},
	OP_GREATERTHANOREQUAL: {"OP_GREATERTHANOREQUAL", 2, 1, false},
	OP_MIN:                {"OP_MIN", 2, 1, false},
	OP_MAX:                {"OP_MAX", 2, 1, false},
	OP_WITHIN:             {"OP_WITHIN", 3, 1, false},

	OP_RIPEMD160:           {"OP_RIPEMD160", 1, 1, false},
	OP_SHA1:                {"OP_SHA1", 1, 1, false},
	OP_SHA256:              {"OP_SHA256", 1, 1, false},
	OP_HASH160:             {"OP_HASH160", 1, 1, false},
	OP_HASH256:             {"OP_HASH256", 1, 1, false},
	OP_CHECKSIG:            {"OP_CHECKSIG", 2, 1, false},
	OP_CHECKSIGVERIFY:      {"OP_CHECKSIGVERIFY", 2, 0, true},
	OP_CHECKMULTISIG:       {"OP_CHECKMULTISIG", 0, 1, false}, // dynamic input count
	OP_CHECKMULTISIGVERIFY: {"OP_CHECKMULTISIGVERIFY", 0, 0, true},
}

// InfoOf returns the arity/verifier metadata for kind. It panics for an
// unknown kind — that is an internal invariant violation, never a user
// error, since Kind values are only ever produced by this package's own
// lowering and optimizer code.
func InfoOf(k Kind) Info {
	info, ok := infoTable[k]
	if !ok {
		panic("ir: no metadata for opcode kind")
	}
	return info
}

// IsVerifier reports whether kind aborts the script when its top operand is
// falsy, per spec.md's note that OP_VERIFY (and its *VERIFY siblings)
// short-circuit.
func (k Kind) IsVerifier() bool { return InfoOf(k).Verifier }

func (k Kind) String() string { return InfoOf(k).Name }

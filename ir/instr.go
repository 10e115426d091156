package ir

import "math/big"

// Instr is one node of the flat opcode IR: Op, PushInt, or PushBytes
// (spec.md §3).
type Instr interface {
	instrNode()
}

// Op is a bare opcode with no immediate operand.
type Op struct {
	Kind Kind
}

func (Op) instrNode() {}

// PushInt pushes an arbitrary-precision integer. The emitter is
// responsible for choosing the minimal encoding (OP_0..OP_16, OP_1NEGATE,
// or a minimal-length data push) per spec.md §4.5.
type PushInt struct {
	Value *big.Int
}

func (PushInt) instrNode() {}

// PushBytes pushes a literal byte string.
type PushBytes struct {
	Value []byte
}

func (PushBytes) instrNode() {}

// Program is a flat, append-only (until optimized) sequence of
// instructions.
type Program struct {
	Instrs []Instr
}

func NewProgram() *Program { return &Program{} }

func (p *Program) Emit(i Instr) { p.Instrs = append(p.Instrs, i) }

func (p *Program) EmitOp(k Kind) { p.Emit(Op{Kind: k}) }

func (p *Program) EmitInt(v int64) { p.Emit(PushInt{Value: big.NewInt(v)}) }

func (p *Program) EmitBigInt(v *big.Int) { p.Emit(PushInt{Value: new(big.Int).Set(v)}) }

func (p *Program) EmitBytes(b []byte) {
	cp := make([]byte, len(b))
	copy(cp, b)
	p.Emit(PushBytes{Value: cp})
}

// Len returns the number of instructions currently in the program.
func (p *Program) Len() int { return len(p.Instrs) }

// smallIntKinds maps the values representable by a single canonical
// small-integer opcode to their Kind, mirroring txscript's IsSmallInt /
// AsSmallInt (script.go) and the original's Zero..Sixteen node classes.
var smallIntKinds = map[int64]Kind{
	0: OP_0, 1: OP_1, 2: OP_2, 3: OP_3, 4: OP_4, 5: OP_5, 6: OP_6, 7: OP_7,
	8: OP_8, 9: OP_9, 10: OP_10, 11: OP_11, 12: OP_12, 13: OP_13, 14: OP_14,
	15: OP_15, 16: OP_16,
}

// SmallIntKind returns the small-integer opcode for v and true, or
// (0, false) if v has no canonical small-integer encoding (i.e. v is
// outside [-1, 16]).
func SmallIntKind(v *big.Int) (Kind, bool) {
	if v.IsInt64() {
		n := v.Int64()
		if n == -1 {
			return OP_1NEGATE, true
		}
		if k, ok := smallIntKinds[n]; ok {
			return k, true
		}
	}
	return 0, false
}

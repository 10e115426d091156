package optimize

import (
	"math/big"

	"github.com/sirupsen/logrus"

	"github.com/bpfs/txsc/ir"
)

// Peephole rewrites prog's instruction stream to a fixpoint using a small
// table of local simplifications, then removes everything unreachable
// after an OP_RETURN poison point, grounded on linear_optimizer.py's
// rule-based rewriter. verbosity gates a debug entry per rewrite site,
// mirroring the rest of the pipeline's logging policy.
func Peephole(prog *ir.Program, log *logrus.Logger, verbosity int) *ir.Program {
	instrs := append([]ir.Instr{}, prog.Instrs...)
	for {
		next, changed := rewriteOnce(instrs, log, verbosity)
		if !changed {
			instrs = next
			break
		}
		instrs = next
	}
	instrs = deadCodeEliminate(instrs, log, verbosity)
	return &ir.Program{Instrs: instrs}
}

func logRewrite(log *logrus.Logger, verbosity int, rule string) {
	if log != nil && verbosity >= 2 {
		log.WithField("rule", rule).Debug("optimize: peephole rewrite applied")
	}
}

// verifyFusions collapses a value-producing opcode immediately followed by
// OP_VERIFY into that opcode's dedicated *VERIFY form, the same byte-saving
// fusion a human script author performs by hand and which txscript's own
// opcode table carries as distinct CHECKSIGVERIFY / EQUALVERIFY /
// NUMEQUALVERIFY / CHECKMULTISIGVERIFY opcodes rather than relying on the
// VM to merge two instructions at runtime.
var verifyFusions = map[ir.Kind]ir.Kind{
	ir.OP_EQUAL:         ir.OP_EQUALVERIFY,
	ir.OP_NUMEQUAL:      ir.OP_NUMEQUALVERIFY,
	ir.OP_CHECKSIG:      ir.OP_CHECKSIGVERIFY,
	ir.OP_CHECKMULTISIG: ir.OP_CHECKMULTISIGVERIFY,
}

// rewriteOnce makes a single left-to-right pass, applying the first
// matching rule at each position and copying through anything unmatched.
// It reports whether any rule fired.
func rewriteOnce(instrs []ir.Instr, log *logrus.Logger, verbosity int) ([]ir.Instr, bool) {
	out := make([]ir.Instr, 0, len(instrs))
	changed := false
	i := 0
	for i < len(instrs) {
		if op, ok := instrs[i].(ir.Op); ok && i+1 < len(instrs) {
			if next, ok := instrs[i+1].(ir.Op); ok && next.Kind == ir.OP_VERIFY {
				// A comparison whose two operands are the constants just
				// emitted (e.g. an inlined function call folded down to
				// literal arithmetic, as in a `verify f(x) == k;` where f
				// is fully inlined) verifies something already known true
				// and leaves nothing behind — operands and all. This is
				// checked against out's tail rather than instrs' head
				// because the two operands often only become adjacent
				// literals after an earlier rewrite in this same pass
				// (e.g. the inlined call's own arithmetic folding to a
				// single PushInt), not in the original instruction stream.
				if n := len(out); n >= 2 {
					if a, aok := out[n-2].(ir.PushInt); aok {
						if b, bok := out[n-1].(ir.PushInt); bok {
							if v, fok := foldArith(op.Kind, a.Value, b.Value); fok && v.Sign() != 0 {
								logRewrite(log, verbosity, "const-compare-verify-elim")
								changed = true
								out = out[:n-2]
								i += 2
								continue
							}
						}
					}
				}
				if fused, ok := verifyFusions[op.Kind]; ok {
					logRewrite(log, verbosity, "verify-fusion")
					changed = true
					out = append(out, ir.Op{Kind: fused})
					i += 2
					continue
				}
			}
		}

		// OP_DUP OP_DROP -> (nothing): a duplicated value that is
		// immediately discarded has no observable effect.
		if op, ok := instrs[i].(ir.Op); ok && op.Kind == ir.OP_DUP && i+1 < len(instrs) {
			if next, ok := instrs[i+1].(ir.Op); ok && next.Kind == ir.OP_DROP {
				logRewrite(log, verbosity, "dup-drop-elim")
				changed = true
				i += 2
				continue
			}
		}

		// OP_NOT OP_NOT is deliberately not collapsed: NOT is not
		// involutive on arbitrary CScriptNum inputs (NOT NOT 5 == 1, not 5).

		// Two adjacent PushInt followed immediately by their arithmetic
		// opcode folds to a single PushInt, mirroring what FoldScript
		// already does at the AST level for literals the source wrote
		// directly, but also catching pushes synthesized by lowering
		// (e.g. an inlined function's constant argument).
		if i+2 < len(instrs) {
			a, aok := instrs[i].(ir.PushInt)
			b, bok := instrs[i+1].(ir.PushInt)
			op, opok := instrs[i+2].(ir.Op)
			if aok && bok && opok {
				if v, ok := foldArith(op.Kind, a.Value, b.Value); ok {
					logRewrite(log, verbosity, "const-fold-arith")
					changed = true
					out = append(out, ir.PushInt{Value: v})
					i += 3
					continue
				}
			}
		}

		// PushInt(0) OP_PICK -> OP_DUP: picking the top item by index 0
		// is exactly a duplicate.
		if pi, ok := instrs[i].(ir.PushInt); ok && pi.Value.Sign() == 0 && i+1 < len(instrs) {
			if op, ok := instrs[i+1].(ir.Op); ok && op.Kind == ir.OP_PICK {
				logRewrite(log, verbosity, "pick0-to-dup")
				changed = true
				out = append(out, ir.Op{Kind: ir.OP_DUP})
				i += 2
				continue
			}
		}

		// A known-truthy constant immediately verified always passes and
		// leaves nothing behind — the whole pair compiles away, completing
		// the tautology `x == 17` folding to a no-op once x has been
		// constant-folded to a literal 17 on both sides.
		if pi, ok := instrs[i].(ir.PushInt); ok && pi.Value.Sign() != 0 && i+1 < len(instrs) {
			if op, ok := instrs[i+1].(ir.Op); ok && op.Kind == ir.OP_VERIFY {
				logRewrite(log, verbosity, "const-verify-elim")
				changed = true
				i += 2
				continue
			}
		}

		out = append(out, instrs[i])
		i++
	}
	return out, changed
}

func foldArith(op ir.Kind, a, b *big.Int) (*big.Int, bool) {
	switch op {
	case ir.OP_ADD:
		return new(big.Int).Add(a, b), true
	case ir.OP_SUB:
		return new(big.Int).Sub(a, b), true
	case ir.OP_BOOLAND:
		return boolBig(a.Sign() != 0 && b.Sign() != 0), true
	case ir.OP_BOOLOR:
		return boolBig(a.Sign() != 0 || b.Sign() != 0), true
	case ir.OP_NUMEQUAL:
		return boolBig(a.Cmp(b) == 0), true
	case ir.OP_NUMNOTEQUAL:
		return boolBig(a.Cmp(b) != 0), true
	case ir.OP_LESSTHAN:
		return boolBig(a.Cmp(b) < 0), true
	case ir.OP_GREATERTHAN:
		return boolBig(a.Cmp(b) > 0), true
	case ir.OP_LESSTHANOREQUAL:
		return boolBig(a.Cmp(b) <= 0), true
	case ir.OP_GREATERTHANOREQUAL:
		return boolBig(a.Cmp(b) >= 0), true
	case ir.OP_MIN:
		if a.Cmp(b) <= 0 {
			return a, true
		}
		return b, true
	case ir.OP_MAX:
		if a.Cmp(b) >= 0 {
			return a, true
		}
		return b, true
	default:
		return nil, false
	}
}

func boolBig(b bool) *big.Int {
	if b {
		return big.NewInt(1)
	}
	return big.NewInt(0)
}

// deadCodeEliminate drops every instruction after an unconditional
// OP_RETURN except pure data pushes, matching markInvalid()'s contract
// that only data embedding may follow the poison point (spec.md §7).
// sema does not reject statements after markInvalid(), so this pass is
// what drops any non-data instruction lowered after that point (with a
// warning at verbosity >= 1).
func deadCodeEliminate(instrs []ir.Instr, log *logrus.Logger, verbosity int) []ir.Instr {
	for idx, instr := range instrs {
		op, ok := instr.(ir.Op)
		if !ok || op.Kind != ir.OP_RETURN {
			continue
		}
		kept := instrs[:idx+1]
		for _, tail := range instrs[idx+1:] {
			switch tail.(type) {
			case ir.PushInt, ir.PushBytes:
				kept = append(kept, tail)
			default:
				if log != nil && verbosity >= 1 {
					log.WithField("instr", tail).Warn("optimize: dropping unreachable non-data instruction after OP_RETURN")
				}
			}
		}
		return kept
	}
	return instrs
}

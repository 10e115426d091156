package lower

import "github.com/bpfs/txsc/ir"

// vstack tracks, for every live stack assumption, its current depth from
// the top as code is emitted — spec.md §4.3: "the lowerer maintains, for
// each live assumption, its current depth, updating it after every
// opcode." Depths are kept by name rather than by binding identity.
type vstack struct {
	depth map[string]int
	// total accumulates every applyDelta call's argument: the net change in
	// overall stack height since this vstack was created. lowerIf uses it
	// to compare the two arms' net effect without needing any assumption
	// to still be live in both.
	total int
}

func newVStack() *vstack {
	return &vstack{depth: make(map[string]int)}
}

// track begins tracking name at the given current depth (called for each
// name of an assume statement, and for a mutable local when it is declared
// or reassigned).
func (v *vstack) track(name string, depth int) {
	v.depth[name] = depth
}

func (v *vstack) untrack(name string) {
	delete(v.depth, name)
}

func (v *vstack) depthOf(name string) (int, bool) {
	d, ok := v.depth[name]
	return d, ok
}

// clone returns an independent copy, used to evaluate the two arms of an
// if/else from the same starting point.
func (v *vstack) clone() *vstack {
	c := newVStack()
	for k, d := range v.depth {
		c.depth[k] = d
	}
	c.total = v.total
	return c
}

// applyDelta shifts every tracked depth by delta, the net stack effect
// (Outputs - Inputs) of an opcode just emitted elsewhere on the stack. This
// holds because every opcode operates only on the top of the stack: items
// below the region it touches are unaffected except for the overall height
// change pushing or popping shifts them by. OP_ROLL is the exception: it
// lifts an item out from below, so the items above that item end up one
// slot deeper; its callers (bringToTop, lowerAssign) add that shift
// themselves.
func (v *vstack) applyDelta(delta int) {
	for k := range v.depth {
		v.depth[k] += delta
	}
	v.total += delta
}

// applyOp applies the net effect of emitting a fixed-arity opcode.
func (v *vstack) applyOp(k ir.Kind) {
	v.applyDelta(ir.InfoOf(k).Delta())
}

// bringToTop emits the opcode sequence that copies (via OP_DUP/OP_OVER/
// PushInt+OP_PICK) or moves (via PushInt+OP_ROLL) the named assumption to
// the top of the stack and updates every tracked depth accordingly. It
// reports false, emitting nothing, if name is not currently tracked — a
// branch imbalance upstream (lowerIf resets the vstack on divergent arms)
// can make a name sema once accepted no longer resolvable here; the caller
// must turn that into a compile error rather than trust the zero value,
// since indexing past the real stack would silently miscompile.
//
// move selects OP_ROLL (the assumption's only remaining copy ends up on
// top, and nothing is left at its old position) over OP_PICK (a second
// copy is left in place). The lowerer's name reads always copy; a last use
// is consumed instead through lowerCall's consecutiveStackArgs shortcut.
func (v *vstack) bringToTop(prog *ir.Program, name string, move bool) bool {
	d, ok := v.depth[name]
	if !ok {
		return false
	}
	switch {
	case move && d == 0:
		// Already on top; nothing to move.
	case !move && d == 0:
		prog.EmitOp(ir.OP_DUP)
		v.applyOp(ir.OP_DUP)
	case !move && d == 1:
		prog.EmitOp(ir.OP_OVER)
		v.applyOp(ir.OP_OVER)
	case move:
		// OP_ROLL lifts the item over everything above it, leaving those
		// items one slot deeper than the uniform deltas below record.
		for k, kd := range v.depth {
			if kd < d {
				v.depth[k]++
			}
		}
		prog.EmitInt(int64(d))
		v.applyDelta(1)
		prog.EmitOp(ir.OP_ROLL)
		v.applyOp(ir.OP_ROLL)
	default:
		prog.EmitInt(int64(d))
		v.applyDelta(1)
		prog.EmitOp(ir.OP_PICK)
		v.applyOp(ir.OP_PICK)
	}
	if move {
		delete(v.depth, name)
	}
	return true
}

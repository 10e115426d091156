package optimize

import (
	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"

	"github.com/bpfs/txsc/ast"
	"github.com/bpfs/txsc/ir"
)

// Run applies both optimization passes: AST-level constant folding to a
// fixpoint (returning the folded script for the lowerer to consume), and
// IR-level peephole rewriting plus dead-code elimination on an
// already-lowered program. Running either pass twice is a no-op: folding
// an already-folded script, or rewriting an already-rewritten program,
// changes nothing, which is what lets compile re-run this stage freely
// (e.g. once per raw(...) sub-script) without accumulating drift.
func Run(script *ast.Script, prog *ir.Program, log *logrus.Logger, verbosity int) (*ast.Script, *ir.Program) {
	folded := FoldScript(script)
	optimizedProg := Peephole(prog, log, verbosity)
	if log != nil && verbosity >= 3 {
		log.Debugf("optimize: folded script:\n%s", spew.Sdump(folded))
		log.Debugf("optimize: optimized program:\n%s", spew.Sdump(optimizedProg))
	}
	return folded, optimizedProg
}

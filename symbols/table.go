package symbols

import (
	"github.com/bpfs/txsc/ast"
	"github.com/bpfs/txsc/compileerr"
)

// scope is one lexical level of the symbol table.
type scope struct {
	names map[string]*entry
}

type entry struct {
	binding     Binding
	mutable     bool
	invalidated bool
}

func newScope() *scope {
	return &scope{names: make(map[string]*entry)}
}

// Table is a scoped symbol table: enter_scope, exit_scope, declare, lookup,
// reassign (spec.md §4.1).
type Table struct {
	scopes []*scope
}

// NewTable returns a table with a single, outermost global scope.
func NewTable() *Table {
	t := &Table{}
	t.EnterScope()
	return t
}

// EnterScope pushes a new, empty lexical scope.
func (t *Table) EnterScope() {
	t.scopes = append(t.scopes, newScope())
}

// ExitScope pops the innermost lexical scope. It panics if called with no
// scope open, which would be an internal invariant violation, not a user
// error.
func (t *Table) ExitScope() {
	if len(t.scopes) == 0 {
		panic("symbols: ExitScope called with no open scope")
	}
	t.scopes = t.scopes[:len(t.scopes)-1]
}

func (t *Table) innermost() *scope {
	return t.scopes[len(t.scopes)-1]
}

// Declare binds name to binding in the current (innermost) scope. It fails
// with ErrRedeclaredName if the name already exists in that scope — shadowing
// an outer scope's name is allowed.
func (t *Table) Declare(name string, binding Binding, mutable bool, span ast.Span) *compileerr.Error {
	s := t.innermost()
	if _, exists := s.names[name]; exists {
		return compileerr.New(compileerr.ErrRedeclaredName, toErrSpan(span),
			"%q is already declared in this scope", name)
	}
	s.names[name] = &entry{binding: binding, mutable: mutable}
	return nil
}

// Lookup searches scopes from innermost to outermost.
func (t *Table) Lookup(name string, span ast.Span) (Binding, *compileerr.Error) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if e, ok := t.scopes[i].names[name]; ok {
			if e.invalidated {
				return nil, compileerr.New(compileerr.ErrAssumptionAfterImbalancedBranch, toErrSpan(span),
					"%q was assumed before a branch whose arms leave the stack at different depths", name)
			}
			return e.binding, nil
		}
	}
	return nil, compileerr.New(compileerr.ErrUnknownName, toErrSpan(span), "unknown name %q", name)
}

// Reassign replaces the expression of an existing mutable ExprBinding,
// preserving its declared type. It fails with ErrUnknownName if absent, or
// ErrImmutableBinding if the resolved binding cannot be reassigned.
func (t *Table) Reassign(name string, expr ast.Expr, span ast.Span) *compileerr.Error {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if e, ok := t.scopes[i].names[name]; ok {
			if !e.mutable {
				return compileerr.New(compileerr.ErrImmutableBinding, toErrSpan(span),
					"%q is not mutable", name)
			}
			eb, ok := e.binding.(*ExprBinding)
			if !ok {
				return compileerr.New(compileerr.ErrImmutableBinding, toErrSpan(span),
					"%q is not a reassignable binding", name)
			}
			eb.Expr = expr
			// A reassigned binding may be used more than once going
			// forward; conservatively stop treating it as a single-use
			// pure expression eligible for move semantics.
			eb.PureSingleUse = false
			return nil
		}
	}
	return compileerr.New(compileerr.ErrUnknownName, toErrSpan(span), "unknown name %q", name)
}

// AddStackAssumptions declares each of names as a StackBinding, with the
// last-named assumption at the top of the stack (depth 0), per spec.md
// §4.1 / the original txsc/symbols.py add_stack_assumptions.
func (t *Table) AddStackAssumptions(names []string, span ast.Span) *compileerr.Error {
	size := len(names)
	for height, name := range names {
		depth := size - height - 1
		if err := t.Declare(name, &StackBinding{DeclaredDepth: depth}, false, span); err != nil {
			return err
		}
	}
	return nil
}

// InvalidateStackAssumptions marks every live StackBinding, in every open
// scope, as invalidated. It is called when a conditional's branches have
// unequal net stack effect: after such an if/else, no assumption's depth can
// be known, so a later reference to any of them must fail with
// ErrAssumptionAfterImbalancedBranch rather than silently computing a wrong
// depth.
func (t *Table) InvalidateStackAssumptions() {
	for _, s := range t.scopes {
		for _, e := range s.names {
			if _, ok := e.binding.(*StackBinding); ok {
				e.invalidated = true
			}
		}
	}
}

func toErrSpan(s ast.Span) compileerr.Span {
	return compileerr.Span{File: s.File, StartLine: s.StartLine, StartCol: s.StartCol}
}

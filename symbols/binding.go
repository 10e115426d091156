package symbols

import (
	"math/big"

	"github.com/bpfs/txsc/ast"
	"github.com/bpfs/txsc/types"
)

// Binding is implemented by every binding kind a name can resolve to:
// ConstBinding, ExprBinding, StackBinding, FuncBinding (spec.md §3).
type Binding interface {
	Type() types.Type
	bindingNode()
}

// ConstBinding holds a fully evaluated constant, folded at declaration time.
// Its value is either *big.Int (Int) or []byte (Bytes).
type ConstBinding struct {
	Value interface{}
	Ty    types.Type
}

func NewIntConst(v *big.Int) *ConstBinding   { return &ConstBinding{Value: v, Ty: types.Int} }
func NewBytesConst(v []byte) *ConstBinding   { return &ConstBinding{Value: v, Ty: types.Bytes} }
func (c *ConstBinding) Type() types.Type     { return c.Ty }
func (c *ConstBinding) bindingNode()         {}
func (c *ConstBinding) Int() *big.Int        { return c.Value.(*big.Int) }
func (c *ConstBinding) Bytes() []byte        { return c.Value.([]byte) }

// ExprBinding holds an unevaluated expression that is re-lowered at each use
// site, unless it has no side effects and is used at most once (spec.md
// §3/§4.3).
type ExprBinding struct {
	Expr    ast.Expr
	Ty      types.Type
	Mutable bool
	// PureSingleUse is set by the semantic checker when the binding is
	// immutable and its expression is side-effect free. Uses are not
	// counted, and the lowerer does not read this flag.
	PureSingleUse bool
}

func (e *ExprBinding) Type() types.Type { return e.Ty }
func (e *ExprBinding) bindingNode()     {}

// StackBinding is an `assume`d name bound to an abstract stack position. It
// records only the depth at the moment the assume statement was processed;
// the lowerer tracks each live assumption's *current* depth separately as
// code is emitted (spec.md §4.3).
type StackBinding struct {
	DeclaredDepth int
}

func (s *StackBinding) Type() types.Type { return types.Expr }
func (s *StackBinding) bindingNode()     {}

// FuncBinding is a callable, inlined at each Call site.
type FuncBinding struct {
	Decl *ast.FuncDecl
}

func (f *FuncBinding) Type() types.Type { return types.Expr }
func (f *FuncBinding) bindingNode()     {}

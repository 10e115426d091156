// Package builtins is the fixed table of built-in functions available to a
// script (spec.md §6): their arity, argument/result types, the opcode each
// lowers to, and the handful that are resolved entirely at compile time
// (check_hash160, check_pubkey, address_to_hash160) rather than lowered to
// any opcode at all.
package builtins

import (
	"crypto/sha1"
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"golang.org/x/crypto/ripemd160"

	"github.com/bpfs/txsc/ir"
	"github.com/bpfs/txsc/types"
)

// Signature describes one built-in's call contract.
type Signature struct {
	// Opcode is the instruction the call lowers to. Unused (zero value) for
	// a built-in with a non-nil CompileTimeEval.
	Opcode ir.Kind

	Arity    int
	Variadic bool
	MinArity int // meaningful only when Variadic

	Args   []types.Type
	Result types.Type

	// SideEffecting marks a built-in whose opcode has a script-level effect
	// beyond producing a value (a signature check). spec.md §9's open
	// question is resolved against this flag: such a call cannot be bound
	// to an immutable let.
	SideEffecting bool

	// CompileTimeEval, when non-nil, validates (and possibly transforms) the
	// call's literal byte-string argument. sema runs it at check time and
	// wraps a rejection in ErrValidationFailed; the lowerer runs it again and
	// emits the result as a data push in place of the call, so the call
	// never reaches the lowerer as an opcode.
	CompileTimeEval func([]byte) ([]byte, error)
}

// ArgType returns the expected type of argument i, or types.Expr (no
// constraint) if the signature does not pin that position down — true of
// every position past a variadic built-in's fixed prefix.
func (s Signature) ArgType(i int) types.Type {
	if i < len(s.Args) {
		return s.Args[i]
	}
	return types.Expr
}

var table = map[string]Signature{
	"abs": {Opcode: ir.OP_ABS, Arity: 1, Args: []types.Type{types.Int}, Result: types.Int},
	"size": {Opcode: ir.OP_SIZE, Arity: 1, Args: []types.Type{types.Bytes}, Result: types.Int},
	"min": {Opcode: ir.OP_MIN, Arity: 2, Args: []types.Type{types.Int, types.Int}, Result: types.Int},
	"max": {Opcode: ir.OP_MAX, Arity: 2, Args: []types.Type{types.Int, types.Int}, Result: types.Int},
	"concat": {Opcode: ir.OP_CAT, Arity: 2, Args: []types.Type{types.Bytes, types.Bytes}, Result: types.Bytes},
	"left": {Opcode: ir.OP_LEFT, Arity: 2, Args: []types.Type{types.Bytes, types.Int}, Result: types.Bytes},
	"right": {Opcode: ir.OP_RIGHT, Arity: 2, Args: []types.Type{types.Bytes, types.Int}, Result: types.Bytes},
	"substr": {Opcode: ir.OP_SUBSTR, Arity: 3, Args: []types.Type{types.Bytes, types.Int, types.Int}, Result: types.Bytes},
	"within": {Opcode: ir.OP_WITHIN, Arity: 3, Args: []types.Type{types.Int, types.Int, types.Int}, Result: types.Int},

	"ripemd160": {Opcode: ir.OP_RIPEMD160, Arity: 1, Args: []types.Type{types.Bytes}, Result: types.Bytes},
	"sha1":      {Opcode: ir.OP_SHA1, Arity: 1, Args: []types.Type{types.Bytes}, Result: types.Bytes},
	"sha256":    {Opcode: ir.OP_SHA256, Arity: 1, Args: []types.Type{types.Bytes}, Result: types.Bytes},
	"hash160":   {Opcode: ir.OP_HASH160, Arity: 1, Args: []types.Type{types.Bytes}, Result: types.Bytes},
	"hash256":   {Opcode: ir.OP_HASH256, Arity: 1, Args: []types.Type{types.Bytes}, Result: types.Bytes},

	"checkSig": {
		Opcode: ir.OP_CHECKSIG, Arity: 2,
		Args: []types.Type{types.Bytes, types.Bytes}, Result: types.Int, SideEffecting: true,
	},
	"checkMultiSig": {
		Opcode: ir.OP_CHECKMULTISIG, Variadic: true, MinArity: 3,
		Result: types.Int, SideEffecting: true,
	},

	"check_hash160":      {Arity: 1, Args: []types.Type{types.Bytes}, CompileTimeEval: checkHash160, Result: types.Bytes},
	"check_pubkey":       {Arity: 1, Args: []types.Type{types.Bytes}, CompileTimeEval: checkPubKey, Result: types.Bytes},
	"address_to_hash160": {Arity: 1, Args: []types.Type{types.Bytes}, CompileTimeEval: addressToHash160, Result: types.Bytes},
}

// Lookup returns the signature for name, or ok=false if name is not a
// built-in (it may still resolve to a user-defined function).
func Lookup(name string) (Signature, bool) {
	sig, ok := table[name]
	return sig, ok
}

// checkHash160 validates that b is exactly the width of a RIPEMD160(SHA256(..))
// digest, as used for a P2PKH-style pubkey-hash comparison.
func checkHash160(b []byte) ([]byte, error) {
	if len(b) != ripemd160.Size {
		return nil, fmt.Errorf("expected a 20-byte hash160, got %d bytes", len(b))
	}
	return b, nil
}

// checkPubKey validates that b is a well-formed secp256k1 public key in
// compressed or uncompressed serialized form.
func checkPubKey(b []byte) ([]byte, error) {
	if _, err := btcec.ParsePubKey(b); err != nil {
		return nil, fmt.Errorf("not a valid public key: %w", err)
	}
	return b, nil
}

// addressToHash160 base58check-decodes a textual address and returns its
// 20-byte payload, discarding the version byte. The argument is the address
// string's raw bytes as captured by the literal (already unquoted by the
// parser).
func addressToHash160(b []byte) ([]byte, error) {
	payload, _, err := base58.CheckDecode(string(b))
	if err != nil {
		return nil, fmt.Errorf("not a valid address: %w", err)
	}
	if len(payload) != ripemd160.Size {
		return nil, fmt.Errorf("address does not encode a 20-byte hash160")
	}
	return payload, nil
}

// Ripemd160 computes RIPEMD160(b), used by the optimizer to fold a
// ripemd160(...) call whose argument is a compile-time byte literal.
func Ripemd160(b []byte) []byte {
	h := ripemd160.New()
	h.Write(b)
	return h.Sum(nil)
}

// Sha1 computes SHA1(b).
func Sha1(b []byte) []byte {
	sum := sha1.Sum(b)
	return sum[:]
}

// Sha256 computes SHA256(b).
func Sha256(b []byte) []byte {
	sum := sha256.Sum256(b)
	return sum[:]
}

// Hash160 computes RIPEMD160(SHA256(b)), Bitcoin's standard pubkey-hash.
func Hash160(b []byte) []byte {
	return Ripemd160(Sha256(b))
}

// Hash256 computes SHA256(SHA256(b)) via chainhash, Bitcoin's standard
// double-SHA256.
func Hash256(b []byte) []byte {
	return chainhash.DoubleHashB(b)
}

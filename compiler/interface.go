// Package compiler declares the contract an AST-to-bytecode compiler must
// honour to produce programs this VM can run. It contains interfaces and
// plain data types only: the compiler itself (the pass that walks a
// host-language function body and emits bytecode) is a separate, external
// concern and is not implemented here.
package compiler

import (
	"github.com/polyvm/anticheat-vm/buildconfig"
	"github.com/polyvm/anticheat-vm/opcode"
)

// Emitter is what a compiler backend writes base opcodes and operands to.
// It speaks only in BaseOpcode terms; the Emit* methods apply the build's
// encode table (including free choice among alias encodings for the six
// aliased bases), so backend code never looks up encoded bytes itself.
type Emitter interface {
	// EmitBase appends one base opcode with no operand bytes.
	EmitBase(b opcode.Base) error
	// EmitImm8/16/32/64 append a base opcode followed by its fixed-width
	// immediate operand, little-endian, per the widths opcode.Lookup
	// reports for b.
	EmitImm8(b opcode.Base, v uint8) error
	EmitImm16(b opcode.Base, v uint16) error
	EmitImm32(b opcode.Base, v uint32) error
	EmitImm64(b opcode.Base, v uint64) error

	// Label allocates a new, not yet positioned jump target; Bind fixes
	// its position, and it is resolved to a relative offset once the
	// function body is complete.
	Label() LabelID
	// EmitJump appends a jump-family base opcode whose operand is a
	// relative i16 displacement, computed against the byte immediately
	// following the operand, resolved against target once known.
	EmitJump(b opcode.Base, target LabelID) error
	// Bind fixes label at the emitter's current position. Every label
	// obtained from Label must be bound exactly once before Finish.
	Bind(label LabelID) error

	// Pos returns the current write offset, for diagnostics and for
	// callers building their own jump-table emission on top of Emitter.
	Pos() int
	// Finish resolves every pending label and returns the finished
	// plaintext instruction stream for one function body. HasIntegrity
	// appends the 8-byte integrity footer to the returned bytes before
	// the caller hands them to the crypto layer; Finish itself never
	// encrypts or frames them.
	Finish() ([]byte, error)
}

// LabelID identifies a jump target reserved by Emitter.Label.
type LabelID int

// AliasPolicy chooses which encoded byte an aliased base opcode should use
// when more than one encoding maps to the same base. The six aliased
// bases (ADD, SUB, XOR, AND, OR, CMP) each have one primary and two
// alias encodings; a compiler is free to pick per call site to
// frustrate static signature matching, or to always take the default
// (primary only, when no AliasPolicy is supplied).
type AliasPolicy interface {
	// Choose returns which of the candidate encoded bytes to emit for
	// base at this call site. candidates is never empty and always
	// contains base's primary encoding.
	Choose(base opcode.Base, candidates []byte) byte
}

// Unit is one finished, unencrypted function body plus the per-build
// tables it was compiled against, ready for the crypto and container
// layers to package.
type Unit struct {
	Plaintext []byte
	BuildID   uint64
	Flags     buildconfig.Flags
}

// Packager wraps a compiled Unit into container-ready form: deriving a
// fresh nonce from the unit's position in a function sequence, encrypting
// once under that nonce, and returning opaque bytes the runtime embeds
// as build-time data. No type in this module implements it (container.Emit
// packages a plaintext directly); this interface exists so a compiler
// backend can depend on the contract without importing the crypto package
// directly.
type Packager interface {
	Package(u Unit) ([]byte, error)
}

// NativeSignature describes one host callback as the compiler sees it,
// so a NATIVE_CALL call site can be type-checked against the registry's
// declared arity before the emitted program ever runs.
type NativeSignature struct {
	Name  string
	ID    byte
	Arity int
}

// NativeCatalog is everything a compiler needs to know about the native
// bridge at compile time: the per-build ID a symbolic name resolves to,
// and the arity contract native bridge enforces at call time.
type NativeCatalog interface {
	// Lookup resolves name to its per-build native ID and declared arity.
	// ok is false if no native of that name was registered for this
	// build.
	Lookup(name string) (sig NativeSignature, ok bool)
}

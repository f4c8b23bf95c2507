// Package vmerrors is the structured error type shared by every layer of the
// VM: build config generation, crypto, container framing, integrity
// checking, and the dispatcher itself.
package vmerrors

import (
	"fmt"
	"strings"
)

// Phase indicates which subsystem raised the error.
type Phase string

const (
	PhaseBuild     Phase = "build"     // build-config generation
	PhaseCrypto    Phase = "crypto"    // key/nonce derivation, AEAD
	PhaseContainer Phase = "container" // header framing/parsing
	PhaseIntegrity Phase = "integrity" // region hash verification
	PhaseDecode    Phase = "decode"    // opcode decode
	PhaseDispatch  Phase = "dispatch"  // handler execution
	PhaseHeap      Phase = "heap"      // heap allocator
	PhaseNative    Phase = "native"    // native call bridge
)

// Kind is the ABI-stable numeric error code. The numeric value is what a
// caller sees by default; the Kind's string form and any Detail text are
// for internal diagnostics only and must never be treated as part of the
// stable surface.
type Kind uint8

const (
	KindOK                             Kind = 0
	KindInvalidOpcode                  Kind = 1
	KindStackUnderflow                 Kind = 2
	KindStackOverflow                  Kind = 3
	KindInvalidRegister                Kind = 4
	KindInvalidJumpTarget              Kind = 5
	KindDivisionByZero                 Kind = 6
	KindIntegrityFailed                Kind = 7
	KindTimingAnomaly                  Kind = 8
	KindStateCorrupt                   Kind = 9
	KindNativeCallFailed               Kind = 10
	KindNativeFunctionNotFound         Kind = 11
	KindNativeFunctionAlreadyRegistered Kind = 12
	KindNativeTooManyArgs              Kind = 13
	KindDecryptionFailed               Kind = 14
	KindInvalidBytecode                Kind = 15
	KindMaxInstructionsExceeded        Kind = 16
	KindMemoryOutOfBounds              Kind = 17
	KindHeapOutOfMemory                Kind = 18
	KindHeapOutOfBounds                Kind = 19
	KindDoubleFree                     Kind = 20
)

var kindNames = map[Kind]string{
	KindOK:                              "ok",
	KindInvalidOpcode:                   "invalid_opcode",
	KindStackUnderflow:                  "stack_underflow",
	KindStackOverflow:                   "stack_overflow",
	KindInvalidRegister:                 "invalid_register",
	KindInvalidJumpTarget:               "invalid_jump_target",
	KindDivisionByZero:                  "division_by_zero",
	KindIntegrityFailed:                 "integrity_failed",
	KindTimingAnomaly:                   "timing_anomaly",
	KindStateCorrupt:                    "state_corrupt",
	KindNativeCallFailed:                "native_call_failed",
	KindNativeFunctionNotFound:          "native_function_not_found",
	KindNativeFunctionAlreadyRegistered: "native_function_already_registered",
	KindNativeTooManyArgs:               "native_too_many_args",
	KindDecryptionFailed:                "decryption_failed",
	KindInvalidBytecode:                 "invalid_bytecode",
	KindMaxInstructionsExceeded:         "max_instructions_exceeded",
	KindMemoryOutOfBounds:               "memory_out_of_bounds",
	KindHeapOutOfMemory:                 "heap_out_of_memory",
	KindHeapOutOfBounds:                 "heap_out_of_bounds",
	KindDoubleFree:                      "double_free",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Error is the structured error type used throughout the VM. Detail is a
// plain diagnostic string set when the error is built and is never
// required to surface the error to a caller: Code() alone is the
// ABI-stable diagnostic.
type Error struct {
	Phase  Phase
	Kind   Kind
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(e.Kind.String())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// Code returns the ABI-stable numeric error code. This is the only thing a
// default diagnostic surface should expose, per the error handling design.
func (e *Error) Code() uint8 { return uint8(e.Kind) }

// Builder provides structured error construction in the teacher's style.
type Builder struct {
	err Error
}

func New(phase Phase, kind Kind) *Builder {
	return &Builder{err: Error{Phase: phase, Kind: kind}}
}

func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for the hottest paths (dispatcher/state), mirroring
// how the teacher's errors package exposes one-call constructors for its most
// common kinds instead of forcing every caller through the builder.

func InvalidOpcode(encoded byte) *Error {
	return &Error{Phase: PhaseDecode, Kind: KindInvalidOpcode, Detail: fmt.Sprintf("encoded opcode 0x%02x has no base mapping", encoded)}
}

func StackUnderflow() *Error {
	return &Error{Phase: PhaseDispatch, Kind: KindStackUnderflow}
}

func StackOverflow() *Error {
	return &Error{Phase: PhaseDispatch, Kind: KindStackOverflow}
}

func InvalidRegister(idx int) *Error {
	return &Error{Phase: PhaseDispatch, Kind: KindInvalidRegister, Detail: fmt.Sprintf("register index %d out of range", idx)}
}

func InvalidJumpTarget(ip int) *Error {
	return &Error{Phase: PhaseDispatch, Kind: KindInvalidJumpTarget, Detail: fmt.Sprintf("jump target %d out of range", ip)}
}

func DivisionByZero() *Error {
	return &Error{Phase: PhaseDispatch, Kind: KindDivisionByZero}
}

func IntegrityFailed(detail string) *Error {
	return &Error{Phase: PhaseIntegrity, Kind: KindIntegrityFailed, Detail: detail}
}

func TimingAnomaly() *Error {
	return &Error{Phase: PhaseDispatch, Kind: KindTimingAnomaly}
}

func NativeFunctionNotFound(id int) *Error {
	return &Error{Phase: PhaseNative, Kind: KindNativeFunctionNotFound, Detail: fmt.Sprintf("native id %d not registered", id)}
}

func NativeFunctionAlreadyRegistered(id int) *Error {
	return &Error{Phase: PhaseNative, Kind: KindNativeFunctionAlreadyRegistered, Detail: fmt.Sprintf("native id %d already registered", id)}
}

func NativeTooManyArgs(count int) *Error {
	return &Error{Phase: PhaseNative, Kind: KindNativeTooManyArgs, Detail: fmt.Sprintf("%d arguments exceeds native call limit", count)}
}

func DecryptionFailed(cause error) *Error {
	return &Error{Phase: PhaseCrypto, Kind: KindDecryptionFailed, Cause: cause}
}

func InvalidBytecode(detail string) *Error {
	return &Error{Phase: PhaseContainer, Kind: KindInvalidBytecode, Detail: detail}
}

func MaxInstructionsExceeded(limit uint64) *Error {
	return &Error{Phase: PhaseDispatch, Kind: KindMaxInstructionsExceeded, Detail: fmt.Sprintf("exceeded %d instructions", limit)}
}

func MemoryOutOfBounds(offset, length int) *Error {
	return &Error{Phase: PhaseDispatch, Kind: KindMemoryOutOfBounds, Detail: fmt.Sprintf("offset %d exceeds buffer of length %d", offset, length)}
}

func HeapOutOfMemory(requested, limit int) *Error {
	return &Error{Phase: PhaseHeap, Kind: KindHeapOutOfMemory, Detail: fmt.Sprintf("requested %d bytes exceeds heap limit %d", requested, limit)}
}

func HeapOutOfBounds(addr int) *Error {
	return &Error{Phase: PhaseHeap, Kind: KindHeapOutOfBounds, Detail: fmt.Sprintf("address %d outside heap", addr)}
}

func DoubleFree(addr int) *Error {
	return &Error{Phase: PhaseHeap, Kind: KindDoubleFree, Detail: fmt.Sprintf("address %d already freed", addr)}
}

func StateCorrupt(detail string) *Error {
	return &Error{Phase: PhaseDispatch, Kind: KindStateCorrupt, Detail: detail}
}

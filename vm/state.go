package vm

import (
	"encoding/binary"

	"github.com/polyvm/anticheat-vm/buildconfig"
	"github.com/polyvm/anticheat-vm/integrity"
	"github.com/polyvm/anticheat-vm/native"
	"github.com/polyvm/anticheat-vm/vmerrors"
)

const (
	MaxStackDepth     = 1024
	MaxCallStackDepth = 256
	DefaultHeapLimit  = 1 << 20 // 1 MiB
	MaxInstructions   = 10_000_000
)

// Config tunes per-execution behavior that isn't part of the build's
// polymorphic tables.
type Config struct {
	HeapLimit int
	// StrictDivision opts into DivisionByZero instead of the spec's
	// default "divisor 0 pushes 0" policy. Default false: unchanged
	// behavior from the base spec.
	StrictDivision bool
}

// DefaultConfig returns the spec's default execution tuning.
func DefaultConfig() Config {
	return Config{HeapLimit: DefaultHeapLimit}
}

// State is one execution's full mutable machine state: registers, value
// stack, call stack, heap, flags, and bookkeeping. It is born per Execute
// call and never shared across executions.
type State struct {
	flagBits buildconfig.FlagBits
	fnv      buildconfig.FnvConstants
	cfg      Config

	Regs [buildconfig.NumRegisters]uint64

	stack []uint64

	callStack []int

	heap *Heap

	flags byte

	Code []byte
	IP   int

	InstructionCount uint64
	Halted           bool
	Result           uint64
	LastError        error

	Input  []byte
	Output []byte

	nativeTable map[byte]native.Func

	lastTimingNs  uint64
	startTimingNs uint64

	integrity *integrity.Table
}

// SetIntegrityTable installs the region table captured from the trusted,
// just-decrypted plaintext. Run periodically re-verifies Code against it,
// catching in-memory tampering that happens after decryption -- a case
// AEAD authentication on the container itself can't see.
func (s *State) SetIntegrityTable(t *integrity.Table) {
	s.integrity = t
}

// NewState constructs a fresh execution state over code/input, using the
// build's polymorphic flag-bit and FNV tables.
func NewState(code, input []byte, flagBits buildconfig.FlagBits, fnv buildconfig.FnvConstants, cfg Config) *State {
	if cfg.HeapLimit == 0 {
		cfg.HeapLimit = DefaultHeapLimit
	}
	return &State{
		flagBits: flagBits,
		fnv:      fnv,
		cfg:      cfg,
		Code:     code,
		Input:    input,
		heap:     newHeap(cfg.HeapLimit),
	}
}

// SetNativeFn installs a per-state native override at id, taking priority
// over the shared NativeRegistry for that ID (mirrors the original's
// "native table on state preferred, else registry" precedence, used by a
// caller wiring in build-specific natives without touching the global
// registry).
func (s *State) SetNativeFn(id byte, fn native.Func) {
	if s.nativeTable == nil {
		s.nativeTable = make(map[byte]native.Func)
	}
	s.nativeTable[id] = fn
}

func (s *State) getNativeFn(id byte) (native.Func, bool) {
	fn, ok := s.nativeTable[id]
	return fn, ok
}

// --- stack ---

func (s *State) Push(v uint64) error {
	if len(s.stack) >= MaxStackDepth {
		return vmerrors.StackOverflow()
	}
	s.stack = append(s.stack, v)
	return nil
}

func (s *State) Pop() (uint64, error) {
	if len(s.stack) == 0 {
		return 0, vmerrors.StackUnderflow()
	}
	v := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return v, nil
}

func (s *State) Peek() (uint64, error) {
	if len(s.stack) == 0 {
		return 0, vmerrors.StackUnderflow()
	}
	return s.stack[len(s.stack)-1], nil
}

// --- registers ---

func (s *State) GetReg(idx byte) (uint64, error) {
	if int(idx) >= len(s.Regs) {
		return 0, vmerrors.InvalidRegister(int(idx))
	}
	return s.Regs[idx], nil
}

func (s *State) SetReg(idx byte, v uint64) error {
	if int(idx) >= len(s.Regs) {
		return vmerrors.InvalidRegister(int(idx))
	}
	s.Regs[idx] = v
	return nil
}

// --- call stack ---

func (s *State) pushCall(ip int) error {
	if len(s.callStack) >= MaxCallStackDepth {
		return vmerrors.StackOverflow()
	}
	s.callStack = append(s.callStack, ip)
	return nil
}

func (s *State) popCall() (int, bool) {
	if len(s.callStack) == 0 {
		return 0, false
	}
	ip := s.callStack[len(s.callStack)-1]
	s.callStack = s.callStack[:len(s.callStack)-1]
	return ip, true
}

// --- instruction stream cursor ---

func (s *State) readU8() (byte, error) {
	if s.IP >= len(s.Code) {
		return 0, vmerrors.MemoryOutOfBounds(s.IP, len(s.Code))
	}
	b := s.Code[s.IP]
	s.IP++
	return b, nil
}

func (s *State) readU16() (uint16, error) {
	if s.IP+2 > len(s.Code) {
		return 0, vmerrors.MemoryOutOfBounds(s.IP, len(s.Code))
	}
	v := binary.LittleEndian.Uint16(s.Code[s.IP:])
	s.IP += 2
	return v, nil
}

func (s *State) readU32() (uint32, error) {
	if s.IP+4 > len(s.Code) {
		return 0, vmerrors.MemoryOutOfBounds(s.IP, len(s.Code))
	}
	v := binary.LittleEndian.Uint32(s.Code[s.IP:])
	s.IP += 4
	return v, nil
}

func (s *State) readU64() (uint64, error) {
	if s.IP+8 > len(s.Code) {
		return 0, vmerrors.MemoryOutOfBounds(s.IP, len(s.Code))
	}
	v := binary.LittleEndian.Uint64(s.Code[s.IP:])
	s.IP += 8
	return v, nil
}

func (s *State) readI16() (int16, error) {
	v, err := s.readU16()
	return int16(v), err
}

// --- input/output buffers ---

func (s *State) readInputU8(offset int) (byte, error) {
	if offset < 0 || offset >= len(s.Input) {
		return 0, vmerrors.MemoryOutOfBounds(offset, len(s.Input))
	}
	return s.Input[offset], nil
}

func (s *State) readInputU16(offset int) (uint16, error) {
	if offset < 0 || offset+2 > len(s.Input) {
		return 0, vmerrors.MemoryOutOfBounds(offset, len(s.Input))
	}
	return binary.LittleEndian.Uint16(s.Input[offset:]), nil
}

func (s *State) readInputU32(offset int) (uint32, error) {
	if offset < 0 || offset+4 > len(s.Input) {
		return 0, vmerrors.MemoryOutOfBounds(offset, len(s.Input))
	}
	return binary.LittleEndian.Uint32(s.Input[offset:]), nil
}

func (s *State) readInputU64(offset int) (uint64, error) {
	if offset < 0 || offset+8 > len(s.Input) {
		return 0, vmerrors.MemoryOutOfBounds(offset, len(s.Input))
	}
	return binary.LittleEndian.Uint64(s.Input[offset:]), nil
}

func (s *State) writeOutputU8(offset int, v byte) error {
	s.growOutput(offset + 1)
	s.Output[offset] = v
	return nil
}

func (s *State) writeOutputU16(offset int, v uint16) error {
	s.growOutput(offset + 2)
	binary.LittleEndian.PutUint16(s.Output[offset:], v)
	return nil
}

func (s *State) writeOutputU32(offset int, v uint32) error {
	s.growOutput(offset + 4)
	binary.LittleEndian.PutUint32(s.Output[offset:], v)
	return nil
}

func (s *State) writeOutputU64(offset int, v uint64) error {
	s.growOutput(offset + 8)
	binary.LittleEndian.PutUint64(s.Output[offset:], v)
	return nil
}

func (s *State) growOutput(size int) {
	if len(s.Output) < size {
		grown := make([]byte, size)
		copy(grown, s.Output)
		s.Output = grown
	}
}

func (s *State) InputLen() int { return len(s.Input) }

// --- flags ---

func (s *State) setZeroFlag(result uint64) {
	if result == 0 {
		s.flags |= s.flagBits.Zero
	} else {
		s.flags &^= s.flagBits.Zero
	}
}

// updateCmpFlags sets zero/carry/overflow/sign as a two's-complement
// subtract a-b would, without consuming a and b from the stack (CMP is
// non-destructive).
func (s *State) updateCmpFlags(a, b uint64) {
	result := a - b
	s.setZeroFlag(result)

	if a < b {
		s.flags |= s.flagBits.Carry
	} else {
		s.flags &^= s.flagBits.Carry
	}

	signA := a>>63 == 1
	signB := b>>63 == 1
	signR := result>>63 == 1
	overflow := (signA != signB) && (signR != signA)
	if overflow {
		s.flags |= s.flagBits.Overflow
	} else {
		s.flags &^= s.flagBits.Overflow
	}

	if signR {
		s.flags |= s.flagBits.Sign
	} else {
		s.flags &^= s.flagBits.Sign
	}
}

func (s *State) isZero() bool     { return s.flags&s.flagBits.Zero != 0 }
func (s *State) isCarry() bool    { return s.flags&s.flagBits.Carry != 0 }
func (s *State) isOverflow() bool { return s.flags&s.flagBits.Overflow != 0 }
func (s *State) isNegative() bool { return s.flags&s.flagBits.Sign != 0 }

// Flags returns the raw status byte, masked per this build's FlagBits.
func (s *State) Flags() byte { return s.flags }

// StackSnapshot returns a copy of the value stack, bottom first, for
// inspection by a debugger; the live stack is never handed out directly
// since callers must not be able to mutate it outside Push/Pop.
func (s *State) StackSnapshot() []uint64 {
	out := make([]uint64, len(s.stack))
	copy(out, s.stack)
	return out
}

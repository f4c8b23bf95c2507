package vm

import (
	"github.com/polyvm/anticheat-vm/native"
	"github.com/polyvm/anticheat-vm/vmerrors"
)

// NATIVE_CALL, NATIVE_READ, NATIVE_WRITE, INPUT_LEN.

// handleNativeCall: NATIVE_CALL <func_id u8> <arg_count u8>. Pops arg_count
// values (they come off the stack in reverse order, so args[i] for the
// i-th pop counting down), tries the state's own native table first (a
// per-build override) and falls back to the shared registry.
func handleNativeCall(s *State, reg *native.Registry) error {
	funcID, err := s.readU8()
	if err != nil {
		return err
	}
	argCount, err := s.readU8()
	if err != nil {
		return err
	}
	if int(argCount) > native.MaxNativeArgs {
		return vmerrors.NativeTooManyArgs(int(argCount))
	}

	var args [native.MaxNativeArgs]uint64
	for i := int(argCount) - 1; i >= 0; i-- {
		v, err := s.Pop()
		if err != nil {
			return err
		}
		args[i] = v
	}
	argSlice := args[:argCount]

	if fn, ok := s.getNativeFn(funcID); ok {
		return s.Push(fn(argSlice))
	}

	result, err := reg.Call(funcID, argSlice)
	if err != nil {
		return err
	}
	return s.Push(result)
}

func handleNativeRead(s *State, _ *native.Registry) error {
	offset, err := s.readU16()
	if err != nil {
		return err
	}
	v, err := s.readInputU64(int(offset))
	if err != nil {
		return err
	}
	return s.Push(v)
}

// handleNativeWrite appends a single byte (the low 8 bits of the popped
// value) to the output buffer; the offset operand is read for operand-shape
// parity but unused, matching the upstream append-only semantics.
func handleNativeWrite(s *State, _ *native.Registry) error {
	if _, err := s.readU16(); err != nil {
		return err
	}
	v, err := s.Pop()
	if err != nil {
		return err
	}
	s.Output = append(s.Output, byte(v))
	return nil
}

func handleInputLen(s *State, _ *native.Registry) error {
	return s.Push(uint64(s.InputLen()))
}

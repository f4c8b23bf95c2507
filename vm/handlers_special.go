package vm

import (
	"time"

	"github.com/polyvm/anticheat-vm/native"
	"github.com/polyvm/anticheat-vm/vmerrors"
)

// NOP, NOP_N, OPAQUE_TRUE, OPAQUE_FALSE, HASH_CHECK, TIMING_CHECK.

func handleNop(s *State, _ *native.Registry) error { return nil }

func handleNopN(s *State, _ *native.Registry) error {
	count, err := s.readU8()
	if err != nil {
		return err
	}
	newIP := s.IP + int(count)
	if newIP > len(s.Code) {
		return vmerrors.InvalidJumpTarget(newIP)
	}
	s.IP = newIP
	return nil
}

// handleOpaqueTrue pushes 1 via a runtime-dependent opaque predicate: x *
// (x+1) is always the product of two consecutive integers, hence always
// even, so this always pushes 1 -- but only at runtime, not to static
// analysis of the bytecode alone.
func handleOpaqueTrue(s *State, _ *native.Registry) error {
	x := s.InstructionCount
	product := x * (x + 1)
	result := uint64(0)
	if product%2 == 0 {
		result = 1
	}
	return s.Push(result)
}

// handleOpaqueFalse is handleOpaqueTrue's complement: always pushes 0.
func handleOpaqueFalse(s *State, _ *native.Registry) error {
	x := s.InstructionCount
	product := x * (x + 1)
	result := uint64(0)
	if product%2 != 0 {
		result = 1
	}
	return s.Push(result)
}

// handleHashCheck verifies the whole code buffer against this build's
// FNV-1a constants, using the expected value embedded as an operand at
// build time.
func handleHashCheck(s *State, _ *native.Registry) error {
	expected, err := s.readU32()
	if err != nil {
		return err
	}
	if s.fnv.Fnv1a32(s.Code) != expected {
		return vmerrors.IntegrityFailed("HASH_CHECK mismatch")
	}
	return nil
}

// maxTimingDeltaNs is the anomaly threshold between consecutive
// TIMING_CHECK opcodes: normal interpreted execution between checkpoints
// stays well under it; single-stepping under a debugger does not.
const maxTimingDeltaNs = 100_000_000 // 100ms

func currentTimeNs() uint64 {
	return uint64(time.Now().UnixNano())
}

func handleTimingCheck(s *State, _ *native.Registry) error {
	now := currentTimeNs()
	if s.lastTimingNs == 0 {
		s.lastTimingNs = now
		return nil
	}
	var delta uint64
	if now > s.lastTimingNs {
		delta = now - s.lastTimingNs
	}
	if delta > maxTimingDeltaNs {
		return vmerrors.TimingAnomaly()
	}
	s.lastTimingNs = now
	return nil
}

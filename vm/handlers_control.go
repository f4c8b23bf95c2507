package vm

import (
	"github.com/polyvm/anticheat-vm/native"
	"github.com/polyvm/anticheat-vm/vmerrors"
)

// CMP, JMP, JZ, JNZ, JGT, JLT, JGE, JLE, CALL, RET.

func handleCmp(s *State, _ *native.Registry) error {
	a, b, err := pop2(s)
	if err != nil {
		return err
	}
	s.updateCmpFlags(a, b)
	if err := s.Push(a); err != nil {
		return err
	}
	return s.Push(b)
}

// jumpRelative applies a signed offset to IP, shared by every conditional
// and unconditional jump plus CALL. It is the one place jump-target
// validity is enforced.
func jumpRelative(s *State, offset int16) error {
	var newIP int
	if offset >= 0 {
		newIP = s.IP + int(offset)
	} else {
		newIP = s.IP - int(-offset)
	}
	if newIP < 0 || newIP > len(s.Code) {
		return vmerrors.InvalidJumpTarget(newIP)
	}
	s.IP = newIP
	return nil
}

func handleJmp(s *State, _ *native.Registry) error {
	offset, err := s.readI16()
	if err != nil {
		return err
	}
	return jumpRelative(s, offset)
}

func handleJz(s *State, _ *native.Registry) error {
	offset, err := s.readI16()
	if err != nil {
		return err
	}
	if s.isZero() {
		return jumpRelative(s, offset)
	}
	return nil
}

func handleJnz(s *State, _ *native.Registry) error {
	offset, err := s.readI16()
	if err != nil {
		return err
	}
	if !s.isZero() {
		return jumpRelative(s, offset)
	}
	return nil
}

// handleJgt: greater (signed) iff not zero and sign == overflow.
func handleJgt(s *State, _ *native.Registry) error {
	offset, err := s.readI16()
	if err != nil {
		return err
	}
	if !s.isZero() && s.isNegative() == s.isOverflow() {
		return jumpRelative(s, offset)
	}
	return nil
}

// handleJlt: less (signed) iff sign != overflow.
func handleJlt(s *State, _ *native.Registry) error {
	offset, err := s.readI16()
	if err != nil {
		return err
	}
	if s.isNegative() != s.isOverflow() {
		return jumpRelative(s, offset)
	}
	return nil
}

// handleJge: greater-or-equal iff sign == overflow.
func handleJge(s *State, _ *native.Registry) error {
	offset, err := s.readI16()
	if err != nil {
		return err
	}
	if s.isNegative() == s.isOverflow() {
		return jumpRelative(s, offset)
	}
	return nil
}

// handleJle: less-or-equal iff zero or sign != overflow.
func handleJle(s *State, _ *native.Registry) error {
	offset, err := s.readI16()
	if err != nil {
		return err
	}
	if s.isZero() || s.isNegative() != s.isOverflow() {
		return jumpRelative(s, offset)
	}
	return nil
}

func handleCall(s *State, _ *native.Registry) error {
	offset, err := s.readI16()
	if err != nil {
		return err
	}
	if err := s.pushCall(s.IP); err != nil {
		return err
	}
	return jumpRelative(s, offset)
}

// handleRet: returning with an empty call stack halts the machine with the
// current top-of-stack as result, rather than erroring.
func handleRet(s *State, _ *native.Registry) error {
	if returnAddr, ok := s.popCall(); ok {
		s.IP = returnAddr
		return nil
	}
	s.Halted = true
	if v, err := s.Peek(); err == nil {
		s.Result = v
	}
	return nil
}

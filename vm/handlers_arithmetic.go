package vm

import (
	"github.com/polyvm/anticheat-vm/native"
	"github.com/polyvm/anticheat-vm/vmerrors"
)

// ADD, SUB, MUL, XOR, AND, OR, SHL, SHR, NOT, ROL, ROR, INC, DEC, DIV, MOD,
// IDIV, IMOD. Every binary op pops b then a, so `a OP b` matches source
// order on the stack (push a, push b, OP).

func pop2(s *State) (a, b uint64, err error) {
	b, err = s.Pop()
	if err != nil {
		return 0, 0, err
	}
	a, err = s.Pop()
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func handleAdd(s *State, _ *native.Registry) error {
	a, b, err := pop2(s)
	if err != nil {
		return err
	}
	result := a + b
	s.setZeroFlag(result)
	return s.Push(result)
}

func handleSub(s *State, _ *native.Registry) error {
	a, b, err := pop2(s)
	if err != nil {
		return err
	}
	result := a - b
	s.setZeroFlag(result)
	return s.Push(result)
}

func handleMul(s *State, _ *native.Registry) error {
	a, b, err := pop2(s)
	if err != nil {
		return err
	}
	result := a * b
	s.setZeroFlag(result)
	return s.Push(result)
}

func handleXor(s *State, _ *native.Registry) error {
	a, b, err := pop2(s)
	if err != nil {
		return err
	}
	result := a ^ b
	s.setZeroFlag(result)
	return s.Push(result)
}

func handleAnd(s *State, _ *native.Registry) error {
	a, b, err := pop2(s)
	if err != nil {
		return err
	}
	result := a & b
	s.setZeroFlag(result)
	return s.Push(result)
}

func handleOr(s *State, _ *native.Registry) error {
	a, b, err := pop2(s)
	if err != nil {
		return err
	}
	result := a | b
	s.setZeroFlag(result)
	return s.Push(result)
}

func handleShl(s *State, _ *native.Registry) error {
	a, b, err := pop2(s)
	if err != nil {
		return err
	}
	result := a << (uint32(b) & 63)
	s.setZeroFlag(result)
	return s.Push(result)
}

func handleShr(s *State, _ *native.Registry) error {
	a, b, err := pop2(s)
	if err != nil {
		return err
	}
	result := a >> (uint32(b) & 63)
	s.setZeroFlag(result)
	return s.Push(result)
}

func handleNot(s *State, _ *native.Registry) error {
	a, err := s.Pop()
	if err != nil {
		return err
	}
	result := ^a
	s.setZeroFlag(result)
	return s.Push(result)
}

func handleRol(s *State, _ *native.Registry) error {
	a, b, err := pop2(s)
	if err != nil {
		return err
	}
	n := uint(b) & 63
	result := (a << n) | (a >> (64 - n))
	if n == 0 {
		result = a
	}
	return s.Push(result)
}

func handleRor(s *State, _ *native.Registry) error {
	a, b, err := pop2(s)
	if err != nil {
		return err
	}
	n := uint(b) & 63
	result := (a >> n) | (a << (64 - n))
	if n == 0 {
		result = a
	}
	return s.Push(result)
}

func handleInc(s *State, _ *native.Registry) error {
	a, err := s.Pop()
	if err != nil {
		return err
	}
	result := a + 1
	s.setZeroFlag(result)
	return s.Push(result)
}

func handleDec(s *State, _ *native.Registry) error {
	a, err := s.Pop()
	if err != nil {
		return err
	}
	result := a - 1
	s.setZeroFlag(result)
	return s.Push(result)
}

// divisionResult centralizes the base spec's "divisor 0 yields 0" default
// versus the opt-in StrictDivision policy that raises DivisionByZero
// instead, so DIV/MOD/IDIV/IMOD all resolve the open question the same way.
func divisionResult(s *State, b uint64, compute func() uint64) (uint64, error) {
	if b == 0 {
		if s.cfg.StrictDivision {
			return 0, vmerrors.DivisionByZero()
		}
		return 0, nil
	}
	return compute(), nil
}

func handleDiv(s *State, _ *native.Registry) error {
	a, b, err := pop2(s)
	if err != nil {
		return err
	}
	result, err := divisionResult(s, b, func() uint64 { return a / b })
	if err != nil {
		return err
	}
	s.setZeroFlag(result)
	return s.Push(result)
}

func handleMod(s *State, _ *native.Registry) error {
	a, b, err := pop2(s)
	if err != nil {
		return err
	}
	result, err := divisionResult(s, b, func() uint64 { return a % b })
	if err != nil {
		return err
	}
	s.setZeroFlag(result)
	return s.Push(result)
}

func handleIdiv(s *State, _ *native.Registry) error {
	a, b, err := pop2(s)
	if err != nil {
		return err
	}
	sa, sb := int64(a), int64(b)
	result, err := divisionResult(s, b, func() uint64 { return uint64(sa / sb) })
	if err != nil {
		return err
	}
	s.setZeroFlag(result)
	return s.Push(result)
}

func handleImod(s *State, _ *native.Registry) error {
	a, b, err := pop2(s)
	if err != nil {
		return err
	}
	sa, sb := int64(a), int64(b)
	result, err := divisionResult(s, b, func() uint64 { return uint64(sa % sb) })
	if err != nil {
		return err
	}
	s.setZeroFlag(result)
	return s.Push(result)
}

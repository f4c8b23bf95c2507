package vm

import "github.com/polyvm/anticheat-vm/native"

// PUSH_IMM, PUSH_IMM8, PUSH_IMM16, PUSH_IMM32, PUSH_REG, POP_REG, DUP,
// SWAP, DROP.

func handlePushImm(s *State, _ *native.Registry) error {
	v, err := s.readU64()
	if err != nil {
		return err
	}
	return s.Push(v)
}

func handlePushImm8(s *State, _ *native.Registry) error {
	v, err := s.readU8()
	if err != nil {
		return err
	}
	return s.Push(uint64(v))
}

func handlePushImm16(s *State, _ *native.Registry) error {
	v, err := s.readU16()
	if err != nil {
		return err
	}
	return s.Push(uint64(v))
}

func handlePushImm32(s *State, _ *native.Registry) error {
	v, err := s.readU32()
	if err != nil {
		return err
	}
	return s.Push(uint64(v))
}

func handlePushReg(s *State, _ *native.Registry) error {
	idx, err := s.readU8()
	if err != nil {
		return err
	}
	v, err := s.GetReg(idx)
	if err != nil {
		return err
	}
	return s.Push(v)
}

func handlePopReg(s *State, _ *native.Registry) error {
	idx, err := s.readU8()
	if err != nil {
		return err
	}
	v, err := s.Pop()
	if err != nil {
		return err
	}
	return s.SetReg(idx, v)
}

func handleDup(s *State, _ *native.Registry) error {
	v, err := s.Peek()
	if err != nil {
		return err
	}
	return s.Push(v)
}

func handleSwap(s *State, _ *native.Registry) error {
	top, err := s.Pop()
	if err != nil {
		return err
	}
	below, err := s.Pop()
	if err != nil {
		return err
	}
	if err := s.Push(top); err != nil {
		return err
	}
	return s.Push(below)
}

func handleDrop(s *State, _ *native.Registry) error {
	_, err := s.Pop()
	return err
}

package vm

import "github.com/polyvm/anticheat-vm/native"

// MOV_IMM, MOV_REG, LOAD_MEM, STORE_MEM.

func handleMovImm(s *State, _ *native.Registry) error {
	reg, err := s.readU8()
	if err != nil {
		return err
	}
	v, err := s.readU64()
	if err != nil {
		return err
	}
	return s.SetReg(reg, v)
}

func handleMovReg(s *State, _ *native.Registry) error {
	dst, err := s.readU8()
	if err != nil {
		return err
	}
	src, err := s.readU8()
	if err != nil {
		return err
	}
	v, err := s.GetReg(src)
	if err != nil {
		return err
	}
	return s.SetReg(dst, v)
}

// LOAD_MEM reads an input-buffer word at the offset held in addrReg into
// dstReg.
func handleLoadMem(s *State, _ *native.Registry) error {
	dstReg, err := s.readU8()
	if err != nil {
		return err
	}
	addrReg, err := s.readU8()
	if err != nil {
		return err
	}
	offsetReg, err := s.GetReg(addrReg)
	if err != nil {
		return err
	}
	v, err := s.readInputU64(int(offsetReg))
	if err != nil {
		return err
	}
	return s.SetReg(dstReg, v)
}

// STORE_MEM appends srcReg's value to the output buffer; the addr register
// is read for operand-shape parity with the original but not otherwise
// consulted, matching the upstream handler's append-only output semantics.
func handleStoreMem(s *State, _ *native.Registry) error {
	if _, err := s.readU8(); err != nil {
		return err
	}
	srcReg, err := s.readU8()
	if err != nil {
		return err
	}
	v, err := s.GetReg(srcReg)
	if err != nil {
		return err
	}
	offset := len(s.Output)
	return s.writeOutputU64(offset, v)
}

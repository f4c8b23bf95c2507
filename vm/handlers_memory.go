package vm

import "github.com/polyvm/anticheat-vm/native"

// LOAD8, LOAD16, LOAD32, LOAD64, STORE8, STORE16, STORE32, STORE64: sized
// accesses against the input/output buffers, offset given as an immediate
// u16 operand (unlike LOAD_MEM/STORE_MEM, which take the offset from a
// register).

func handleLoad8(s *State, _ *native.Registry) error {
	offset, err := s.readU16()
	if err != nil {
		return err
	}
	v, err := s.readInputU8(int(offset))
	if err != nil {
		return err
	}
	return s.Push(uint64(v))
}

func handleLoad16(s *State, _ *native.Registry) error {
	offset, err := s.readU16()
	if err != nil {
		return err
	}
	v, err := s.readInputU16(int(offset))
	if err != nil {
		return err
	}
	return s.Push(uint64(v))
}

func handleLoad32(s *State, _ *native.Registry) error {
	offset, err := s.readU16()
	if err != nil {
		return err
	}
	v, err := s.readInputU32(int(offset))
	if err != nil {
		return err
	}
	return s.Push(uint64(v))
}

func handleLoad64(s *State, _ *native.Registry) error {
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

func handleStore8(s *State, _ *native.Registry) error {
	offset, err := s.readU16()
	if err != nil {
		return err
	}
	v, err := s.Pop()
	if err != nil {
		return err
	}
	return s.writeOutputU8(int(offset), byte(v))
}

func handleStore16(s *State, _ *native.Registry) error {
	offset, err := s.readU16()
	if err != nil {
		return err
	}
	v, err := s.Pop()
	if err != nil {
		return err
	}
	return s.writeOutputU16(int(offset), uint16(v))
}

func handleStore32(s *State, _ *native.Registry) error {
	offset, err := s.readU16()
	if err != nil {
		return err
	}
	v, err := s.Pop()
	if err != nil {
		return err
	}
	return s.writeOutputU32(int(offset), uint32(v))
}

func handleStore64(s *State, _ *native.Registry) error {
	offset, err := s.readU16()
	if err != nil {
		return err
	}
	v, err := s.Pop()
	if err != nil {
		return err
	}
	return s.writeOutputU64(int(offset), v)
}

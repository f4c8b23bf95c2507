package vm

import "github.com/polyvm/anticheat-vm/native"

// SEXT8, SEXT16, SEXT32, TRUNC8, TRUNC16, TRUNC32.

func handleSext8(s *State, _ *native.Registry) error {
	v, err := s.Pop()
	if err != nil {
		return err
	}
	return s.Push(uint64(int64(int8(v))))
}

func handleSext16(s *State, _ *native.Registry) error {
	v, err := s.Pop()
	if err != nil {
		return err
	}
	return s.Push(uint64(int64(int16(v))))
}

func handleSext32(s *State, _ *native.Registry) error {
	v, err := s.Pop()
	if err != nil {
		return err
	}
	return s.Push(uint64(int64(int32(v))))
}

func handleTrunc8(s *State, _ *native.Registry) error {
	v, err := s.Pop()
	if err != nil {
		return err
	}
	return s.Push(v & 0xFF)
}

func handleTrunc16(s *State, _ *native.Registry) error {
	v, err := s.Pop()
	if err != nil {
		return err
	}
	return s.Push(v & 0xFFFF)
}

func handleTrunc32(s *State, _ *native.Registry) error {
	v, err := s.Pop()
	if err != nil {
		return err
	}
	return s.Push(v & 0xFFFFFFFF)
}

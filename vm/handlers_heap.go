package vm

import "github.com/polyvm/anticheat-vm/native"

// HEAP_ALLOC, HEAP_FREE, HEAP_LOAD8/16/32/64, HEAP_STORE8/16/32/64,
// HEAP_SIZE.

func handleHeapAlloc(s *State, _ *native.Registry) error {
	size, err := s.Pop()
	if err != nil {
		return err
	}
	addr, err := s.heap.Alloc(int(size))
	if err != nil {
		return err
	}
	return s.Push(uint64(addr))
}

func handleHeapFree(s *State, _ *native.Registry) error {
	addr, err := s.Pop()
	if err != nil {
		return err
	}
	return s.heap.Free(int(addr))
}

func handleHeapLoad8(s *State, _ *native.Registry) error {
	addr, err := s.Pop()
	if err != nil {
		return err
	}
	v, err := s.heap.Read8(int(addr))
	if err != nil {
		return err
	}
	return s.Push(uint64(v))
}

func handleHeapLoad16(s *State, _ *native.Registry) error {
	addr, err := s.Pop()
	if err != nil {
		return err
	}
	v, err := s.heap.Read16(int(addr))
	if err != nil {
		return err
	}
	return s.Push(uint64(v))
}

func handleHeapLoad32(s *State, _ *native.Registry) error {
	addr, err := s.Pop()
	if err != nil {
		return err
	}
	v, err := s.heap.Read32(int(addr))
	if err != nil {
		return err
	}
	return s.Push(uint64(v))
}

func handleHeapLoad64(s *State, _ *native.Registry) error {
	addr, err := s.Pop()
	if err != nil {
		return err
	}
	v, err := s.heap.Read64(int(addr))
	if err != nil {
		return err
	}
	return s.Push(v)
}

func handleHeapStore8(s *State, _ *native.Registry) error {
	value, err := s.Pop()
	if err != nil {
		return err
	}
	addr, err := s.Pop()
	if err != nil {
		return err
	}
	return s.heap.Write8(int(addr), byte(value))
}

func handleHeapStore16(s *State, _ *native.Registry) error {
	value, err := s.Pop()
	if err != nil {
		return err
	}
	addr, err := s.Pop()
	if err != nil {
		return err
	}
	return s.heap.Write16(int(addr), uint16(value))
}

func handleHeapStore32(s *State, _ *native.Registry) error {
	value, err := s.Pop()
	if err != nil {
		return err
	}
	addr, err := s.Pop()
	if err != nil {
		return err
	}
	return s.heap.Write32(int(addr), uint32(value))
}

func handleHeapStore64(s *State, _ *native.Registry) error {
	value, err := s.Pop()
	if err != nil {
		return err
	}
	addr, err := s.Pop()
	if err != nil {
		return err
	}
	return s.heap.Write64(int(addr), value)
}

func handleHeapSize(s *State, _ *native.Registry) error {
	return s.Push(uint64(s.heap.Size()))
}

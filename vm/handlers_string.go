package vm

import (
	"github.com/polyvm/anticheat-vm/native"
	"github.com/polyvm/anticheat-vm/vmerrors"
)

// STR_NEW, STR_LEN, STR_PUSH, STR_GET, STR_SET, STR_CMP, STR_EQ, STR_HASH,
// STR_CONCAT. Strings are vectors with elem_size pinned to 1, reusing the
// vector heap layout and helpers wholesale.

const strElemSize = 1

// handleStrNew: stack [capacity] -> [address].
func handleStrNew(s *State, _ *native.Registry) error {
	capacity, err := s.Pop()
	if err != nil {
		return err
	}
	addr, err := newVec(s.heap, capacity, strElemSize)
	if err != nil {
		return err
	}
	return s.Push(uint64(addr))
}

func handleStrLen(s *State, _ *native.Registry) error {
	addr, err := s.Pop()
	if err != nil {
		return err
	}
	_, length, _, err := vecHeader(s.heap, int(addr))
	if err != nil {
		return err
	}
	return s.Push(length)
}

// handleStrPush: stack [byte, address] -> []. Same capacity discipline as
// VEC_PUSH: errors rather than growing.
func handleStrPush(s *State, _ *native.Registry) error {
	addr, err := s.Pop()
	if err != nil {
		return err
	}
	value, err := s.Pop()
	if err != nil {
		return err
	}
	capacity, length, _, err := vecHeader(s.heap, int(addr))
	if err != nil {
		return err
	}
	if length >= capacity {
		return vmerrors.HeapOutOfBounds(int(addr))
	}
	if err := s.heap.Write8(vecDataOffset(int(addr), length, strElemSize), byte(value)); err != nil {
		return err
	}
	return vecSetLength(s.heap, int(addr), length+1)
}

// handleStrGet: stack [index, address] -> [byte].
func handleStrGet(s *State, _ *native.Registry) error {
	addr, err := s.Pop()
	if err != nil {
		return err
	}
	index, err := s.Pop()
	if err != nil {
		return err
	}
	_, length, _, err := vecHeader(s.heap, int(addr))
	if err != nil {
		return err
	}
	if err := vecCheckIndex(index, length); err != nil {
		return err
	}
	v, err := s.heap.Read8(vecDataOffset(int(addr), index, strElemSize))
	if err != nil {
		return err
	}
	return s.Push(uint64(v))
}

// handleStrSet: stack [byte, index, address] -> [].
func handleStrSet(s *State, _ *native.Registry) error {
	addr, err := s.Pop()
	if err != nil {
		return err
	}
	index, err := s.Pop()
	if err != nil {
		return err
	}
	value, err := s.Pop()
	if err != nil {
		return err
	}
	_, length, _, err := vecHeader(s.heap, int(addr))
	if err != nil {
		return err
	}
	if err := vecCheckIndex(index, length); err != nil {
		return err
	}
	return s.heap.Write8(vecDataOffset(int(addr), index, strElemSize), byte(value))
}

func strBytes(s *State, addr int) ([]byte, error) {
	_, length, _, err := vecHeader(s.heap, addr)
	if err != nil {
		return nil, err
	}
	return s.heap.ReadBytes(vecDataOffset(addr, 0, strElemSize), int(length))
}

// handleStrCmp: stack [b_address, a_address] -> [ordering], where ordering
// is -1/0/1 encoded as u64 (wrapping_sub semantics: 0xFFFFFFFFFFFFFFFF for
// less, 0 for equal, 1 for greater), mirroring a byte-lexicographic Ord.
func handleStrCmp(s *State, _ *native.Registry) error {
	aAddr, err := s.Pop()
	if err != nil {
		return err
	}
	bAddr, err := s.Pop()
	if err != nil {
		return err
	}
	a, err := strBytes(s, int(aAddr))
	if err != nil {
		return err
	}
	b, err := strBytes(s, int(bAddr))
	if err != nil {
		return err
	}
	var cmp int
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				cmp = -1
			} else {
				cmp = 1
			}
			break
		}
	}
	if cmp == 0 && len(a) != len(b) {
		if len(a) < len(b) {
			cmp = -1
		} else {
			cmp = 1
		}
	}
	return s.Push(uint64(int64(cmp)))
}

func handleStrEq(s *State, _ *native.Registry) error {
	aAddr, err := s.Pop()
	if err != nil {
		return err
	}
	bAddr, err := s.Pop()
	if err != nil {
		return err
	}
	a, err := strBytes(s, int(aAddr))
	if err != nil {
		return err
	}
	b, err := strBytes(s, int(bAddr))
	if err != nil {
		return err
	}
	eq := len(a) == len(b)
	if eq {
		for i := range a {
			if a[i] != b[i] {
				eq = false
				break
			}
		}
	}
	if eq {
		return s.Push(1)
	}
	return s.Push(0)
}

// handleStrHash: stack [address] -> [hash], FNV-1a 64-bit over the string's
// live bytes using this build's randomized constants.
func handleStrHash(s *State, _ *native.Registry) error {
	addr, err := s.Pop()
	if err != nil {
		return err
	}
	b, err := strBytes(s, int(addr))
	if err != nil {
		return err
	}
	return s.Push(s.fnv.Fnv1a64(b))
}

// handleStrConcat: stack [b_address, a_address] -> [address]. Allocates a
// fresh string sized to fit both inputs; a and b are left untouched.
func handleStrConcat(s *State, _ *native.Registry) error {
	aAddr, err := s.Pop()
	if err != nil {
		return err
	}
	bAddr, err := s.Pop()
	if err != nil {
		return err
	}
	a, err := strBytes(s, int(aAddr))
	if err != nil {
		return err
	}
	b, err := strBytes(s, int(bAddr))
	if err != nil {
		return err
	}
	total := uint64(len(a) + len(b))
	newAddr, err := newVec(s.heap, total, strElemSize)
	if err != nil {
		return err
	}
	if err := s.heap.WriteBytes(vecDataOffset(newAddr, 0, strElemSize), append(append([]byte{}, a...), b...)); err != nil {
		return err
	}
	if err := vecSetLength(s.heap, newAddr, total); err != nil {
		return err
	}
	return s.Push(uint64(newAddr))
}

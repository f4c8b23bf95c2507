package vm

import (
	"github.com/polyvm/anticheat-vm/native"
	"github.com/polyvm/anticheat-vm/vmerrors"
)

// VEC_NEW, VEC_LEN, VEC_CAP, VEC_PUSH, VEC_POP, VEC_GET, VEC_SET,
// VEC_REPEAT, VEC_CLEAR, VEC_RESERVE.
//
// Every vector lives in the heap behind the [capacity|length|elem_size]
// header from vector.go; these handlers only ever see the address the
// header starts at, same as HEAP_* addresses.

// handleVecNew: stack [elem_size, capacity] -> [address]. Backs array-type
// literals compiled with a known element width and starting capacity.
func handleVecNew(s *State, _ *native.Registry) error {
	capacity, err := s.Pop()
	if err != nil {
		return err
	}
	elemSize, err := s.Pop()
	if err != nil {
		return err
	}
	addr, err := newVec(s.heap, capacity, elemSize)
	if err != nil {
		return err
	}
	return s.Push(uint64(addr))
}

func handleVecLen(s *State, _ *native.Registry) error {
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

func handleVecCap(s *State, _ *native.Registry) error {
	addr, err := s.Pop()
	if err != nil {
		return err
	}
	capacity, _, _, err := vecHeader(s.heap, int(addr))
	if err != nil {
		return err
	}
	return s.Push(capacity)
}

// handleVecPush: stack [value, address] -> []. Errors if the vector is
// already at capacity rather than silently reallocating; callers that need
// growth use VEC_RESERVE first.
func handleVecPush(s *State, _ *native.Registry) error {
	addr, err := s.Pop()
	if err != nil {
		return err
	}
	value, err := s.Pop()
	if err != nil {
		return err
	}
	capacity, length, elemSize, err := vecHeader(s.heap, int(addr))
	if err != nil {
		return err
	}
	if length >= capacity {
		return vmerrors.HeapOutOfBounds(int(addr))
	}
	dataAddr := vecDataOffset(int(addr), length, elemSize)
	if err := vecWriteElem(s.heap, dataAddr, elemSize, value); err != nil {
		return err
	}
	return vecSetLength(s.heap, int(addr), length+1)
}

// handleVecPop: stack [address] -> [value]. Errors on an empty vector.
func handleVecPop(s *State, _ *native.Registry) error {
	addr, err := s.Pop()
	if err != nil {
		return err
	}
	_, length, elemSize, err := vecHeader(s.heap, int(addr))
	if err != nil {
		return err
	}
	if length == 0 {
		return vmerrors.HeapOutOfBounds(int(addr))
	}
	newLength := length - 1
	dataAddr := vecDataOffset(int(addr), newLength, elemSize)
	value, err := vecReadElem(s.heap, dataAddr, elemSize)
	if err != nil {
		return err
	}
	if err := vecSetLength(s.heap, int(addr), newLength); err != nil {
		return err
	}
	return s.Push(value)
}

// handleVecGet: stack [index, address] -> [value].
func handleVecGet(s *State, _ *native.Registry) error {
	addr, err := s.Pop()
	if err != nil {
		return err
	}
	index, err := s.Pop()
	if err != nil {
		return err
	}
	_, length, elemSize, err := vecHeader(s.heap, int(addr))
	if err != nil {
		return err
	}
	if err := vecCheckIndex(index, length); err != nil {
		return err
	}
	value, err := vecReadElem(s.heap, vecDataOffset(int(addr), index, elemSize), elemSize)
	if err != nil {
		return err
	}
	return s.Push(value)
}

// handleVecSet: stack [value, index, address] -> [].
func handleVecSet(s *State, _ *native.Registry) error {
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
	_, length, elemSize, err := vecHeader(s.heap, int(addr))
	if err != nil {
		return err
	}
	if err := vecCheckIndex(index, length); err != nil {
		return err
	}
	return vecWriteElem(s.heap, vecDataOffset(int(addr), index, elemSize), elemSize, value)
}

// handleVecRepeat: stack [elem_size, value, count] -> [address]. Backs
// `[value; count]` array-repeat expressions: allocates a vector of exactly
// count capacity and fills every slot with value.
func handleVecRepeat(s *State, _ *native.Registry) error {
	count, err := s.Pop()
	if err != nil {
		return err
	}
	value, err := s.Pop()
	if err != nil {
		return err
	}
	elemSize, err := s.Pop()
	if err != nil {
		return err
	}
	addr, err := newVec(s.heap, count, elemSize)
	if err != nil {
		return err
	}
	for i := uint64(0); i < count; i++ {
		if err := vecWriteElem(s.heap, vecDataOffset(addr, i, elemSize), elemSize, value); err != nil {
			return err
		}
	}
	if err := vecSetLength(s.heap, addr, count); err != nil {
		return err
	}
	return s.Push(uint64(addr))
}

func handleVecClear(s *State, _ *native.Registry) error {
	addr, err := s.Pop()
	if err != nil {
		return err
	}
	return vecSetLength(s.heap, int(addr), 0)
}

// handleVecReserve: stack [new_capacity, address] -> [address]. A
// new_capacity no larger than the current one leaves the vector as is;
// otherwise it always reallocates (no in-place growth), copies the live
// elements, and frees the old block, mirroring how HEAP_FREE/HEAP_ALLOC
// already handle reuse.
func handleVecReserve(s *State, _ *native.Registry) error {
	addr, err := s.Pop()
	if err != nil {
		return err
	}
	newCapacity, err := s.Pop()
	if err != nil {
		return err
	}
	capacity, length, elemSize, err := vecHeader(s.heap, int(addr))
	if err != nil {
		return err
	}
	if newCapacity <= capacity {
		return s.Push(addr)
	}
	newAddr, err := newVec(s.heap, newCapacity, elemSize)
	if err != nil {
		return err
	}
	oldData, err := s.heap.ReadBytes(vecDataOffset(int(addr), 0, elemSize), int(length*elemSize))
	if err != nil {
		return err
	}
	if err := s.heap.WriteBytes(vecDataOffset(newAddr, 0, elemSize), oldData); err != nil {
		return err
	}
	if err := vecSetLength(s.heap, newAddr, length); err != nil {
		return err
	}
	if err := s.heap.Free(int(addr)); err != nil {
		return err
	}
	return s.Push(uint64(newAddr))
}

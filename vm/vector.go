package vm

import "github.com/polyvm/anticheat-vm/vmerrors"

// vecHeaderSize is the fixed [capacity u64][length u64][elem_size u64]
// prefix shared by every vector and string allocation; string is simply a
// vector with elemSize fixed at 1.
const vecHeaderSize = 24

func vecHeader(h *Heap, addr int) (capacity, length, elemSize uint64, err error) {
	capacity, err = h.Read64(addr)
	if err != nil {
		return 0, 0, 0, err
	}
	length, err = h.Read64(addr + 8)
	if err != nil {
		return 0, 0, 0, err
	}
	elemSize, err = h.Read64(addr + 16)
	if err != nil {
		return 0, 0, 0, err
	}
	return capacity, length, elemSize, nil
}

func vecSetLength(h *Heap, addr int, length uint64) error {
	return h.Write64(addr+8, length)
}

func vecDataOffset(addr int, index, elemSize uint64) int {
	return addr + vecHeaderSize + int(index*elemSize)
}

// vecReadElem reads an elemSize-wide (<=8) little-endian element and
// zero-extends it to u64.
func vecReadElem(h *Heap, addr int, elemSize uint64) (uint64, error) {
	b, err := h.ReadBytes(addr, int(elemSize))
	if err != nil {
		return 0, err
	}
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = (v << 8) | uint64(b[i])
	}
	return v, nil
}

func vecWriteElem(h *Heap, addr int, elemSize, value uint64) error {
	b := make([]byte, elemSize)
	for i := uint64(0); i < elemSize; i++ {
		b[i] = byte(value)
		value >>= 8
	}
	return h.WriteBytes(addr, b)
}

// newVec allocates a fresh vector/string block with the given capacity and
// element size, zero-length, header already populated.
func newVec(h *Heap, capacity, elemSize uint64) (int, error) {
	total := vecHeaderSize + int(capacity*elemSize)
	addr, err := h.Alloc(total)
	if err != nil {
		return 0, err
	}
	if err := h.Write64(addr, capacity); err != nil {
		return 0, err
	}
	if err := vecSetLength(h, addr, 0); err != nil {
		return 0, err
	}
	if err := h.Write64(addr+16, elemSize); err != nil {
		return 0, err
	}
	return addr, nil
}

func vecCheckIndex(index, length uint64) error {
	if index >= length {
		return vmerrors.HeapOutOfBounds(int(index))
	}
	return nil
}

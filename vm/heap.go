package vm

import (
	"encoding/binary"

	"github.com/polyvm/anticheat-vm/vmerrors"
)

// heapHeaderSize is the fixed [u64 size_header] prefix on every
// allocation; the address handed back to bytecode is always past it.
const heapHeaderSize = 8

// freedSentinel is OR'd into a freed block's size header so a second free
// of the same address is detectable without a side table.
const freedSentinel = uint64(1) << 63

type freeBlock struct {
	headerOffset int
	totalSize    int // header + user bytes
}

// Heap is the managed byte buffer backing HEAP_* and VEC_*/STR_* opcodes:
// a bump allocator with free-list reuse, first-fit scan, and
// address-ordered adjacent-block merging.
type Heap struct {
	buf       []byte
	limit     int
	freeList  []freeBlock
}

func newHeap(limit int) *Heap {
	return &Heap{limit: limit}
}

// Size returns the current bump cursor (== len(buf)): everything below it
// is either live or on the free list, and bounds checks for reads/writes
// are always against this, not against any notion of "logical length",
// so writes into a reused-but-not-yet-bumped-past block are legal.
func (h *Heap) Size() int { return len(h.buf) }

// Alloc returns the user address of a fresh n-byte allocation, preferring
// a first-fit reuse from the free list before extending the bump cursor.
func (h *Heap) Alloc(n int) (int, error) {
	for i, fb := range h.freeList {
		if fb.totalSize-heapHeaderSize >= n {
			h.freeList = append(h.freeList[:i], h.freeList[i+1:]...)

			remainder := fb.totalSize - heapHeaderSize - n
			if remainder >= heapHeaderSize+1 {
				h.writeHeader(fb.headerOffset, uint64(n), false)
				tailOffset := fb.headerOffset + heapHeaderSize + n
				h.insertFree(freeBlock{headerOffset: tailOffset, totalSize: remainder})
			} else {
				h.writeHeader(fb.headerOffset, uint64(fb.totalSize-heapHeaderSize), false)
			}
			return fb.headerOffset + heapHeaderSize, nil
		}
	}

	total := heapHeaderSize + n
	if len(h.buf)+total > h.limit {
		return 0, vmerrors.HeapOutOfMemory(n, h.limit)
	}
	offset := len(h.buf)
	h.buf = append(h.buf, make([]byte, total)...)
	h.writeHeader(offset, uint64(n), false)
	return offset + heapHeaderSize, nil
}

// Free marks the block at userAddr as freed and merges it into the free
// list with any address-adjacent free neighbours.
func (h *Heap) Free(userAddr int) error {
	headerOffset := userAddr - heapHeaderSize
	if headerOffset < 0 || headerOffset+heapHeaderSize > len(h.buf) {
		return vmerrors.HeapOutOfBounds(userAddr)
	}
	size, freed := h.readHeader(headerOffset)
	if freed {
		return vmerrors.DoubleFree(userAddr)
	}
	h.writeHeader(headerOffset, size, true)
	h.insertFree(freeBlock{headerOffset: headerOffset, totalSize: heapHeaderSize + int(size)})
	return nil
}

// insertFree keeps the free list sorted by address and merges with
// adjacent entries on insert, so fragmentation never survives more than
// one allocation cycle.
func (h *Heap) insertFree(fb freeBlock) {
	idx := 0
	for idx < len(h.freeList) && h.freeList[idx].headerOffset < fb.headerOffset {
		idx++
	}
	h.freeList = append(h.freeList, freeBlock{})
	copy(h.freeList[idx+1:], h.freeList[idx:])
	h.freeList[idx] = fb

	// Merge with the following block if adjacent.
	if idx+1 < len(h.freeList) {
		next := h.freeList[idx+1]
		if fb.headerOffset+fb.totalSize == next.headerOffset {
			h.freeList[idx].totalSize += next.totalSize
			h.freeList = append(h.freeList[:idx+1], h.freeList[idx+2:]...)
		}
	}
	// Merge with the preceding block if adjacent.
	if idx > 0 {
		prev := h.freeList[idx-1]
		cur := h.freeList[idx]
		if prev.headerOffset+prev.totalSize == cur.headerOffset {
			h.freeList[idx-1].totalSize += cur.totalSize
			h.freeList = append(h.freeList[:idx], h.freeList[idx+1:]...)
		}
	}
}

func (h *Heap) writeHeader(offset int, size uint64, freed bool) {
	word := size
	if freed {
		word |= freedSentinel
	}
	binary.LittleEndian.PutUint64(h.buf[offset:], word)
}

func (h *Heap) readHeader(offset int) (size uint64, freed bool) {
	word := binary.LittleEndian.Uint64(h.buf[offset:])
	return word &^ freedSentinel, word&freedSentinel != 0
}

func (h *Heap) checkBounds(addr, width int) error {
	if addr < 0 || addr+width > len(h.buf) {
		return vmerrors.HeapOutOfBounds(addr)
	}
	return nil
}

func (h *Heap) Read8(addr int) (byte, error) {
	if err := h.checkBounds(addr, 1); err != nil {
		return 0, err
	}
	return h.buf[addr], nil
}

func (h *Heap) Read16(addr int) (uint16, error) {
	if err := h.checkBounds(addr, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(h.buf[addr:]), nil
}

func (h *Heap) Read32(addr int) (uint32, error) {
	if err := h.checkBounds(addr, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(h.buf[addr:]), nil
}

func (h *Heap) Read64(addr int) (uint64, error) {
	if err := h.checkBounds(addr, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(h.buf[addr:]), nil
}

func (h *Heap) Write8(addr int, v byte) error {
	if err := h.checkBounds(addr, 1); err != nil {
		return err
	}
	h.buf[addr] = v
	return nil
}

func (h *Heap) Write16(addr int, v uint16) error {
	if err := h.checkBounds(addr, 2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(h.buf[addr:], v)
	return nil
}

func (h *Heap) Write32(addr int, v uint32) error {
	if err := h.checkBounds(addr, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(h.buf[addr:], v)
	return nil
}

func (h *Heap) Write64(addr int, v uint64) error {
	if err := h.checkBounds(addr, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(h.buf[addr:], v)
	return nil
}

// ReadBytes/WriteBytes service the VEC_*/STR_* layout, which needs
// variable-width slices rather than fixed 8/16/32/64-bit words.
func (h *Heap) ReadBytes(addr, n int) ([]byte, error) {
	if err := h.checkBounds(addr, n); err != nil {
		return nil, err
	}
	return h.buf[addr : addr+n], nil
}

func (h *Heap) WriteBytes(addr int, data []byte) error {
	if err := h.checkBounds(addr, len(data)); err != nil {
		return err
	}
	copy(h.buf[addr:], data)
	return nil
}

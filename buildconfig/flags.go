package buildconfig

const domFlagShuffle = "flag-bits-v1"

// FlagBits assigns each of the four CPU flags a distinct bit position
// within VmState's single status byte. Which bit means "zero" and which
// means "carry" moves per build, so a disassembler can't assume bit 0 is
// always the zero flag.
type FlagBits struct {
	Zero     byte
	Carry    byte
	Overflow byte
	Sign     byte
}

func generateFlagBits(seed []byte) FlagBits {
	stream := newHMACStream(seed, domFlagShuffle)

	positions := [8]int{0, 1, 2, 3, 4, 5, 6, 7}
	for i := len(positions) - 1; i > 0; i-- {
		j := stream.uniformUint32(uint32(i + 1))
		positions[i], positions[j] = positions[j], positions[i]
	}

	return FlagBits{
		Zero:     1 << uint(positions[0]),
		Carry:    1 << uint(positions[1]),
		Overflow: 1 << uint(positions[2]),
		Sign:     1 << uint(positions[3]),
	}
}

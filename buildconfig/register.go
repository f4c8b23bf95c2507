package buildconfig

const domRegisterShuffle = "register-shuffle-v1"

// NumRegisters is the fixed physical register file size. The spec requires
// only R>=8; 32 gives the compiler headroom without widening the register
// index past a single byte operand.
const NumRegisters = 32

// RegisterMap is a permutation of 0..NumRegisters from logical register
// index (what a human-readable disassembly would show) to physical slot
// (what VmState actually indexes). The compiler emits physical indices
// directly, so at runtime this table only matters for tooling that wants
// to present a logical view.
type RegisterMap struct {
	Map [NumRegisters]byte
}

func generateRegisterMap(seed []byte) RegisterMap {
	stream := newHMACStream(seed, domRegisterShuffle)
	var m RegisterMap
	for i := range m.Map {
		m.Map[i] = byte(i)
	}
	for i := len(m.Map) - 1; i > 0; i-- {
		j := stream.uniformUint32(uint32(i + 1))
		m.Map[i], m.Map[j] = m.Map[j], m.Map[i]
	}
	return m
}

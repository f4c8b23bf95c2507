package buildconfig

import "github.com/polyvm/anticheat-vm/opcode"

// domOpcodeShuffle is the HMAC domain-separation string for the opcode
// table. It is the one domain string the retrieved build script names
// explicitly; the remaining domains below follow the same "<thing>-v1"
// convention the rest of the generator uses.
const domOpcodeShuffle = "opcode-shuffle-v1"

// reservedEncodings are the two base opcodes pinned to fixed encoded
// values across every build, so the last-ditch error paths always decode
// correctly even under a corrupted or unknown opcode table.
var reservedEncodings = map[opcode.Base]byte{
	opcode.Halt:    0xFF,
	opcode.HaltErr: 0xFE,
}

// OpcodeTable is the per-build encode/decode mapping plus the alias set
// used for handler duplication.
type OpcodeTable struct {
	Encode  map[opcode.Base]byte
	Decode  map[byte]opcode.Base
	Aliases map[opcode.Base][]byte
}

// generateOpcodeTable builds the shuffled table for one build seed.
//
// Algorithm: Fisher-Yates shuffle the pool of encodable bytes 0x00..0xFD
// (0xFE and 0xFF are reserved, see reservedEncodings) driven by an
// HMAC-SHA256 keystream, then walk the fixed base-opcode catalog in
// ascending order assigning one shuffled byte per base as its primary
// encoding. The six opcodes in opcode.Aliased each additionally claim two
// more shuffled bytes as aliases: those extra bytes decode back to the
// same base but are never the compiler's primary choice, so a byte
// histogram of emitted bytecode doesn't cleanly separate "the ADD opcode"
// from "some other opcode that happens to alias it".
func generateOpcodeTable(seed []byte) OpcodeTable {
	stream := newHMACStream(seed, domOpcodeShuffle)

	pool := make([]byte, 0, 254)
	for v := 0; v <= 0xFD; v++ {
		pool = append(pool, byte(v))
	}
	for i := len(pool) - 1; i > 0; i-- {
		j := stream.uniformUint32(uint32(i + 1))
		pool[i], pool[j] = pool[j], pool[i]
	}

	bases := opcode.All()
	isAliased := make(map[opcode.Base]bool, len(opcode.Aliased))
	for _, b := range opcode.Aliased {
		isAliased[b] = true
	}

	table := OpcodeTable{
		Encode:  make(map[opcode.Base]byte, len(bases)),
		Decode:  make(map[byte]opcode.Base, len(bases)+12),
		Aliases: make(map[opcode.Base][]byte, len(opcode.Aliased)),
	}
	for b, enc := range reservedEncodings {
		table.Encode[b] = enc
		table.Decode[enc] = b
	}

	cursor := 0
	for _, b := range bases {
		if _, reserved := reservedEncodings[b]; reserved {
			continue
		}
		enc := pool[cursor]
		cursor++
		table.Encode[b] = enc
		table.Decode[enc] = b
	}

	for _, b := range opcode.Aliased {
		aliases := make([]byte, 0, 2)
		for i := 0; i < 2; i++ {
			a := pool[cursor]
			cursor++
			aliases = append(aliases, a)
			table.Decode[a] = b
		}
		table.Aliases[b] = aliases
	}

	return table
}

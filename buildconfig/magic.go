package buildconfig

const domHeaderMagic = "header-magic-v1"
const domXorKey = "xor-key-v1"

// generateMagicBytes produces the 4-byte magic this build's container
// headers must start with.
func generateMagicBytes(seed []byte) [4]byte {
	stream := newHMACStream(seed, domHeaderMagic)
	var magic [4]byte
	for i := range magic {
		magic[i] = stream.nextByte()
	}
	return magic
}

// generateXorKey produces a single per-build obfuscation byte, stored as
// Config.XorKey; nothing in this module applies it to any data.
func generateXorKey(seed []byte) byte {
	stream := newHMACStream(seed, domXorKey)
	return stream.nextByte()
}

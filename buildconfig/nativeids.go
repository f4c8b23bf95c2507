package buildconfig

const domNativeIDShuffle = "native-id-shuffle-v1"

// NativeIDMap assigns the well-known native functions a shuffled slot in
// the 256-entry NativeRegistry, so "the debugger check" isn't always
// native id 3.
type NativeIDMap struct {
	CheckRoot      byte
	CheckEmulator  byte
	CheckHooks     byte
	CheckDebugger  byte
	CheckTamper    byte
	GetTimestamp   byte
	HashFnv1a      byte
	ReadMemory     byte
	GetDeviceHash  byte
}

func generateNativeIDs(seed []byte) NativeIDMap {
	stream := newHMACStream(seed, domNativeIDShuffle)

	pool := make([]byte, 256)
	for i := range pool {
		pool[i] = byte(i)
	}
	for i := len(pool) - 1; i > 0; i-- {
		j := stream.uniformUint32(uint32(i + 1))
		pool[i], pool[j] = pool[j], pool[i]
	}

	return NativeIDMap{
		CheckRoot:     pool[0],
		CheckEmulator: pool[1],
		CheckHooks:    pool[2],
		CheckDebugger: pool[3],
		CheckTamper:   pool[4],
		GetTimestamp:  pool[5],
		HashFnv1a:     pool[6],
		ReadMemory:    pool[7],
		GetDeviceHash: pool[8],
	}
}

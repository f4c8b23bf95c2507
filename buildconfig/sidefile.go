package buildconfig

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"os"
)

// entropyPoolSize mirrors the original build script's 1 KiB junk pool that
// the real seed is steganographically embedded in, so it never sits as a
// contiguous 32-byte block in a side file on disk.
const entropyPoolSize = 1024

// SideFile is the persisted form of a build seed: a 1 KiB entropy pool, a
// 32-byte delta array, and the (start, step) access pattern such that
// seed[i] = pool[(start + i*step) % len(pool)] ^ delta[i]. This is the
// contract between the build-time seed generator and whatever
// out-of-process compiler needs to reconstruct the same seed.
type SideFile struct {
	Pool  [entropyPoolSize]byte `json:"pool"`
	Delta [32]byte              `json:"delta"`
	Start int                   `json:"start"`
	Step  int                   `json:"step"`
}

// NewSideFile encodes seed into a fresh randomized pool/delta/access
// pattern. Every call produces a different on-disk encoding of the same
// seed.
func NewSideFile(seed [32]byte) (SideFile, error) {
	var sf SideFile
	if _, err := rand.Read(sf.Pool[:]); err != nil {
		return sf, err
	}

	var rnd [16]byte
	if _, err := rand.Read(rnd[:]); err != nil {
		return sf, err
	}
	sf.Start = int(binary.LittleEndian.Uint64(rnd[0:8]) % (entropyPoolSize - 224))
	sf.Step = int(binary.LittleEndian.Uint64(rnd[8:16])%20) + 1

	for i := 0; i < 32; i++ {
		idx := (sf.Start + i*sf.Step) % entropyPoolSize
		sf.Delta[i] = seed[i] ^ sf.Pool[idx]
	}
	return sf, nil
}

// Reconstruct recovers the 32-byte seed from the pool/delta/access pattern.
func (sf SideFile) Reconstruct() [32]byte {
	var seed [32]byte
	for i := 0; i < 32; i++ {
		idx := (sf.Start + i*sf.Step) % entropyPoolSize
		seed[i] = sf.Pool[idx] ^ sf.Delta[i]
	}
	return seed
}

// WriteSideFile persists sf as JSON, the analogue of the original build
// script writing BUILD_SEED reconstruction constants into generated Rust
// source: here the artifact is data a compiler process reads, not code.
func WriteSideFile(path string, sf SideFile) error {
	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ReadSideFile loads a previously written side file.
func ReadSideFile(path string) (SideFile, error) {
	var sf SideFile
	data, err := os.ReadFile(path)
	if err != nil {
		return sf, err
	}
	if err := json.Unmarshal(data, &sf); err != nil {
		return sf, err
	}
	return sf, nil
}

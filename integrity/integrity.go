// Package integrity builds and verifies the region hash table embedded
// alongside a bytecode container: a fast whole-buffer check first, falling
// back to a per-region scan only when that fails, so the common case (an
// unmodified build) never pays for per-region hashing.
package integrity

import (
	"fmt"

	"github.com/polyvm/anticheat-vm/buildconfig"
	"github.com/polyvm/anticheat-vm/vmerrors"
)

// DefaultRegionSize is the fixed slice width the plaintext is partitioned
// into at build time.
const DefaultRegionSize = 64

// MaxRegions bounds how large a single bytecode buffer's table may be.
const MaxRegions = 256

// RegionInfo is one partition's precomputed fingerprint.
type RegionInfo struct {
	Offset int
	Length int
	Hash   uint64
}

// Table is the full set of region fingerprints for one bytecode buffer,
// plus a whole-buffer hash used as the fast path.
type Table struct {
	fnv     buildconfig.FnvConstants
	Full    uint64
	Regions []RegionInfo
}

// Build partitions code into DefaultRegionSize-byte regions and hashes
// each with this build's FNV constants.
func Build(code []byte, fnv buildconfig.FnvConstants) (*Table, error) {
	numRegions := (len(code) + DefaultRegionSize - 1) / DefaultRegionSize
	if numRegions > MaxRegions {
		return nil, vmerrors.InvalidBytecode("bytecode exceeds maximum integrity region count")
	}

	t := &Table{fnv: fnv, Full: fnv.Fnv1a64(code)}
	for i := 0; i < numRegions; i++ {
		start := i * DefaultRegionSize
		end := start + DefaultRegionSize
		if end > len(code) {
			end = len(code)
		}
		t.Regions = append(t.Regions, RegionInfo{
			Offset: start,
			Length: end - start,
			Hash:   fnv.Fnv1a64(code[start:end]),
		})
	}
	return t, nil
}

// Verify recomputes the whole-buffer hash first; on mismatch it falls back
// to scanning regions to identify the smallest tampered region, whose
// index is carried in the error's Detail for internal diagnostics but
// never surfaced verbatim to an untrusted caller -- only the
// IntegrityFailed kind (Error.Code) crosses that boundary.
func (t *Table) Verify(code []byte) error {
	if t.fnv.Fnv1a64(code) == t.Full {
		return nil
	}
	for i, r := range t.Regions {
		end := r.Offset + r.Length
		if end > len(code) {
			return vmerrors.IntegrityFailed("region table out of range for this buffer")
		}
		if t.fnv.Fnv1a64(code[r.Offset:end]) != r.Hash {
			return vmerrors.IntegrityFailed(fmt.Sprintf("region %d mismatch", i))
		}
	}
	// Whole-buffer hash disagreed but every region matched: the region
	// partitioning itself (count, length) no longer matches the buffer.
	return vmerrors.IntegrityFailed("whole-buffer hash mismatch with no offending region")
}

// VerifyQuick only checks the whole-buffer hash, skipping the per-region
// fallback scan -- used by callers (HASH_CHECK's 32-bit in-band cousin is
// separate) that want a cheap yes/no without a region index.
func (t *Table) VerifyQuick(code []byte) bool {
	return t.fnv.Fnv1a64(code) == t.Full
}

package buildconfig

import "encoding/binary"

const domWatermark = "watermark-v1"

// Watermark derives the 128-bit steganographic customer watermark the
// distilled spec names but never says where it's checked: it identifies
// which customer a leaked build belongs to. It is never enforced in-VM --
// consistent with the non-goal of no persistent database -- callers match
// it out of band against their own customer ledger.
func Watermark(customerID string, seed []byte, timestamp uint64) [16]byte {
	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], timestamp)

	msg := make([]byte, 0, len(customerID)+8+len(domWatermark))
	msg = append(msg, customerID...)
	msg = append(msg, ts[:]...)
	msg = append(msg, domWatermark...)

	sum := hmacSHA256(seed, msg)
	var out [16]byte
	copy(out[:], sum[:16])
	return out
}

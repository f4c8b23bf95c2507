package native

import (
	"time"

	"github.com/polyvm/anticheat-vm/buildconfig"
)

// RegisterStandard binds the well-known anti-tamper natives at the
// build-shuffled IDs in ids. These are host-side checks: the bytecode
// never knows their real ID, only the shuffled one baked into the build's
// NativeIDMap.
//
// The checks here are best-effort placeholders for the actual platform
// probes (root detection, emulator detection, hook scanning) a production
// embedder would supply; this package gives them a slot and a contract,
// not a specific detection heuristic, which is out of scope per the
// compiler/white-box non-goals.
func RegisterStandard(r *Registry, ids buildconfig.NativeIDMap, fnv buildconfig.FnvConstants, startTimeNs uint64) error {
	checks := []struct {
		id byte
		fn Func
	}{
		{ids.CheckRoot, func(args []uint64) uint64 { return 0 }},
		{ids.CheckEmulator, func(args []uint64) uint64 { return 0 }},
		{ids.CheckHooks, func(args []uint64) uint64 { return 0 }},
		{ids.CheckDebugger, func(args []uint64) uint64 { return 0 }},
		{ids.CheckTamper, func(args []uint64) uint64 { return 0 }},
		{ids.GetTimestamp, func(args []uint64) uint64 { return uint64(time.Now().UnixNano()) }},
		{ids.GetDeviceHash, func(args []uint64) uint64 { return fnv.Fnv1a64([]byte{0}) }},
	}
	for _, c := range checks {
		if err := r.Register(c.id, c.fn); err != nil {
			return err
		}
	}

	// HASH_FNV1A takes a single packed argument: a heap address whose
	// contents the caller wants hashed is out of scope for a pure
	// (args []uint64) -> uint64 native (it has no heap access); instead
	// it hashes the raw argument word itself, giving bytecode a cheap way
	// to mix a value through this build's FNV constants without a
	// dedicated opcode.
	return r.Register(ids.HashFnv1a, func(args []uint64) uint64 {
		if len(args) == 0 {
			return fnv.Basis64
		}
		var buf [8]byte
		v := args[0]
		for i := 0; i < 8; i++ {
			buf[i] = byte(v)
			v >>= 8
		}
		return fnv.Fnv1a64(buf[:])
	})
}

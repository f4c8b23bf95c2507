package buildconfig

import (
	"testing"

	"github.com/polyvm/anticheat-vm/opcode"
)

func genTestConfig(t *testing.T, buildKey string) *Config {
	t.Helper()
	cfg, err := Generate(Options{BuildKey: buildKey, CustomerID: "acme", ProtectionLevel: ProtectionHigh, Timestamp: 1700000000})
	if err != nil {
		t.Fatalf("Generate(%q) returned error: %v", buildKey, err)
	}
	return cfg
}

func TestGenerateIsReproducibleForSameKey(t *testing.T) {
	a := genTestConfig(t, "customer-a-key")
	b := genTestConfig(t, "customer-a-key")

	if a.Seed != b.Seed {
		t.Fatal("same build key produced different seeds")
	}
	if a.BuildID != b.BuildID {
		t.Fatal("same seed produced different build IDs")
	}
	if a.Magic != b.Magic {
		t.Fatal("same seed produced different header magic")
	}
	for _, base := range opcode.All() {
		if a.Opcodes.Encode[base] != b.Opcodes.Encode[base] {
			t.Fatalf("opcode table diverged for base 0x%02x", byte(base))
		}
	}
}

func TestGenerateDiffersAcrossKeys(t *testing.T) {
	a := genTestConfig(t, "key-one")
	b := genTestConfig(t, "key-two")
	if a.Seed == b.Seed {
		t.Fatal("different build keys produced the same seed")
	}
}

func TestWeakSeedRejected(t *testing.T) {
	// An all-zero seed can only arise if resolveSeed is fed a build key
	// whose HMAC happens to be all zero, which never happens in practice;
	// exercise the guard directly instead.
	var zero [32]byte
	if _, err := resolveSeedFromRaw(zero); err != ErrWeakSeed {
		t.Fatalf("expected ErrWeakSeed for all-zero seed, got %v", err)
	}
}

// resolveSeedFromRaw lets the test exercise the all-zero guard that
// resolveSeed applies without depending on finding an HMAC preimage.
func resolveSeedFromRaw(seed [32]byte) ([32]byte, error) {
	return seed, checkSeedStrength(seed)
}

func TestOpcodeTableBijectionAndAliases(t *testing.T) {
	cfg := genTestConfig(t, "bijection-seed")

	seenEncodings := make(map[byte]bool)
	for _, base := range opcode.All() {
		enc, ok := cfg.Opcodes.Encode[base]
		if !ok {
			t.Fatalf("base 0x%02x has no encoding", byte(base))
		}
		if decoded, ok := cfg.Opcodes.Decode[enc]; !ok || decoded != base {
			t.Fatalf("decode[encode[0x%02x]] = %v, %v, want 0x%02x, true", byte(base), decoded, ok, byte(base))
		}
		if seenEncodings[enc] {
			t.Fatalf("primary encoding 0x%02x reused across bases", enc)
		}
		seenEncodings[enc] = true

		for _, alias := range cfg.Opcodes.Aliases[base] {
			if decoded, ok := cfg.Opcodes.Decode[alias]; !ok || decoded != base {
				t.Fatalf("alias 0x%02x of base 0x%02x decodes to %v, %v", alias, byte(base), decoded, ok)
			}
		}
	}
}

func TestHaltEncodingsFixedAcrossSeeds(t *testing.T) {
	a := genTestConfig(t, "seed-one")
	b := genTestConfig(t, "seed-two")
	if a.Opcodes.Encode[opcode.Halt] != 0xFF || b.Opcodes.Encode[opcode.Halt] != 0xFF {
		t.Fatal("HALT must always encode to 0xFF")
	}
	if a.Opcodes.Encode[opcode.HaltErr] != 0xFE || b.Opcodes.Encode[opcode.HaltErr] != 0xFE {
		t.Fatal("HALT_ERR must always encode to 0xFE")
	}
}

func TestRegisterMapIsPermutation(t *testing.T) {
	cfg := genTestConfig(t, "register-seed")
	seen := make(map[byte]bool, NumRegisters)
	for _, p := range cfg.Registers.Map {
		if seen[p] {
			t.Fatalf("register map is not a permutation: slot %d repeated", p)
		}
		seen[p] = true
	}
	if len(seen) != NumRegisters {
		t.Fatalf("register map covers %d slots, want %d", len(seen), NumRegisters)
	}
}

func TestFlagBitsAreDistinct(t *testing.T) {
	cfg := genTestConfig(t, "flag-seed")
	bits := []byte{cfg.FlagBits.Zero, cfg.FlagBits.Carry, cfg.FlagBits.Overflow, cfg.FlagBits.Sign}
	for i := range bits {
		for j := i + 1; j < len(bits); j++ {
			if bits[i] == bits[j] {
				t.Fatalf("flag bits %d and %d collide at 0x%02x", i, j, bits[i])
			}
		}
	}
}

func TestFnvConstantsAreOdd(t *testing.T) {
	cfg := genTestConfig(t, "fnv-seed")
	if cfg.FNV.Prime64%2 == 0 {
		t.Fatal("Prime64 must be odd")
	}
	if cfg.FNV.Prime32%2 == 0 {
		t.Fatal("Prime32 must be odd")
	}
}

func TestNativeIDsAreDistinct(t *testing.T) {
	cfg := genTestConfig(t, "native-seed")
	ids := []byte{
		cfg.NativeIDs.CheckRoot, cfg.NativeIDs.CheckEmulator, cfg.NativeIDs.CheckHooks,
		cfg.NativeIDs.CheckDebugger, cfg.NativeIDs.CheckTamper, cfg.NativeIDs.GetTimestamp,
		cfg.NativeIDs.HashFnv1a, cfg.NativeIDs.ReadMemory, cfg.NativeIDs.GetDeviceHash,
	}
	seen := make(map[byte]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("native ID %d assigned to more than one role", id)
		}
		seen[id] = true
	}
}

func TestProtectionLevelFlagTable(t *testing.T) {
	tests := []struct {
		level ProtectionLevel
		want  Flags
	}{
		{ProtectionDebug, 0},
		{ProtectionLow, FlagEncrypted},
		{ProtectionMedium, FlagEncrypted | FlagHasIntegrity},
		{ProtectionHigh, FlagEncrypted | FlagHasIntegrity | FlagHasTimingChecks},
		{ProtectionParanoid, FlagEncrypted | FlagHasIntegrity | FlagHasTimingChecks | FlagParanoid},
	}
	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			if got := FlagsFor(tt.level); got != tt.want {
				t.Errorf("FlagsFor(%s) = %04x, want %04x", tt.level, got, tt.want)
			}
		})
	}
}

func TestParanoidRequiresSMC(t *testing.T) {
	if !FlagsFor(ProtectionParanoid).RequiresSMC() {
		t.Fatal("paranoid flag set must require SMC")
	}
	if FlagsFor(ProtectionHigh).RequiresSMC() {
		t.Fatal("high flag set must not require SMC")
	}
}

func TestYieldMaskIsPowerOfTwoMinusOne(t *testing.T) {
	cfg := genTestConfig(t, "yield-seed")
	mask := cfg.YieldMask
	if mask&(mask+1) != 0 {
		t.Fatalf("yield mask 0x%x is not of the form 2^k-1", mask)
	}
	if mask < 3 || mask > 511 {
		t.Fatalf("yield mask %d out of expected [3,511] range", mask)
	}
}

func TestWatermarkNonZeroWhenCustomerSet(t *testing.T) {
	withCustomer, err := Generate(Options{BuildKey: "k", CustomerID: "acme", Timestamp: 1})
	if err != nil {
		t.Fatal(err)
	}
	var zero [16]byte
	if withCustomer.Watermark == zero {
		t.Fatal("expected a non-zero watermark when CustomerID is set")
	}
}

func TestSideFileRoundTrip(t *testing.T) {
	cfg := genTestConfig(t, "sidefile-seed")
	sf, err := NewSideFile(cfg.Seed)
	if err != nil {
		t.Fatalf("NewSideFile: %v", err)
	}
	if got := sf.Reconstruct(); got != cfg.Seed {
		t.Fatalf("Reconstruct() = %x, want %x", got, cfg.Seed)
	}
}

func TestFnv1aIsDeterministicPerConfig(t *testing.T) {
	cfg := genTestConfig(t, "hash-seed")
	data := []byte("integrity region payload")
	if cfg.FNV.Fnv1a32(data) != cfg.FNV.Fnv1a32(data) {
		t.Fatal("Fnv1a32 must be deterministic")
	}
	if cfg.FNV.Fnv1a64(data) == 0 {
		t.Fatal("Fnv1a64 should not degenerate to zero for non-empty input")
	}
}

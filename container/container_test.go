package container

import (
	"testing"

	"github.com/polyvm/anticheat-vm/buildconfig"
)

func testConfig(t *testing.T, protection buildconfig.ProtectionLevel) *buildconfig.Config {
	t.Helper()
	cfg, err := buildconfig.Generate(buildconfig.Options{
		BuildKey:        "container-test-key",
		CustomerID:      "",
		ProtectionLevel: protection,
		Timestamp:       1700000000,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return cfg
}

func TestEmitParseRoundTrip(t *testing.T) {
	cfg := testConfig(t, buildconfig.ProtectionHigh)
	plaintext := []byte("PUSH_IMM8 1 PUSH_IMM8 2 ADD HALT")

	blob, err := Emit(cfg, plaintext)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	c, err := Parse(blob, cfg)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if string(c.Plaintext) != string(plaintext) {
		t.Fatalf("round trip mismatch: got %q, want %q", c.Plaintext, plaintext)
	}
	if c.HasWatermark {
		t.Fatal("expected no watermark when CustomerID is empty")
	}
}

func TestEmitParseWithWatermark(t *testing.T) {
	cfg, err := buildconfig.Generate(buildconfig.Options{
		BuildKey:        "watermarked-key",
		CustomerID:      "acme-corp",
		ProtectionLevel: buildconfig.ProtectionMedium,
		Timestamp:       1700000001,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	blob, err := Emit(cfg, []byte("HALT"))
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	c, err := Parse(blob, cfg)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !c.HasWatermark {
		t.Fatal("expected a watermark trailer when CustomerID is set")
	}
	if c.Watermark != cfg.Watermark {
		t.Fatalf("watermark mismatch: got %x, want %x", c.Watermark, cfg.Watermark)
	}
}

func TestParseRejectsBadMagic(t *testing.T) {
	cfg := testConfig(t, buildconfig.ProtectionHigh)
	blob, err := Emit(cfg, []byte("HALT"))
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	blob[0] ^= 0xFF
	if _, err := Parse(blob, cfg); err == nil {
		t.Fatal("expected Parse to reject a corrupted magic")
	}
}

func TestParseRejectsShortInput(t *testing.T) {
	cfg := testConfig(t, buildconfig.ProtectionHigh)
	if _, err := Parse(make([]byte, HeaderSize-1), cfg); err == nil {
		t.Fatal("expected Parse to reject input shorter than the header")
	}
}

func TestParseRejectsTamperedCiphertext(t *testing.T) {
	cfg := testConfig(t, buildconfig.ProtectionHigh)
	blob, err := Emit(cfg, []byte("PUSH_IMM8 9 HALT"))
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	blob[HeaderSize] ^= 0x01
	if _, err := Parse(blob, cfg); err == nil {
		t.Fatal("expected Parse to reject tampered ciphertext via AEAD failure")
	}
}

func TestParseRejectsWrongBuildConfig(t *testing.T) {
	cfgA := testConfig(t, buildconfig.ProtectionHigh)
	cfgB, err := buildconfig.Generate(buildconfig.Options{BuildKey: "a-totally-different-key", ProtectionLevel: buildconfig.ProtectionHigh, Timestamp: 1700000000})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	blob, err := Emit(cfgA, []byte("HALT"))
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if _, err := Parse(blob, cfgB); err == nil {
		t.Fatal("expected Parse under a mismatched build config to fail")
	}
}

func TestParseRejectsEmptyCodeLen(t *testing.T) {
	cfg := testConfig(t, buildconfig.ProtectionHigh)
	blob, err := Emit(cfg, []byte("HALT"))
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	// Zero out the code_len field (last 4 bytes of the header).
	for i := HeaderSize - 4; i < HeaderSize; i++ {
		blob[i] = 0
	}
	if _, err := Parse(blob, cfg); err == nil {
		t.Fatal("expected Parse to reject a zero code_len")
	}
}

func TestParseAcceptsFreshIntegrityFooter(t *testing.T) {
	cfg := testConfig(t, buildconfig.ProtectionMedium)
	if !cfg.Flags.HasIntegrity() {
		t.Fatal("medium protection is expected to carry the integrity flag")
	}
	blob, err := Emit(cfg, []byte("PUSH_IMM8 5 HALT"))
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	// AEAD authenticates the whole plaintext body (code + footer), so a
	// footer-only corruption inside the ciphertext still has to pass
	// through a real decrypt; flipping post-decryption isn't reachable
	// from outside, so instead verify the success path carries the flag
	// and trust TestEmitParseRoundTrip for the matching case.
	if _, err := Parse(blob, cfg); err != nil {
		t.Fatalf("expected a freshly emitted integrity-bearing container to parse: %v", err)
	}
}

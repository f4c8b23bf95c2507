package integrity

import (
	"bytes"
	"testing"

	"github.com/polyvm/anticheat-vm/buildconfig"
)

func testFnv() buildconfig.FnvConstants {
	return buildconfig.FnvConstants{
		Basis64: 14695981039346656037,
		Prime64: 1099511628211,
		Basis32: 2166136261,
		Prime32: 16777619,
	}
}

func TestVerifyUnmodified(t *testing.T) {
	code := bytes.Repeat([]byte{0x01, 0x02, 0x03}, 50)
	table, err := Build(code, testFnv())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := table.Verify(code); err != nil {
		t.Fatalf("Verify on unmodified code: %v", err)
	}
	if !table.VerifyQuick(code) {
		t.Fatal("VerifyQuick on unmodified code should pass")
	}
}

func TestVerifyDetectsTamper(t *testing.T) {
	code := bytes.Repeat([]byte{0xAA}, 200)
	table, err := Build(code, testFnv())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	tampered := append([]byte(nil), code...)
	tampered[150] ^= 0xFF

	if err := table.Verify(tampered); err == nil {
		t.Fatal("expected Verify to fail on tampered buffer")
	}
	if table.VerifyQuick(tampered) {
		t.Fatal("expected VerifyQuick to fail on tampered buffer")
	}
}

func TestBuildRejectsOversizedBuffer(t *testing.T) {
	code := make([]byte, (MaxRegions+1)*DefaultRegionSize)
	if _, err := Build(code, testFnv()); err == nil {
		t.Fatal("expected Build to reject a buffer exceeding MaxRegions")
	}
}

func TestRegionCountMatchesBufferSize(t *testing.T) {
	code := make([]byte, DefaultRegionSize*3+10)
	table, err := Build(code, testFnv())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if want := 4; len(table.Regions) != want {
		t.Fatalf("len(Regions) = %d, want %d", len(table.Regions), want)
	}
	last := table.Regions[len(table.Regions)-1]
	if last.Length != 10 {
		t.Fatalf("last region length = %d, want 10", last.Length)
	}
}

package opcode

import "testing"

func TestAllCoversTable(t *testing.T) {
	all := All()
	if len(all) != len(table) {
		t.Fatalf("All() returned %d entries, want %d", len(all), len(table))
	}
	seen := make(map[Base]bool, len(all))
	for _, b := range all {
		if seen[b] {
			t.Fatalf("All() returned duplicate base 0x%02x", byte(b))
		}
		seen[b] = true
	}
}

func TestAllIsSorted(t *testing.T) {
	all := All()
	for i := 1; i < len(all); i++ {
		if all[i-1] > all[i] {
			t.Fatalf("All() not ascending at index %d: 0x%02x > 0x%02x", i, byte(all[i-1]), byte(all[i]))
		}
	}
}

func TestLookupKnownAndUnknown(t *testing.T) {
	info, ok := Lookup(Add)
	if !ok || info.Name != "ADD" {
		t.Fatalf("Lookup(Add) = %+v, %v", info, ok)
	}
	if _, ok := Lookup(Base(0x00)); ok {
		t.Fatalf("Lookup(0x00) unexpectedly found, 0x00 is not allocated to any base")
	}
}

func TestInstructionLength(t *testing.T) {
	tests := []struct {
		name string
		b    Base
		want int
	}{
		{"HALT no operand", Halt, 1},
		{"HALT_ERR 1-byte operand", HaltErr, 2},
		{"JMP 2-byte operand", Jmp, 3},
		{"NATIVE_CALL 2-byte operand", NativeCall, 3},
		{"HASH_CHECK 4-byte operand", HashCheck, 5},
		{"PUSH_IMM8 1-byte operand", PushImm8, 2},
		{"ADD no operand", Add, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InstructionLength(tt.b); got != tt.want {
				t.Errorf("InstructionLength(%s) = %d, want %d", tt.name, got, tt.want)
			}
		})
	}
}

func TestInstructionLengthUnknownBaseDefaultsToOne(t *testing.T) {
	if got := InstructionLength(Base(0x00)); got != 1 {
		t.Errorf("InstructionLength(unallocated) = %d, want 1", got)
	}
}

func TestHaltEncodingsAreFixedAcrossBuilds(t *testing.T) {
	// HALT and HALT_ERR are documented as keeping their encoded value fixed
	// regardless of build seed; this is enforced in buildconfig, but the
	// base catalog itself must at least contain both.
	if _, ok := Lookup(Halt); !ok {
		t.Fatal("HALT missing from catalog")
	}
	if _, ok := Lookup(HaltErr); !ok {
		t.Fatal("HALT_ERR missing from catalog")
	}
}

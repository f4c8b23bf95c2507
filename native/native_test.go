package native

import (
	"errors"
	"testing"

	"github.com/polyvm/anticheat-vm/buildconfig"
	"github.com/polyvm/anticheat-vm/vmerrors"
)

func TestRegisterAndCall(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(3, func(args []uint64) uint64 { return args[0] + 1 }); err != nil {
		t.Fatalf("Register: %v", err)
	}
	got, err := r.Call(3, []uint64{41})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != 42 {
		t.Fatalf("Call returned %d, want 42", got)
	}
}

func TestRegisterRejectsDuplicateID(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(5, func(args []uint64) uint64 { return 0 }); err != nil {
		t.Fatalf("Register: %v", err)
	}
	err := r.Register(5, func(args []uint64) uint64 { return 1 })
	if !errors.Is(err, vmerrors.NativeFunctionAlreadyRegistered(5)) {
		t.Fatalf("expected NativeFunctionAlreadyRegistered, got %v", err)
	}
}

func TestRegisterReplaceOverridesUnconditionally(t *testing.T) {
	r := NewRegistry()
	r.RegisterReplace(5, func(args []uint64) uint64 { return 1 })
	r.RegisterReplace(5, func(args []uint64) uint64 { return 2 })
	got, err := r.Call(5, nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != 2 {
		t.Fatalf("Call = %d, want 2 (last write wins)", got)
	}
}

func TestCallUnknownIDFails(t *testing.T) {
	r := NewRegistry()
	_, err := r.Call(9, nil)
	if !errors.Is(err, vmerrors.NativeFunctionNotFound(9)) {
		t.Fatalf("expected NativeFunctionNotFound, got %v", err)
	}
}

func TestUnregisterAndClear(t *testing.T) {
	r := NewRegistry()
	r.RegisterReplace(1, func(args []uint64) uint64 { return 0 })
	r.RegisterReplace(2, func(args []uint64) uint64 { return 0 })
	r.Unregister(1)
	if r.IsRegistered(1) {
		t.Fatal("expected slot 1 to be cleared")
	}
	if r.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", r.Count())
	}
	r.Clear()
	if r.Count() != 0 {
		t.Fatalf("Count() after Clear = %d, want 0", r.Count())
	}
}

func TestRegisterStandardBindsExpectedRoles(t *testing.T) {
	cfg, err := buildconfig.Generate(buildconfig.Options{BuildKey: "native-test-key", ProtectionLevel: buildconfig.ProtectionHigh, Timestamp: 1700000000})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	r := NewRegistry()
	if err := RegisterStandard(r, cfg.NativeIDs, cfg.FNV, cfg.Timestamp); err != nil {
		t.Fatalf("RegisterStandard: %v", err)
	}

	registered := []byte{
		cfg.NativeIDs.CheckRoot, cfg.NativeIDs.CheckEmulator, cfg.NativeIDs.CheckHooks,
		cfg.NativeIDs.CheckDebugger, cfg.NativeIDs.CheckTamper, cfg.NativeIDs.GetTimestamp,
		cfg.NativeIDs.HashFnv1a, cfg.NativeIDs.GetDeviceHash,
	}
	for _, id := range registered {
		if !r.IsRegistered(id) {
			t.Errorf("expected native ID %d to be registered", id)
		}
	}

	// ReadMemory is deliberately left unbound: it has no counterpart in a
	// pure (args []uint64) -> uint64 native without heap access threaded
	// through, so RegisterStandard never claims its slot.
	if r.IsRegistered(cfg.NativeIDs.ReadMemory) {
		t.Error("expected ReadMemory's native ID to be left unregistered by RegisterStandard")
	}

	if r.Count() != len(registered) {
		t.Fatalf("Count() = %d, want %d", r.Count(), len(registered))
	}
}

func TestHashFnv1aNativeMixesArgument(t *testing.T) {
	cfg, err := buildconfig.Generate(buildconfig.Options{BuildKey: "hash-native-key", ProtectionLevel: buildconfig.ProtectionHigh, Timestamp: 1})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	r := NewRegistry()
	if err := RegisterStandard(r, cfg.NativeIDs, cfg.FNV, cfg.Timestamp); err != nil {
		t.Fatalf("RegisterStandard: %v", err)
	}

	a, err := r.Call(cfg.NativeIDs.HashFnv1a, []uint64{7})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	b, err := r.Call(cfg.NativeIDs.HashFnv1a, []uint64{8})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if a == b {
		t.Fatal("expected different arguments to hash to different values")
	}

	noArgs, err := r.Call(cfg.NativeIDs.HashFnv1a, nil)
	if err != nil {
		t.Fatalf("Call with no args: %v", err)
	}
	if noArgs != cfg.FNV.Basis64 {
		t.Fatalf("Call with no args = %d, want basis %d", noArgs, cfg.FNV.Basis64)
	}
}

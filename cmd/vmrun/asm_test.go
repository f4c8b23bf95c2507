package main

import (
	"testing"

	"github.com/polyvm/anticheat-vm/buildconfig"
	"github.com/polyvm/anticheat-vm/opcode"
	"github.com/polyvm/anticheat-vm/vm"
)

func testCfg(t *testing.T, key string) *buildconfig.Config {
	t.Helper()
	cfg, err := buildconfig.Generate(buildconfig.Options{BuildKey: key, ProtectionLevel: buildconfig.ProtectionHigh, Timestamp: 1700000000})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return cfg
}

func TestAssembleSimpleProgram(t *testing.T) {
	cfg := testCfg(t, "asm-simple")
	src := "PUSH_IMM8 40\nPUSH_IMM8 2\nADD\nHALT\n"

	code, err := assemble(src, &cfg.Opcodes, nil)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	state := vm.NewState(code, nil, cfg.FlagBits, cfg.FNV, vm.DefaultConfig())
	if err := vm.Run(state, &cfg.Opcodes, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state.Result != 42 {
		t.Fatalf("Result = %d, want 42", state.Result)
	}
}

func TestAssembleLabelsAndJumps(t *testing.T) {
	cfg := testCfg(t, "asm-jumps")
	src := `
PUSH_IMM8 1
JNZ taken
PUSH_IMM8 99
HALT
taken:
PUSH_IMM8 7
HALT
`
	code, err := assemble(src, &cfg.Opcodes, nil)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	state := vm.NewState(code, nil, cfg.FlagBits, cfg.FNV, vm.DefaultConfig())
	if err := vm.Run(state, &cfg.Opcodes, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state.Result != 7 {
		t.Fatalf("Result = %d, want 7 (jump should have been taken)", state.Result)
	}
}

func TestAssembleUnknownMnemonicFails(t *testing.T) {
	cfg := testCfg(t, "asm-unknown")
	if _, err := assemble("FROBNICATE\n", &cfg.Opcodes, nil); err == nil {
		t.Fatal("expected an unknown mnemonic to fail assembly")
	}
}

func TestAssembleUnboundLabelFails(t *testing.T) {
	cfg := testCfg(t, "asm-unbound")
	if _, err := assemble("JMP nowhere\nHALT\n", &cfg.Opcodes, nil); err == nil {
		t.Fatal("expected a referenced-but-never-bound label to fail assembly")
	}
}

func TestAssembleRejectsUnpackableOperandWidth(t *testing.T) {
	cfg := testCfg(t, "asm-mov-imm")
	info, ok := opcode.Lookup(opcode.MovImm)
	if !ok || info.OperandBytes == 1 || info.OperandBytes == 2 || info.OperandBytes == 4 || info.OperandBytes == 8 {
		t.Skip("MOV_IMM's operand shape changed; this assembler's single-literal limitation no longer applies")
	}
	if _, err := assemble("MOV_IMM 5\n", &cfg.Opcodes, nil); err == nil {
		t.Fatal("expected MOV_IMM's combined register+immediate operand to be rejected, not silently mis-encoded")
	}
}

func TestAssembleCommentsAndBlankLinesIgnored(t *testing.T) {
	cfg := testCfg(t, "asm-comments")
	src := "# a comment\n\nHALT\n"
	code, err := assemble(src, &cfg.Opcodes, nil)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(code) != 1 {
		t.Fatalf("len(code) = %d, want 1 (just HALT)", len(code))
	}
}

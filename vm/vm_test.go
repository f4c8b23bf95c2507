package vm

import (
	"testing"

	"github.com/polyvm/anticheat-vm/buildconfig"
	"github.com/polyvm/anticheat-vm/native"
	"github.com/polyvm/anticheat-vm/opcode"
)

// testBuilder is a minimal raw-byte assembler over a fixed opcode table,
// used only to hand-construct small programs for these tests; it is not a
// stand-in for a real compiler front end.
type testBuilder struct {
	table *buildconfig.OpcodeTable
	buf   []byte
}

func newTestBuilder(table *buildconfig.OpcodeTable) *testBuilder {
	return &testBuilder{table: table}
}

func (b *testBuilder) op(base opcode.Base) *testBuilder {
	b.buf = append(b.buf, b.table.Encode[base])
	return b
}

func (b *testBuilder) u8(v byte) *testBuilder {
	b.buf = append(b.buf, v)
	return b
}

func (b *testBuilder) u16(v uint16) *testBuilder {
	b.buf = append(b.buf, byte(v), byte(v>>8))
	return b
}

func (b *testBuilder) i16(v int16) *testBuilder {
	return b.u16(uint16(v))
}

func (b *testBuilder) u32(v uint32) *testBuilder {
	b.buf = append(b.buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
	return b
}

func (b *testBuilder) bytes() []byte { return b.buf }

func testCfg(t *testing.T, key string) *buildconfig.Config {
	t.Helper()
	cfg, err := buildconfig.Generate(buildconfig.Options{BuildKey: key, ProtectionLevel: buildconfig.ProtectionDebug, Timestamp: 1700000000})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return cfg
}

func runProgram(t *testing.T, cfg *buildconfig.Config, code, input []byte, vmCfg Config) *State {
	t.Helper()
	state := NewState(code, input, cfg.FlagBits, cfg.FNV, vmCfg)
	if err := Run(state, &cfg.Opcodes, native.NewRegistry()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return state
}

func TestAddAndHalt(t *testing.T) {
	cfg := testCfg(t, "s1-add-halt")
	code := newTestBuilder(&cfg.Opcodes).
		op(opcode.PushImm8).u8(40).
		op(opcode.PushImm8).u8(2).
		op(opcode.Add).
		op(opcode.Halt).
		bytes()

	state := runProgram(t, cfg, code, nil, DefaultConfig())
	if state.Result != 42 {
		t.Fatalf("Result = %d, want 42", state.Result)
	}
}

func TestCmpAndConditionalJump(t *testing.T) {
	cfg := testCfg(t, "s2-cmp-jump")
	b := newTestBuilder(&cfg.Opcodes)
	b.op(opcode.PushImm8).u8(5)
	b.op(opcode.PushImm8).u8(5)
	b.op(opcode.Cmp)
	jzPos := len(b.buf)
	b.op(opcode.Jz).i16(0) // patched below
	b.op(opcode.PushImm8).u8(0).op(opcode.Halt) // not-equal path
	target := len(b.buf)
	b.op(opcode.PushImm8).u8(1).op(opcode.Halt) // equal path

	code := b.bytes()
	offset := int16(target - (jzPos + 3))
	code[jzPos+1] = byte(offset)
	code[jzPos+2] = byte(offset >> 8)

	state := runProgram(t, cfg, code, nil, DefaultConfig())
	if state.Result != 1 {
		t.Fatalf("Result = %d, want 1 (equal branch taken)", state.Result)
	}
}

func TestCallAndRet(t *testing.T) {
	cfg := testCfg(t, "s3-call-ret")
	b := newTestBuilder(&cfg.Opcodes)
	callPos := len(b.buf)
	b.op(opcode.Call).i16(0) // patched
	b.op(opcode.Halt)        // RET returns here; HALT takes the callee's pushed value

	funcStart := len(b.buf)
	b.op(opcode.PushImm8).u8(99)
	b.op(opcode.Ret)

	code := b.bytes()
	offset := int16(funcStart - (callPos + 3))
	code[callPos+1] = byte(offset)
	code[callPos+2] = byte(offset >> 8)

	state := runProgram(t, cfg, code, nil, DefaultConfig())
	if state.Result != 99 {
		t.Fatalf("Result = %d, want 99", state.Result)
	}
}

func TestRetWithEmptyCallStackHaltsLikeHalt(t *testing.T) {
	cfg := testCfg(t, "s4-bare-ret")
	code := newTestBuilder(&cfg.Opcodes).
		op(opcode.PushImm8).u8(7).
		op(opcode.Ret).
		bytes()
	state := runProgram(t, cfg, code, nil, DefaultConfig())
	if !state.Halted {
		t.Fatal("expected RET with an empty call stack to halt the machine")
	}
	if state.Result != 7 {
		t.Fatalf("Result = %d, want 7", state.Result)
	}
}

func TestHeapAllocFreeAndReuse(t *testing.T) {
	cfg := testCfg(t, "s5-heap")
	code := newTestBuilder(&cfg.Opcodes).
		op(opcode.PushImm8).u8(16).
		op(opcode.HeapAlloc).
		op(opcode.Dup).
		op(opcode.HeapFree).
		op(opcode.PushImm8).u8(16).
		op(opcode.HeapAlloc).
		op(opcode.Halt).
		bytes()
	state := runProgram(t, cfg, code, nil, DefaultConfig())
	// The freed block should be reused rather than bumping the cursor
	// further, so the second allocation's address equals the first.
	if state.heap.Size() != 8+16 {
		t.Fatalf("heap size = %d, want %d (one block reused, not two)", state.heap.Size(), 8+16)
	}
}

func TestHeapDoubleFreeFails(t *testing.T) {
	h := newHeap(1 << 16)
	addr, err := h.Alloc(8)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if err := h.Free(addr); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if err := h.Free(addr); err == nil {
		t.Fatal("expected second Free of the same address to fail")
	}
}

func TestHeapAdjacentFreeBlocksMerge(t *testing.T) {
	h := newHeap(1 << 16)
	a, err := h.Alloc(8)
	if err != nil {
		t.Fatalf("Alloc a: %v", err)
	}
	b, err := h.Alloc(8)
	if err != nil {
		t.Fatalf("Alloc b: %v", err)
	}
	if err := h.Free(a); err != nil {
		t.Fatalf("Free a: %v", err)
	}
	if err := h.Free(b); err != nil {
		t.Fatalf("Free b: %v", err)
	}
	if len(h.freeList) != 1 {
		t.Fatalf("freeList has %d entries after merging two adjacent blocks, want 1", len(h.freeList))
	}
	// A big-enough allocation should now fit in the merged block without
	// growing the buffer.
	sizeBefore := h.Size()
	if _, err := h.Alloc(16 + 8); err != nil {
		t.Fatalf("Alloc into merged block: %v", err)
	}
	if h.Size() != sizeBefore {
		t.Fatalf("heap grew after allocating into a merged block: %d -> %d", sizeBefore, h.Size())
	}
}

func TestDivisionByZeroDefaultPushesZero(t *testing.T) {
	cfg := testCfg(t, "s6-div-default")
	code := newTestBuilder(&cfg.Opcodes).
		op(opcode.PushImm8).u8(10).
		op(opcode.PushImm8).u8(0).
		op(opcode.Div).
		op(opcode.Halt).
		bytes()
	state := runProgram(t, cfg, code, nil, DefaultConfig())
	if state.Result != 0 {
		t.Fatalf("Result = %d, want 0 under the default division-by-zero policy", state.Result)
	}
}

func TestDivisionByZeroStrictModeErrors(t *testing.T) {
	cfg := testCfg(t, "s6-div-strict")
	code := newTestBuilder(&cfg.Opcodes).
		op(opcode.PushImm8).u8(10).
		op(opcode.PushImm8).u8(0).
		op(opcode.Div).
		op(opcode.Halt).
		bytes()
	state := NewState(code, nil, cfg.FlagBits, cfg.FNV, Config{StrictDivision: true})
	err := Run(state, &cfg.Opcodes, native.NewRegistry())
	if err == nil {
		t.Fatal("expected DivisionByZero under strict mode")
	}
}

func TestMaxInstructionsExceeded(t *testing.T) {
	cfg := testCfg(t, "instr-ceiling")
	b := newTestBuilder(&cfg.Opcodes)
	loopStart := len(b.buf)
	b.op(opcode.Nop)
	offset := int16(loopStart - (len(b.buf) + 3))
	b.op(opcode.Jmp).i16(offset)
	code := b.bytes()

	state := NewState(code, nil, cfg.FlagBits, cfg.FNV, DefaultConfig())
	err := Run(state, &cfg.Opcodes, native.NewRegistry())
	if err == nil {
		t.Fatal("expected an infinite loop to hit the instruction ceiling")
	}
	if state.InstructionCount < MaxInstructions {
		t.Fatalf("InstructionCount = %d, want >= %d", state.InstructionCount, MaxInstructions)
	}
}

func TestStackUnderflowOnEmptyPop(t *testing.T) {
	cfg := testCfg(t, "underflow")
	code := newTestBuilder(&cfg.Opcodes).op(opcode.Add).op(opcode.Halt).bytes()
	state := NewState(code, nil, cfg.FlagBits, cfg.FNV, DefaultConfig())
	if err := Run(state, &cfg.Opcodes, native.NewRegistry()); err == nil {
		t.Fatal("expected ADD on an empty stack to fail with StackUnderflow")
	}
}

func TestInvalidOpcodeByte(t *testing.T) {
	cfg := testCfg(t, "invalid-opcode")
	var code []byte
	found := false
	for b := byte(0); b < 0xFF; b++ {
		if _, ok := cfg.Opcodes.Decode[b]; !ok {
			code = []byte{b}
			found = true
			break
		}
	}
	if !found {
		t.Skip("every byte value is allocated in this build's table")
	}
	state := NewState(code, nil, cfg.FlagBits, cfg.FNV, DefaultConfig())
	if err := Run(state, &cfg.Opcodes, native.NewRegistry()); err == nil {
		t.Fatal("expected an unallocated encoded byte to fail with InvalidOpcode")
	}
}

func TestNativeCallRoundTrip(t *testing.T) {
	cfg := testCfg(t, "native-call")
	reg := native.NewRegistry()
	const nativeID = 3
	if err := reg.Register(nativeID, func(args []uint64) uint64 { return args[0] * 2 }); err != nil {
		t.Fatalf("Register: %v", err)
	}

	code := newTestBuilder(&cfg.Opcodes).
		op(opcode.PushImm8).u8(21).
		op(opcode.NativeCall).u8(nativeID).u8(1). // id, argc
		op(opcode.Halt).
		bytes()

	state := NewState(code, nil, cfg.FlagBits, cfg.FNV, DefaultConfig())
	if err := Run(state, &cfg.Opcodes, reg); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state.Result != 42 {
		t.Fatalf("Result = %d, want 42", state.Result)
	}
}

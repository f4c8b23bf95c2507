package vm

import (
	"github.com/polyvm/anticheat-vm/buildconfig"
	"github.com/polyvm/anticheat-vm/native"
	"github.com/polyvm/anticheat-vm/opcode"
	"github.com/polyvm/anticheat-vm/vmerrors"
)

// handlerFn is the shape every opcode handler shares, registry included
// even when unused, so NATIVE_CALL isn't a special case in the dispatch
// table.
type handlerFn func(s *State, reg *native.Registry) error

var handlers = map[opcode.Base]handlerFn{
	opcode.PushImm:   handlePushImm,
	opcode.PushImm8:  handlePushImm8,
	opcode.PushImm16: handlePushImm16,
	opcode.PushImm32: handlePushImm32,
	opcode.PushReg:   handlePushReg,
	opcode.PopReg:    handlePopReg,
	opcode.Drop:      handleDrop,
	opcode.Dup:       handleDup,
	opcode.Swap:      handleSwap,

	opcode.MovImm:   handleMovImm,
	opcode.MovReg:   handleMovReg,
	opcode.LoadMem:  handleLoadMem,
	opcode.StoreMem: handleStoreMem,

	opcode.Add: handleAdd, opcode.Sub: handleSub, opcode.Mul: handleMul,
	opcode.Xor: handleXor, opcode.And: handleAnd, opcode.Or: handleOr,
	opcode.Shl: handleShl, opcode.Shr: handleShr, opcode.Not: handleNot,
	opcode.Rol: handleRol, opcode.Ror: handleRor, opcode.Inc: handleInc,
	opcode.Dec: handleDec, opcode.Div: handleDiv, opcode.Mod: handleMod,
	opcode.Idiv: handleIdiv, opcode.Imod: handleImod,

	opcode.Cmp: handleCmp,
	opcode.Jmp: handleJmp, opcode.Jz: handleJz, opcode.Jnz: handleJnz,
	opcode.Jgt: handleJgt, opcode.Jlt: handleJlt, opcode.Jge: handleJge,
	opcode.Jle: handleJle, opcode.Call: handleCall, opcode.Ret: handleRet,

	opcode.Nop: handleNop, opcode.NopN: handleNopN,
	opcode.OpaqueTrue: handleOpaqueTrue, opcode.OpaqueFalse: handleOpaqueFalse,
	opcode.HashCheck: handleHashCheck, opcode.TimingCheck: handleTimingCheck,

	opcode.Sext8: handleSext8, opcode.Sext16: handleSext16, opcode.Sext32: handleSext32,
	opcode.Trunc8: handleTrunc8, opcode.Trunc16: handleTrunc16, opcode.Trunc32: handleTrunc32,

	opcode.Load8: handleLoad8, opcode.Load16: handleLoad16,
	opcode.Load32: handleLoad32, opcode.Load64: handleLoad64,
	opcode.Store8: handleStore8, opcode.Store16: handleStore16,
	opcode.Store32: handleStore32, opcode.Store64: handleStore64,

	opcode.HeapAlloc: handleHeapAlloc, opcode.HeapFree: handleHeapFree,
	opcode.HeapLoad8: handleHeapLoad8, opcode.HeapLoad16: handleHeapLoad16,
	opcode.HeapLoad32: handleHeapLoad32, opcode.HeapLoad64: handleHeapLoad64,
	opcode.HeapStore8: handleHeapStore8, opcode.HeapStore16: handleHeapStore16,
	opcode.HeapStore32: handleHeapStore32, opcode.HeapStore64: handleHeapStore64,
	opcode.HeapSize: handleHeapSize,

	opcode.VecNew: handleVecNew, opcode.VecLen: handleVecLen, opcode.VecCap: handleVecCap,
	opcode.VecPush: handleVecPush, opcode.VecPop: handleVecPop,
	opcode.VecGet: handleVecGet, opcode.VecSet: handleVecSet,
	opcode.VecRepeat: handleVecRepeat, opcode.VecClear: handleVecClear,
	opcode.VecReserve: handleVecReserve,

	opcode.StrNew: handleStrNew, opcode.StrLen: handleStrLen, opcode.StrPush: handleStrPush,
	opcode.StrGet: handleStrGet, opcode.StrSet: handleStrSet, opcode.StrCmp: handleStrCmp,
	opcode.StrEq: handleStrEq, opcode.StrHash: handleStrHash, opcode.StrConcat: handleStrConcat,

	opcode.NativeCall: handleNativeCall, opcode.NativeRead: handleNativeRead,
	opcode.NativeWrite: handleNativeWrite, opcode.InputLen: handleInputLen,

	opcode.HaltErr: handleHaltErr, opcode.Halt: handleHalt,
}

// decodeOpcode reads one byte from the instruction stream and resolves it
// to a base opcode via this build's shuffled table. Both the plain
// dispatcher and the SMC executor go through this, so a bytecode stream
// decodes identically whether or not it's self-modifying.
func decodeOpcode(s *State, table *buildconfig.OpcodeTable) (opcode.Base, error) {
	encoded, err := s.readU8()
	if err != nil {
		return 0, err
	}
	base, ok := table.Decode[encoded]
	if !ok {
		return 0, vmerrors.InvalidOpcode(encoded)
	}
	return base, nil
}

// Step decodes and executes exactly one instruction. It is the shared
// dispatch primitive: Run calls it in a loop, and the SMC executor calls it
// once per instruction after decrypting that instruction's bytes.
func Step(s *State, table *buildconfig.OpcodeTable, reg *native.Registry) error {
	base, err := decodeOpcode(s, table)
	if err != nil {
		return err
	}
	handler, ok := handlers[base]
	if !ok {
		return vmerrors.InvalidOpcode(byte(base))
	}
	s.InstructionCount++
	return handler(s, reg)
}

// integrityRecheckInterval governs how often Run re-verifies s.Code against
// the trusted baseline captured at decrypt time, not how often HASH_CHECK
// opcodes fire (those are placed by the build and checked in-band).
const integrityRecheckInterval = 4096

// Run executes from the current IP until Halted, an error, or the
// instruction ceiling.
func Run(s *State, table *buildconfig.OpcodeTable, reg *native.Registry) error {
	for !s.Halted {
		if s.InstructionCount >= MaxInstructions {
			return vmerrors.MaxInstructionsExceeded(MaxInstructions)
		}
		if s.integrity != nil && s.InstructionCount%integrityRecheckInterval == 0 {
			if err := s.integrity.Verify(s.Code); err != nil {
				s.LastError = err
				return err
			}
		}
		if err := Step(s, table, reg); err != nil {
			s.LastError = err
			return err
		}
	}
	return nil
}

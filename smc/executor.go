// Package smc re-executes the same base-opcode dispatch as package vm, but
// keeps the bytecode ciphertext-at-rest in memory: only a sliding window of
// instructions around the current IP is ever decrypted, and every
// instruction is re-encrypted the moment it leaves that window. A memory
// dump taken between steps shows only the window's worth of plaintext,
// never the whole program.
package smc

import (
	"github.com/polyvm/anticheat-vm/buildconfig"
	"github.com/polyvm/anticheat-vm/native"
	"github.com/polyvm/anticheat-vm/opcode"
	"github.com/polyvm/anticheat-vm/vm"
	"github.com/polyvm/anticheat-vm/vmerrors"
)

// keyRollHi/keyRollLo mix the instruction position into the rolling XOR
// key. They are fixed, not build-randomized, and unrelated to the build's
// opcode-table shuffle, since the key material itself (Config.Key) is what
// carries the per-build secret.
const (
	keyRollHi = 0x9E3779B97F4A7C15
	keyRollLo = 0xC6A4A7935BD1E995
)

// Config tunes one SMC execution: the rolling-XOR key material (normally
// derived from the build seed) and how many instructions stay decrypted at
// once.
type Config struct {
	Key        [32]byte
	WindowSize int
}

// DefaultWindowSize is the most secure setting: exactly one instruction
// decrypted at a time.
const DefaultWindowSize = 1

// KeyFromSeed derives a 32-byte rolling key from a build seed using the
// same LCG the original generator uses, kept for compatibility with
// existing build artifacts that embed a raw uint64 seed rather than a full
// key.
func KeyFromSeed(seed uint64) [32]byte {
	var key [32]byte
	state := seed
	for i := 0; i < 32; i++ {
		state = state*0x5DEECE66D + 0xB
		key[i] = byte(state >> 24)
	}
	return key
}

func keyAt(cfg Config, pos int) byte {
	keyIdx := pos % 32
	mix := uint64(pos)*keyRollHi + keyRollLo
	return cfg.Key[keyIdx] ^ byte(mix>>32) ^ byte(mix)
}

func xorByte(code []byte, pos int, cfg Config) {
	code[pos] ^= keyAt(cfg, pos)
}

func xorRange(code []byte, start, length int, cfg Config) {
	for i := 0; i < length; i++ {
		if start+i < len(code) {
			xorByte(code, start+i, cfg)
		}
	}
}

// EncryptBytecode XORs every byte of code under cfg's rolling key, turning
// a plaintext instruction stream into its SMC-at-rest form.
func EncryptBytecode(code []byte, cfg Config) {
	xorRange(code, 0, len(code), cfg)
}

// DecryptBytecode is EncryptBytecode's inverse (XOR is self-inverse);
// provided for tooling/tests that want to inspect a fully decrypted image.
func DecryptBytecode(code []byte, cfg Config) {
	xorRange(code, 0, len(code), cfg)
}

type window struct {
	offset int
	length int
}

// Execute runs code (encrypted at rest, mutated in place) under SMC
// discipline: the sliding window is kept decrypted, everything else is
// re-encrypted, and the base-opcode dispatch is the exact same table
// package vm uses, so SMC and plain execution agree instruction-for-
// instruction on any given program.
func Execute(code []byte, input []byte, cfg Config, opTable *buildconfig.OpcodeTable, flagBits buildconfig.FlagBits, fnv buildconfig.FnvConstants, reg *native.Registry) vm.Result {
	if cfg.WindowSize < 1 {
		cfg.WindowSize = DefaultWindowSize
	}
	if reg == nil {
		reg = native.NewRegistry()
	}

	state := vm.NewState(code, input, flagBits, fnv, vm.DefaultConfig())

	var decrypted []window
	reencryptAll := func() {
		for _, w := range decrypted {
			xorRange(code, w.offset, w.length, cfg)
		}
		decrypted = nil
	}

	for !state.Halted {
		if state.InstructionCount >= vm.MaxInstructions {
			return vm.Result{Output: state.Output, InstructionCount: state.InstructionCount, Err: vmerrors.MaxInstructionsExceeded(vm.MaxInstructions)}
		}
		if state.IP >= len(code) {
			reencryptAll()
			return vm.Result{Output: state.Output, InstructionCount: state.InstructionCount, Err: vmerrors.MemoryOutOfBounds(state.IP, len(code))}
		}
		ip := state.IP

		// An instruction still inside the window (a loop jumping back to
		// it) is already plaintext: re-encrypt it and drop its entry so the
		// decrypt below starts from ciphertext again.
		for i, w := range decrypted {
			if w.offset == ip {
				xorRange(code, w.offset, w.length, cfg)
				decrypted = append(decrypted[:i], decrypted[i+1:]...)
				break
			}
		}

		xorByte(code, ip, cfg)
		encodedOp := code[ip]
		base, ok := opTable.Decode[encodedOp]
		if !ok {
			return vm.Result{Output: state.Output, InstructionCount: state.InstructionCount, Err: vmerrors.InvalidOpcode(encodedOp)}
		}
		instLen := opcode.InstructionLength(base)

		if instLen > 1 {
			xorRange(code, ip+1, instLen-1, cfg)
		}
		decrypted = append(decrypted, window{offset: ip, length: instLen})

		if err := vm.Step(state, opTable, reg); err != nil {
			reencryptAll()
			return vm.Result{Output: state.Output, InstructionCount: state.InstructionCount, Err: err}
		}

		for len(decrypted) > cfg.WindowSize {
			old := decrypted[0]
			decrypted = decrypted[1:]
			xorRange(code, old.offset, old.length, cfg)
		}
	}

	reencryptAll()
	return vm.Result{
		Output:           state.Output,
		ReturnValue:      state.Result,
		InstructionCount: state.InstructionCount,
	}
}

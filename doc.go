// Package anticheatvm is the root of a stack+register hybrid bytecode
// virtual machine built for anti-tamper and anti-reverse-engineering use:
// licensing checks, anti-cheat logic, and other code an attacker is
// specifically motivated to read or patch. It has no exported surface of
// its own -- every concern lives in a focused subpackage -- but documents
// how they compose.
//
// # Architecture Overview
//
//	buildconfig/   Per-build polymorphic tables derived from one 32-byte seed
//	vmcrypto/      HMAC key/nonce derivation, AES-256-GCM encrypt/decrypt
//	integrity/     Region table construction and verification (FNV-1a)
//	container/     Framed header + AEAD payload + optional watermark trailer
//	opcode/        Fixed base-opcode catalog and static operand-width table
//	vm/            Registers, stack, heap, dispatcher, handler set
//	native/        Indexed host-callback registry reachable from bytecode
//	smc/           Sliding-window self-modifying-code executor variant
//	asyncvm/       Cooperative, single-threaded yield-driven executor variant
//	compiler/      The contract an external AST-to-bytecode compiler honours
//	vmerrors/      Stable numeric error kinds shared by every layer
//	cmd/vmrun/     Debugging CLI: assemble, build, run, step
//
// # Quick Start
//
// Generate a build, assemble and package a tiny program, then run it:
//
//	cfg, err := buildconfig.Generate(buildconfig.Options{BuildKey: "my-key"})
//	plaintext := []byte{ /* bytecode encoded with cfg.Opcodes */ }
//	payload, err := container.Emit(cfg, plaintext)
//	result := vm.Execute(cfg, payload, input, nil)
//	fmt.Println(result.ReturnValue, result.Output)
//
// # Threat Model
//
// Every per-build table -- opcode encoding, register slots, flag bit
// positions, FNV constants, native IDs, header magic, AEAD keys -- is a
// pure function of the build seed, so two builds that don't share a seed
// disagree on almost everything an attacker would otherwise recognize
// across binaries. None of this is a cryptographic hardness claim beyond
// the AEAD boundary itself: the polymorphism layer raises the cost of
// static analysis and signature matching, it does not make tampering
// impossible.
//
// # Execution Modes
//
// vm.Execute runs a container to completion synchronously. smc.Execute
// instead keeps the bytecode ciphertext-at-rest in memory, decrypting only
// a sliding window of instructions around the current IP. asyncvm.Executor
// drives the plain dispatch step (vm.Step, not the SMC executor) through a
// cooperative Poll() that returns control
// to the caller at a build-randomized instruction cadence, for embedding
// many machines on one goroutine without real concurrency.
package anticheatvm

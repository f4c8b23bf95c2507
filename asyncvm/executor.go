// Package asyncvm wraps package vm's dispatch loop in a cooperative,
// single-threaded Poll() driver: instead of running an entire program to
// completion in one call, Executor.Poll runs a bounded slice of
// instructions and returns control to the caller at a build-randomized
// yield boundary, so a single OS thread can interleave many VM instances
// without real concurrency.
package asyncvm

import (
	"github.com/polyvm/anticheat-vm/buildconfig"
	"github.com/polyvm/anticheat-vm/native"
	"github.com/polyvm/anticheat-vm/vm"
	"github.com/polyvm/anticheat-vm/vmerrors"
)

// Status reports why Poll returned.
type Status int

const (
	StatusYielded Status = iota
	StatusHalted
	StatusError
)

// Config configures one Executor. YieldMask follows the same "randomize
// the constant, not the algorithm" build-time philosophy as the rest of
// the polymorphism layer: a build-specific low-bit mask controls how often
// execution yields, without changing the yield check's shape.
type Config struct {
	OpTable  *buildconfig.OpcodeTable
	FlagBits buildconfig.FlagBits
	FNV      buildconfig.FnvConstants
	Registry *native.Registry
	// YieldMask is ANDed against the instruction counter; a yield happens
	// when the result is zero. 2^k-1 for some k, so yields land on a
	// power-of-two cadence.
	YieldMask uint64
	// OnYield is called whenever Poll yields before returning, giving the
	// caller a CPU-relax hint point (e.g. runtime.Gosched) without forcing
	// a specific scheduler policy on this package.
	OnYield func()
}

// YieldMaskFromBuild derives a build-time yield cadence from the same
// keystream every other polymorphic table uses, so the yield granularity
// itself varies build to build.
func YieldMaskFromBuild(seed []byte) uint64 {
	return buildconfig.GenerateYieldMask(seed)
}

// Executor drives one vm.State cooperatively. It owns no goroutine: Poll
// always runs on the caller's goroutine and returns as soon as a yield
// boundary, halt, or error is reached.
type Executor struct {
	state *vm.State
	cfg   Config
}

// NewExecutor wraps state for cooperative execution under cfg.
func NewExecutor(state *vm.State, cfg Config) *Executor {
	if cfg.Registry == nil {
		cfg.Registry = native.NewRegistry()
	}
	if cfg.YieldMask == 0 {
		cfg.YieldMask = 0xFF
	}
	return &Executor{state: state, cfg: cfg}
}

// State exposes the underlying machine state for inspection between polls.
func (e *Executor) State() *vm.State { return e.state }

// Poll steps the machine until it halts, errors, or crosses a yield
// boundary (InstructionCount&YieldMask == 0 after a step), then returns.
// Calling Poll again resumes exactly where it left off -- the VM state is
// the only continuation a caller needs to keep.
func (e *Executor) Poll() (Status, error) {
	for !e.state.Halted {
		if e.state.InstructionCount >= vm.MaxInstructions {
			err := vmerrors.MaxInstructionsExceeded(vm.MaxInstructions)
			e.state.LastError = err
			return StatusError, err
		}
		if err := vm.Step(e.state, e.cfg.OpTable, e.cfg.Registry); err != nil {
			e.state.LastError = err
			return StatusError, err
		}
		if e.state.InstructionCount&e.cfg.YieldMask == 0 {
			if e.cfg.OnYield != nil {
				e.cfg.OnYield()
			}
			return StatusYielded, nil
		}
	}
	return StatusHalted, nil
}

package vm

import (
	"github.com/polyvm/anticheat-vm/buildconfig"
	"github.com/polyvm/anticheat-vm/container"
	"github.com/polyvm/anticheat-vm/integrity"
	"github.com/polyvm/anticheat-vm/native"
)

// Result is what a completed (or failed) execution hands back to the
// embedder.
type Result struct {
	Output           []byte
	ReturnValue      uint64
	InstructionCount uint64
	Err              error
}

// Execute authenticates and decrypts a container payload under cfg, runs
// its bytecode to completion against input, and returns the machine's
// final output/result. Registration of custom natives beyond the standard
// set happens on reg before calling in.
func Execute(cfg *buildconfig.Config, payload, input []byte, reg *native.Registry) Result {
	c, err := container.Parse(payload, cfg)
	if err != nil {
		return Result{Err: err}
	}

	state := NewState(c.Plaintext, input, cfg.FlagBits, cfg.FNV, DefaultConfig())

	if cfg.Flags.HasIntegrity() {
		table, err := integrity.Build(c.Plaintext, cfg.FNV)
		if err != nil {
			return Result{Err: err}
		}
		state.SetIntegrityTable(table)
	}

	if reg == nil {
		reg = native.NewRegistry()
	}
	if err := Run(state, &cfg.Opcodes, reg); err != nil {
		return Result{Output: state.Output, InstructionCount: state.InstructionCount, Err: err}
	}
	return Result{
		Output:           state.Output,
		ReturnValue:      state.Result,
		InstructionCount: state.InstructionCount,
	}
}

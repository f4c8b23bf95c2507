package vm

import (
	"github.com/polyvm/anticheat-vm/native"
	"github.com/polyvm/anticheat-vm/vmerrors"
)

// HALT, HALT_ERR.

func handleHalt(s *State, _ *native.Registry) error {
	s.Halted = true
	v, err := s.Pop()
	if err != nil {
		v = 0
	}
	s.Result = v
	return nil
}

// handleHaltErr: HALT_ERR <error_code u8>. Stops execution and records
// LastError from a small fixed code->Kind mapping baked into bytecode at
// compile time; anything outside that mapping collapses to StateCorrupt
// rather than silently succeeding.
func handleHaltErr(s *State, _ *native.Registry) error {
	code, err := s.readU8()
	if err != nil {
		return err
	}
	s.Halted = true
	var haltErr *vmerrors.Error
	switch code {
	case 1:
		haltErr = vmerrors.InvalidOpcode(0)
	case 2:
		haltErr = vmerrors.StackUnderflow()
	case 3:
		haltErr = vmerrors.StackOverflow()
	case 7:
		haltErr = vmerrors.IntegrityFailed("HALT_ERR")
	default:
		haltErr = vmerrors.StateCorrupt("HALT_ERR with unrecognized code")
	}
	s.LastError = haltErr
	return haltErr
}

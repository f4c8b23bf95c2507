// Package native is the ID-indexed bridge between bytecode and host
// callables: the single dynamic-dispatch surface in the VM, modeled on the
// teacher's handle table (fixed capacity, explicit registration, a
// sentinel error for the closed/unknown cases) rather than a Go interface
// satisfied by reflection.
package native

import (
	"sync"

	"github.com/polyvm/anticheat-vm/vmerrors"
)

// MaxNativeFunctions is the fixed registry capacity; native-function IDs
// are a single byte.
const MaxNativeFunctions = 256

// MaxNativeArgs bounds NATIVE_CALL's argument count.
const MaxNativeArgs = 8

// Func is a native callable's shape: a read-only argument slice (length
// never exceeding MaxNativeArgs) in, one u64 out.
type Func func(args []uint64) uint64

// Registry is a fixed-size indexed table of native callables. Registration
// is expected to quiesce before any VM execution begins; Call is read-only
// and safe for concurrent use by independent VmState executions, but the
// registry itself is not meant to be mutated while any execution is in
// flight.
type Registry struct {
	mu   sync.RWMutex
	fns  [MaxNativeFunctions]Func
	used [MaxNativeFunctions]bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register binds fn to id. It fails if the slot is already occupied --
// use RegisterReplace to override intentionally.
func (r *Registry) Register(id byte, fn Func) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.used[id] {
		return vmerrors.NativeFunctionAlreadyRegistered(int(id))
	}
	r.fns[id] = fn
	r.used[id] = true
	return nil
}

// RegisterReplace binds fn to id unconditionally.
func (r *Registry) RegisterReplace(id byte, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fns[id] = fn
	r.used[id] = true
}

// Unregister clears id's slot, if any.
func (r *Registry) Unregister(id byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fns[id] = nil
	r.used[id] = false
}

// Call invokes the function bound to id with args (len(args) <=
// MaxNativeArgs is the caller's responsibility; the dispatcher enforces it
// before calling in).
func (r *Registry) Call(id byte, args []uint64) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.used[id] {
		return 0, vmerrors.NativeFunctionNotFound(int(id))
	}
	return r.fns[id](args), nil
}

// IsRegistered reports whether id has a bound function.
func (r *Registry) IsRegistered(id byte) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.used[id]
}

// Count returns the number of occupied slots.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, u := range r.used {
		if u {
			n++
		}
	}
	return n
}

// Clear empties every slot.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.used {
		r.used[i] = false
		r.fns[i] = nil
	}
}

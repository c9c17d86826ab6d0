// Package sandbox defines the trait the engine drives the contract runtime
// through and a concrete wasmer-backed reference implementation: a
// wasmer-go JIT executor with host-function imports and a gas meter, plus
// per-contract snapshot/restore state management.
package sandbox

import (
	"contractfuzz/internal/trace"
)

// Determinism selects whether a call must replay deterministically. The
// engine always passes Enforced.
type Determinism int

const (
	Enforced Determinism = iota
)

// CallOutcome is the non-trap result of Deploy/Call: flags (non-zero means
// revert) and the raw return data.
type CallOutcome struct {
	Flags uint32
	Data  []byte
}

// Reverted reports whether the outcome represents a revert (non-empty
// flags).
func (c CallOutcome) Reverted() bool { return c.Flags != 0 }

// DeployOutcome is the result of a successful (non-trapped) deploy.
type DeployOutcome struct {
	Address trace.AccountId
	Result  CallOutcome
}

// Trapped is returned (as an error) when contract execution aborts: an
// unreachable instruction, an out-of-bounds access, or gas exhaustion,
// all treated identically as a trap.
type Trapped struct {
	Reason string
}

func (t *Trapped) Error() string { return "trapped: " + t.Reason }

// Sandbox is the trait consumed by the engine. Implementations
// need not be safe for concurrent use; the engine drives exactly one
// sandbox session at a time.
type Sandbox interface {
	// Mint credits amount to account's balance.
	Mint(account trace.AccountId, amount trace.Balance)

	// Deploy instantiates code at the derived address with the given
	// endowment, constructor input, and salt. Returns Trapped on abort;
	// otherwise a DeployOutcome whose Result.Flags is non-zero on revert.
	Deploy(code []byte, value trace.Balance, data []byte, salt []byte, caller trace.AccountId, gasLimit uint64) (DeployOutcome, error)

	// Call invokes callee with input, returning Trapped on abort or a
	// CallOutcome whose Flags is non-zero on revert.
	Call(callee trace.AccountId, value trace.Balance, input []byte, caller trace.AccountId, gasLimit uint64, det Determinism) (CallOutcome, error)

	// TakeSnapshot serializes the current world state.
	TakeSnapshot() any

	// RestoreSnapshot replaces the current world state with snap, which
	// must have come from a prior TakeSnapshot call on a sandbox built
	// from the same bundle.
	RestoreSnapshot(snap any)
}

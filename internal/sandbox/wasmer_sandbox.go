package sandbox

import (
	"errors"
	"fmt"

	"github.com/wasmerio/wasmer-go/wasmer"

	"contractfuzz/internal/trace"
)

// WasmerSandbox is the concrete reference Sandbox implementation: it loads
// the bundle's WASM module into a fresh wasmer.Instance per call, exposing
// host functions for storage get/set and gas metering. Grounded in the
// teacher's HeavyVM (core/virtual_machine.go): one wasmer.Engine shared
// across calls, one wasmer.Store+Instance per invocation.
type WasmerSandbox struct {
	engine *wasmer.Engine
	hf     HashFunction
	state  *worldState
	gas    *gasMeter
}

// NewWasmerSandbox builds a sandbox for the given bundle hash function.
func NewWasmerSandbox(hf HashFunction) *WasmerSandbox {
	return &WasmerSandbox{
		engine: wasmer.NewEngine(),
		hf:     hf,
		state:  newWorldState(),
		gas:    newGasMeter(),
	}
}

func (s *WasmerSandbox) Mint(account trace.AccountId, amount trace.Balance) {
	s.state.Balances[account] += amount
}

func (s *WasmerSandbox) Deploy(code []byte, value trace.Balance, data []byte, salt []byte, caller trace.AccountId, gasLimit uint64) (DeployOutcome, error) {
	codeHash := CodeHash(s.hf, code)
	addr := AddressOf(s.hf, caller, codeHash, data, salt)

	if s.state.Balances[caller] < value {
		return DeployOutcome{}, &Trapped{Reason: "insufficient balance for endowment"}
	}

	outcome, err := s.execute(addr, code, data, gasLimit)
	if err != nil {
		return DeployOutcome{}, err
	}
	if !outcome.Reverted() {
		s.state.Balances[caller] -= value
		s.state.Balances[addr] += value
		s.state.Code[addr] = code
		s.state.CodeHash[addr] = codeHash
	}
	return DeployOutcome{Address: addr, Result: outcome}, nil
}

func (s *WasmerSandbox) Call(callee trace.AccountId, value trace.Balance, input []byte, caller trace.AccountId, gasLimit uint64, _ Determinism) (CallOutcome, error) {
	code, ok := s.state.Code[callee]
	if !ok {
		return CallOutcome{}, &Trapped{Reason: fmt.Sprintf("no contract deployed at %x", callee)}
	}
	if s.state.Balances[caller] < value {
		return CallOutcome{}, &Trapped{Reason: "insufficient balance for call value"}
	}
	outcome, err := s.execute(callee, code, input, gasLimit)
	if err != nil {
		return CallOutcome{}, err
	}
	if !outcome.Reverted() {
		s.state.Balances[caller] -= value
		s.state.Balances[callee] += value
	}
	return outcome, nil
}

// execute instantiates code fresh against addr's storage and runs its
// exported "call" entrypoint (the ink!-style convention: constructors and
// messages both export "call"/"deploy" and read their selector+args via
// host_input/host_return rather than WASM function parameters).
func (s *WasmerSandbox) execute(addr trace.AccountId, code []byte, input []byte, gasLimit uint64) (CallOutcome, error) {
	store := wasmer.NewStore(s.engine)
	module, err := wasmer.NewModule(store, code)
	if err != nil {
		return CallOutcome{}, &Trapped{Reason: "invalid module: " + err.Error()}
	}

	meter := newGasMeter()
	meter.limit = gasLimit
	hctx := &hostCtx{addr: addr, state: s.state, gas: meter, input: input}
	imports := registerHost(store, hctx)

	instance, err := wasmer.NewInstance(module, imports)
	if err != nil {
		return CallOutcome{}, &Trapped{Reason: "instantiation failed: " + err.Error()}
	}

	if mem, err := instance.Exports.GetMemory("memory"); err == nil {
		hctx.mem = mem
	}

	entry, err := instance.Exports.GetFunction("call")
	if err != nil {
		entry, err = instance.Exports.GetFunction("deploy")
	}
	if err != nil {
		return CallOutcome{}, &Trapped{Reason: "missing call/deploy export"}
	}

	if _, err := entry(); err != nil {
		if hctx.reverted {
			return CallOutcome{Flags: 1, Data: hctx.returnData}, nil
		}
		return CallOutcome{}, &Trapped{Reason: err.Error()}
	}
	if hctx.reverted {
		return CallOutcome{Flags: 1, Data: hctx.returnData}, nil
	}
	return CallOutcome{Flags: 0, Data: hctx.returnData}, nil
}

func (s *WasmerSandbox) TakeSnapshot() any {
	return s.state.snapshot()
}

func (s *WasmerSandbox) RestoreSnapshot(snap any) {
	s.state = restoreWorldState(snap)
}

var _ Sandbox = (*WasmerSandbox)(nil)

// gasMeter is a minimal per-call consumption counter, grounded in the
// teacher's GasMeter (core/virtual_machine.go's host_consume_gas import).
type gasMeter struct {
	used  uint64
	limit uint64
}

func newGasMeter() *gasMeter { return &gasMeter{} }

func (g *gasMeter) consume(n uint64) error {
	g.used += n
	if g.limit != 0 && g.used > g.limit {
		return errors.New("out of gas")
	}
	return nil
}

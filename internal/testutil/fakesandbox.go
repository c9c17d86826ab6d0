package testutil

import (
	"fmt"

	"contractfuzz/internal/sandbox"
	"contractfuzz/internal/trace"
)

// Handler computes a contract call's outcome against a mutable storage map
// private to one deployed address. Tests register one handler per bundle
// under test, keyed by selector.
type Handler func(storage map[string][]byte, input []byte) (sandbox.CallOutcome, error)

// FakeSandbox is an in-memory Sandbox double that skips wasmer entirely,
// letting engine/shrinker tests exercise trace construction, caching, and
// property evaluation without a real WASM binary: a small, purpose-built
// double rather than a generic mock.
type FakeSandbox struct {
	Balances map[trace.AccountId]trace.Balance
	Code     map[trace.AccountId][]byte
	Storage  map[trace.AccountId]map[string][]byte
	HF       sandbox.HashFunction

	// Handlers maps a 4-byte selector to the behavior simulating that
	// contract method; the zero value for an unregistered selector is a
	// successful no-op call returning no data.
	Handlers map[[4]byte]Handler
}

// NewFakeSandbox builds an empty FakeSandbox.
func NewFakeSandbox() *FakeSandbox {
	return &FakeSandbox{
		Balances: make(map[trace.AccountId]trace.Balance),
		Code:     make(map[trace.AccountId][]byte),
		Storage:  make(map[trace.AccountId]map[string][]byte),
		Handlers: make(map[[4]byte]Handler),
	}
}

func (f *FakeSandbox) Mint(account trace.AccountId, amount trace.Balance) {
	f.Balances[account] += amount
}

func (f *FakeSandbox) Deploy(code []byte, value trace.Balance, data []byte, salt []byte, caller trace.AccountId, gasLimit uint64) (sandbox.DeployOutcome, error) {
	codeHash := sandbox.CodeHash(f.HF, code)
	addr := sandbox.AddressOf(f.HF, caller, codeHash, data, salt)
	if f.Balances[caller] < value {
		return sandbox.DeployOutcome{}, &sandbox.Trapped{Reason: "insufficient balance"}
	}
	outcome, err := f.dispatch(addr, data)
	if err != nil {
		return sandbox.DeployOutcome{}, err
	}
	if !outcome.Reverted() {
		f.Balances[caller] -= value
		f.Balances[addr] += value
		f.Code[addr] = code
	}
	return sandbox.DeployOutcome{Address: addr, Result: outcome}, nil
}

func (f *FakeSandbox) Call(callee trace.AccountId, value trace.Balance, input []byte, caller trace.AccountId, gasLimit uint64, _ sandbox.Determinism) (sandbox.CallOutcome, error) {
	if _, ok := f.Code[callee]; !ok {
		return sandbox.CallOutcome{}, &sandbox.Trapped{Reason: fmt.Sprintf("no contract at %x", callee)}
	}
	if f.Balances[caller] < value {
		return sandbox.CallOutcome{}, &sandbox.Trapped{Reason: "insufficient balance"}
	}
	outcome, err := f.dispatch(callee, input)
	if err != nil {
		return sandbox.CallOutcome{}, err
	}
	if !outcome.Reverted() {
		f.Balances[caller] -= value
		f.Balances[callee] += value
	}
	return outcome, nil
}

func (f *FakeSandbox) dispatch(addr trace.AccountId, input []byte) (sandbox.CallOutcome, error) {
	if len(input) < 4 {
		return sandbox.CallOutcome{}, nil
	}
	var sel [4]byte
	copy(sel[:], input[:4])
	h, ok := f.Handlers[sel]
	if !ok {
		return sandbox.CallOutcome{}, nil
	}
	st, ok := f.Storage[addr]
	if !ok {
		st = make(map[string][]byte)
		f.Storage[addr] = st
	}
	return h(st, input[4:])
}

type fakeSnapshot struct {
	Balances map[trace.AccountId]trace.Balance
	Code     map[trace.AccountId][]byte
	Storage  map[trace.AccountId]map[string][]byte
}

func (f *FakeSandbox) TakeSnapshot() any {
	snap := fakeSnapshot{
		Balances: make(map[trace.AccountId]trace.Balance, len(f.Balances)),
		Code:     make(map[trace.AccountId][]byte, len(f.Code)),
		Storage:  make(map[trace.AccountId]map[string][]byte, len(f.Storage)),
	}
	for k, v := range f.Balances {
		snap.Balances[k] = v
	}
	for k, v := range f.Code {
		snap.Code[k] = append([]byte(nil), v...)
	}
	for addr, m := range f.Storage {
		cp := make(map[string][]byte, len(m))
		for k, v := range m {
			cp[k] = append([]byte(nil), v...)
		}
		snap.Storage[addr] = cp
	}
	return snap
}

// RestoreSnapshot deep-copies snap's maps into the live state rather than
// aliasing them, so that later mutation of the restored state can never
// corrupt the cached snapshot a future lookup would restore from.
func (f *FakeSandbox) RestoreSnapshot(snap any) {
	s := snap.(fakeSnapshot)
	balances := make(map[trace.AccountId]trace.Balance, len(s.Balances))
	for k, v := range s.Balances {
		balances[k] = v
	}
	code := make(map[trace.AccountId][]byte, len(s.Code))
	for k, v := range s.Code {
		code[k] = append([]byte(nil), v...)
	}
	storage := make(map[trace.AccountId]map[string][]byte, len(s.Storage))
	for addr, m := range s.Storage {
		cp := make(map[string][]byte, len(m))
		for k, v := range m {
			cp[k] = append([]byte(nil), v...)
		}
		storage[addr] = cp
	}
	f.Balances = balances
	f.Code = code
	f.Storage = storage
}

var _ sandbox.Sandbox = (*FakeSandbox)(nil)

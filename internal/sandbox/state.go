package sandbox

import (
	"bytes"
	"encoding/gob"

	"contractfuzz/internal/trace"
)

// worldState is the mutable state shared by every account: balances, the
// deployed code per contract address, and each contract's key/value
// storage. It is gob-encoded on TakeSnapshot for a cheap, fully-independent
// deep copy (requires restored sandboxes to be byte-equal to
// the state at capture time, which gob round-tripping guarantees without
// hand-written copy code for every nested map).
type worldState struct {
	Balances map[trace.AccountId]trace.Balance
	Code     map[trace.AccountId][]byte
	Storage  map[trace.AccountId]map[string][]byte
	CodeHash map[trace.AccountId][32]byte
}

func newWorldState() *worldState {
	return &worldState{
		Balances: make(map[trace.AccountId]trace.Balance),
		Code:     make(map[trace.AccountId][]byte),
		Storage:  make(map[trace.AccountId]map[string][]byte),
		CodeHash: make(map[trace.AccountId][32]byte),
	}
}

func (w *worldState) get(addr trace.AccountId, key []byte) ([]byte, bool) {
	m, ok := w.Storage[addr]
	if !ok {
		return nil, false
	}
	v, ok := m[string(key)]
	return v, ok
}

func (w *worldState) set(addr trace.AccountId, key, val []byte) {
	m, ok := w.Storage[addr]
	if !ok {
		m = make(map[string][]byte)
		w.Storage[addr] = m
	}
	m[string(key)] = append([]byte(nil), val...)
}

// snapshotPayload is the gob-serialized payload returned by TakeSnapshot. It
// satisfies the opaque snapshot.Snapshot contract: the engine
// never inspects it, only stores and later restores it.
type snapshotPayload struct {
	Encoded []byte
}

func (w *worldState) snapshot() any {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(w); err != nil {
		panic("sandbox: snapshot encode: " + err.Error())
	}
	return snapshotPayload{Encoded: buf.Bytes()}
}

func restoreWorldState(snap any) *worldState {
	p, ok := snap.(snapshotPayload)
	if !ok {
		panic("sandbox: restore called with a snapshot not produced by this sandbox")
	}
	w := newWorldState()
	if err := gob.NewDecoder(bytes.NewReader(p.Encoded)).Decode(w); err != nil {
		panic("sandbox: snapshot decode: " + err.Error())
	}
	return w
}

// Package trace models the deploy+messages transaction sequence and its
// deterministic prefix hash used as the snapshot cache key.
package trace

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// AccountId is a 32-byte Substrate-style account identifier.
type AccountId [32]byte

// Balance mirrors the ABI's balance type; the sandbox and bundle agree on
// its width (u128 in practice, represented here as a plain uint64 since no
// campaign in this fuzzer mints more than a u64 can hold).
type Balance = uint64

// Deploy is the trace's leading transaction.
type Deploy struct {
	Caller    AccountId
	Endowment Balance
	Code      []byte
	Data      []byte
	Salt      []byte
	CodeHash  [32]byte
	Address   AccountId
}

// Message is a subsequent call transaction. Input[0:4] is the selector.
type Message struct {
	Caller    AccountId
	Callee    AccountId
	Endowment Balance
	Input     []byte
}

// Entry is the polymorphic element of Trace.Messages: ordinarily a Message,
// but the shrinker may splice in an internal redeploy.
type Entry struct {
	IsDeploy bool
	Message  Message
	Deploy   Deploy
}

// Data returns the selector-prefixed input bytes of the entry, regardless
// of whether it wraps a Message or a spliced Deploy.
func (e Entry) Data() []byte {
	if e.IsDeploy {
		return e.Deploy.Data
	}
	return e.Message.Input
}

// MessageEntry wraps a Message as a trace Entry.
func MessageEntry(m Message) Entry { return Entry{IsDeploy: false, Message: m} }

// DeployEntry wraps a Deploy as a trace Entry.
func DeployEntry(d Deploy) Entry { return Entry{IsDeploy: true, Deploy: d} }

// Trace is Deploy followed by an ordered list of Entry.
type Trace struct {
	Deploy   Deploy
	Messages []Entry
}

// Hash is the deterministic 64-bit digest used as the snapshot cache key.
// Equal traces hash equal; field order is fixed:
// deploy.{caller,endowment,code,data,salt}, then each entry's fields in
// trace order.
type Hash uint64

// EmptyHash is the reserved cache key (0) for the post-genesis snapshot. It
// is a fixed constant, not the HashOf value of an empty Trace.
const EmptyHash Hash = 0

// HashOf computes the trace hash by sequentially folding the deploy and
// each message/spliced-deploy into a stable xxhash digest.
func HashOf(t Trace) Hash {
	d := xxhash.New()
	foldDeploy(d, t.Deploy)
	for _, e := range t.Messages {
		if e.IsDeploy {
			foldDeploy(d, e.Deploy)
		} else {
			foldMessage(d, e.Message)
		}
	}
	return Hash(d.Sum64())
}

func foldDeploy(d *xxhash.Digest, dep Deploy) {
	writeBytes(d, dep.Caller[:])
	writeUint64(d, dep.Endowment)
	writeBytes(d, dep.Code)
	writeBytes(d, dep.Data)
	writeBytes(d, dep.Salt)
}

func foldMessage(d *xxhash.Digest, m Message) {
	writeBytes(d, m.Caller[:])
	writeBytes(d, m.Callee[:])
	writeUint64(d, m.Endowment)
	writeBytes(d, m.Input)
}

// writeBytes folds a length prefix and the bytes themselves so that, e.g.,
// Code="ab",Data="c" cannot collide with Code="a",Data="bc".
func writeBytes(d *xxhash.Digest, b []byte) {
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(b)))
	_, _ = d.Write(lenBuf[:])
	_, _ = d.Write(b)
}

func writeUint64(d *xxhash.Digest, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = d.Write(buf[:])
}

// Len reports the number of messages (not counting the deploy).
func (t Trace) Len() int { return len(t.Messages) }

// WithMessages returns a copy of t with Messages replaced, leaving Deploy
// untouched. Used by the shrinker to build candidate traces without
// mutating the original.
func (t Trace) WithMessages(msgs []Entry) Trace {
	return Trace{Deploy: t.Deploy, Messages: msgs}
}

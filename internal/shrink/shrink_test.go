package shrink

import (
	"testing"

	"contractfuzz/internal/abi"
	"contractfuzz/internal/catalog"
	"contractfuzz/internal/constants"
	"contractfuzz/internal/rng"
	"contractfuzz/internal/trace"
)

func buildTestShrinker() *Shrinker {
	reg := abi.NewRegistry(map[abi.TypeId]abi.TypeDef{
		0: {Kind: abi.KindPrimitive, Primitive: abi.PrimU8},
	})
	gen := abi.NewGenerator(reg, constants.Default(), abi.Limits{})
	cat := &catalog.Catalog{
		Messages: []catalog.Method{
			{Selector: [4]byte{1, 0, 0, 0}, Kind: catalog.KindMessage, ArgTypes: []abi.TypeId{0}},
		},
	}
	return New(cat, gen)
}

func threeMessageTrace() trace.Trace {
	mk := func(b byte) trace.Entry {
		return trace.MessageEntry(trace.Message{Input: []byte{1, 0, 0, 0, b}, Endowment: 4})
	}
	return trace.Trace{Messages: []trace.Entry{mk(1), mk(2), mk(3)}}
}

func TestShrinkDropsToMinimalReproducer(t *testing.T) {
	s := buildTestShrinker()
	r := rng.New(1)
	ft := FailedTrace{Trace: threeMessageTrace(), Reason: Reason{Kind: KindProperty, Property: "prop_never_overflow"}}

	// The failure reproduces as long as at least one message remains.
	replay := func(cand trace.Trace) (bool, Reason) {
		if len(cand.Messages) == 0 {
			return false, Reason{}
		}
		return true, Reason{Kind: KindProperty, Property: "prop_never_overflow"}
	}

	result := s.Shrink(ft, 200, r, replay)
	if len(result.Trace.Messages) != 1 {
		t.Fatalf("expected shrink to reach a single message, got %d", len(result.Trace.Messages))
	}
}

func TestBetterOrdersByLengthThenBytes(t *testing.T) {
	short := trace.Trace{Messages: []trace.Entry{trace.MessageEntry(trace.Message{Input: []byte{9}})}}
	long := trace.Trace{Messages: []trace.Entry{
		trace.MessageEntry(trace.Message{Input: []byte{9}}),
		trace.MessageEntry(trace.Message{Input: []byte{1}}),
	}}
	if !better(short, long) {
		t.Fatalf("shorter trace should be better")
	}

	a := trace.Trace{Messages: []trace.Entry{trace.MessageEntry(trace.Message{Input: []byte{1}})}}
	b := trace.Trace{Messages: []trace.Entry{trace.MessageEntry(trace.Message{Input: []byte{2}})}}
	if !better(a, b) {
		t.Fatalf("lexicographically smaller input bytes should be better on a length tie")
	}
	if better(b, a) {
		t.Fatalf("b should not be better than a")
	}
}

func TestReasonKey(t *testing.T) {
	if (Reason{Kind: KindTrapped}).Key() != "trap" {
		t.Fatalf("expected trap key")
	}
	if (Reason{Kind: KindProperty, Property: "prop_x"}).Key() != "prop_x" {
		t.Fatalf("expected property label as key")
	}
}

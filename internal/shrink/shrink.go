// Package shrink implements the post-campaign trace minimization pass:
// given a failing trace, repeatedly try smaller or differently-fuzzed
// candidates and keep whichever still reproduces the same failure and is
// "better" by length (shorter trace wins; ties broken by lexicographically
// smaller concatenated input bytes).
package shrink

import (
	"bytes"

	"contractfuzz/internal/abi"
	"contractfuzz/internal/catalog"
	"contractfuzz/internal/rng"
	"contractfuzz/internal/trace"
)

// Kind discriminates why a trace is retained as a failure witness.
type Kind int

const (
	KindTrapped Kind = iota
	KindProperty
)

// Reason identifies a failure: either a sandbox trap, or a named property
// that returned false (property dry-run check).
type Reason struct {
	Kind     Kind
	Property string // set only when Kind == KindProperty
	Detail   string // trap reason or property failure detail, for reporting
}

// Key is the retention key the engine's failed-trace map is indexed by:
// "trap" for a Trapped reason, or the property label otherwise. At most
// one retained witness per property, plus one for traps.
func (r Reason) Key() string {
	if r.Kind == KindTrapped {
		return "trap"
	}
	return r.Property
}

func (r Reason) sameKind(other Reason) bool {
	return r.Kind == other.Kind && r.Property == other.Property
}

// FailedTrace pairs a trace with the reason it was retained.
type FailedTrace struct {
	Trace  trace.Trace
	Reason Reason
}

// ReplayFunc re-executes a candidate trace from a fresh sandbox and reports
// whether it still fails, and if so, with what Reason. The engine supplies
// this so the shrinker never touches a Sandbox directly: it only needs a
// yes/no oracle.
type ReplayFunc func(t trace.Trace) (failed bool, reason Reason)

// Shrinker holds the campaign's catalog and generator so refuzz-style
// candidates can be produced without re-deriving them from scratch.
type Shrinker struct {
	Catalog *catalog.Catalog
	Gen     *abi.Generator
}

// New builds a Shrinker over the campaign's catalog and generator.
func New(cat *catalog.Catalog, gen *abi.Generator) *Shrinker {
	return &Shrinker{Catalog: cat, Gen: gen}
}

// Shrink repeatedly mutates ft.Trace, keeping the best candidate that still
// replays to the same failure Reason, until maxOptimizationRounds
// consecutive candidates fail to improve on the current best.
func (s *Shrinker) Shrink(ft FailedTrace, maxOptimizationRounds int, r *rng.Source, replay ReplayFunc) FailedTrace {
	current := ft
	consecutive := 0
	for consecutive < maxOptimizationRounds {
		candidate, ok := s.mutate(current.Trace, r)
		if !ok {
			consecutive++
			continue
		}
		failed, reason := replay(candidate)
		if !failed || !reason.sameKind(current.Reason) {
			consecutive++
			continue
		}
		if !better(candidate, current.Trace) {
			consecutive++
			continue
		}
		current = FailedTrace{Trace: candidate, Reason: reason}
		consecutive = 0
	}
	return current
}

// better reports whether a is a strict improvement over b: fewer messages
// wins outright; on a tie, the trace whose concatenated entry input bytes
// sort lexicographically smaller wins.
func better(a, b trace.Trace) bool {
	if a.Len() != b.Len() {
		return a.Len() < b.Len()
	}
	return bytes.Compare(concatInputs(a), concatInputs(b)) < 0
}

func concatInputs(t trace.Trace) []byte {
	var out []byte
	for _, e := range t.Messages {
		out = append(out, e.Data()...)
	}
	return out
}

// mutate picks one of the three candidate-generating strategies uniformly
// (message-drop, argument-refuzz, endowment-lowering) and applies it. ok is
// false when the chosen strategy has no applicable target (e.g. dropping
// from an empty message list).
func (s *Shrinker) mutate(t trace.Trace, r *rng.Source) (trace.Trace, bool) {
	if len(t.Messages) == 0 {
		return trace.Trace{}, false
	}
	switch r.Choice(3) {
	case 0:
		return s.dropMessage(t, r)
	case 1:
		return s.refuzzArg(t, r)
	default:
		return s.lowerEndowment(t, r)
	}
}

func (s *Shrinker) dropMessage(t trace.Trace, r *rng.Source) (trace.Trace, bool) {
	idx := r.Choice(len(t.Messages))
	msgs := make([]trace.Entry, 0, len(t.Messages)-1)
	msgs = append(msgs, t.Messages[:idx]...)
	msgs = append(msgs, t.Messages[idx+1:]...)
	return t.WithMessages(msgs), true
}

func (s *Shrinker) refuzzArg(t trace.Trace, r *rng.Source) (trace.Trace, bool) {
	idx := r.Choice(len(t.Messages))
	entry := t.Messages[idx]
	if entry.IsDeploy || len(entry.Message.Input) < 4 {
		return trace.Trace{}, false
	}
	var sel [4]byte
	copy(sel[:], entry.Message.Input[:4])
	m, ok := findBySelector(s.Catalog.Messages, sel)
	if !ok {
		return trace.Trace{}, false
	}
	input, err := s.Gen.GenerateCall(sel, m.ArgTypes, r)
	if err != nil {
		return trace.Trace{}, false
	}
	msgs := append([]trace.Entry(nil), t.Messages...)
	entry.Message.Input = input
	msgs[idx] = entry
	return t.WithMessages(msgs), true
}

func (s *Shrinker) lowerEndowment(t trace.Trace, r *rng.Source) (trace.Trace, bool) {
	idx := r.Choice(len(t.Messages))
	entry := t.Messages[idx]
	if entry.IsDeploy || entry.Message.Endowment == 0 {
		return trace.Trace{}, false
	}
	msgs := append([]trace.Entry(nil), t.Messages...)
	entry.Message.Endowment /= 2
	msgs[idx] = entry
	return t.WithMessages(msgs), true
}

func findBySelector(methods []catalog.Method, sel [4]byte) (catalog.Method, bool) {
	for _, m := range methods {
		if m.Selector == sel {
			return m, true
		}
	}
	return catalog.Method{}, false
}

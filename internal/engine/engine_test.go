package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"contractfuzz/internal/sandbox"
	"contractfuzz/internal/shrink"
	"contractfuzz/internal/testutil"
	"contractfuzz/internal/trace"
	"contractfuzz/pkg/bundle"
)

// flagMetadata describes a trivial "flipper"-shaped contract: a constructor
// that sets a boolean flag, a "flip" message that toggles it, and a
// property that is violated the moment the flag becomes true.
const flagMetadata = `{
  "source": {"wasm": "0x00", "hash_function": "blake2b-256"},
  "spec": {
    "constructors": [
      {"label": "new", "selector": "0x01000000", "args": [{"label": "init", "type": {"type": 0}}], "payable": false, "mutates": true}
    ],
    "messages": [
      {"label": "flip", "selector": "0x02000000", "args": [], "payable": false, "mutates": true},
      {"label": "inkscope_no_flip", "selector": "0x03000000", "args": [], "payable": false, "mutates": false, "returnType": {"type": 1}}
    ]
  },
  "types": [
    {"id": 0, "def": {"primitive": "bool"}},
    {"id": 1, "def": {"variant": {"variants": [
      {"name": "Ok", "index": 0, "fields": [{"type": 0}]},
      {"name": "Err", "index": 1, "fields": [{"type": 2}]}
    ]}}},
    {"id": 2, "def": {"primitive": "u32"}}
  ]
}`

func loadFlagBundle(t *testing.T) *bundle.Bundle {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "flag.json")
	if err := os.WriteFile(path, []byte(flagMetadata), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	b, err := bundle.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return b
}

var (
	ctorSel = [4]byte{0x01, 0, 0, 0}
	flipSel = [4]byte{0x02, 0, 0, 0}
	propSel = [4]byte{0x03, 0, 0, 0}
)

func newFlagSandbox() sandbox.Sandbox {
	fs := testutil.NewFakeSandbox()
	fs.Handlers[ctorSel] = func(storage map[string][]byte, input []byte) (sandbox.CallOutcome, error) {
		flag := byte(0)
		if len(input) > 0 && input[0] == 0x01 {
			flag = 1
		}
		storage["flag"] = []byte{flag}
		return sandbox.CallOutcome{}, nil
	}
	fs.Handlers[flipSel] = func(storage map[string][]byte, _ []byte) (sandbox.CallOutcome, error) {
		cur := storage["flag"]
		v := byte(0)
		if len(cur) == 1 {
			v = cur[0]
		}
		if v == 0 {
			v = 1
		} else {
			v = 0
		}
		storage["flag"] = []byte{v}
		return sandbox.CallOutcome{}, nil
	}
	fs.Handlers[propSel] = func(storage map[string][]byte, _ []byte) (sandbox.CallOutcome, error) {
		flag := storage["flag"]
		violated := len(flag) == 1 && flag[0] == 1
		if violated {
			return sandbox.CallOutcome{Data: []byte{0x00, 0x00}}, nil // Ok(false)
		}
		return sandbox.CallOutcome{Data: []byte{0x00, 0x01}}, nil // Ok(true)
	}
	return fs
}

func testConfig() Config {
	var a1, a2 trace.AccountId
	a1[0], a2[0] = 1, 2
	return Config{
		Seed:                    7,
		FailFast:                false,
		MaxRounds:               30,
		Budget:                  1_000_000,
		Accounts:                []trace.AccountId{a1, a2},
		OnlyMutable:             true,
		MaxSequenceTypeSize:     10,
		MaxNumberOfTransactions: 5,
		MaxOptimizationRounds:   50,
		GasLimit:                10_000_000,
		PropertyPrefix:          "inkscope_",
		FuzzPropertyMaxRounds:   1,
		SnapshotCacheCapacity:   0,
	}
}

func TestEngineDetectsAndShrinksPropertyViolation(t *testing.T) {
	b := loadFlagBundle(t)
	cfg := testConfig()

	e, err := New(b, cfg, newFlagSandbox)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	snap := e.Campaign().Read()
	ft, ok := snap.FailedTraces["inkscope_no_flip"]
	if !ok {
		t.Fatalf("expected a recorded property violation; traces=%v", snap.FailedTraces)
	}
	if ft.Reason.Kind != shrink.KindProperty {
		t.Fatalf("expected a property-kind failure reason, got %+v", ft.Reason)
	}
	if len(ft.Trace.Messages) == 0 {
		t.Fatalf("expected the minimized witness to retain at least one message")
	}
	if len(ft.Trace.Messages) > cfg.MaxNumberOfTransactions+1 {
		t.Fatalf("shrunk trace should not be longer than an unshrunk one: got %d messages", len(ft.Trace.Messages))
	}

	failed, reason := e.replay(ft.Trace)
	if !failed || reason.Property != "inkscope_no_flip" {
		t.Fatalf("expected the retained witness to still reproduce the violation on replay, got failed=%v reason=%+v", failed, reason)
	}
}

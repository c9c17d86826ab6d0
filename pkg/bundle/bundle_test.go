package bundle

import (
	"os"
	"path/filepath"
	"testing"

	"contractfuzz/internal/abi"
)

const flipperMetadata = `{
  "source": {"wasm": "0xdeadbeef", "hash_function": "blake2b-256"},
  "spec": {
    "constructors": [
      {"label": "new", "selector": "0x9bae9d5e", "args": [{"label": "init_value", "type": {"type": 0}}], "payable": false, "mutates": true}
    ],
    "messages": [
      {"label": "flip", "selector": "0x633aa551", "args": [], "payable": false, "mutates": true},
      {"label": "inkscope_get", "selector": "0xaabbccdd", "args": [], "payable": false, "mutates": false, "returnType": {"type": 1}}
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

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "flipper.json")
	if err := os.WriteFile(path, []byte(flipperMetadata), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadParsesConstructorsMessagesAndTypes(t *testing.T) {
	path := writeFixture(t)
	b, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(b.Code) != 4 {
		t.Fatalf("expected 4-byte inline wasm, got %d", len(b.Code))
	}
	if len(b.Methods) != 3 {
		t.Fatalf("expected 3 methods (1 ctor + 2 messages), got %d", len(b.Methods))
	}
	var gotProperty bool
	for _, m := range b.Methods {
		if m.Label == "inkscope_get" {
			gotProperty = true
			if !m.ReturnsBool {
				t.Fatalf("expected inkscope_get to resolve as bool-returning")
			}
		}
	}
	if !gotProperty {
		t.Fatalf("expected to find inkscope_get in methods")
	}
	if b.HashFunctionID != "blake2b-256" {
		t.Fatalf("expected hash_function passthrough")
	}
	if _, err := b.Registry.Resolve(abi.TypeId(0)); err != nil {
		t.Fatalf("expected type 0 registered: %v", err)
	}
}

func TestLoadRejectsBadSelector(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	bad := `{"source":{"wasm":"0x00"},"spec":{"constructors":[{"label":"new","selector":"0xzz","args":[]}],"messages":[]},"types":[]}`
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for malformed selector")
	}
}

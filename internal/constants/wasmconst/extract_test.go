package wasmconst

import "testing"

// buildModule assembles a minimal WASM module with a single code section
// body containing the given raw instruction bytes.
func buildModule(codeBody []byte) []byte {
	header := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	section := []byte{sectionCode}
	section = appendULEB32(section, uint32(len(codeBody)))
	section = append(section, codeBody...)
	return append(header, section...)
}

func appendULEB32(b []byte, v uint32) []byte {
	for {
		byt := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b = append(b, byt|0x80)
		} else {
			b = append(b, byt)
			break
		}
	}
	return b
}

func TestExtractI32Const(t *testing.T) {
	// i32.const 42 encoded as opcode 0x41 followed by SLEB128(42) = 0x2a.
	mod := buildModule([]byte{opI32Const, 0x2a})
	i32s, i64s := Extract(mod)
	if len(i32s) != 1 || i32s[0] != 42 {
		t.Fatalf("expected [42], got %v", i32s)
	}
	if len(i64s) != 0 {
		t.Fatalf("expected no i64 consts, got %v", i64s)
	}
}

func TestExtractI64ConstNegative(t *testing.T) {
	// i64.const -1 encoded as opcode 0x42 followed by SLEB128(-1) = 0x7f.
	mod := buildModule([]byte{opI64Const, 0x7f})
	i32s, i64s := Extract(mod)
	if len(i32s) != 0 {
		t.Fatalf("expected no i32 consts, got %v", i32s)
	}
	if len(i64s) != 1 || i64s[0] != -1 {
		t.Fatalf("expected [-1], got %v", i64s)
	}
}

func TestExtractMalformedDoesNotPanic(t *testing.T) {
	for _, in := range [][]byte{nil, {0x00}, {0x00, 0x61, 0x73, 0x6d}} {
		if i32s, i64s := Extract(in); i32s != nil || i64s != nil {
			t.Fatalf("expected nil result for malformed input, got %v %v", i32s, i64s)
		}
	}
}

func TestExtractNoMagicReturnsNil(t *testing.T) {
	in := make([]byte, 16)
	i32s, i64s := Extract(in)
	if i32s != nil || i64s != nil {
		t.Fatalf("expected nil for non-wasm input")
	}
}

package constants

import (
	"testing"

	"contractfuzz/internal/rng"
)

func TestDefaultMembership(t *testing.T) {
	p := Default()
	if got := p.Unsigned[8].values; !containsU64(got, 0) || !containsU64(got, 1) || !containsU64(got, 2) || !containsU64(got, 100) || !containsU64(got, 255) {
		t.Fatalf("unexpected u8 pool: %v", got)
	}
	if got := p.Signed[8].values; !containsI64(got, -128) || !containsI64(got, -1) || !containsI64(got, 0) || !containsI64(got, 1) || !containsI64(got, 127) {
		t.Fatalf("unexpected i8 pool: %v", got)
	}
	if len(p.Strings.values) != 1 || p.Strings.values[0] != "UNK" {
		t.Fatalf("unexpected string pool: %v", p.Strings.values)
	}
	if len(p.Accounts.values) != 2 {
		t.Fatalf("expected 2 default accounts, got %d", len(p.Accounts.values))
	}
}

func TestPickUnsignedAlwaysFromPoolWhenNonempty(t *testing.T) {
	p := Default()
	r := rng.New(1)
	seen := map[uint64]bool{}
	for i := 0; i < 200; i++ {
		seen[p.PickUnsigned(32, r)] = true
	}
	for v := range seen {
		if !containsU64(p.Unsigned[32].values, v) {
			t.Fatalf("drew %d not present in pool", v)
		}
	}
}

func TestExtendFromCodeMergesIntoAllWidths(t *testing.T) {
	p := Default()
	// i32.const 7 module body, reused from wasmconst tests' fixture shape.
	mod := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, 0x0a, 0x02, 0x41, 0x07}
	p.ExtendFromCode(mod)
	for w := range p.Unsigned {
		if !containsU64(p.Unsigned[w].values, 7) {
			t.Fatalf("width %d missing extracted literal 7", w)
		}
	}
	for w := range p.Signed {
		if !containsI64(p.Signed[w].values, 7) {
			t.Fatalf("signed width %d missing extracted literal 7", w)
		}
	}
}

func containsU64(s []uint64, v uint64) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}

func containsI64(s []int64, v int64) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}

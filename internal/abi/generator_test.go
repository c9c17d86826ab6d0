package abi

import (
	"testing"

	"contractfuzz/internal/constants"
	"contractfuzz/internal/rng"
)

func flipperRegistry() *Registry {
	return NewRegistry(map[TypeId]TypeDef{
		0: {Kind: KindPrimitive, Primitive: PrimBool},
	})
}

func TestFlipperConstructorGeneration(t *testing.T) {
	reg := flipperRegistry()
	g := NewGenerator(reg, constants.Default(), Limits{MaxSequenceTypeSize: 10})
	selector := [4]byte{0x9B, 0xAE, 0x9D, 0x5E}
	seen := map[[5]byte]bool{}
	r := rng.New(0)
	for i := 0; i < 100; i++ {
		b, err := g.GenerateCall(selector, []TypeId{0}, r)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(b) != 5 {
			t.Fatalf("expected 5 bytes, got %d", len(b))
		}
		var key [5]byte
		copy(key[:], b)
		seen[key] = true
	}
	want := map[[5]byte]bool{
		{0x9B, 0xAE, 0x9D, 0x5E, 0x00}: true,
		{0x9B, 0xAE, 0x9D, 0x5E, 0x01}: true,
	}
	if len(seen) != 2 {
		t.Fatalf("expected exactly the two flipper encodings, got %v", seen)
	}
	for k := range seen {
		if !want[k] {
			t.Fatalf("unexpected encoding %v", k)
		}
	}
}

func TestCompactRoundTripBoundaries(t *testing.T) {
	boundaries := []uint64{0, 63, 64, 16383, 16384, 1<<30 - 1, 1 << 30}
	for _, v := range boundaries {
		enc := EncodeCompactUnsigned(v)
		got, n, ok := DecodeCompactUnsigned(enc)
		if !ok {
			t.Fatalf("decode failed for %d", v)
		}
		if n != len(enc) {
			t.Fatalf("residue decoding %d: consumed %d of %d", v, n, len(enc))
		}
		if got != v {
			t.Fatalf("round-trip mismatch for %d: got %d", v, got)
		}
	}
}

func TestGenerateDecodeRoundTripAllKinds(t *testing.T) {
	reg := NewRegistry(map[TypeId]TypeDef{
		0:  {Kind: KindPrimitive, Primitive: PrimBool},
		1:  {Kind: KindPrimitive, Primitive: PrimU8},
		2:  {Kind: KindPrimitive, Primitive: PrimU128},
		3:  {Kind: KindPrimitive, Primitive: PrimStr},
		10: {Kind: KindComposite, Fields: []TypeId{0, 1}},
		11: {Kind: KindArray, Elem: 1, Len: 3},
		12: {Kind: KindSequence, Elem: 1},
		13: {Kind: KindVariant, Variants: []VariantCase{
			{Index: 0, Fields: nil},
			{Index: 1, Fields: []TypeId{1}},
		}},
		14: {Kind: KindCompact, Inner: 1},
		15: {Kind: KindTuple, Fields: []TypeId{0, 0}},
	})
	g := NewGenerator(reg, constants.Default(), Limits{MaxSequenceTypeSize: 10})
	r := rng.New(3)
	for _, id := range []TypeId{0, 1, 2, 3, 10, 11, 12, 13, 14, 15} {
		for i := 0; i < 25; i++ {
			enc, err := g.Generate(id, r)
			if err != nil {
				t.Fatalf("type %d: generate: %v", id, err)
			}
			n, err := Decode(reg, id, enc)
			if err != nil {
				t.Fatalf("type %d: decode: %v", id, err)
			}
			if n != len(enc) {
				t.Fatalf("type %d: residue: consumed %d of %d", id, n, len(enc))
			}
		}
	}
}

func TestUnsupportedPrimitivesRejected(t *testing.T) {
	reg := NewRegistry(map[TypeId]TypeDef{
		0: {Kind: KindPrimitive, Primitive: PrimChar},
		1: {Kind: KindPrimitive, Primitive: PrimU256},
		2: {Kind: KindPrimitive, Primitive: PrimI256},
		3: {Kind: KindBitSequence},
	})
	g := NewGenerator(reg, constants.Default(), Limits{})
	r := rng.New(0)
	for _, id := range []TypeId{0, 1, 2, 3} {
		if _, err := g.Generate(id, r); !IsUnsupportedType(err) {
			t.Fatalf("type %d: expected unsupported-type error, got %v", id, err)
		}
	}
}

func TestCompactOverSignedUnsupported(t *testing.T) {
	reg := NewRegistry(map[TypeId]TypeDef{
		0: {Kind: KindPrimitive, Primitive: PrimI32},
		1: {Kind: KindCompact, Inner: 0},
	})
	g := NewGenerator(reg, constants.Default(), Limits{})
	if _, err := g.Generate(1, rng.New(0)); !IsUnsupportedType(err) {
		t.Fatalf("expected unsupported-type error for compact-over-signed, got %v", err)
	}
}

func TestDanglingTypeIdIsRegistryResolutionError(t *testing.T) {
	reg := NewRegistry(map[TypeId]TypeDef{})
	g := NewGenerator(reg, constants.Default(), Limits{})
	if _, err := g.Generate(99, rng.New(0)); !IsRegistryResolution(err) {
		t.Fatalf("expected registry-resolution error, got %v", err)
	}
}

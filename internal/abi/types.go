// Package abi models the ABI type registry and the type-driven
// generator that walks a TypeId to produce canonically
// encoded argument bytes.
package abi

import "fmt"

// TypeId is a numeric handle resolved through a Registry to a TypeDef.
type TypeId uint32

// Kind discriminates the TypeDef sum type. There is no virtual hierarchy:
// the generator is a single function that switches on Kind.
type Kind int

const (
	KindComposite Kind = iota
	KindArray
	KindTuple
	KindSequence
	KindVariant
	KindPrimitive
	KindCompact
	KindBitSequence
)

func (k Kind) String() string {
	switch k {
	case KindComposite:
		return "Composite"
	case KindArray:
		return "Array"
	case KindTuple:
		return "Tuple"
	case KindSequence:
		return "Sequence"
	case KindVariant:
		return "Variant"
	case KindPrimitive:
		return "Primitive"
	case KindCompact:
		return "Compact"
	case KindBitSequence:
		return "BitSequence"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// PrimitiveKind enumerates the primitive leaf types.
type PrimitiveKind int

const (
	PrimBool PrimitiveKind = iota
	PrimStr
	PrimU8
	PrimU16
	PrimU32
	PrimU64
	PrimU128
	PrimU256
	PrimI8
	PrimI16
	PrimI32
	PrimI64
	PrimI128
	PrimI256
	PrimChar
)

func (k PrimitiveKind) String() string {
	names := map[PrimitiveKind]string{
		PrimBool: "bool", PrimStr: "str",
		PrimU8: "u8", PrimU16: "u16", PrimU32: "u32", PrimU64: "u64", PrimU128: "u128", PrimU256: "u256",
		PrimI8: "i8", PrimI16: "i16", PrimI32: "i32", PrimI64: "i64", PrimI128: "i128", PrimI256: "i256",
		PrimChar: "char",
	}
	if n, ok := names[k]; ok {
		return n
	}
	return "unknown"
}

// Unsupported reports whether this primitive kind is rejected at generation
// time (char, u256/i256 and BitSequence are recognized but
// rejected).
func (k PrimitiveKind) Unsupported() bool {
	return k == PrimChar || k == PrimU256 || k == PrimI256
}

// BitWidth returns the integer bit width for integer primitive kinds, or 0
// for non-integer kinds.
func (k PrimitiveKind) BitWidth() int {
	switch k {
	case PrimU8, PrimI8:
		return 8
	case PrimU16, PrimI16:
		return 16
	case PrimU32, PrimI32:
		return 32
	case PrimU64, PrimI64:
		return 64
	case PrimU128, PrimI128:
		return 128
	case PrimU256, PrimI256:
		return 256
	default:
		return 0
	}
}

// Signed reports whether the primitive kind is a signed integer.
func (k PrimitiveKind) Signed() bool {
	switch k {
	case PrimI8, PrimI16, PrimI32, PrimI64, PrimI128, PrimI256:
		return true
	default:
		return false
	}
}

// VariantCase is one arm of a Variant TypeDef.
type VariantCase struct {
	Index  uint8
	Fields []TypeId
}

// TypeDef is the tagged sum described in Only the fields
// relevant to Kind are populated; the others are zero.
type TypeDef struct {
	Kind Kind

	// Composite / Tuple
	Fields []TypeId

	// Array
	Elem TypeId
	Len  uint32

	// Sequence reuses Elem.

	// Variant
	Variants []VariantCase

	// Primitive
	Primitive PrimitiveKind

	// Compact
	Inner TypeId
}

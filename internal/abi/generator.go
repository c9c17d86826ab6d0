package abi

import (
	"contractfuzz/internal/constants"
	"contractfuzz/internal/rng"
)

// Limits bounds generation decisions that are not implied by the type
// itself (configuration surface).
type Limits struct {
	// MaxSequenceTypeSize caps how long a Sequence's sampled length may be.
	MaxSequenceTypeSize int
}

// Generator produces canonically encoded bytes for any ABI type reachable
// through a Registry,
type Generator struct {
	Registry *Registry
	Pool     *constants.Pool
	Limits   Limits
}

// NewGenerator builds a Generator over reg, biasing toward pool, bounded by
// limits.
func NewGenerator(reg *Registry, pool *constants.Pool, limits Limits) *Generator {
	return &Generator{Registry: reg, Pool: pool, Limits: limits}
}

// Generate emits the canonical encoding of the type named by id, drawing
// from r and g.Pool. It returns an *Error (abi.IsUnsupportedType /
// abi.IsRegistryResolution) for unsupported or dangling types.
func (g *Generator) Generate(id TypeId, r *rng.Source) ([]byte, error) {
	td, err := g.Registry.Resolve(id)
	if err != nil {
		return nil, err
	}
	return g.generateDef(td, r)
}

func (g *Generator) generateDef(td TypeDef, r *rng.Source) ([]byte, error) {
	switch td.Kind {
	case KindPrimitive:
		return g.generatePrimitive(td.Primitive, r)
	case KindComposite, KindTuple:
		return g.generateConcat(td.Fields, r)
	case KindArray:
		return g.generateArray(td.Elem, td.Len, r)
	case KindSequence:
		return g.generateSequence(td.Elem, r)
	case KindVariant:
		return g.generateVariant(td.Variants, r)
	case KindCompact:
		return g.generateCompact(td.Inner, r)
	case KindBitSequence:
		return nil, unsupportedErr(0, "BitSequence is not supported at generation time")
	default:
		return nil, unsupportedErr(0, "unknown type kind")
	}
}

func (g *Generator) generatePrimitive(k PrimitiveKind, r *rng.Source) ([]byte, error) {
	if k.Unsupported() {
		return nil, unsupportedErr(0, "primitive "+k.String()+" is not supported at generation time")
	}
	switch k {
	case PrimBool:
		return EncodeBool(r.Bool()), nil
	case PrimStr:
		return EncodeCompactString(g.Pool.PickString(r)), nil
	case PrimU8, PrimU16, PrimU32, PrimU64:
		w := k.BitWidth()
		return EncodeUnsigned(g.Pool.PickUnsigned(w, r), w), nil
	case PrimU128:
		lo, hi := drawU128(g.Pool, r)
		return EncodeUnsigned128(lo, hi), nil
	case PrimI8, PrimI16, PrimI32, PrimI64:
		w := k.BitWidth()
		return EncodeSigned(g.Pool.PickSigned(w, r), w), nil
	case PrimI128:
		lo, hi := drawI128(r)
		return EncodeUnsigned128(lo, hi), nil
	default:
		return nil, unsupportedErr(0, "unhandled primitive "+k.String())
	}
}

// drawU128 has no native 128-bit pool, so it reuses the 64-bit pool for
// the low limb and defaults the high limb to zero with high probability,
// which is where interesting u128 values cluster: small magnitudes and
// values near the 64-bit boundary.
func drawU128(pool *constants.Pool, r *rng.Source) (lo, hi uint64) {
	lo = pool.PickUnsigned(64, r)
	if r.Choice(4) == 0 {
		hi = r.U64()
	}
	return lo, hi
}

func drawI128(r *rng.Source) (lo, hi uint64) {
	return r.U128()
}

func (g *Generator) generateConcat(fields []TypeId, r *rng.Source) ([]byte, error) {
	var out []byte
	for _, f := range fields {
		b, err := g.Generate(f, r)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

func (g *Generator) generateArray(elem TypeId, length uint32, r *rng.Source) ([]byte, error) {
	var out []byte
	for i := uint32(0); i < length; i++ {
		b, err := g.Generate(elem, r)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

func (g *Generator) generateSequence(elem TypeId, r *rng.Source) ([]byte, error) {
	n := r.Length()
	if g.Limits.MaxSequenceTypeSize > 0 && n > g.Limits.MaxSequenceTypeSize {
		n = g.Limits.MaxSequenceTypeSize
	}
	out := EncodeCompactUnsigned(uint64(n))
	for i := 0; i < n; i++ {
		b, err := g.Generate(elem, r)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

func (g *Generator) generateVariant(variants []VariantCase, r *rng.Source) ([]byte, error) {
	if len(variants) == 0 {
		return nil, unsupportedErr(0, "variant with no declared cases")
	}
	v := variants[r.Choice(len(variants))]
	out := []byte{v.Index}
	for _, f := range v.Fields {
		b, err := g.Generate(f, r)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

func (g *Generator) generateCompact(inner TypeId, r *rng.Source) ([]byte, error) {
	td, err := g.Registry.Resolve(inner)
	if err != nil {
		return nil, err
	}
	if td.Kind != KindPrimitive {
		return nil, unsupportedErr(inner, "compact-over-composite is not supported")
	}
	if td.Primitive.Signed() || td.Primitive.Unsupported() || td.Primitive == PrimBool || td.Primitive == PrimStr || td.Primitive == PrimChar {
		return nil, unsupportedErr(inner, "compact inner type must be an unsigned primitive of width <= 128")
	}
	w := td.Primitive.BitWidth()
	if w > 128 {
		return nil, unsupportedErr(inner, "compact inner type width exceeds 128")
	}
	if w == 128 {
		lo, _ := drawU128(g.Pool, r)
		return EncodeCompactUnsigned(lo), nil
	}
	return EncodeCompactUnsigned(g.Pool.PickUnsigned(w, r)), nil
}

// GenerateCall emits selector || encode(arg1) || ... || encode(argn), the
// full-call contract from 
func (g *Generator) GenerateCall(selector [4]byte, argTypes []TypeId, r *rng.Source) ([]byte, error) {
	out := append([]byte(nil), selector[:]...)
	for _, t := range argTypes {
		b, err := g.Generate(t, r)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

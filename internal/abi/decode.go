package abi

// Decode validates that b begins with a well-formed encoding of the type
// named by id and returns the number of bytes consumed. It is used by the
// canonicity property test and by output rendering to confirm
// a captured trace's argument bytes are well-formed before pretty-printing.
func Decode(reg *Registry, id TypeId, b []byte) (consumed int, err error) {
	td, err := reg.Resolve(id)
	if err != nil {
		return 0, err
	}
	return decodeDef(reg, td, b)
}

func decodeDef(reg *Registry, td TypeDef, b []byte) (int, error) {
	switch td.Kind {
	case KindPrimitive:
		return decodePrimitive(td.Primitive, b)
	case KindComposite, KindTuple:
		return decodeConcat(reg, td.Fields, b)
	case KindArray:
		return decodeArray(reg, td.Elem, td.Len, b)
	case KindSequence:
		return decodeSequence(reg, td.Elem, b)
	case KindVariant:
		return decodeVariant(reg, td.Variants, b)
	case KindCompact:
		return decodeCompact(reg, td.Inner, b)
	case KindBitSequence:
		return 0, unsupportedErr(0, "BitSequence is not supported at decode time")
	default:
		return 0, unsupportedErr(0, "unknown type kind")
	}
}

func decodePrimitive(k PrimitiveKind, b []byte) (int, error) {
	if k.Unsupported() {
		return 0, unsupportedErr(0, "primitive "+k.String()+" is not supported")
	}
	switch k {
	case PrimBool:
		_, n, ok := DecodeBool(b)
		if !ok {
			return 0, malformed("bool")
		}
		return n, nil
	case PrimStr:
		_, n, ok := DecodeCompactString(b)
		if !ok {
			return 0, malformed("str")
		}
		return n, nil
	case PrimU128, PrimI128:
		_, _, n, ok := DecodeUnsigned128(b)
		if !ok {
			return 0, malformed(k.String())
		}
		return n, nil
	default:
		w := k.BitWidth()
		if w == 0 {
			return 0, unsupportedErr(0, "unhandled primitive "+k.String())
		}
		if k.Signed() {
			_, n, ok := DecodeSigned(b, w)
			if !ok {
				return 0, malformed(k.String())
			}
			return n, nil
		}
		_, n, ok := DecodeUnsigned(b, w)
		if !ok {
			return 0, malformed(k.String())
		}
		return n, nil
	}
}

func decodeConcat(reg *Registry, fields []TypeId, b []byte) (int, error) {
	total := 0
	for _, f := range fields {
		td, err := reg.Resolve(f)
		if err != nil {
			return 0, err
		}
		n, err := decodeDef(reg, td, b[total:])
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func decodeArray(reg *Registry, elem TypeId, length uint32, b []byte) (int, error) {
	td, err := reg.Resolve(elem)
	if err != nil {
		return 0, err
	}
	total := 0
	for i := uint32(0); i < length; i++ {
		n, err := decodeDef(reg, td, b[total:])
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func decodeSequence(reg *Registry, elem TypeId, b []byte) (int, error) {
	n, consumed, ok := DecodeCompactUnsigned(b)
	if !ok {
		return 0, malformed("sequence length prefix")
	}
	td, err := reg.Resolve(elem)
	if err != nil {
		return 0, err
	}
	total := consumed
	for i := uint64(0); i < n; i++ {
		m, err := decodeDef(reg, td, b[total:])
		if err != nil {
			return 0, err
		}
		total += m
	}
	return total, nil
}

func decodeVariant(reg *Registry, variants []VariantCase, b []byte) (int, error) {
	if len(b) < 1 {
		return 0, malformed("variant index")
	}
	idx := b[0]
	for _, v := range variants {
		if v.Index == idx {
			n, err := decodeConcat(reg, v.Fields, b[1:])
			if err != nil {
				return 0, err
			}
			return 1 + n, nil
		}
	}
	return 0, malformed("unknown variant index")
}

func decodeCompact(reg *Registry, inner TypeId, b []byte) (int, error) {
	_, n, ok := DecodeCompactUnsigned(b)
	if !ok {
		return 0, malformed("compact integer")
	}
	// Validate inner type shape matches compact's constraints, mirroring
	// the generator's restrictions.
	td, err := reg.Resolve(inner)
	if err != nil {
		return 0, err
	}
	if td.Kind != KindPrimitive || td.Primitive.Signed() || td.Primitive.Unsupported() || td.Primitive == PrimBool || td.Primitive == PrimStr {
		return 0, unsupportedErr(inner, "compact inner type must be an unsigned primitive")
	}
	return n, nil
}

func malformed(what string) error {
	return &Error{Kind: ErrUnsupportedType, Msg: "malformed encoding: " + what}
}

// Package bundle loads an ink!-style contract metadata bundle (JSON
// metadata plus a paired WASM blob) into the in-memory shape the rest of
// the fuzzer consumes: an abi.Registry, a method catalog.Method list, and
// the raw code bytes.
package bundle

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"contractfuzz/internal/abi"
	"contractfuzz/internal/catalog"
	"contractfuzz/pkg/utils"
)

// Bundle is the opaque {code, registry, methods} object the engine consumes
// from the bundle loader.
type Bundle struct {
	Code           []byte
	Registry       *abi.Registry
	Methods        []catalog.Method
	HashFunctionID string
}

// Load reads path (an ink!-style *.contract or metadata.json file) and the
// WASM blob it references, returning a Bundle. If the metadata embeds the
// WASM inline (source.wasm), no sibling file is read; otherwise Load looks
// for a ".wasm" file alongside path with the same base name.
func Load(path string) (*Bundle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, utils.Wrap(err, "read bundle metadata")
	}

	var meta metadataFile
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, utils.Wrap(err, "parse bundle metadata")
	}

	reg, err := buildRegistry(meta.Types)
	if err != nil {
		return nil, utils.Wrap(err, "build type registry")
	}

	var methods []catalog.Method
	for _, c := range meta.Spec.Constructors {
		m, err := toMethod(c, catalog.KindConstructor, reg)
		if err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("constructor %q", c.Label))
		}
		methods = append(methods, m)
	}
	for _, msg := range meta.Spec.Messages {
		m, err := toMethod(msg, catalog.KindMessage, reg)
		if err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("message %q", msg.Label))
		}
		methods = append(methods, m)
	}

	code, err := loadCode(path, meta)
	if err != nil {
		return nil, err
	}

	return &Bundle{
		Code:           code,
		Registry:       reg,
		Methods:        methods,
		HashFunctionID: meta.Source.HashFunctionID,
	}, nil
}

func loadCode(path string, meta metadataFile) ([]byte, error) {
	if meta.Source.Wasm != "" {
		return decodeHex(meta.Source.Wasm)
	}
	wasmPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".wasm"
	code, err := os.ReadFile(wasmPath)
	if err != nil {
		return nil, utils.Wrap(err, "read paired wasm file "+wasmPath)
	}
	return code, nil
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, utils.Wrap(err, "decode inline wasm hex")
	}
	return b, nil
}

// --- ink!-style JSON metadata shapes ---

type metadataFile struct {
	Source struct {
		Wasm           string `json:"wasm"`
		HashFunctionID string `json:"hash_function"`
	} `json:"source"`
	Spec struct {
		Constructors []methodJSON `json:"constructors"`
		Messages     []methodJSON `json:"messages"`
	} `json:"spec"`
	Types []typeEntryJSON `json:"types"`
}

type methodJSON struct {
	Label      string     `json:"label"`
	Selector   string     `json:"selector"`
	Args       []argJSON  `json:"args"`
	Payable    bool       `json:"payable"`
	Mutates    bool       `json:"mutates"`
	ReturnType *typeRefJSON `json:"returnType"`
}

type argJSON struct {
	Label string     `json:"label"`
	Type  typeRefJSON `json:"type"`
}

type typeRefJSON struct {
	Type abi.TypeId `json:"type"`
}

type typeEntryJSON struct {
	ID   abi.TypeId  `json:"id"`
	Def  typeDefJSON `json:"def"`
}

type typeDefJSON struct {
	Primitive string `json:"primitive"`
	Composite *struct {
		Fields []fieldJSON `json:"fields"`
	} `json:"composite"`
	Array *struct {
		Len  uint32     `json:"len"`
		Type abi.TypeId `json:"type"`
	} `json:"array"`
	Tuple    []abi.TypeId `json:"tuple"`
	Sequence *struct {
		Type abi.TypeId `json:"type"`
	} `json:"sequence"`
	Variant *struct {
		Variants []variantJSON `json:"variants"`
	} `json:"variant"`
	Compact *struct {
		Type abi.TypeId `json:"type"`
	} `json:"compact"`
	BitSequence *struct{} `json:"bitsequence"`
}

type fieldJSON struct {
	Name string     `json:"name"`
	Type abi.TypeId `json:"type"`
}

type variantJSON struct {
	Name   string      `json:"name"`
	Index  uint8       `json:"index"`
	Fields []fieldJSON `json:"fields"`
}

func buildRegistry(entries []typeEntryJSON) (*abi.Registry, error) {
	defs := make(map[abi.TypeId]abi.TypeDef, len(entries))
	for _, e := range entries {
		td, err := toTypeDef(e.Def)
		if err != nil {
			return nil, fmt.Errorf("type %d: %w", e.ID, err)
		}
		defs[e.ID] = td
	}
	return abi.NewRegistry(defs), nil
}

func toTypeDef(d typeDefJSON) (abi.TypeDef, error) {
	switch {
	case d.Primitive != "":
		p, err := parsePrimitive(d.Primitive)
		if err != nil {
			return abi.TypeDef{}, err
		}
		return abi.TypeDef{Kind: abi.KindPrimitive, Primitive: p}, nil
	case d.Composite != nil:
		fields := make([]abi.TypeId, len(d.Composite.Fields))
		for i, f := range d.Composite.Fields {
			fields[i] = f.Type
		}
		return abi.TypeDef{Kind: abi.KindComposite, Fields: fields}, nil
	case d.Array != nil:
		return abi.TypeDef{Kind: abi.KindArray, Elem: d.Array.Type, Len: d.Array.Len}, nil
	case d.Tuple != nil:
		return abi.TypeDef{Kind: abi.KindTuple, Fields: d.Tuple}, nil
	case d.Sequence != nil:
		return abi.TypeDef{Kind: abi.KindSequence, Elem: d.Sequence.Type}, nil
	case d.Variant != nil:
		cases := make([]abi.VariantCase, len(d.Variant.Variants))
		for i, v := range d.Variant.Variants {
			fields := make([]abi.TypeId, len(v.Fields))
			for j, f := range v.Fields {
				fields[j] = f.Type
			}
			cases[i] = abi.VariantCase{Index: v.Index, Fields: fields}
		}
		return abi.TypeDef{Kind: abi.KindVariant, Variants: cases}, nil
	case d.Compact != nil:
		return abi.TypeDef{Kind: abi.KindCompact, Inner: d.Compact.Type}, nil
	case d.BitSequence != nil:
		return abi.TypeDef{Kind: abi.KindBitSequence}, nil
	default:
		return abi.TypeDef{}, fmt.Errorf("unrecognized type definition shape")
	}
}

func parsePrimitive(name string) (abi.PrimitiveKind, error) {
	switch name {
	case "bool":
		return abi.PrimBool, nil
	case "str":
		return abi.PrimStr, nil
	case "u8":
		return abi.PrimU8, nil
	case "u16":
		return abi.PrimU16, nil
	case "u32":
		return abi.PrimU32, nil
	case "u64":
		return abi.PrimU64, nil
	case "u128":
		return abi.PrimU128, nil
	case "u256":
		return abi.PrimU256, nil
	case "i8":
		return abi.PrimI8, nil
	case "i16":
		return abi.PrimI16, nil
	case "i32":
		return abi.PrimI32, nil
	case "i64":
		return abi.PrimI64, nil
	case "i128":
		return abi.PrimI128, nil
	case "i256":
		return abi.PrimI256, nil
	case "char":
		return abi.PrimChar, nil
	default:
		return 0, fmt.Errorf("unknown primitive %q", name)
	}
}

func toMethod(m methodJSON, kind catalog.Kind, reg *abi.Registry) (catalog.Method, error) {
	sel, err := parseSelector(m.Selector)
	if err != nil {
		return catalog.Method{}, err
	}
	argTypes := make([]abi.TypeId, len(m.Args))
	for i, a := range m.Args {
		argTypes[i] = a.Type.Type
	}
	returnsBool := m.ReturnType != nil && resolvesToBool(reg, m.ReturnType.Type, 0)
	return catalog.Method{
		Selector:    sel,
		Kind:        kind,
		ArgTypes:    argTypes,
		Payable:     m.Payable,
		Mutates:     m.Mutates,
		Label:       m.Label,
		ReturnsBool: returnsBool,
	}, nil
}

func parseSelector(s string) ([4]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 4 {
		return [4]byte{}, fmt.Errorf("selector %q must be 4 bytes of hex: %w", s, err)
	}
	var out [4]byte
	copy(out[:], b)
	return out, nil
}

// resolvesToBool walks a declared return type looking for the bool arm of
// a Result<bool, E>-shaped Variant, recursing at most a few
// levels (ink! metadata nests Result as a two-case Variant whose Ok arm,
// index 0, carries the payload type). depth guards against malformed
// cyclic metadata.
func resolvesToBool(reg *abi.Registry, id abi.TypeId, depth int) bool {
	if depth > 4 {
		return false
	}
	td, err := reg.Resolve(id)
	if err != nil {
		return false
	}
	switch td.Kind {
	case abi.KindPrimitive:
		return td.Primitive == abi.PrimBool
	case abi.KindVariant:
		for _, v := range td.Variants {
			if v.Index == 0 && len(v.Fields) == 1 {
				return resolvesToBool(reg, v.Fields[0], depth+1)
			}
		}
		return false
	default:
		return false
	}
}

// ParseAccount decodes a hex-encoded 32-byte account id, used for the
// configuration surface's `accounts` list.
func ParseAccount(s string) ([32]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 32 {
		return [32]byte{}, fmt.Errorf("account %q must be 32 bytes of hex", s)
	}
	var out [32]byte
	copy(out[:], b)
	return out, nil
}

// ParseSelectorHex is exported for CLI replay tooling that needs to parse a
// selector argument from the command line the same way bundle metadata is
// parsed.
func ParseSelectorHex(s string) ([4]byte, error) { return parseSelector(s) }

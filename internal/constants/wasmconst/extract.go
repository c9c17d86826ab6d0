// Package wasmconst extracts integer literals from a compiled WASM code blob
// for seeding the constant pool. It recognizes i32.const and i64.const
// instructions only; every extracted literal is inserted into every
// signed integer-width pool and, when non-negative, every unsigned one, not
// mapped strictly by declared width.
//
// No third-party WASM decoder is wired here: wasmer-go executes compiled
// modules but does not expose a disassembler, so this is a small
// hand-rolled binary-format walker over the module section layout.
package wasmconst

import "encoding/binary"

const (
	sectionCode   = 10
	opI32Const    = 0x41
	opI64Const    = 0x42
	wasmMagic     = 0x6d736100
	wasmMagicSize = 8
)

// Extract scans a WASM module's code section for i32.const/i64.const
// operands and returns the literals found, in encounter order, split by
// whether they were emitted as i32 (32-bit) or i64 (64-bit) operands. It
// never errors: malformed or truncated input simply yields whatever was
// successfully parsed before the parse gave up, mirroring a best-effort
// static-analysis pass.
func Extract(code []byte) (i32s []int32, i64s []int64) {
	if len(code) < wasmMagicSize {
		return nil, nil
	}
	if binary.LittleEndian.Uint32(code[0:4]) != wasmMagic {
		return nil, nil
	}
	pos := wasmMagicSize
	for pos < len(code) {
		id := code[pos]
		pos++
		size, n, ok := readULEB32(code, pos)
		if !ok {
			return i32s, i64s
		}
		pos += n
		end := pos + int(size)
		if end > len(code) {
			return i32s, i64s
		}
		if id == sectionCode {
			i32s, i64s = scanCodeSection(code[pos:end])
		}
		pos = end
	}
	return i32s, i64s
}

func scanCodeSection(body []byte) (i32s []int32, i64s []int64) {
	pos := 0
	for pos < len(body) {
		op := body[pos]
		pos++
		switch op {
		case opI32Const:
			v, n, ok := readSLEB64(body, pos)
			if !ok {
				return i32s, i64s
			}
			i32s = append(i32s, int32(v))
			pos += n
		case opI64Const:
			v, n, ok := readSLEB64(body, pos)
			if !ok {
				return i32s, i64s
			}
			i64s = append(i64s, v)
			pos += n
		default:
			// Not a const instruction; we don't track the full opcode
			// operand table, so just keep scanning byte-by-byte. This can
			// occasionally misparse an operand byte as an opcode, which is
			// acceptable for a best-effort constant-seeding pass.
		}
	}
	return i32s, i64s
}

// readULEB32 decodes an unsigned LEB128 value (used for section sizes).
func readULEB32(b []byte, pos int) (value uint32, n int, ok bool) {
	var shift uint
	for n = 0; pos+n < len(b); n++ {
		byt := b[pos+n]
		value |= uint32(byt&0x7f) << shift
		if byt&0x80 == 0 {
			return value, n + 1, true
		}
		shift += 7
		if shift >= 35 {
			return 0, 0, false
		}
	}
	return 0, 0, false
}

// readSLEB64 decodes a signed LEB128 value (used for const operands).
func readSLEB64(b []byte, pos int) (value int64, n int, ok bool) {
	var shift uint
	var byt byte
	for {
		if pos+n >= len(b) {
			return 0, 0, false
		}
		byt = b[pos+n]
		value |= int64(byt&0x7f) << shift
		shift += 7
		n++
		if byt&0x80 == 0 {
			break
		}
		if shift >= 70 {
			return 0, 0, false
		}
	}
	if shift < 64 && byt&0x40 != 0 {
		value |= -1 << shift
	}
	return value, n, true
}

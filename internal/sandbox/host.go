package sandbox

import (
	"github.com/wasmerio/wasmer-go/wasmer"

	"contractfuzz/internal/trace"
)

// hostCtx is the per-call state visible to the host functions registered
// with the instance.
type hostCtx struct {
	mem        *wasmer.Memory
	addr       trace.AccountId
	state      *worldState
	gas        *gasMeter
	input      []byte
	returnData []byte
	reverted   bool
}

func (h *hostCtx) read(ptr, ln int32) []byte {
	if h.mem == nil {
		return nil
	}
	data := h.mem.Data()
	if int(ptr) < 0 || int(ptr)+int(ln) > len(data) {
		return nil
	}
	out := make([]byte, ln)
	copy(out, data[ptr:int(ptr)+int(ln)])
	return out
}

func (h *hostCtx) write(ptr int32, b []byte) {
	if h.mem == nil {
		return
	}
	data := h.mem.Data()
	if int(ptr) < 0 || int(ptr)+len(b) > len(data) {
		return
	}
	copy(data[ptr:], b)
}

// registerHost builds the "env" import namespace: host_input_size,
// host_input_copy, host_return, host_storage_get, host_storage_set,
// host_consume_gas. This mirrors the
// seal_* host call convention ink! contracts compile against, trimmed to
// the subset the fuzzer needs to drive deterministic execution.
func registerHost(store *wasmer.Store, h *hostCtx) *wasmer.ImportObject {
	imports := wasmer.NewImportObject()

	hostInputSize := wasmer.NewFunction(store,
		wasmer.NewFunctionType(wasmer.NewValueTypes(), wasmer.NewValueTypes(wasmer.NewValueType(wasmer.I32))),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			return []wasmer.Value{wasmer.NewI32(int32(len(h.input)))}, nil
		},
	)

	hostInputCopy := wasmer.NewFunction(store,
		wasmer.NewFunctionType(wasmer.NewValueTypes(wasmer.NewValueType(wasmer.I32)), wasmer.NewValueTypes()),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			h.write(args[0].I32(), h.input)
			return nil, nil
		},
	)

	hostReturn := wasmer.NewFunction(store,
		wasmer.NewFunctionType(
			wasmer.NewValueTypes(wasmer.NewValueType(wasmer.I32), wasmer.NewValueType(wasmer.I32), wasmer.NewValueType(wasmer.I32)),
			wasmer.NewValueTypes(),
		),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			flags, ptr, ln := args[0].I32(), args[1].I32(), args[2].I32()
			h.returnData = h.read(ptr, ln)
			h.reverted = flags != 0
			return nil, nil
		},
	)

	hostStorageGet := wasmer.NewFunction(store,
		wasmer.NewFunctionType(
			wasmer.NewValueTypes(wasmer.NewValueType(wasmer.I32), wasmer.NewValueType(wasmer.I32), wasmer.NewValueType(wasmer.I32)),
			wasmer.NewValueTypes(wasmer.NewValueType(wasmer.I32)),
		),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			kPtr, kLen, dstPtr := args[0].I32(), args[1].I32(), args[2].I32()
			key := h.read(kPtr, kLen)
			val, ok := h.state.get(h.addr, key)
			if !ok {
				return []wasmer.Value{wasmer.NewI32(-1)}, nil
			}
			h.write(dstPtr, val)
			return []wasmer.Value{wasmer.NewI32(int32(len(val)))}, nil
		},
	)

	hostStorageSet := wasmer.NewFunction(store,
		wasmer.NewFunctionType(
			wasmer.NewValueTypes(wasmer.NewValueType(wasmer.I32), wasmer.NewValueType(wasmer.I32), wasmer.NewValueType(wasmer.I32), wasmer.NewValueType(wasmer.I32)),
			wasmer.NewValueTypes(wasmer.NewValueType(wasmer.I32)),
		),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			kPtr, kLen, vPtr, vLen := args[0].I32(), args[1].I32(), args[2].I32(), args[3].I32()
			key := h.read(kPtr, kLen)
			val := h.read(vPtr, vLen)
			h.state.set(h.addr, key, val)
			return []wasmer.Value{wasmer.NewI32(0)}, nil
		},
	)

	hostConsumeGas := wasmer.NewFunction(store,
		wasmer.NewFunctionType(wasmer.NewValueTypes(wasmer.NewValueType(wasmer.I64)), wasmer.NewValueTypes(wasmer.NewValueType(wasmer.I32))),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			if err := h.gas.consume(uint64(args[0].I64())); err != nil {
				return nil, err // traps the instance: gas exhaustion is a trap
			}
			return []wasmer.Value{wasmer.NewI32(0)}, nil
		},
	)

	imports.Register("env", map[string]wasmer.IntoExtern{
		"host_input_size":  hostInputSize,
		"host_input_copy":  hostInputCopy,
		"host_return":      hostReturn,
		"host_storage_get": hostStorageGet,
		"host_storage_set": hostStorageSet,
		"host_consume_gas": hostConsumeGas,
	})
	return imports
}

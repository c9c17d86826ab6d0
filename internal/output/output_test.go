package output

import (
	"bytes"
	"context"
	"testing"
	"time"

	"contractfuzz/internal/abi"
	"contractfuzz/internal/catalog"
	"contractfuzz/internal/observe"
	"contractfuzz/internal/shrink"
	"contractfuzz/internal/trace"
)

func TestConsoleSinkDecodesKnownSelector(t *testing.T) {
	reg := abi.NewRegistry(map[abi.TypeId]abi.TypeDef{
		0: {Kind: abi.KindPrimitive, Primitive: abi.PrimBool},
	})
	cat := &catalog.Catalog{
		Constructors: []catalog.Method{{Selector: [4]byte{1, 0, 0, 0}, Label: "new", ArgTypes: []abi.TypeId{0}}},
	}
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, reg, cat)

	ft := shrink.FailedTrace{
		Trace: trace.Trace{Deploy: trace.Deploy{Data: append([]byte{1, 0, 0, 0}, 0x01)}},
		Reason: shrink.Reason{Kind: shrink.KindProperty, Property: "inkscope_x"},
	}
	sink.UpdateFailedTraces(map[string]shrink.FailedTrace{"inkscope_x": ft})

	if !bytes.Contains(buf.Bytes(), []byte("new(")) {
		t.Fatalf("expected decoded constructor label in output, got: %s", buf.String())
	}
}

func TestConsoleSinkFallsBackToHexOnUnknownSelector(t *testing.T) {
	reg := abi.NewRegistry(nil)
	cat := &catalog.Catalog{}
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, reg, cat)

	ft := shrink.FailedTrace{
		Trace:  trace.Trace{Deploy: trace.Deploy{Data: []byte{0xff, 0xff, 0xff, 0xff}}},
		Reason: shrink.Reason{Kind: shrink.KindTrapped, Detail: "oob"},
	}
	sink.UpdateFailedTraces(map[string]shrink.FailedTrace{"trap": ft})

	if !bytes.Contains(buf.Bytes(), []byte("0xffffffff")) {
		t.Fatalf("expected raw hex fallback, got: %s", buf.String())
	}
}

func TestConsoleSinkDedupesRepeatedKeys(t *testing.T) {
	reg := abi.NewRegistry(nil)
	cat := &catalog.Catalog{}
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, reg, cat)

	ft := shrink.FailedTrace{Reason: shrink.Reason{Kind: shrink.KindTrapped}}
	sink.UpdateFailedTraces(map[string]shrink.FailedTrace{"trap": ft})
	n1 := buf.Len()
	sink.UpdateFailedTraces(map[string]shrink.FailedTrace{"trap": ft})
	if buf.Len() != n1 {
		t.Fatalf("expected no additional output for an already-seen failure key")
	}
}

func TestPollStopsWhenCampaignFinishes(t *testing.T) {
	camp := observe.New(nil)
	sink := NewTUISink(new(bytes.Buffer))

	done := make(chan struct{})
	go func() {
		Poll(context.Background(), camp, sink, 5*time.Millisecond)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	camp.SetStatus(observe.Finished)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Poll did not return after campaign finished")
	}
}

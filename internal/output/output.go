// Package output implements the pluggable observation sinks: a console
// renderer that decodes and prints failing traces, and a thin terminal
// status sink for interactive runs. Both poll the same
// internal/observe.CampaignData snapshot, never touching engine internals
// directly.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"contractfuzz/internal/abi"
	"contractfuzz/internal/catalog"
	"contractfuzz/internal/observe"
	"contractfuzz/internal/shrink"
)

// Sink is the interface every observer implements: start/exit bracket a
// campaign, and the update methods are called whenever the poller notices
// a change.
type Sink interface {
	Start(runID string)
	UpdateStatus(observe.Status)
	UpdateFailedTraces(map[string]shrink.FailedTrace)
	IncrIteration(round uint64)
	Exit()
}

// ConsoleSink renders campaign progress and decoded failing traces to a
// logrus logger.
type ConsoleSink struct {
	log  *logrus.Entry
	reg  *abi.Registry
	cat  *catalog.Catalog
	seen map[string]bool
}

// NewConsoleSink builds a ConsoleSink that decodes trace arguments using
// reg/cat for human-readable rendering.
func NewConsoleSink(out io.Writer, reg *abi.Registry, cat *catalog.Catalog) *ConsoleSink {
	logger := logrus.New()
	logger.SetOutput(out)
	return &ConsoleSink{
		log:  logger.WithField("component", "console"),
		reg:  reg,
		cat:  cat,
		seen: make(map[string]bool),
	}
}

func (c *ConsoleSink) Start(runID string) {
	c.log.WithField("run_id", runID).Info("campaign started")
}

func (c *ConsoleSink) UpdateStatus(s observe.Status) {
	c.log.WithField("status", s.String()).Info("status changed")
}

func (c *ConsoleSink) UpdateFailedTraces(traces map[string]shrink.FailedTrace) {
	for key, ft := range traces {
		if c.seen[key] {
			continue
		}
		c.seen[key] = true
		c.log.Warn(c.render(key, ft))
	}
}

func (c *ConsoleSink) IncrIteration(round uint64) {
	c.log.WithField("round", round).Debug("iteration complete")
}

func (c *ConsoleSink) Exit() {
	c.log.Info("campaign finished")
}

// render formats a failed trace as a counter-example: the deploy, each
// message indexed, and finally either the decoded property call or the
// literal "trap" marker.
func (c *ConsoleSink) render(key string, ft shrink.FailedTrace) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== failure: %s ===\n", key)
	fmt.Fprintf(&b, "deploy: caller=%x endowment=%d data=%s\n",
		ft.Trace.Deploy.Caller, ft.Trace.Deploy.Endowment, c.decodeCall(ft.Trace.Deploy.Data))
	for i, e := range ft.Trace.Messages {
		if e.IsDeploy {
			fmt.Fprintf(&b, "  [%d] (redeploy) data=%s\n", i, c.decodeCall(e.Deploy.Data))
			continue
		}
		fmt.Fprintf(&b, "  [%d] caller=%x endowment=%d input=%s\n",
			i, e.Message.Caller, e.Message.Endowment, c.decodeCall(e.Message.Input))
	}
	switch ft.Reason.Kind {
	case shrink.KindTrapped:
		fmt.Fprintf(&b, "outcome: trap (%s)\n", ft.Reason.Detail)
	default:
		fmt.Fprintf(&b, "outcome: property %q returned false\n", ft.Reason.Property)
	}
	return b.String()
}

func decodeHex(b []byte) string {
	return fmt.Sprintf("0x%x", b)
}

// decodeCall renders a selector-prefixed call as "label(arg, ...)", each
// argument shown as the hex of the bytes its type decodes, when the catalog
// and registry can resolve it, falling back to raw hex when decoding itself
// fails.
func (c *ConsoleSink) decodeCall(data []byte) string {
	if len(data) < 4 {
		return decodeHex(data)
	}
	var sel [4]byte
	copy(sel[:], data[:4])
	m, ok := findMethod(c.cat, sel)
	if !ok {
		return decodeHex(data)
	}
	pos := 4
	parts := make([]string, 0, len(m.ArgTypes))
	for _, t := range m.ArgTypes {
		n, err := abi.Decode(c.reg, t, data[pos:])
		if err != nil {
			return decodeHex(data)
		}
		parts = append(parts, decodeHex(data[pos:pos+n]))
		pos += n
	}
	if len(parts) == 0 {
		return m.Label + "()"
	}
	return m.Label + "(" + strings.Join(parts, ", ") + ")"
}

func findMethod(cat *catalog.Catalog, sel [4]byte) (catalog.Method, bool) {
	for _, group := range [][]catalog.Method{cat.Constructors, cat.Messages, cat.Properties} {
		for _, m := range group {
			if m.Selector == sel {
				return m, true
			}
		}
	}
	return catalog.Method{}, false
}

package output

import (
	"fmt"
	"io"

	"contractfuzz/internal/observe"
	"contractfuzz/internal/shrink"
)

// TUISink is a minimal ANSI-redrawing status line for interactive runs.
// It stays on the standard library rather than pulling in a full
// terminal UI dependency for a single redrawing line (see DESIGN.md).
type TUISink struct {
	out     io.Writer
	lastLen int
}

// NewTUISink builds a TUISink writing to out (typically os.Stdout).
func NewTUISink(out io.Writer) *TUISink {
	return &TUISink{out: out}
}

func (t *TUISink) Start(runID string) {
	fmt.Fprintf(t.out, "contractfuzz campaign %s starting...\n", runID)
}

func (t *TUISink) UpdateStatus(s observe.Status) {
	t.redraw(fmt.Sprintf("status: %s", s.String()))
}

func (t *TUISink) UpdateFailedTraces(traces map[string]shrink.FailedTrace) {
	t.redraw(fmt.Sprintf("failures: %d", len(traces)))
}

func (t *TUISink) IncrIteration(round uint64) {
	t.redraw(fmt.Sprintf("round: %d", round))
}

func (t *TUISink) Exit() {
	fmt.Fprintln(t.out)
	fmt.Fprintln(t.out, "campaign finished")
}

// redraw overwrites the previous status line in place using a carriage
// return, the same technique teacher CLIs use for progress bars without
// pulling in a terminal library.
func (t *TUISink) redraw(line string) {
	pad := t.lastLen - len(line)
	if pad < 0 {
		pad = 0
	}
	fmt.Fprintf(t.out, "\r%s%*s", line, pad, "")
	t.lastLen = len(line)
}

var (
	_ Sink = (*ConsoleSink)(nil)
	_ Sink = (*TUISink)(nil)
)

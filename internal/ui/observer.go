package ui

import (
	"fmt"
	"io"

	"github.com/rhai-examples/qgate/internal/core/quality"
	"github.com/rhai-examples/qgate/internal/pipeline"
)

// GateObserver shows the running check and prints a status line, plus a
// failure card on failure, when it finishes.
type GateObserver struct {
	theme    *Theme
	progress Progress
	out      io.Writer
	running  Activity
}

// Compile-time interface compliance check.
var _ quality.Observer = (*GateObserver)(nil)

// NewGateObserver creates a GateObserver writing status lines to out.
func NewGateObserver(theme *Theme, progress Progress, out io.Writer) *GateObserver {
	return &GateObserver{theme: theme, progress: progress, out: out}
}

// CheckStarted shows name as running.
func (o *GateObserver) CheckStarted(name string, files int) {
	o.stop()
	o.running = o.progress.Check(name, files)
}

// CheckFinished prints the result line.
func (o *GateObserver) CheckFinished(res *quality.CheckResult) {
	o.stop()
	_, _ = fmt.Fprintln(o.out, CheckLine(o.theme, res))
	if res.Status == quality.StatusFailed {
		_, _ = fmt.Fprintln(o.out, FailureCard(o.theme, res))
	}
}

func (o *GateObserver) stop() {
	if o.running != nil {
		o.running.Stop()
		o.running = nil
	}
}

// JobObserver records finished pipeline jobs on board.
func JobObserver(board JobBoard) pipeline.Observer {
	return board.Record
}

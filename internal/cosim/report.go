package cosim

import (
	"fmt"
	"io"
)

// Reporter receives one StepResult per completed step. Report is called on
// the engine goroutine and must return promptly.
type Reporter interface {
	Report(r StepResult)
}

// WarningSink is implemented by reporters that want non-fatal run errors,
// such as rejected input writes.
type WarningSink interface {
	Warn(err error)
}

type ReporterFunc func(r StepResult)

func (f ReporterFunc) Report(r StepResult) { f(r) }

// Discard drops every result.
var Discard Reporter = ReporterFunc(func(StepResult) {})

// FormatResult renders a result as "Time: 0.10, Output: 1.2345".
func FormatResult(r StepResult) string {
	return fmt.Sprintf("Time: %.2f, Output: %.4f", r.Time, r.Output)
}

// TextReporter prints one FormatResult line per step. Warnings go to
// Warnings when it is set and are dropped otherwise.
type TextReporter struct {
	w        io.Writer
	Warnings io.Writer
}

func NewTextReporter(w io.Writer) *TextReporter {
	return &TextReporter{w: w}
}

func (t *TextReporter) Report(r StepResult) {
	fmt.Fprintln(t.w, FormatResult(r))
}

func (t *TextReporter) Warn(err error) {
	if t.Warnings != nil {
		fmt.Fprintf(t.Warnings, "warning: %v\n", err)
	}
}

// MultiReporter fans results and warnings out to several reporters.
type MultiReporter []Reporter

func (m MultiReporter) Report(r StepResult) {
	for _, rep := range m {
		rep.Report(r)
	}
}

func (m MultiReporter) Warn(err error) {
	for _, rep := range m {
		if w, ok := rep.(WarningSink); ok {
			w.Warn(err)
		}
	}
}

package cosim

import (
	"fmt"
	"strings"
)

// Phase names the part of a run in which an error occurred.
type Phase string

const (
	PhaseSetup     Phase = "setup"
	PhaseInit      Phase = "initialization"
	PhaseWrite     Phase = "write"
	PhaseStep      Phase = "step"
	PhaseRead      Phase = "read"
	PhaseTerminate Phase = "terminate"
	PhaseRun       Phase = "run"
)

// Kind categorizes the error.
type Kind string

const (
	KindSetupRejected   Kind = "setup_rejected"
	KindInitModeFailed  Kind = "init_mode_failed"
	KindWriteRejected   Kind = "write_rejected"
	KindStepFailed      Kind = "step_failed"
	KindReadRejected    Kind = "read_rejected"
	KindTerminateFailed Kind = "terminate_failed"
	KindIllegalState    Kind = "illegal_state"
	KindCanceled        Kind = "canceled"
)

// Sentinels for errors.Is. A sentinel without a phase matches its kind in
// any phase.
var (
	ErrSetupRejected   = &Error{Phase: PhaseSetup, Kind: KindSetupRejected}
	ErrInitModeFailed  = &Error{Phase: PhaseInit, Kind: KindInitModeFailed}
	ErrWriteRejected   = &Error{Phase: PhaseWrite, Kind: KindWriteRejected}
	ErrStepFailed      = &Error{Phase: PhaseStep, Kind: KindStepFailed}
	ErrReadRejected    = &Error{Phase: PhaseRead, Kind: KindReadRejected}
	ErrTerminateFailed = &Error{Phase: PhaseTerminate, Kind: KindTerminateFailed}
	ErrIllegalState    = &Error{Kind: KindIllegalState}
	ErrCanceled        = &Error{Kind: KindCanceled}
)

// Error is the error type returned by the engine. Step is the 1-based
// iteration the error belongs to, zero before stepping started.
type Error struct {
	Cause   error
	Cleanup error
	Detail  string
	Phase   Phase
	Kind    Kind
	Time    float64
	Step    int
	Ref     ValueRef
	HasRef  bool
}

func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString("cosim: ")
	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if e.Step > 0 {
		fmt.Fprintf(&b, " at t=%.4f step %d", e.Time, e.Step)
	}
	if e.HasRef {
		fmt.Fprintf(&b, " ref %d", e.Ref)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	if e.Cleanup != nil {
		b.WriteString(" (cleanup: ")
		b.WriteString(e.Cleanup.Error())
		b.WriteByte(')')
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind and, when the
// target names one, the same phase.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && t.Phase != e.Phase {
		return false
	}
	return t.Kind == e.Kind
}

// Fatal reports whether the error ends a run. Only rejected input writes
// are survivable.
func (e *Error) Fatal() bool {
	return e.Kind != KindWriteRejected
}

func illegalState(format string, args ...any) *Error {
	return &Error{Kind: KindIllegalState, Detail: fmt.Sprintf(format, args...)}
}

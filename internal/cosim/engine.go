package cosim

import (
	"context"
	"errors"
	"time"

	"github.com/rs/xid"
	"go.uber.org/zap"
)

// Summary describes a finished run.
type Summary struct {
	RunID           string
	// Steps counts model steps taken. Reported counts results handed to the
	// reporter and is one less than Steps after a rejected read.
	Steps           int
	Reported        int
	FinalTime       float64
	Sleeps          int
	Slept           time.Duration
	MaxLag          time.Duration
	UpdatesApplied  int
	WriteRejections int
}

type Option func(*Engine)

func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithReporter(r Reporter) Option {
	return func(e *Engine) { e.reporter = r }
}

// WithUpdates sets the channel polled for parameter updates, usually
// Mailbox.Updates.
func WithUpdates(ch <-chan ParameterUpdate) Option {
	return func(e *Engine) { e.updates = ch }
}

func WithRunID(id string) Option {
	return func(e *Engine) { e.runID = id }
}

// Engine steps one model through one run.
type Engine struct {
	cfg      Config
	handle   *Handle
	clock    Clock
	pacer    pacer
	logger   *zap.Logger
	reporter Reporter
	updates  <-chan ParameterUpdate
	runID    string

	step        int
	time        float64
	initialized bool
	started     bool

	reported        int
	updatesApplied  int
	writeRejections int
}

func New(model Model, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg,
		handle:   NewHandle(model),
		clock:    WallClock,
		logger:   zap.NewNop(),
		reporter: Discard,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.runID == "" {
		e.runID = xid.New().String()
	}
	e.logger = e.logger.With(zap.String("run", e.runID))
	e.pacer = newPacer(e.clock, cfg.Speed)
	e.time = cfg.StartTime
	return e
}

func (e *Engine) RunID() string  { return e.runID }
func (e *Engine) Config() Config { return e.cfg }

// Time returns the current simulated time.
func (e *Engine) Time() float64 { return e.time }

// StepCount returns the number of completed steps.
func (e *Engine) StepCount() int { return e.step }

func (e *Engine) Summary() Summary {
	return Summary{
		RunID:           e.runID,
		Steps:           e.step,
		Reported:        e.reported,
		FinalTime:       e.time,
		Sleeps:          e.pacer.sleeps,
		Slept:           e.pacer.slept,
		MaxLag:          e.pacer.maxLag,
		UpdatesApplied:  e.updatesApplied,
		WriteRejections: e.writeRejections,
	}
}

// Initialize configures the model, passes it through initialization mode
// and anchors simulated time to the wall clock. No step is taken.
func (e *Engine) Initialize(ctx context.Context) error {
	if e.initialized || e.handle.State() != StateInstantiated {
		return illegalState("initialize not allowed while %s", e.handle.State())
	}
	if err := ctx.Err(); err != nil {
		return &Error{Phase: PhaseSetup, Kind: KindCanceled, Cause: err}
	}
	if err := e.cfg.Validate(); err != nil {
		return err
	}

	if err := e.handle.SetupExperiment(e.cfg.experiment()); err != nil {
		return &Error{Phase: PhaseSetup, Kind: KindSetupRejected, Cause: err}
	}
	if err := e.handle.EnterInitializationMode(); err != nil {
		return &Error{Phase: PhaseInit, Kind: KindInitModeFailed, Detail: "enter initialization mode", Cause: err}
	}
	if err := e.handle.ExitInitializationMode(); err != nil {
		return &Error{Phase: PhaseInit, Kind: KindInitModeFailed, Detail: "exit initialization mode", Cause: err}
	}

	e.step = 0
	e.time = e.cfg.StartTime
	e.pacer.start()
	e.initialized = true

	e.logger.Info("model initialized",
		zap.Float64("start", e.cfg.StartTime),
		zap.Float64("stop", e.cfg.StopTime),
		zap.Float64("step_size", e.cfg.StepSize),
		zap.Float64("speed", e.cfg.Speed))
	return nil
}

// Apply writes one parameter update to the model.
func (e *Engine) Apply(u ParameterUpdate) error {
	if err := e.handle.SetReal(u.Ref, u.Value); err != nil {
		return &Error{
			Phase:  PhaseWrite,
			Kind:   KindWriteRejected,
			Step:   e.step + 1,
			Time:   e.time,
			Ref:    u.Ref,
			HasRef: true,
			Cause:  err,
		}
	}
	return nil
}

// Step advances the model by exactly one step size and reads the output
// channel. It neither paces nor reports.
func (e *Engine) Step() (StepResult, error) {
	if !e.initialized {
		return StepResult{}, illegalState("step before initialize")
	}

	n := e.step + 1
	if err := e.handle.DoStep(e.time, e.cfg.StepSize, true); err != nil {
		return StepResult{}, &Error{Phase: PhaseStep, Kind: KindStepFailed, Step: n, Time: e.time, Cause: err}
	}

	e.step = n
	e.time = e.cfg.StartTime + float64(n)*e.cfg.StepSize

	out, err := e.handle.GetReal(e.cfg.Output)
	if err != nil {
		return StepResult{}, &Error{
			Phase:  PhaseRead,
			Kind:   KindReadRejected,
			Step:   n,
			Time:   e.time,
			Ref:    e.cfg.Output,
			HasRef: true,
			Cause:  err,
		}
	}

	return StepResult{Time: e.time, Output: out}, nil
}

// Terminate terminates and releases the model.
func (e *Engine) Terminate() error {
	if err := e.handle.Terminate(); err != nil {
		return &Error{Phase: PhaseTerminate, Kind: KindTerminateFailed, Step: e.step, Time: e.time, Cause: err}
	}
	return nil
}

// Run initializes the model, steps it until stop time and terminates it.
// The model is terminated on every path, including failures.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	if e.started {
		return e.Summary(), illegalState("engine %s already ran", e.runID)
	}
	e.started = true

	if err := e.Initialize(ctx); err != nil {
		return e.finish(err)
	}

	for !e.done() {
		if err := ctx.Err(); err != nil {
			return e.finish(&Error{Phase: PhaseRun, Kind: KindCanceled, Step: e.step, Time: e.time, Cause: err})
		}

		e.drain()
		e.pacer.wait(e.time - e.cfg.StartTime)

		res, err := e.Step()
		if err != nil {
			return e.finish(err)
		}
		e.reporter.Report(res)
		e.reported++
	}

	return e.finish(nil)
}

func (e *Engine) done() bool {
	return e.time >= e.cfg.StopTime-e.cfg.StepSize*timeEpsilon
}

// drain applies at most one pending update without blocking.
func (e *Engine) drain() {
	if e.updates == nil {
		return
	}

	select {
	case u, ok := <-e.updates:
		if !ok {
			e.updates = nil
			e.logger.Debug("update source closed")
			return
		}
		e.apply(u)
	default:
	}
}

func (e *Engine) apply(u ParameterUpdate) {
	if err := e.Apply(u); err != nil {
		e.writeRejections++
		e.logger.Warn("input write rejected",
			zap.Uint32("ref", uint32(u.Ref)),
			zap.Float64("value", u.Value),
			zap.Error(err))
		if w, ok := e.reporter.(WarningSink); ok {
			w.Warn(err)
		}
		return
	}

	e.updatesApplied++
	e.logger.Debug("input updated",
		zap.Uint32("ref", uint32(u.Ref)),
		zap.Float64("value", u.Value),
		zap.Float64("time", e.time))
}

func (e *Engine) finish(runErr error) (Summary, error) {
	termErr := e.Terminate()

	if runErr == nil {
		if termErr != nil {
			e.logger.Error("terminate failed", zap.Error(termErr))
			return e.Summary(), termErr
		}
		e.logger.Info("run complete",
			zap.Int("steps", e.step),
			zap.Float64("time", e.time),
			zap.Int("sleeps", e.pacer.sleeps),
			zap.Duration("max_lag", e.pacer.maxLag),
			zap.Int("write_rejections", e.writeRejections))
		return e.Summary(), nil
	}

	if termErr != nil {
		e.logger.Warn("terminate after failure", zap.Error(termErr))
		var ce *Error
		if errors.As(runErr, &ce) && ce.Cleanup == nil {
			ce.Cleanup = termErr
		}
	}
	e.logger.Error("run aborted", zap.Error(runErr))
	return e.Summary(), runErr
}

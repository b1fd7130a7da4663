package cosim

import (
	"fmt"
	"math"
)

// timeEpsilon is the fraction of a step size under which two points in
// simulated time are considered equal.
const timeEpsilon = 1e-9

// ValueRef identifies a scalar variable of a model.
type ValueRef uint32

// Experiment carries the bounds passed to Model.SetupExperiment.
type Experiment struct {
	StartTime        float64
	StopTime         float64
	Tolerance        float64
	ToleranceDefined bool
}

// Model is the co-simulation slave driven by the engine. All calls are
// synchronous and are never made concurrently.
type Model interface {
	SetupExperiment(exp Experiment) error
	EnterInitializationMode() error
	ExitInitializationMode() error
	SetReal(ref ValueRef, value float64) error
	GetReal(ref ValueRef) (float64, error)
	DoStep(currentTime, stepSize float64, noSetFMUStatePriorToCurrentPoint bool) error
	Terminate() error
}

// ParameterUpdate is a new value for one input channel.
type ParameterUpdate struct {
	Ref   ValueRef
	Value float64
}

// StepResult is the output observed after one completed step.
type StepResult struct {
	Time   float64
	Output float64
}

// Config is the fixed run configuration handed to the engine.
type Config struct {
	StartTime        float64
	StopTime         float64
	StepSize         float64
	Tolerance        float64
	ToleranceDefined bool
	Input            ValueRef
	Output           ValueRef
	// Speed is the real-time factor. 1 runs in real time, 2 twice as fast,
	// and zero or less disables pacing.
	Speed float64
}

func DefaultConfig() Config {
	return Config{
		StartTime: 0,
		StopTime:  10,
		StepSize:  0.1,
		Speed:     1,
	}
}

// Validate checks the experiment bounds before any model call is made.
func (c Config) Validate() error {
	reject := func(format string, args ...any) error {
		return &Error{Phase: PhaseSetup, Kind: KindSetupRejected, Detail: fmt.Sprintf(format, args...)}
	}
	bounds := []struct {
		name  string
		value float64
	}{{"start time", c.StartTime}, {"stop time", c.StopTime}, {"step size", c.StepSize}}
	for _, b := range bounds {
		if math.IsNaN(b.value) || math.IsInf(b.value, 0) {
			return reject("%s must be finite, got %v", b.name, b.value)
		}
	}
	if c.StepSize <= 0 {
		return reject("step size must be positive, got %g", c.StepSize)
	}
	if c.StopTime <= c.StartTime {
		return reject("stop time %g must be after start time %g", c.StopTime, c.StartTime)
	}
	if c.ToleranceDefined && c.Tolerance <= 0 {
		return reject("tolerance must be positive, got %g", c.Tolerance)
	}
	return nil
}

// Steps returns the number of steps a run with this config completes.
func (c Config) Steps() int {
	if c.StepSize <= 0 || c.StopTime <= c.StartTime {
		return 0
	}
	return int(math.Ceil((c.StopTime-c.StartTime)/c.StepSize - timeEpsilon))
}

func (c Config) experiment() Experiment {
	return Experiment{
		StartTime:        c.StartTime,
		StopTime:         c.StopTime,
		Tolerance:        c.Tolerance,
		ToleranceDefined: c.ToleranceDefined,
	}
}

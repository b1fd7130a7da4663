package cosim_test

import (
	"errors"
	"time"

	"github.com/san-kum/cosim/internal/cosim"
)

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// gainModel has one input at ref 0 and reports gain*input at ref 1.
type gainModel struct {
	clock *fakeClock
	cost  func(step int) time.Duration
	gain  float64

	input      float64
	steps      int
	stepTimes  []float64
	setupCalls int
	failReadAt int
	onStep     func(step int)

	terminated   int
	terminateErr error
	closed       int
}

func (m *gainModel) SetupExperiment(exp cosim.Experiment) error {
	m.setupCalls++
	if exp.StopTime <= exp.StartTime {
		return errors.New("stop time before start time")
	}
	return nil
}

func (m *gainModel) EnterInitializationMode() error { return nil }
func (m *gainModel) ExitInitializationMode() error  { return nil }

func (m *gainModel) SetReal(ref cosim.ValueRef, value float64) error {
	if ref != 0 {
		return errors.New("not an input")
	}
	m.input = value
	return nil
}

func (m *gainModel) GetReal(ref cosim.ValueRef) (float64, error) {
	if m.failReadAt > 0 && m.steps == m.failReadAt {
		return 0, errors.New("output unavailable")
	}
	switch ref {
	case 0:
		return m.input, nil
	case 1:
		return m.gain * m.input, nil
	}
	return 0, errors.New("unknown ref")
}

func (m *gainModel) DoStep(currentTime, stepSize float64, noSetFMUStatePriorToCurrentPoint bool) error {
	m.steps++
	m.stepTimes = append(m.stepTimes, currentTime)
	if m.clock != nil && m.cost != nil {
		m.clock.Advance(m.cost(m.steps))
	}
	if m.onStep != nil {
		m.onStep(m.steps)
	}
	return nil
}

func (m *gainModel) Terminate() error {
	m.terminated++
	return m.terminateErr
}

func (m *gainModel) Close() error {
	m.closed++
	return nil
}

func fixedCost(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return d }
}

type collector struct {
	results  []cosim.StepResult
	warnings []error
	onReport func(r cosim.StepResult)
}

func (c *collector) Report(r cosim.StepResult) {
	c.results = append(c.results, r)
	if c.onReport != nil {
		c.onReport(r)
	}
}

func (c *collector) Warn(err error) {
	c.warnings = append(c.warnings, err)
}

func (c *collector) outputs() []float64 {
	out := make([]float64, len(c.results))
	for i, r := range c.results {
		out[i] = r.Output
	}
	return out
}

// Package slave exposes physics systems as co-simulation models.
package slave

import (
	"fmt"
	"math"

	"github.com/san-kum/cosim/internal/cosim"
	"github.com/san-kum/cosim/internal/integrators"
	"github.com/san-kum/cosim/internal/physics"
)

type Causality int

const (
	Input Causality = iota
	Output
)

func (c Causality) String() string {
	if c == Input {
		return "input"
	}
	return "output"
}

// Variable is one entry of a slave's variable table. Inputs come first,
// followed by the states, all of which are outputs.
type Variable struct {
	Ref       cosim.ValueRef
	Name      string
	Causality Causality
}

type mode int

const (
	modeInstantiated mode = iota
	modeConfigured
	modeInitializing
	modeStepping
	modeTerminated
)

// DefaultMaxSubStep bounds the internal integration step.
const DefaultMaxSubStep = 0.01

type Option func(*Slave)

func WithIntegrator(integ physics.Integrator) Option {
	return func(s *Slave) { s.integ = integ }
}

// WithMaxSubStep bounds the integration step used inside one DoStep.
// Values <= 0 integrate each communication step in a single sub-step.
func WithMaxSubStep(h float64) Option {
	return func(s *Slave) { s.maxSubStep = h }
}

// Slave integrates a physics.System between communication points. It
// implements cosim.Model.
type Slave struct {
	name       string
	sys        physics.System
	integ      physics.Integrator
	maxSubStep float64
	vars       []Variable

	mode mode
	exp  cosim.Experiment
	time float64
	x    physics.State
	u    physics.Control

	subSteps int
}

func New(name string, sys physics.System, opts ...Option) *Slave {
	s := &Slave{
		name:       name,
		sys:        sys,
		maxSubStep: DefaultMaxSubStep,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.vars = Variables(sys)
	return s
}

// Variables builds the variable table of sys.
func Variables(sys physics.System) []Variable {
	vars := make([]Variable, 0, sys.ControlDim()+sys.StateDim())
	for _, n := range sys.InputNames() {
		vars = append(vars, Variable{Ref: cosim.ValueRef(len(vars)), Name: n, Causality: Input})
	}
	for _, n := range sys.StateNames() {
		vars = append(vars, Variable{Ref: cosim.ValueRef(len(vars)), Name: n, Causality: Output})
	}
	return vars
}

func (s *Slave) Name() string           { return s.name }
func (s *Slave) Variables() []Variable  { return s.vars }
func (s *Slave) System() physics.System { return s.sys }

// Time returns the last communication point reached.
func (s *Slave) Time() float64 { return s.time }

// SubSteps returns the number of integrator steps taken so far.
func (s *Slave) SubSteps() int { return s.subSteps }

// Lookup returns the variable with the given name.
func (s *Slave) Lookup(name string) (Variable, bool) {
	for _, v := range s.vars {
		if v.Name == name {
			return v, true
		}
	}
	return Variable{}, false
}

func (s *Slave) require(op string, allowed ...mode) error {
	for _, m := range allowed {
		if s.mode == m {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrLifecycle, op)
}

func (s *Slave) SetupExperiment(exp cosim.Experiment) error {
	if err := s.require("setup experiment", modeInstantiated); err != nil {
		return err
	}
	if s.integ == nil {
		return fmt.Errorf("%s: no integrator", s.name)
	}
	if exp.StopTime <= exp.StartTime {
		return fmt.Errorf("%s: stop time %g not after start time %g", s.name, exp.StopTime, exp.StartTime)
	}
	s.exp = exp
	s.time = exp.StartTime
	s.mode = modeConfigured
	return nil
}

// EnterInitializationMode resets the state to the system's initial state
// and all inputs to zero.
func (s *Slave) EnterInitializationMode() error {
	if err := s.require("enter initialization mode", modeConfigured); err != nil {
		return err
	}
	s.x = s.sys.InitialState()
	s.u = make(physics.Control, s.sys.ControlDim())
	s.mode = modeInitializing
	return nil
}

func (s *Slave) ExitInitializationMode() error {
	if err := s.require("exit initialization mode", modeInitializing); err != nil {
		return err
	}
	if !s.x.IsValid() {
		return fmt.Errorf("%w: initial state %v", ErrDiverged, s.x)
	}
	s.mode = modeStepping
	return nil
}

// SetReal writes an input. States may only be overwritten during
// initialization mode.
func (s *Slave) SetReal(ref cosim.ValueRef, value float64) error {
	if err := s.require("set real", modeInitializing, modeStepping); err != nil {
		return err
	}
	v, err := s.variable(ref)
	if err != nil {
		return err
	}
	if v.Causality == Input {
		s.u[ref] = value
		return nil
	}
	if s.mode != modeInitializing {
		return fmt.Errorf("%w: %s", ErrNotWritable, v.Name)
	}
	s.x[int(ref)-len(s.u)] = value
	return nil
}

func (s *Slave) GetReal(ref cosim.ValueRef) (float64, error) {
	if err := s.require("get real", modeInitializing, modeStepping); err != nil {
		return 0, err
	}
	v, err := s.variable(ref)
	if err != nil {
		return 0, err
	}
	if v.Causality == Input {
		return s.u[ref], nil
	}
	return s.x[int(ref)-len(s.u)], nil
}

func (s *Slave) variable(ref cosim.ValueRef) (Variable, error) {
	if int(ref) >= len(s.vars) {
		return Variable{}, fmt.Errorf("%w: %d (%s has %d variables)", ErrUnknownRef, ref, s.name, len(s.vars))
	}
	return s.vars[ref], nil
}

// DoStep integrates from currentTime to currentTime+stepSize in sub-steps no
// longer than the configured maximum. The state is left untouched when the
// step fails.
func (s *Slave) DoStep(currentTime, stepSize float64, noSetFMUStatePriorToCurrentPoint bool) error {
	if err := s.require("do step", modeStepping); err != nil {
		return err
	}
	if !(stepSize > 0) {
		return fmt.Errorf("%s: step size must be positive, got %g", s.name, stepSize)
	}
	if math.Abs(currentTime-s.time) > 1e-9*math.Max(1, stepSize) {
		return fmt.Errorf("%w: got t=%g, expected t=%g", ErrCommunicationPoint, currentTime, s.time)
	}

	n := 1
	if s.maxSubStep > 0 {
		n = int(math.Ceil(stepSize/s.maxSubStep - 1e-9))
	}
	x := integrators.Advance(s.integ, s.sys, s.x, s.u, currentTime, stepSize, n)
	if !x.IsValid() {
		return fmt.Errorf("%w: at t=%g", ErrDiverged, currentTime+stepSize)
	}

	s.x = x
	s.time = currentTime + stepSize
	s.subSteps += n
	return nil
}

func (s *Slave) Terminate() error {
	if err := s.require("terminate", modeConfigured, modeInitializing, modeStepping); err != nil {
		return err
	}
	s.mode = modeTerminated
	return nil
}

package physics

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
)

var ErrUnknownParam = errors.New("physics: unknown parameter")

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

type Control []float64

// System is a model of the form x' = f(x, u, t).
type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
	// InputNames has ControlDim entries and StateNames has StateDim entries.
	InputNames() []string
	StateNames() []string
	InitialState() State
}

type Hamiltonian interface {
	Energy(x State) float64
}

type Integrator interface {
	Step(sys System, x State, u Control, t, dt float64) State
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// Configure applies params to sys in a stable order. Systems that are not
// Configurable reject any non-empty params.
func Configure(sys System, params map[string]float64) error {
	if len(params) == 0 {
		return nil
	}
	c, ok := sys.(Configurable)
	if !ok {
		return fmt.Errorf("%w: system takes no parameters", ErrUnknownParam)
	}
	for _, name := range slices.Sorted(maps.Keys(params)) {
		if err := c.SetParam(name, params[name]); err != nil {
			return err
		}
	}
	return nil
}

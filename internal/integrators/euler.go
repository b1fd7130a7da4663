package integrators

import "github.com/san-kum/cosim/internal/physics"

type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(sys physics.System, x physics.State, u physics.Control, t, dt float64) physics.State {
	dst := make(physics.State, len(x))
	e.StepInto(dst, sys, x, u, t, dt)
	return dst
}

// StepInto writes the explicit Euler update of x into dst. dst may be x.
func (e *Euler) StepInto(dst physics.State, sys physics.System, x physics.State, u physics.Control, t, dt float64) {
	dx := sys.Derive(x, u, t)
	for i := range x {
		dst[i] = x[i] + dt*dx[i]
	}
}

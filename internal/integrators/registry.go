package integrators

import (
	"fmt"
	"maps"
	"slices"

	"github.com/san-kum/cosim/internal/physics"
)

var registry = map[string]func() physics.Integrator{
	"euler":  func() physics.Integrator { return NewEuler() },
	"rk4":    func() physics.Integrator { return NewRK4() },
	"verlet": func() physics.Integrator { return NewVerlet() },
}

// New returns a fresh integrator by name. Integrators keep scratch buffers,
// so one instance must not be shared between slaves.
func New(name string) (physics.Integrator, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

// Supports reports whether integ can advance sys.
func Supports(integ physics.Integrator, sys physics.System) bool {
	if _, ok := integ.(*Verlet); ok {
		return sys.StateDim()%2 == 0
	}
	return true
}

func Names() []string {
	return slices.Sorted(maps.Keys(registry))
}

// InPlace is implemented by integrators that can write a step into a
// caller-owned buffer.
type InPlace interface {
	StepInto(dst physics.State, sys physics.System, x physics.State, u physics.Control, t, dt float64)
}

// Advance integrates x over [t, t+h] in n equal sub-steps and returns the
// new state. x is not modified. In-place integrators reuse one buffer for
// every sub-step.
func Advance(integ physics.Integrator, sys physics.System, x physics.State, u physics.Control, t, h float64, n int) physics.State {
	if n < 1 {
		n = 1
	}
	dt := h / float64(n)

	ip, ok := integ.(InPlace)
	if !ok {
		for i := 0; i < n; i++ {
			x = integ.Step(sys, x, u, t+float64(i)*dt, dt)
		}
		return x
	}

	out := x.Clone()
	for i := 0; i < n; i++ {
		ip.StepInto(out, sys, out, u, t+float64(i)*dt, dt)
	}
	return out
}

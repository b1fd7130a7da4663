package integrators

import "github.com/san-kum/cosim/internal/physics"

// Verlet is velocity Verlet for second-order systems whose state is all
// positions followed by all velocities. The state length must be even.
type Verlet struct {
	scratch physics.State
	acc     physics.State
}

func NewVerlet() *Verlet {
	return &Verlet{}
}

func (v *Verlet) Step(sys physics.System, x physics.State, u physics.Control, t, dt float64) physics.State {
	dst := make(physics.State, len(x))
	v.StepInto(dst, sys, x, u, t, dt)
	return dst
}

// StepInto writes one velocity Verlet step of x into dst. dst may be x.
func (v *Verlet) StepInto(dst physics.State, sys physics.System, x physics.State, u physics.Control, t, dt float64) {
	n := len(x)
	half := n / 2
	if len(v.scratch) != n {
		v.scratch = make(physics.State, n)
		v.acc = make(physics.State, half)
	}

	copy(v.acc, sys.Derive(x, u, t)[half:])
	dt2 := dt * dt

	for i := 0; i < half; i++ {
		v.scratch[i] = x[i] + x[half+i]*dt + 0.5*v.acc[i]*dt2
		v.scratch[half+i] = x[half+i]
	}

	dxNew := sys.Derive(v.scratch, u, t+dt)

	halfDt := 0.5 * dt
	for i := 0; i < half; i++ {
		dst[half+i] = x[half+i] + (v.acc[i]+dxNew[half+i])*halfDt
		dst[i] = v.scratch[i]
	}
}

package integrators

import "github.com/san-kum/cosim/internal/physics"

// RK4 is the classic fourth-order Runge-Kutta scheme. The stage buffers are
// reused between steps.
type RK4 struct {
	k1, k2, k3, k4 physics.State
	scratch        physics.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(physics.State, n)
		r.k2 = make(physics.State, n)
		r.k3 = make(physics.State, n)
		r.k4 = make(physics.State, n)
		r.scratch = make(physics.State, n)
	}
}

func (r *RK4) Step(sys physics.System, x physics.State, u physics.Control, t, dt float64) physics.State {
	dst := make(physics.State, len(x))
	r.StepInto(dst, sys, x, u, t, dt)
	return dst
}

// stage sets r.scratch = x + c*k and returns Derive at t.
func (r *RK4) stage(sys physics.System, x, k physics.State, c float64, u physics.Control, t float64) physics.State {
	for i := range x {
		r.scratch[i] = x[i] + c*k[i]
	}
	return sys.Derive(r.scratch, u, t)
}

// StepInto writes one RK4 step of x into dst. dst may be x: it is only
// written after the last stage.
func (r *RK4) StepInto(dst physics.State, sys physics.System, x physics.State, u physics.Control, t, dt float64) {
	r.ensureScratch(len(x))
	half := 0.5 * dt

	copy(r.k1, sys.Derive(x, u, t))
	copy(r.k2, r.stage(sys, x, r.k1, half, u, t+half))
	copy(r.k3, r.stage(sys, x, r.k2, half, u, t+half))
	copy(r.k4, r.stage(sys, x, r.k3, dt, u, t+dt))

	dt6 := dt / 6.0
	for i := range x {
		dst[i] = x[i] + dt6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}
}

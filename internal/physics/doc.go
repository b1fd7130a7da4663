// Package physics provides the continuous-time models behind the built-in
// co-simulation slaves.
//
// Each model implements [System], defining the differential equations
// governing its evolution together with the names of its inputs and states:
//
//   - [Lag]: first-order lag, y' = (K*u - y) / tau
//   - [SpringMass]: damped spring-mass chain driven by a force on the first mass
//   - [Pendulum]: damped pendulum driven by a torque
//   - [Duffing]: periodically driven Duffing oscillator with an extra force
//   - [VanDerPol]: forced Van der Pol oscillator
//
// All models also implement [Configurable] for parameter adjustment before a
// run and [Hamiltonian] where an energy is defined.
//
//	sys := physics.NewPendulum()
//	if h, ok := sys.(physics.Hamiltonian); ok {
//	    energy := h.Energy(state)
//	}
package physics

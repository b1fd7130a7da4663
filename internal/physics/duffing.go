package physics

import (
	"fmt"
	"math"
)

// Duffing is a nonlinear oscillator driven by a periodic force plus the
// external force u:
//
//	x'' = -delta*x' - alpha*x - beta*x^3 + gamma*cos(omega*t) + u
type Duffing struct {
	Alpha, Beta, Delta, Gamma, Omega float64
	X0                               float64
}

func NewDuffing() *Duffing {
	return &Duffing{Alpha: -1.0, Beta: 1.0, Delta: 0.3, Gamma: 0.5, Omega: 1.2, X0: 1.0}
}

func (d *Duffing) StateDim() int   { return 2 }
func (d *Duffing) ControlDim() int { return 1 }

func (d *Duffing) InputNames() []string { return []string{"force"} }
func (d *Duffing) StateNames() []string { return []string{"x", "v"} }

func (d *Duffing) InitialState() State { return State{d.X0, 0} }

func (d *Duffing) Derive(s State, u Control, t float64) State {
	x, v := s[0], s[1]
	f := d.Gamma * math.Cos(d.Omega*t)
	if len(u) > 0 {
		f += u[0]
	}
	return State{v, -d.Delta*v - d.Alpha*x - d.Beta*x*x*x + f}
}

func (d *Duffing) Energy(s State) float64 {
	x, v := s[0], s[1]
	return 0.5*v*v + 0.5*d.Alpha*x*x + 0.25*d.Beta*x*x*x*x
}

func (d *Duffing) GetParams() map[string]float64 {
	return map[string]float64{"alpha": d.Alpha, "beta": d.Beta, "delta": d.Delta, "gamma": d.Gamma, "omega": d.Omega, "x0": d.X0}
}

func (d *Duffing) SetParam(n string, v float64) error {
	switch n {
	case "alpha":
		d.Alpha = v
	case "beta":
		d.Beta = v
	case "delta":
		d.Delta = v
	case "gamma":
		d.Gamma = v
	case "omega":
		d.Omega = v
	case "x0":
		d.X0 = v
	default:
		return fmt.Errorf("%w: %s", ErrUnknownParam, n)
	}
	return nil
}

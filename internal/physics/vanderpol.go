package physics

import "fmt"

// VanDerPol is the forced Van der Pol oscillator. State: [x, y] where y = dx/dt
//
//	dx/dt = y
//	dy/dt = mu(1 - x^2)y - x + u
type VanDerPol struct {
	Mu float64 // nonlinearity
	X0 float64
}

func NewVanDerPol() *VanDerPol {
	return &VanDerPol{
		Mu: 1.0, // classic limit cycle
		X0: 2.0,
	}
}

func (v *VanDerPol) StateDim() int   { return 2 }
func (v *VanDerPol) ControlDim() int { return 1 }

func (v *VanDerPol) InputNames() []string { return []string{"u"} }
func (v *VanDerPol) StateNames() []string { return []string{"x", "y"} }

func (v *VanDerPol) InitialState() State { return State{v.X0, 0} }

func (v *VanDerPol) Derive(state State, u Control, _ float64) State {
	x, y := state[0], state[1]

	dx := y
	dy := v.Mu*(1-x*x)*y - x
	if len(u) > 0 {
		dy += u[0]
	}

	return State{dx, dy}
}

func (v *VanDerPol) GetParams() map[string]float64 {
	return map[string]float64{
		"mu": v.Mu,
		"x0": v.X0,
	}
}

func (v *VanDerPol) SetParam(name string, value float64) error {
	switch name {
	case "mu":
		v.Mu = value
	case "x0":
		v.X0 = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownParam, name)
	}
	return nil
}

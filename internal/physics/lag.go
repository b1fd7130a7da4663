package physics

import "fmt"

// Lag is a first-order lag with gain K and time constant Tau.
type Lag struct {
	Gain    float64
	Tau     float64
	Initial float64
}

func NewLag() *Lag {
	return &Lag{
		Gain: 2.0,
		Tau:  0.5,
	}
}

func (l *Lag) StateDim() int   { return 1 }
func (l *Lag) ControlDim() int { return 1 }

func (l *Lag) InputNames() []string { return []string{"u"} }
func (l *Lag) StateNames() []string { return []string{"y"} }

func (l *Lag) InitialState() State { return State{l.Initial} }

func (l *Lag) Derive(x State, u Control, t float64) State {
	in := 0.0
	if len(u) > 0 {
		in = u[0]
	}
	return State{(l.Gain*in - x[0]) / l.Tau}
}

func (l *Lag) GetParams() map[string]float64 {
	return map[string]float64{
		"gain": l.Gain,
		"tau":  l.Tau,
		"y0":   l.Initial,
	}
}

func (l *Lag) SetParam(name string, value float64) error {
	switch name {
	case "gain":
		l.Gain = value
	case "tau":
		if value <= 0 {
			return fmt.Errorf("tau must be positive, got %g", value)
		}
		l.Tau = value
	case "y0":
		l.Initial = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownParam, name)
	}
	return nil
}

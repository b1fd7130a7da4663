package physics

import (
	"fmt"
	"strconv"
)

const (
	DefaultMass      = 1.0
	DefaultStiffness = 10.0
	DefaultDamping   = 0.5
)

// SpringMass is a chain of masses joined by springs, anchored to a wall on
// the left and, for chains, on the right. The input force acts on the first
// mass. States are all positions followed by all velocities.
type SpringMass struct {
	NumMasses int
	Masses    []float64
	Stiffness []float64
	Damping   []float64
	X0        float64
}

func NewSpringMass() *SpringMass {
	return &SpringMass{
		NumMasses: 1,
		Masses:    []float64{DefaultMass},
		Stiffness: []float64{DefaultStiffness},
		Damping:   []float64{DefaultDamping},
	}
}

func NewSpringMassChain(n int) *SpringMass {
	masses := make([]float64, n)
	stiffness := make([]float64, n+1)
	damping := make([]float64, n)

	for i := 0; i < n; i++ {
		masses[i] = DefaultMass
		stiffness[i] = DefaultStiffness
		damping[i] = 0.2
	}
	stiffness[n] = DefaultStiffness

	return &SpringMass{
		NumMasses: n,
		Masses:    masses,
		Stiffness: stiffness,
		Damping:   damping,
	}
}

func (s *SpringMass) StateDim() int   { return s.NumMasses * 2 }
func (s *SpringMass) ControlDim() int { return 1 }

func (s *SpringMass) InputNames() []string { return []string{"force"} }

func (s *SpringMass) StateNames() []string {
	if s.NumMasses == 1 {
		return []string{"position", "velocity"}
	}
	names := make([]string, 0, s.StateDim())
	for i := 1; i <= s.NumMasses; i++ {
		names = append(names, "x"+strconv.Itoa(i))
	}
	for i := 1; i <= s.NumMasses; i++ {
		names = append(names, "v"+strconv.Itoa(i))
	}
	return names
}

// InitialState displaces the first mass by X0 with everything at rest.
func (s *SpringMass) InitialState() State {
	x := make(State, s.StateDim())
	x[0] = s.X0
	return x
}

func (s *SpringMass) Derive(x State, u Control, t float64) State {
	n := s.NumMasses
	dx := make(State, n*2)

	for i := 0; i < n; i++ {
		dx[i] = x[n+i]
	}

	extForce := 0.0
	if len(u) > 0 {
		extForce = u[0]
	}

	for i := 0; i < n; i++ {
		pos, vel := x[i], x[n+i]

		var forceLeft, forceRight float64
		if i == 0 {
			forceLeft = -s.Stiffness[0] * pos
		} else {
			forceLeft = -s.Stiffness[i] * (pos - x[i-1])
		}

		if i == n-1 {
			if len(s.Stiffness) > n {
				forceRight = -s.Stiffness[n] * pos
			}
		} else {
			forceRight = -s.Stiffness[i+1] * (pos - x[i+1])
		}

		totalForce := forceLeft + forceRight - s.Damping[i]*vel
		if i == 0 {
			totalForce += extForce
		}
		dx[n+i] = totalForce / s.Masses[i]
	}

	return dx
}

func (s *SpringMass) Energy(x State) float64 {
	n := s.NumMasses
	energy := 0.0

	for i := 0; i < n; i++ {
		v := x[n+i]
		energy += 0.5 * s.Masses[i] * v * v
	}

	for i := 0; i < n; i++ {
		pos := x[i]
		if i == 0 {
			energy += 0.5 * s.Stiffness[0] * pos * pos
		} else {
			stretch := pos - x[i-1]
			energy += 0.5 * s.Stiffness[i] * stretch * stretch
		}
	}

	if len(s.Stiffness) > n {
		energy += 0.5 * s.Stiffness[n] * x[n-1] * x[n-1]
	}

	return energy
}

// GetParams exposes the first mass and the spring anchoring it. Chains share
// the same values across all links.
func (s *SpringMass) GetParams() map[string]float64 {
	return map[string]float64{
		"mass":      s.Masses[0],
		"stiffness": s.Stiffness[0],
		"damping":   s.Damping[0],
		"x0":        s.X0,
	}
}

func (s *SpringMass) SetParam(name string, value float64) error {
	switch name {
	case "mass":
		if value <= 0 {
			return fmt.Errorf("mass must be positive, got %g", value)
		}
		fill(s.Masses, value)
	case "stiffness":
		fill(s.Stiffness, value)
	case "damping":
		fill(s.Damping, value)
	case "x0":
		s.X0 = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownParam, name)
	}
	return nil
}

func fill(dst []float64, v float64) {
	for i := range dst {
		dst[i] = v
	}
}

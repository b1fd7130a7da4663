package slave

import (
	"fmt"
	"sort"

	"github.com/san-kum/cosim/internal/integrators"
	"github.com/san-kum/cosim/internal/physics"
)

// Entry describes one built-in model.
type Entry struct {
	Name        string
	Description string
	Integrator  string
	// Output is the name of the variable reported by default.
	Output string
	New    func() physics.System
}

type Registry struct {
	models map[string]Entry
}

func NewRegistry() *Registry {
	r := &Registry{models: make(map[string]Entry)}

	r.Register(Entry{
		Name:        "lag",
		Description: "first-order lag y' = (K*u - y) / tau",
		Integrator:  "rk4",
		Output:      "y",
		New:         func() physics.System { return physics.NewLag() },
	})
	r.Register(Entry{
		Name:        "spring_mass",
		Description: "damped spring-mass driven by a force",
		Integrator:  "rk4",
		Output:      "position",
		New:         func() physics.System { return physics.NewSpringMass() },
	})
	r.Register(Entry{
		Name:        "pendulum",
		Description: "damped pendulum driven by a torque",
		Integrator:  "rk4",
		Output:      "theta",
		New:         func() physics.System { return physics.NewPendulum() },
	})
	r.Register(Entry{
		Name:        "duffing",
		Description: "periodically driven Duffing oscillator with an extra force",
		Integrator:  "rk4",
		Output:      "x",
		New:         func() physics.System { return physics.NewDuffing() },
	})
	r.Register(Entry{
		Name:        "vanderpol",
		Description: "forced Van der Pol oscillator",
		Integrator:  "rk4",
		Output:      "x",
		New:         func() physics.System { return physics.NewVanDerPol() },
	})

	return r
}

func (r *Registry) Register(e Entry) {
	r.models[e.Name] = e
}

func (r *Registry) Get(name string) (Entry, error) {
	e, ok := r.models[name]
	if !ok {
		return Entry{}, fmt.Errorf("unknown model: %s", name)
	}
	return e, nil
}

func (r *Registry) ListModels() []Entry {
	entries := make([]Entry, 0, len(r.models))
	for _, e := range r.models {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// Spec selects and tunes a built-in model.
type Spec struct {
	Model      string
	Integrator string
	MaxSubStep float64
	Params     map[string]float64
}

// Open builds a ready-to-configure slave. An empty integrator name picks the
// model's default.
func (r *Registry) Open(spec Spec) (*Slave, error) {
	e, err := r.Get(spec.Model)
	if err != nil {
		return nil, err
	}

	sys := e.New()
	if err := physics.Configure(sys, spec.Params); err != nil {
		return nil, fmt.Errorf("%s: %w", e.Name, err)
	}

	name := spec.Integrator
	if name == "" {
		name = e.Integrator
	}
	integ, err := integrators.New(name)
	if err != nil {
		return nil, err
	}
	if !integrators.Supports(integ, sys) {
		return nil, fmt.Errorf("%s: integrator %s cannot advance this model", e.Name, name)
	}

	opts := []Option{WithIntegrator(integ)}
	if spec.MaxSubStep != 0 {
		opts = append(opts, WithMaxSubStep(spec.MaxSubStep))
	}
	return New(e.Name, sys, opts...), nil
}

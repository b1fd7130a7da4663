package config

import (
	"maps"
	"slices"
)

func preset(model, output string, stop float64, params map[string]float64) *Config {
	cfg := DefaultConfig()
	cfg.Model = model
	cfg.Output = output
	cfg.StopTime = stop
	cfg.Params = params
	return cfg
}

var Presets = map[string]map[string]*Config{
	"lag": {
		"step": preset("lag", "y", 10.0, nil),
		"fast": preset("lag", "y", 5.0, map[string]float64{"tau": 0.1, "gain": 1.0}),
		"slow": preset("lag", "y", 30.0, map[string]float64{"tau": 3.0}),
	},
	"spring_mass": {
		"bounce": preset("spring_mass", "position", 20.0, map[string]float64{"x0": 2.0}),
		"soft":   preset("spring_mass", "position", 20.0, map[string]float64{"stiffness": 2.0, "damping": 0.1}),
	},
	"pendulum": {
		"small":    preset("pendulum", "theta", 20.0, map[string]float64{"theta0": 0.2}),
		"large":    preset("pendulum", "theta", 20.0, map[string]float64{"theta0": 2.5}),
		"undamped": preset("pendulum", "theta", 30.0, map[string]float64{"theta0": 0.5, "damping": 0}),
	},
	"duffing": {
		"chaotic":  preset("duffing", "x", 60.0, nil),
		"periodic": preset("duffing", "x", 60.0, map[string]float64{"gamma": 0.2}),
	},
	"vanderpol": {
		"relaxation": preset("vanderpol", "x", 40.0, map[string]float64{"mu": 5}),
		"harmonic":   preset("vanderpol", "x", 30.0, map[string]float64{"mu": 0.1}),
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	c := *cfg
	c.Params = maps.Clone(cfg.Params)
	return &c
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	return slices.Sorted(maps.Keys(modelPresets))
}

package config

import "sort"

var Presets = map[string]map[string]*Config{
	"lorenz": {
		"origin": {
			Model: "lorenz", Integrator: "rk4", Horizon: 0.05, Dt: 0.001,
			EpsDu: 1e-7, Seed: 1, Smoothness: 0.4,
			MaxIterations: 10, NumValues: 3, Equilibrium: 0,
		},
		"wing": {
			Model: "lorenz", Integrator: "rk4", Horizon: 0.02, Dt: 0.0005,
			EpsDu: 1e-7, Seed: 1, Smoothness: 0.4,
			MaxIterations: 10, NumValues: 3, Equilibrium: 1,
		},
	},
	"pendulum": {
		"hanging": {
			Model: "pendulum", Integrator: "rk4", Horizon: 0.2, Dt: 0.001,
			EpsDu: 1e-7, Seed: 1, Smoothness: 0.5,
			MaxIterations: 5, NumValues: 2, Equilibrium: 0,
		},
		"inverted": {
			Model: "pendulum", Integrator: "rk4", Horizon: 0.2, Dt: 0.001,
			EpsDu: 1e-7, Seed: 1, Smoothness: 0.5,
			MaxIterations: 5, NumValues: 2, Equilibrium: 1,
		},
	},
}

func GetPreset(model, name string) *Config {
	m, ok := Presets[model]
	if !ok {
		return nil
	}
	return m[name]
}

func ListPresets(model string) []string {
	m, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

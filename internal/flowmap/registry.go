package flowmap

import (
	"fmt"
	"sort"

	"github.com/san-kum/eigenflow/internal/dynamo"
	"github.com/san-kum/eigenflow/internal/integrators"
	"github.com/san-kum/eigenflow/internal/physics"
)

type Registry struct {
	models      map[string]func() dynamo.System
	integrators map[string]func() dynamo.Integrator
}

func NewRegistry() *Registry {
	r := &Registry{
		models:      make(map[string]func() dynamo.System),
		integrators: make(map[string]func() dynamo.Integrator),
	}

	r.models["lorenz"] = func() dynamo.System { return physics.NewLorenz() }
	r.models["pendulum"] = func() dynamo.System { return physics.NewPendulum() }

	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }

	return r
}

func (r *Registry) GetModel(name string) (dynamo.System, error) {
	fn, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	return fn(), nil
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) ListModels() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ListIntegrators() []string {
	names := make([]string, 0, len(r.integrators))
	for name := range r.integrators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

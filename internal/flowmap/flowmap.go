package flowmap

import (
	"fmt"
	"math"

	"github.com/san-kum/eigenflow/internal/dynamo"
)

// Map is the time-T flow map x -> f^T(x) of a system, realized by
// repeated integrator steps. It tracks a CFL-style stability diagnostic
// (max |dx/dt| * dt over the last integration) as a side effect of
// every evaluation.
type Map struct {
	sys     dynamo.System
	integ   dynamo.Integrator
	horizon float64
	dt      float64
	cfl     float64
}

func New(sys dynamo.System, integ dynamo.Integrator, horizon, dt float64) (*Map, error) {
	if horizon <= 0 {
		return nil, fmt.Errorf("flowmap: horizon must be positive, got %g", horizon)
	}
	if dt <= 0 || dt > horizon {
		return nil, fmt.Errorf("flowmap: dt must be in (0, horizon], got %g", dt)
	}
	return &Map{sys: sys, integ: integ, horizon: horizon, dt: dt}, nil
}

func (m *Map) Horizon() float64 { return m.horizon }

// CFL reports the stability diagnostic of the most recent evaluation.
func (m *Map) CFL() float64 { return m.cfl }

// Advance integrates x forward by the full horizon. The step count is
// rounded so the horizon is hit exactly. A non-finite intermediate
// state is fatal: the base trajectory is broken and retrying a
// deterministic diverging integration cannot succeed.
func (m *Map) Advance(x dynamo.State) (dynamo.State, error) {
	if len(x) != m.sys.StateDim() {
		return nil, fmt.Errorf("flowmap: state dim %d, system dim %d: %w",
			len(x), m.sys.StateDim(), dynamo.ErrDimensionMismatch)
	}

	steps := int(math.Round(m.horizon / m.dt))
	if steps < 1 {
		steps = 1
	}
	h := m.horizon / float64(steps)

	cur := x.Clone()
	maxRate := 0.0
	t := 0.0

	for i := 0; i < steps; i++ {
		if rate := m.sys.Derive(cur).Norm(); rate > maxRate {
			maxRate = rate
		}
		cur = m.integ.Step(m.sys, cur, t, h)
		t += h
		if !cur.IsValid() {
			return nil, fmt.Errorf("flowmap: diverged at t=%.4f (step %d): %w",
				t, i, dynamo.ErrNotFinite)
		}
	}

	m.cfl = maxRate * h
	return cur, nil
}

// AdvanceToSection integrates until the trajectory crosses the section
// from below (crossing function changing sign negative to positive) and
// returns the linearly interpolated crossing state. maxHorizon bounds
// the search. A trajectory that starts on or above the section must
// first dip below it before a crossing is registered.
func (m *Map) AdvanceToSection(x dynamo.State, section dynamo.Section, maxHorizon float64) (dynamo.State, error) {
	if len(x) != m.sys.StateDim() {
		return nil, fmt.Errorf("flowmap: state dim %d, system dim %d: %w",
			len(x), m.sys.StateDim(), dynamo.ErrDimensionMismatch)
	}

	maxSteps := int(math.Round(maxHorizon / m.dt))
	if maxSteps < 1 {
		maxSteps = 1
	}

	cur := x.Clone()
	hprev := section.Crossing(cur)
	armed := hprev < 0
	maxRate := 0.0
	t := 0.0

	for i := 0; i < maxSteps; i++ {
		if rate := m.sys.Derive(cur).Norm(); rate > maxRate {
			maxRate = rate
		}
		next := m.integ.Step(m.sys, cur, t, m.dt)
		t += m.dt
		if !next.IsValid() {
			return nil, fmt.Errorf("flowmap: diverged at t=%.4f (step %d): %w",
				t, i, dynamo.ErrNotFinite)
		}

		hcur := section.Crossing(next)
		if armed && hprev < 0 && hcur >= 0 {
			frac := hprev / (hprev - hcur)
			m.cfl = maxRate * m.dt
			return cur.AddScaled(frac, next.Sub(cur)), nil
		}
		if hcur < 0 {
			armed = true
		}
		cur, hprev = next, hcur
	}

	m.cfl = maxRate * m.dt
	return nil, fmt.Errorf("flowmap: no section crossing within t=%.4f", maxHorizon)
}

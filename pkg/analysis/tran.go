package analysis

import (
	"fmt"
)

// Transient runs the solver for a fixed number of steps. The step size is
// baked into the companion models; timeStep only labels the TIME column.
type Transient struct {
	BaseAnalysis
	steps    int
	timeStep float64
}

func NewTransient(steps int, timeStep float64) *Transient {
	return &Transient{
		BaseAnalysis: *NewBaseAnalysis(),
		steps:        steps,
		timeStep:     timeStep,
	}
}

func (tr *Transient) Execute() error {
	if tr.steps < 1 {
		return fmt.Errorf("transient needs at least one step, got %d", tr.steps)
	}

	for n := 1; n <= tr.steps; n++ {
		x, err := tr.step()
		if err != nil {
			return fmt.Errorf("step %d: %w", n, err)
		}
		tr.StoreResult("TIME", float64(n)*tr.timeStep, x)
	}
	return nil
}

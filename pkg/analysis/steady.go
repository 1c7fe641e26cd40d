package analysis

import (
	"errors"
	"fmt"
)

var ErrNoConvergence = errors.New("failed to converge")

// SteadyState steps the solver until two consecutive solutions agree. For a
// circuit with constant inputs this is its DC operating point.
type SteadyState struct {
	BaseAnalysis
	iterations int
}

func NewSteadyState() *SteadyState {
	return &SteadyState{BaseAnalysis: *NewBaseAnalysis()}
}

func (ss *SteadyState) SetMaxIter(n int) { ss.convergence.maxIter = n }

// Iterations is the step count the last Execute needed.
func (ss *SteadyState) Iterations() int { return ss.iterations }

func (ss *SteadyState) Execute() error {
	var oldSolution []float64
	for iter := 1; iter <= ss.convergence.maxIter; iter++ {
		x, err := ss.step()
		if err != nil {
			return fmt.Errorf("step %d: %w", iter, err)
		}

		if ss.CheckConvergence(oldSolution, x) {
			ss.iterations = iter
			ss.storeResults(x)
			return nil
		}
		oldSolution = append(oldSolution[:0], x...)
	}
	return fmt.Errorf("%s: %w in %d steps", ss.Circuit.Name(), ErrNoConvergence, ss.convergence.maxIter)
}

func (ss *SteadyState) storeResults(solution []float64) {
	for i, name := range ss.SolutionNames() {
		ss.results[name] = []float64{solution[i]}
	}
}

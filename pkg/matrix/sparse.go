package matrix

import (
	"fmt"

	"github.com/edp1096/sparse"
)

// SparseSolver factors a matrix once and solves it against any number of
// right-hand sides. Indices are 1-based like the rest of the package.
type SparseSolver struct {
	Size     int
	matrix   *sparse.Matrix
	config   *sparse.Configuration
	factored bool
}

func NewSparseSolver(size int) (*SparseSolver, error) {
	if size < 1 {
		return nil, fmt.Errorf("sparse solver size must be positive, got %d", size)
	}

	config := &sparse.Configuration{
		Real:                    true,
		Complex:                 false,
		SeparatedComplexVectors: false,
		Expandable:              true,
		Translate:               false,
		ModifiedNodal:           true,
		TiesMultiplier:          5,
		PrinterWidth:            140,
		Annotate:                0,
	}

	mat, err := sparse.Create(int64(size), config)
	if err != nil {
		return nil, fmt.Errorf("creating sparse matrix: %v", err)
	}

	return &SparseSolver{
		Size:   size,
		matrix: mat,
		config: config,
	}, nil
}

// NewSparseSolverFrom loads every non-zero entry of c plus the diagonal.
func NewSparseSolverFrom(c *Conductance) (*SparseSolver, error) {
	s, err := NewSparseSolver(c.Dim())
	if err != nil {
		return nil, err
	}
	for i := 1; i <= c.Dim(); i++ {
		for j := 1; j <= c.Dim(); j++ {
			if v := c.At(i, j); v != 0 || i == j {
				if err := s.AddElement(i, j, v); err != nil {
					s.Destroy()
					return nil, err
				}
			}
		}
	}
	return s, nil
}

func (s *SparseSolver) AddElement(i, j int, value float64) error {
	if s.factored {
		return fmt.Errorf("sparse solver already factored")
	}
	if i <= 0 || j <= 0 || i > s.Size || j > s.Size {
		return fmt.Errorf("%w: (i=%d, j=%d, size=%d)", ErrOutOfRange, i, j, s.Size)
	}
	s.matrix.GetElement(int64(i), int64(j)).Real += value
	return nil
}

func (s *SparseSolver) Factor() error {
	if err := s.matrix.Factor(); err != nil {
		return fmt.Errorf("%w: factorization failed: %v", ErrSingular, err)
	}
	s.factored = true
	return nil
}

// Solve takes a 0-based right-hand side of length Size and returns the
// 0-based solution. The factorization is reused between calls.
func (s *SparseSolver) Solve(rhs []float64) ([]float64, error) {
	if !s.factored {
		if err := s.Factor(); err != nil {
			return nil, err
		}
	}
	if len(rhs) != s.Size {
		return nil, fmt.Errorf("rhs length %d does not match size %d", len(rhs), s.Size)
	}

	b := make([]float64, s.Size+1) // 1-based indexing
	copy(b[1:], rhs)

	solution, err := s.matrix.Solve(b)
	if err != nil {
		return nil, fmt.Errorf("matrix solve failed: %v", err)
	}
	if len(solution) < s.Size+1 {
		return nil, fmt.Errorf("matrix solve returned %d values, want %d", len(solution)-1, s.Size)
	}

	x := make([]float64, s.Size)
	copy(x, solution[1:s.Size+1])
	return x, nil
}

func (s *SparseSolver) Destroy() {
	if s.matrix != nil {
		s.matrix.Destroy()
		s.matrix = nil
	}
}

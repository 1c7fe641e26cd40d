package matrix

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrOutOfRange  = errors.New("matrix index out of range")
	ErrSingular    = errors.New("conductance matrix is singular")
	ErrInvalidSlot = errors.New("invalid ideal voltage source slot")
)

// Conductance is the dense admittance matrix of modified nodal analysis.
// Rows and columns are addressed 1-based; index 0 is the ground node and
// owns no row or column. The dimension is fixed at creation.
type Conductance struct {
	size int
	a    *mat.Dense
}

func NewConductance(size int) (*Conductance, error) {
	if size < 1 {
		return nil, fmt.Errorf("conductance matrix size must be positive, got %d", size)
	}
	return &Conductance{size: size, a: mat.NewDense(size, size, nil)}, nil
}

func (c *Conductance) Dim() int { return c.size }

func (c *Conductance) checkIndex(indices ...int) error {
	for _, i := range indices {
		if i < 0 || i > c.size {
			return fmt.Errorf("%w: index %d, size %d", ErrOutOfRange, i, c.size)
		}
	}
	return nil
}

// add accumulates into (i,j) unless either index is ground.
func (c *Conductance) add(i, j int, value float64) {
	if i == 0 || j == 0 {
		return
	}
	c.a.Set(i-1, j-1, c.a.At(i-1, j-1)+value)
}

// StampConductance stamps a conductance g between nodes p and n.
func (c *Conductance) StampConductance(g float64, p, n int) error {
	if err := c.checkIndex(p, n); err != nil {
		return err
	}
	if p == n {
		return nil
	}

	c.add(p, p, g)
	c.add(n, n, g)
	c.add(p, n, -g)
	c.add(n, p, -g)
	return nil
}

// StampTransconductance stamps a current gm*(V(m)-V(n)) leaving node p and
// entering node q. With (m,n) == (p,q) it reduces to StampConductance.
func (c *Conductance) StampTransconductance(gm float64, m, n, p, q int) error {
	if err := c.checkIndex(m, n, p, q); err != nil {
		return err
	}
	if m == n && n == p && p == q {
		return nil
	}

	c.add(p, m, gm)
	c.add(p, n, -gm)
	c.add(q, m, -gm)
	c.add(q, n, gm)
	return nil
}

// StampPartialConductance accumulates g into the single cell (r,c).
func (c *Conductance) StampPartialConductance(g float64, r, col int) error {
	if err := c.checkIndex(r, col); err != nil {
		return err
	}
	c.add(r, col, g)
	return nil
}

// StampIdealVoltageSourceIncidence inserts the +-1 incidence pattern of an
// ideal voltage source between p and n whose branch current is unknown s.
func (c *Conductance) StampIdealVoltageSourceIncidence(s, p, n int) error {
	if s == 0 {
		return fmt.Errorf("%w: slot 0 is ground", ErrInvalidSlot)
	}
	if err := c.checkIndex(s, p, n); err != nil {
		return err
	}
	if s == p || s == n {
		return fmt.Errorf("%w: slot %d collides with terminal (p=%d, n=%d)", ErrInvalidSlot, s, p, n)
	}

	c.add(p, s, 1)
	c.add(s, p, 1)
	c.add(n, s, -1)
	c.add(s, n, -1)
	return nil
}

// At returns the entry (i,j), 0 for any ground index.
func (c *Conductance) At(i, j int) float64 {
	if i <= 0 || j <= 0 || i > c.size || j > c.size {
		return 0
	}
	return c.a.At(i-1, j-1)
}

// Row returns a copy of row i (1-based) as a 0-based slice.
func (c *Conductance) Row(i int) []float64 {
	row := make([]float64, c.size)
	if i <= 0 || i > c.size {
		return row
	}
	mat.Row(row, i-1, c.a)
	return row
}

func (c *Conductance) Clone() *Conductance {
	return &Conductance{size: c.size, a: mat.DenseCopyOf(c.a)}
}

// Symmetric reports whether |a(i,j) - a(j,i)| <= tol for all entries.
func (c *Conductance) Symmetric(tol float64) bool {
	for i := 0; i < c.size; i++ {
		for j := i + 1; j < c.size; j++ {
			if math.Abs(c.a.At(i, j)-c.a.At(j, i)) > tol {
				return false
			}
		}
	}
	return true
}

func (c *Conductance) inverse() (*mat.Dense, error) {
	var lu mat.LU
	lu.Factorize(c.a)

	cond := lu.Cond()
	if math.IsInf(cond, 0) || math.IsNaN(cond) || cond > mat.ConditionTolerance {
		return nil, fmt.Errorf("%w: condition number %g", ErrSingular, cond)
	}

	eye := mat.NewDense(c.size, c.size, nil)
	for i := 0; i < c.size; i++ {
		eye.Set(i, i, 1)
	}

	var inv mat.Dense
	if err := lu.SolveTo(&inv, false, eye); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	return &inv, nil
}

func (c *Conductance) IsInvertible() bool {
	_, err := c.inverse()
	return err == nil
}

// Invert returns the inverse as a new matrix, leaving c untouched.
func (c *Conductance) Invert() (*Conductance, error) {
	inv, err := c.inverse()
	if err != nil {
		return nil, err
	}
	return &Conductance{size: c.size, a: inv}, nil
}

func (c *Conductance) InvertSelf() error {
	inv, err := c.inverse()
	if err != nil {
		return err
	}
	c.a = inv
	return nil
}

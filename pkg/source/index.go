// Package source tracks which per-component source contributions sum into
// each system unknown and emits the aggregation code b = S * b_components.
package source

import (
	"errors"
	"fmt"
	"strings"

	"github.com/edp1096/lblmc/pkg/codegen"
)

var (
	ErrOutOfRange     = errors.New("source index out of range")
	ErrMalformedPairs = errors.New("malformed node pair list")
)

// NodePair is the (positive, negative) node pair a source slot connects.
type NodePair struct {
	P, N int
}

// IndexVector keeps, for each of the N unknowns (1-based rows), the signed
// source slot ids that contribute to it. Slot ids start at 1; 0 means the
// contribution was degenerate and dropped.
type IndexVector struct {
	size  int
	rows  [][]int
	nodes map[int]NodePair
	count int
}

func New(size int) (*IndexVector, error) {
	if size < 1 {
		return nil, fmt.Errorf("source vector size must be positive, got %d", size)
	}
	return &IndexVector{
		size:  size,
		rows:  make([][]int, size),
		nodes: make(map[int]NodePair),
	}, nil
}

func (s *IndexVector) Dim() int { return s.size }

// NumSources is the number of allocated slots, i.e. the length of
// b_components.
func (s *IndexVector) NumSources() int { return s.count }

func (s *IndexVector) checkNode(nodes ...int) error {
	for _, n := range nodes {
		if n < 0 || n > s.size {
			return fmt.Errorf("%w: node %d, size %d", ErrOutOfRange, n, s.size)
		}
	}
	return nil
}

// InsertSource allocates a slot injecting into p and drawing from n.
// A shorted source (p == n) returns 0 and changes nothing.
func (s *IndexVector) InsertSource(p, n int) (int, error) {
	if err := s.checkNode(p, n); err != nil {
		return 0, err
	}
	if p == n {
		return 0, nil
	}

	s.count++
	id := s.count
	if p != 0 {
		s.rows[p-1] = append(s.rows[p-1], id)
	}
	if n != 0 {
		s.rows[n-1] = append(s.rows[n-1], -id)
	}
	s.nodes[id] = NodePair{P: p, N: n}
	return id, nil
}

// InsertIdealVoltageSource registers the source value of an ideal voltage
// source whose equation lives in row slot.
func (s *IndexVector) InsertIdealVoltageSource(slot int) (int, error) {
	return s.InsertSource(slot, 0)
}

// InsertComponents inserts consecutive (p, n) pairs. An odd length or a
// degenerate pair rejects the whole batch without side effects.
func (s *IndexVector) InsertComponents(nodePairs []int) ([]int, error) {
	if len(nodePairs)%2 != 0 {
		return nil, fmt.Errorf("%w: odd length %d", ErrMalformedPairs, len(nodePairs))
	}
	if err := s.checkNode(nodePairs...); err != nil {
		return nil, err
	}
	for i := 0; i < len(nodePairs); i += 2 {
		if nodePairs[i] == nodePairs[i+1] {
			return nil, fmt.Errorf("%w: pair %d is shorted at node %d", ErrMalformedPairs, i/2, nodePairs[i])
		}
	}

	ids := make([]int, 0, len(nodePairs)/2)
	for i := 0; i < len(nodePairs); i += 2 {
		id, err := s.InsertSource(nodePairs[i], nodePairs[i+1])
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *IndexVector) NodesByID(id int) (NodePair, error) {
	pair, ok := s.nodes[id]
	if !ok {
		return NodePair{}, fmt.Errorf("%w: source slot %d not registered", ErrOutOfRange, id)
	}
	return pair, nil
}

// Row returns a copy of the signed slot list of unknown i (1-based).
func (s *IndexVector) Row(i int) []int {
	if i <= 0 || i > s.size {
		return nil
	}
	return append([]int(nil), s.rows[i-1]...)
}

// Aggregation returns b[i] = sum of +-b_components[slot-1] for every row.
func (s *IndexVector) Aggregation() []codegen.Stmt {
	b := codegen.Var("", codegen.SourceVector)
	stmts := make([]codegen.Stmt, 0, s.size)
	for i, row := range s.rows {
		var sum codegen.Expr
		for _, id := range row {
			switch {
			case sum == nil && id > 0:
				sum = codegen.SourceSlot(id)
			case sum == nil:
				sum = codegen.Neg(codegen.SourceSlot(-id))
			case id > 0:
				sum = codegen.Add(sum, codegen.SourceSlot(id))
			default:
				sum = codegen.Sub(sum, codegen.SourceSlot(-id))
			}
		}
		if sum == nil {
			sum = codegen.L(0)
		}
		stmts = append(stmts, codegen.Set(codegen.At(b, i), sum))
	}
	return stmts
}

// AggregationCode renders the aggregation statements, one per line.
func (s *IndexVector) AggregationCode(r *codegen.Renderer, depth int) string {
	return r.Stmts(s.Aggregation(), depth)
}

// AggregationFunction renders a standalone function computing b from
// b_components.
func (s *IndexVector) AggregationFunction(r *codegen.Renderer, name string) string {
	count := s.count
	if count == 0 {
		count = 1
	}
	fn := &codegen.Function{
		Name: name,
		Params: []codegen.Param{
			{Decl: codegen.Decl{Name: codegen.ComponentSources, Type: codegen.Real, Dims: []int{count}}, Dir: codegen.In},
			{Decl: codegen.Decl{Name: codegen.SourceVector, Type: codegen.Real, Dims: []int{s.size}}, Dir: codegen.Out},
		},
		Sections: []codegen.Section{{Stmts: s.Aggregation()}},
	}
	return r.Function(fn)
}

func (s *IndexVector) String() string {
	var sb strings.Builder
	for i, row := range s.rows {
		fmt.Fprintf(&sb, "%d: %v\n", i+1, row)
	}
	return sb.String()
}

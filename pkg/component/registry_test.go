package component

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/lblmc/pkg/matrix"
	"github.com/edp1096/lblmc/pkg/netlist"
	"github.com/edp1096/lblmc/pkg/source"
)

// link is a minimal element: one conductance per terminal pair.
type link struct {
	Base
	Passive
	g []float64
}

func (l *link) NumSources() int { return 0 }

func (l *link) StampConductance(m matrix.Stamper) error {
	if err := l.BeginConductance(); err != nil {
		return err
	}
	for k, g := range l.g {
		if err := m.StampConductance(g, l.Node(2*k), l.Node(2*k+1)); err != nil {
			return err
		}
	}
	return nil
}

func (l *link) StampSources(s *source.IndexVector) error { return l.BeginSources() }

func newLink(label string, params []float64) (Component, error) {
	for _, g := range params {
		if g < 0 {
			return nil, errors.New("negative conductance")
		}
	}
	return &link{Base: NewBase("Link", label, 2*len(params), 0), g: params}, nil
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(nil)
	require.NoError(t, r.Register(Producer{Type: "Link", Params: 1, Terminals: 2, New: newLink}))
	require.NoError(t, r.Register(Producer{Type: "MultiLink", Params: 1, Terminals: 2, Variadic: true, New: newLink}))
	return r
}

func TestRegister(t *testing.T) {
	r := testRegistry(t)
	assert.Error(t, r.Register(Producer{Type: "Link", New: newLink}))
	assert.Error(t, r.Register(Producer{Type: "Nothing"}))
	assert.Equal(t, []string{"Link", "MultiLink"}, r.Types())

	p, ok := r.Lookup("Link")
	require.True(t, ok)
	assert.Equal(t, 2, p.Terminals)
}

func TestProduce(t *testing.T) {
	r := testRegistry(t)

	c, err := r.Produce(netlist.Listing{Type: "Link", Label: "l1", Params: []float64{2}, Terminals: []int{1, 0}})
	require.NoError(t, err)
	assert.Equal(t, "l1", c.Label())
	assert.Equal(t, "Link", c.Type())
	assert.Equal(t, []int{1, 0}, c.Terminals())

	g, err := matrix.NewConductance(1)
	require.NoError(t, err)
	require.NoError(t, c.StampConductance(g))
	assert.Equal(t, 2.0, g.At(1, 1))
}

func TestProduceValidation(t *testing.T) {
	r := testRegistry(t)

	tests := []struct {
		name    string
		listing netlist.Listing
		want    error
	}{
		{"unknown type", netlist.Listing{Type: "Diode", Label: "d", Terminals: []int{1, 0}}, ErrUnknownType},
		{"empty label", netlist.Listing{Type: "Link", Params: []float64{1}, Terminals: []int{1, 0}}, ErrInvalidListing},
		{"label not identifier", netlist.Listing{Type: "Link", Label: "a-b", Params: []float64{1}, Terminals: []int{1, 0}}, ErrInvalidListing},
		{"too many params", netlist.Listing{Type: "Link", Label: "l", Params: []float64{1, 2}, Terminals: []int{1, 0}}, ErrInvalidListing},
		{"too few terminals", netlist.Listing{Type: "Link", Label: "l", Params: []float64{1}, Terminals: []int{1}}, ErrInvalidListing},
		{"constructor rejects", netlist.Listing{Type: "Link", Label: "l", Params: []float64{-1}, Terminals: []int{1, 0}}, ErrInvalidListing},
		{"variadic without params", netlist.Listing{Type: "MultiLink", Label: "m"}, ErrInvalidListing},
		{"variadic odd terminals", netlist.Listing{Type: "MultiLink", Label: "m", Params: []float64{1, 1}, Terminals: []int{1, 0, 2}}, ErrInvalidListing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := r.Produce(tt.listing)
			assert.Nil(t, c)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestProduceVariadic(t *testing.T) {
	r := testRegistry(t)
	c, err := r.Produce(netlist.Listing{Type: "MultiLink", Label: "m", Params: []float64{1, 2, 3}, Terminals: []int{1, 0, 2, 0, 1, 2}})
	require.NoError(t, err)
	assert.Equal(t, 6, c.NumTerminals())
}

func TestProducerTypeMismatch(t *testing.T) {
	p := Producer{Type: "Link", Params: 1, Terminals: 2, New: newLink}
	_, err := p.Produce(netlist.Listing{Type: "Other", Label: "x", Params: []float64{1}, Terminals: []int{1, 0}})
	assert.ErrorIs(t, err, ErrInvalidListing)
}

func TestLifecycle(t *testing.T) {
	c, err := newLink("l", []float64{1})
	require.NoError(t, err)

	g, err := matrix.NewConductance(2)
	require.NoError(t, err)

	// never connected: terminals are not ground
	assert.Equal(t, []int{Unconnected, Unconnected}, c.Terminals())
	assert.ErrorIs(t, c.StampConductance(g), ErrUnconnected)
	assert.Zero(t, g.At(1, 1))

	require.NoError(t, c.Connect(1, 2))
	require.NoError(t, c.Connect(2, 1))
	assert.Error(t, c.Connect(1))
	assert.Error(t, c.Connect(-1, 0))

	require.NoError(t, c.StampConductance(g))
	assert.ErrorIs(t, c.StampConductance(g), ErrSealed)
	assert.ErrorIs(t, c.Connect(1, 0), ErrSealed)
	assert.ErrorIs(t, c.BindSolutionSlots(), ErrSealed)
}

func TestBindSolutionSlots(t *testing.T) {
	b := NewBase("Source", "s", 2, 1)
	require.NoError(t, b.Connect(1, 0))
	assert.ErrorIs(t, b.BeginConductance(), ErrUnconnected)

	assert.Error(t, b.BindSolutionSlots())
	assert.Error(t, b.BindSolutionSlots(0))
	require.NoError(t, b.BindSolutionSlots(2))
	assert.ErrorIs(t, b.BindSolutionSlots(3), ErrSealed)
	assert.Equal(t, 2, b.Slot(0))

	require.NoError(t, b.BeginConductance())
	require.NoError(t, b.BeginSources())
	assert.ErrorIs(t, b.BeginSources(), ErrSealed)
}

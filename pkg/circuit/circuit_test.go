package circuit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/lblmc/pkg/codegen"
	"github.com/edp1096/lblmc/pkg/component"
	"github.com/edp1096/lblmc/pkg/device"
	"github.com/edp1096/lblmc/pkg/generator"
	"github.com/edp1096/lblmc/pkg/netlist"
)

func parse(t *testing.T, text string) *netlist.Netlist {
	t.Helper()
	n, err := netlist.Parse(text)
	require.NoError(t, err)
	return n
}

func build(t *testing.T, text string) *Circuit {
	t.Helper()
	c, err := New(parse(t, text), device.NewRegistry(nil), generator.DefaultOptions())
	require.NoError(t, err)
	return c
}

func solve(t *testing.T, c *Circuit, steps int) []float64 {
	t.Helper()
	fn, err := c.Engine().Program()
	require.NoError(t, err)
	in := codegen.NewInterpreter(fn)
	for i := 0; i < steps; i++ {
		require.NoError(t, in.Step())
	}
	x, ok := in.Env().Array(codegen.Var("", codegen.SolutionOutput))
	require.True(t, ok)
	return x
}

func TestRCNetlist(t *testing.T) {
	c := build(t, `#name RC
#const DT 1e-6
#const R 10.0
#const C 1e-3
Resistor r (R) {1,0}
Capacitor c (DT,C) {1,0}
`)
	assert.Equal(t, "RC", c.Name())
	assert.Equal(t, 1, c.NumSolutions())
	assert.Len(t, c.Devices(), 2)

	want := 1/10.0 + 2*1e-3/1e-6
	assert.InDelta(t, want, c.Engine().Conductance().At(1, 1), 1e-9)

	inv, err := c.Engine().Conductance().Invert()
	require.NoError(t, err)
	assert.InDelta(t, 1/want, inv.At(1, 1), 1e-15)
}

func TestVoltageSourceNetlist(t *testing.T) {
	c := build(t, "#name vdiv\nVoltageSource vg (10.0, 0.001) {1,0}\nResistor res (10.0) {1,0}\n")
	x := solve(t, c, 1)
	assert.InDelta(t, 10.0*10/(10+0.001), x[0], 1e-9)
}

func TestIdealVoltageSourceBranch(t *testing.T) {
	c := build(t, "#name ideal\nIdealVoltageSource vs (5) {1,0}\nResistor r (10) {1,0}\n")
	assert.Equal(t, 1, c.NumNodes())
	assert.Equal(t, 2, c.NumSolutions())

	slot, ok := c.Branch("vs")
	require.True(t, ok)
	assert.Equal(t, 2, slot)

	x := solve(t, c, 1)
	assert.InDelta(t, 5.0, x[0], 1e-12)
	assert.InDelta(t, -0.5, x[1], 1e-12)
}

func TestRLCircuitSettles(t *testing.T) {
	// 1 V through 1 ohm into an inductor to ground: the current settles at
	// 1 A and the inductor voltage decays to 0.
	c := build(t, `#name rl
VoltageSource vg (1, 1) {1,0}
Inductor l (1e-5, 1e-4) {1,0}
`)
	x := solve(t, c, 2000)
	assert.InDelta(t, 0.0, x[0], 1e-3)
}

func TestDuplicateLabel(t *testing.T) {
	_, err := New(parse(t, "#name dup\nResistor r (1) {1,0}\nResistor r (2) {1,0}\n"), device.NewRegistry(nil), generator.DefaultOptions())
	assert.ErrorIs(t, err, ErrDuplicateLabel)
	assert.Contains(t, err.Error(), "line 3")
}

func TestUnknownType(t *testing.T) {
	_, err := New(parse(t, "#name odd\nMemristor m (1) {1,0}\n"), device.NewRegistry(nil), generator.DefaultOptions())
	assert.ErrorIs(t, err, component.ErrUnknownType)
}

func TestInvalidListing(t *testing.T) {
	_, err := New(parse(t, "#name odd\nResistor r (1, 2) {1,0}\n"), device.NewRegistry(nil), generator.DefaultOptions())
	assert.ErrorIs(t, err, component.ErrInvalidListing)
}

func TestGroundOnlyNetlist(t *testing.T) {
	_, err := New(parse(t, "#name empty\nResistor r (1) {0,0}\n"), device.NewRegistry(nil), generator.DefaultOptions())
	assert.ErrorIs(t, err, generator.ErrUsage)
}

func TestGenerate(t *testing.T) {
	c := build(t, "#name vdiv\nVoltageSource vg (10.0, 0.001) {1,0}\nResistor res (10.0) {1,0}\n")
	dir := t.TempDir()

	path, err := c.Generate(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "vdiv.hpp"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "void vdiv(")
}

const sourceSide = `#name source_side
#port 1 1 0
VoltageSource vg (10, 1) {1,0}
`

const loadSide = `#name load_side
#port 1 1 0
Resistor rl (10) {1,0}
`

func TestBuildProject(t *testing.T) {
	p, err := BuildProject(
		[]*netlist.Netlist{parse(t, sourceSide), parse(t, loadSide)},
		device.NewRegistry(nil),
		generator.DefaultOptions(),
	)
	require.NoError(t, err)
	require.Len(t, p.Circuits, 2)

	src, load := p.Circuits[0], p.Circuits[1]
	require.NotNil(t, src.Subsystem())

	// each side now sees the other's Norton conductance
	assert.InDelta(t, 1.1, src.Engine().Conductance().At(1, 1), 1e-12)
	assert.InDelta(t, 1.1, load.Engine().Conductance().At(1, 1), 1e-12)

	assert.Equal(t, []int{1}, src.Subsystem().OutputPorts())
	assert.Equal(t, []int{1}, load.Subsystem().InputPorts())
	assert.Equal(t, []Link{{Port: 1, From: "source_side", Out: 0, To: "load_side", In: 0}}, p.Links())
	assert.Equal(t, "port 1: source_side.port_out[0] -> load_side.port_in[0]", p.Links()[0].String())

	paths, err := p.Generate(t.TempDir())
	require.NoError(t, err)
	assert.Len(t, paths, 2)
}

func TestBuildProjectErrors(t *testing.T) {
	reg := device.NewRegistry(nil)
	opts := generator.DefaultOptions()

	_, err := BuildProject(nil, reg, opts)
	assert.ErrorIs(t, err, generator.ErrUsage)

	_, err = BuildProject([]*netlist.Netlist{parse(t, sourceSide), parse(t, sourceSide)}, reg, opts)
	assert.ErrorIs(t, err, generator.ErrUsage)
}

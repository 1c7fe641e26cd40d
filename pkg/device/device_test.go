package device_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/lblmc/pkg/circuit"
	"github.com/edp1096/lblmc/pkg/codegen"
	"github.com/edp1096/lblmc/pkg/component"
	"github.com/edp1096/lblmc/pkg/device"
	"github.com/edp1096/lblmc/pkg/generator"
	"github.com/edp1096/lblmc/pkg/matrix"
	"github.com/edp1096/lblmc/pkg/netlist"
)

// sim builds a netlist with signal outputs and steps it. Output updates
// read the solution of the previous step.
type sim struct {
	t  *testing.T
	c  *circuit.Circuit
	in *codegen.Interpreter
}

func newSim(t *testing.T, text string) *sim {
	t.Helper()
	n, err := netlist.Parse(text)
	require.NoError(t, err)
	opts := generator.DefaultOptions()
	opts.SignalOutputs = true
	c, err := circuit.New(n, device.NewRegistry(nil), opts)
	require.NoError(t, err)
	fn, err := c.Engine().Program()
	require.NoError(t, err)
	return &sim{t: t, c: c, in: codegen.NewInterpreter(fn)}
}

func (s *sim) run(steps int) {
	s.t.Helper()
	for i := 0; i < steps; i++ {
		require.NoError(s.t, s.in.Step())
	}
}

func (s *sim) x(node int) float64 {
	s.t.Helper()
	x, ok := s.in.Env().Array(codegen.Var("", codegen.SolutionOutput))
	require.True(s.t, ok)
	return x[node-1]
}

func (s *sim) signal(owner, name string) float64 {
	s.t.Helper()
	v, ok := s.in.Env().Get(codegen.Var(owner, name))
	require.True(s.t, ok, "%s_%s", name, owner)
	return v
}

func (s *sim) set(owner, name string, v float64) {
	s.in.Env().Set(codegen.Var(owner, name), v)
}

func TestRegistryTypes(t *testing.T) {
	reg := device.NewRegistry(nil)
	assert.Len(t, reg.Types(), len(device.Producers()))
	for _, typ := range []string{"Resistor", "Capacitor", "Inductor", "SeriesRL", "MutualInductance",
		"VoltageSource", "IdealVoltageSource", "CurrentSource", "SignalCurrentSource", "VCCS", "Switch", "NortonPort"} {
		_, ok := reg.Lookup(typ)
		assert.True(t, ok, typ)
	}
}

func TestConstructorValidation(t *testing.T) {
	_, err := device.NewResistor("r", 0)
	assert.Error(t, err)
	_, err = device.NewCapacitor("c", 0, 1)
	assert.Error(t, err)
	_, err = device.NewCapacitor("c", 1e-6, -1)
	assert.Error(t, err)
	_, err = device.NewInductor("l", 1e-6, 0)
	assert.Error(t, err)
	_, err = device.NewSeriesRL("rl", 1e-6, -1, 1e-3)
	assert.Error(t, err)
	_, err = device.NewVoltageSource("v", 1, 0)
	assert.Error(t, err)
	_, err = device.NewSwitch("s", 0, 1)
	assert.Error(t, err)
	_, err = device.NewMutualInductance("k", 1e-6, 1, 1, 1)
	assert.Error(t, err)
	_, err = device.NewNortonPort("p")
	assert.Error(t, err)
	_, err = device.NewNortonPort("p", 1, -1)
	assert.Error(t, err)
}

func TestCompanionConductances(t *testing.T) {
	dt := 1e-5
	tests := []struct {
		name string
		c    component.Component
		want float64
	}{
		{"capacitor", must(device.NewCapacitor("c", dt, 1e-3)), 2 * 1e-3 / dt},
		{"inductor", must(device.NewInductor("l", dt, 1e-3)), dt / (2 * 1e-3)},
		{"series rl", must(device.NewSeriesRL("rl", dt, 2, 1e-3)), 1 / (2 + 2*1e-3/dt)},
		{"switch", must(device.NewSwitch("s", 1, 100)), (1 + 0.01) / 2},
		{"voltage source", must(device.NewVoltageSource("v", 5, 4)), 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := matrix.NewConductance(1)
			require.NoError(t, err)
			require.NoError(t, tt.c.Connect(1, 0))
			require.NoError(t, tt.c.StampConductance(g))
			assert.InDelta(t, tt.want, g.At(1, 1), 1e-12)
		})
	}
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func TestMutualInductanceStamp(t *testing.T) {
	dt, l1, l2, m := 1e-5, 2e-3, 1e-3, 1e-3
	k := must(device.NewMutualInductance("k", dt, l1, l2, m))
	require.NoError(t, k.Connect(1, 0, 2, 0))

	g, err := matrix.NewConductance(2)
	require.NoError(t, err)
	require.NoError(t, k.StampConductance(g))

	det := (l1*l2 - m*m) * 2 / dt
	assert.InDelta(t, l2/det, g.At(1, 1), 1e-12)
	assert.InDelta(t, l1/det, g.At(2, 2), 1e-12)
	assert.InDelta(t, -m/det, g.At(1, 2), 1e-12)
	assert.InDelta(t, -m/det, g.At(2, 1), 1e-12)
}

func TestVCCSStamp(t *testing.T) {
	v := device.NewVCCS("g", 3)
	require.NoError(t, v.Connect(2, 0, 1, 0))

	g, err := matrix.NewConductance(2)
	require.NoError(t, err)
	require.NoError(t, v.StampConductance(g))
	assert.Equal(t, 3.0, g.At(2, 1))
	assert.Zero(t, g.At(1, 2))
	assert.Zero(t, v.NumSources())
}

func TestNortonPortVariadic(t *testing.T) {
	reg := device.NewRegistry(nil)
	c, err := reg.Produce(netlist.Listing{Type: "NortonPort", Label: "np", Params: []float64{1, 2}, Terminals: []int{1, 0, 2, 1}})
	require.NoError(t, err)
	assert.Equal(t, 2, c.NumSources())
	require.Len(t, c.Inputs(), 2)
	assert.Equal(t, "iin2", c.Inputs()[1].Name)

	_, err = reg.Produce(netlist.Listing{Type: "NortonPort", Label: "np", Params: []float64{1, 2}, Terminals: []int{1, 0}})
	assert.ErrorIs(t, err, component.ErrInvalidListing)
}

func TestCapacitorCharges(t *testing.T) {
	// tau = Rs*C = 1 ms = 10 steps
	s := newSim(t, "#name rc\nVoltageSource vg (10, 1) {1,0}\nCapacitor c (100u, 1m) {1,0}\n")
	s.run(1)
	assert.Less(t, s.x(1), 5.0)
	s.run(300)
	assert.InDelta(t, 10.0, s.x(1), 1e-6)
	assert.InDelta(t, 10.0, s.signal("c", "vout"), 1e-6)
	assert.InDelta(t, 0.0, s.signal("vg", "iout"), 1e-6)
}

func TestInductorCurrent(t *testing.T) {
	s := newSim(t, "#name rl\nVoltageSource vg (2, 1) {1,0}\nInductor l (10u, 1m) {1,0}\n")
	s.run(3000)
	assert.InDelta(t, 0.0, s.x(1), 1e-6)
	assert.InDelta(t, 2.0, s.signal("l", "iout"), 1e-4)
}

func TestSeriesRLSettles(t *testing.T) {
	s := newSim(t, "#name srl\nVoltageSource vg (1, 1) {1,0}\nSeriesRL b (10u, 1, 1m) {1,0}\n")
	s.run(3000)
	assert.InDelta(t, 0.5, s.x(1), 1e-6)
	assert.InDelta(t, 0.5, s.signal("b", "iout"), 1e-4)
}

func TestMutualInductanceSettles(t *testing.T) {
	s := newSim(t, `#name xfmr
VoltageSource vg (1, 1) {1,0}
MutualInductance k (10u, 1m, 1m, 500u) {1,0,2,0}
Resistor rl (1) {2,0}
`)
	s.run(5000)
	assert.InDelta(t, 0.0, s.x(1), 1e-4)
	assert.InDelta(t, 0.0, s.x(2), 1e-4)
	assert.InDelta(t, 1.0, s.signal("k", "iout1"), 1e-3)
}

func TestSwitch(t *testing.T) {
	s := newSim(t, "#name sw\nVoltageSource vg (10, 1) {1,0}\nSwitch s (1, 1e6) {1,0}\n")

	s.set("s", "on", 1)
	s.run(100)
	assert.InDelta(t, 5.0, s.x(1), 1e-6)

	s.set("s", "on", 0)
	s.run(100)
	assert.InDelta(t, 10.0/(1+1e-6), s.x(1), 1e-6)
}

func TestSignalCurrentSource(t *testing.T) {
	s := newSim(t, "#name sig\nSignalCurrentSource is () {0,1}\nResistor r (2) {1,0}\n")
	s.set("is", "iin", 3)
	s.run(2)
	// injects into p = ground, so node 1 is pulled negative
	assert.InDelta(t, -6.0, s.x(1), 1e-12)
	assert.InDelta(t, 6.0, s.signal("is", "vout"), 1e-12)
	assert.InDelta(t, -3.0, s.signal("r", "i"), 1e-12)
}

func TestVCCSGain(t *testing.T) {
	s := newSim(t, `#name amp
CurrentSource is (1) {1,0}
Resistor r1 (1) {1,0}
VCCS g (2) {2,0,1,0}
Resistor r2 (1) {2,0}
`)
	s.run(2)
	assert.InDelta(t, 1.0, s.x(1), 1e-12)
	assert.InDelta(t, -2.0, s.x(2), 1e-12)
	assert.InDelta(t, 2.0, s.signal("g", "iout"), 1e-12)
}

func TestIdealVoltageSourceCurrent(t *testing.T) {
	s := newSim(t, "#name ivs\nIdealVoltageSource vs (3) {1,0}\nResistor r (6) {1,0}\n")
	s.run(2)
	assert.InDelta(t, 3.0, s.x(1), 1e-12)
	assert.InDelta(t, 0.5, s.signal("vs", "iout"), 1e-12)
}

func TestNortonPortInjects(t *testing.T) {
	s := newSim(t, "#name np\nNortonPort p (0.5) {1,0}\n")
	s.set("p", "iin1", 1)
	s.run(2)
	assert.InDelta(t, 2.0, s.x(1), 1e-12)
	assert.InDelta(t, 2.0, s.signal("p", "vout1"), 1e-12)
}

package netlist

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rcNetlist = `#name RC
#const DT 1e-6
#const R 10.0
#const C 1e-3
% first order low pass
Resistor r (R) {1,0}
Capacitor c (DT, C) {1, 0}
`

func TestParseRC(t *testing.T) {
	n, err := Parse(rcNetlist)
	require.NoError(t, err)

	assert.Equal(t, "RC", n.Name)
	assert.Equal(t, 1, n.NodeCount)
	require.Len(t, n.Components, 2)

	assert.Equal(t, Listing{Type: "Resistor", Label: "r", Params: []float64{10}, Terminals: []int{1, 0}, Line: 6}, n.Components[0])
	assert.Equal(t, "Capacitor", n.Components[1].Type)
	assert.Equal(t, []float64{1e-6, 1e-3}, n.Components[1].Params)
	assert.Equal(t, 7, n.Components[1].Line)
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"10", 10},
		{"1.5k", 1500},
		{"2meg", 2e6},
		{"100n", 100e-9},
		{"-3.3", -3.3},
		{"1e-3", 1e-3},
		{"4.7u", 4.7e-6},
		{"10M", 10e-3},
		{"2K", 2000},
		{"3T", 3e12},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseValue(tt.in)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-15*max(1, tt.want))
		})
	}

	_, err := ParseValue("ten")
	assert.Error(t, err)

	// every suffix the value pattern accepts has a multiplier
	for _, suffix := range []string{"T", "G", "meg", "M", "K", "k", "m", "u", "n", "p", "f"} {
		got, err := ParseValue("1" + suffix)
		require.NoError(t, err, suffix)
		assert.NotZero(t, got, suffix)
	}
}

func TestParseConstOnlyAppliesToLaterLines(t *testing.T) {
	_, err := Parse("#name early\nResistor r (R) {1,0}\n#const R 10\n")
	var syntax *SyntaxError
	require.ErrorAs(t, err, &syntax)
	assert.Equal(t, 2, syntax.Line)
}

func TestParseConstWholeWord(t *testing.T) {
	n, err := Parse("#name words\n#const R 10\n#const R2 20\nResistor a (R2) {1,0}\nResistor b (R) {1,0}\n")
	require.NoError(t, err)
	assert.Equal(t, []float64{20}, n.Components[0].Params)
	assert.Equal(t, []float64{10}, n.Components[1].Params)
}

func TestParseMissingParenthesis(t *testing.T) {
	n, err := Parse("#name bad\n% comment\nResistor r (10.0 {1,0}\n")
	assert.Nil(t, n)

	var syntax *SyntaxError
	require.True(t, errors.As(err, &syntax))
	assert.Equal(t, 3, syntax.Line)
	assert.Contains(t, err.Error(), "line 3")
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{"missing name", "Resistor r (1) {1,0}\n", 1},
		{"no name at all", "% nothing\n", 1},
		{"duplicate name", "#name a\n#name b\n", 2},
		{"name after component", "#name a\nResistor r (1) {1,0}\n#name b\n", 3},
		{"negative node", "#name a\nResistor r (1) {-1,0}\n", 2},
		{"bad parameter", "#name a\nResistor r (1x) {1,0}\n", 2},
		{"bad label", "#name a\nResistor 9r (1) {1,0}\n", 2},
		{"unknown directive", "#name a\n#model x\n", 2},
		{"bad port", "#name a\n#port 1 x 0\n", 2},
		{"wrong token order", "#name a\nResistor r {1,0} (1)\n", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := Parse(tt.input)
			assert.Nil(t, n)
			var syntax *SyntaxError
			require.ErrorAs(t, err, &syntax)
			assert.Equal(t, tt.line, syntax.Line)
		})
	}
}

func TestParsePortsAndEmptyParams(t *testing.T) {
	n, err := Parse("#name sub\n#port 7 3 0\nSignalCurrentSource in () {2,0}\n")
	require.NoError(t, err)
	assert.Equal(t, 3, n.NodeCount)
	assert.Equal(t, []Port{{ID: 7, P: 3, N: 0, Line: 2}}, n.Ports)
	assert.Empty(t, n.Components[0].Params)
	assert.Equal(t, []int{2, 0}, n.Components[0].Terminals)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rc.net")
	require.NoError(t, os.WriteFile(path, []byte(rcNetlist), 0o644))

	n, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "RC", n.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.net"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseUppercaseMilli(t *testing.T) {
	n, err := Parse("#name m\nVoltageSource vg (10M, 1.0) {1,0}\n")
	require.NoError(t, err)
	require.Len(t, n.Components, 1)
	assert.InDelta(t, 0.01, n.Components[0].Params[0], 1e-15)
	assert.Equal(t, 1.0, n.Components[0].Params[1])
}

// Package device is the catalog of circuit elements: each type discretizes
// its element into a resistive companion model and emits the per-step code
// that refreshes its source contribution.
package device

import (
	"log/slog"

	"github.com/edp1096/lblmc/pkg/component"
)

// Producers lists the standard element types.
func Producers() []component.Producer {
	return []component.Producer{
		{Type: "Resistor", Params: 1, Terminals: 2, New: newResistor},
		{Type: "Capacitor", Params: 2, Terminals: 2, New: newCapacitor},
		{Type: "Inductor", Params: 2, Terminals: 2, New: newInductor},
		{Type: "SeriesRL", Params: 3, Terminals: 2, New: newSeriesRL},
		{Type: "MutualInductance", Params: 4, Terminals: 4, New: newMutualInductance},
		{Type: "VoltageSource", Params: 2, Terminals: 2, New: newVoltageSource},
		{Type: "IdealVoltageSource", Params: 1, Terminals: 2, New: newIdealVoltageSource},
		{Type: "CurrentSource", Params: 1, Terminals: 2, New: newCurrentSource},
		{Type: "SignalCurrentSource", Params: 0, Terminals: 2, New: newSignalCurrentSource},
		{Type: "VCCS", Params: 1, Terminals: 4, New: newVCCS},
		{Type: "Switch", Params: 2, Terminals: 2, New: newSwitch},
		{Type: "NortonPort", Params: 1, Terminals: 2, Variadic: true, New: newNortonPort},
	}
}

// NewRegistry returns a registry holding every standard element type.
func NewRegistry(logger *slog.Logger) *component.Registry {
	r := component.NewRegistry(logger)
	for _, p := range Producers() {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
	return r
}

package matrix

// Stamper is the stamping surface a component sees. Indices are 1-based
// node or solution-slot indices, 0 is the ground node.
type Stamper interface {
	Dim() int
	StampConductance(g float64, p, n int) error
	StampTransconductance(gm float64, m, n, p, q int) error
	StampPartialConductance(g float64, r, c int) error
	StampIdealVoltageSourceIncidence(s, p, n int) error
}

var _ Stamper = (*Conductance)(nil)

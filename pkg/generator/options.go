package generator

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/edp1096/lblmc/internal/consts"
)

// Options only change how the solver is emitted, never what it computes.
type Options struct {
	// TemplateFunction adds an "int id" template parameter so one header
	// can hold several independent instances.
	TemplateFunction bool
	// TemplateRealType makes "real" a template parameter instead of a
	// typedef in the header.
	TemplateRealType bool

	// TargetPragmas emits HLS pipeline and latency pragmas.
	TargetPragmas bool
	ClockPeriod   float64 // ns
	Latency       int     // cycles

	FixedPoint bool
	WordWidth  int
	IntWidth   int

	// RescaleInverse stores Ainv*RescaleDivisor and divides the solve by
	// RescaleDivisor, a power of two.
	RescaleInverse bool
	RescaleDivisor float64

	SignalOutputs         bool
	RawSourceVectorOutput bool
	ComponentSourceOutput bool

	// ZeroBound drops inverse entries with |a| <= ZeroBound from the solve.
	ZeroBound float64

	Logger *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		ClockPeriod:    consts.DefaultClockPeriod,
		WordWidth:      consts.DefaultWordWidth,
		IntWidth:       consts.DefaultIntWidth,
		RescaleDivisor: 1,
		ZeroBound:      consts.DefaultZeroBound,
	}
}

func isPowerOfTwo(v float64) bool {
	if v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return false
	}
	frac, _ := math.Frexp(v)
	return frac == 0.5
}

func (o Options) validate() error {
	if o.ZeroBound < 0 || math.IsNaN(o.ZeroBound) {
		return fmt.Errorf("%w: zero bound must be non-negative, got %g", ErrUsage, o.ZeroBound)
	}
	if o.RescaleInverse && !isPowerOfTwo(o.RescaleDivisor) {
		return fmt.Errorf("%w: rescale divisor %g is not a power of two", ErrUsage, o.RescaleDivisor)
	}
	if o.FixedPoint && (o.WordWidth < 1 || o.IntWidth < 1 || o.IntWidth > o.WordWidth) {
		return fmt.Errorf("%w: fixed point needs 1 <= int width <= word width, got W=%d I=%d", ErrUsage, o.WordWidth, o.IntWidth)
	}
	if o.TargetPragmas && o.Latency < 0 {
		return fmt.Errorf("%w: negative latency %d", ErrUsage, o.Latency)
	}
	return nil
}

// divisor is the effective rescale factor, 1 when rescaling is off.
func (o Options) divisor() float64 {
	if o.RescaleInverse {
		return o.RescaleDivisor
	}
	return 1
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

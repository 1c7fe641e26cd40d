package consts

const (
	DefaultZeroBound   = 1e-12 // inverse entries at or below this magnitude are not emitted
	DefaultClockPeriod = 10.0  // HLS clock period (ns)
	DefaultWordWidth   = 32    // ap_fixed total bits
	DefaultIntWidth    = 16    // ap_fixed integer bits
	DefaultOutputDir   = "."
	HeaderExt          = ".hpp"
)

const (
	AppName    = "lblmc"
	AppVersion = "0.1.0"
)

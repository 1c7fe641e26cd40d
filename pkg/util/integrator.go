package util

// The companion models and their emitted history updates are trapezoidal
// only; every dynamic element derives its conductance from these.

// GetIntegratorCoeff returns the trapezoidal derivative coefficient 2/dt,
// d/dt x ~ a0*x(n) + history.
func GetIntegratorCoeff(dt float64) float64 {
	return 2.0 / dt
}

// CapacitorConductance is the companion conductance C*a0.
func CapacitorConductance(dt, c float64) float64 {
	return c * GetIntegratorCoeff(dt)
}

// InductorConductance is the companion conductance 1/(L*a0).
func InductorConductance(dt, l float64) float64 {
	return 1.0 / (l * GetIntegratorCoeff(dt))
}

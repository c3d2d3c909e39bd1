package billing

import "math"

// RoundCents rounds an amount to two decimals, half away from zero.
// Rates and amounts are stored as DECIMAL(12,2).
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// RoundRate returns a copy of r rounded to cents, or nil.
func RoundRate(r *float64) *float64 {
	if r == nil {
		return nil
	}
	v := RoundCents(*r)
	return &v
}

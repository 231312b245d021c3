package fusion

import "math"

// Calibrator is a monotonic, deterministic correction over [0,100].
// Identity by default; categories with known systematic model bias can
// plug in a fitted curve.
type Calibrator func(float64) float64

// Identity leaves the probability untouched.
func Identity(x float64) float64 { return x }

// Platt builds a logistic recalibration from fitted coefficients. The
// probability is mapped through log-odds, shifted, and mapped back, which
// keeps the output monotonic and inside [0,100].
func Platt(a, b float64) Calibrator {
	return func(x float64) float64 {
		p := clamp(x/100, 1e-6, 1-1e-6)
		logit := math.Log(p / (1 - p))
		calibrated := 1 / (1 + math.Exp(-(a*logit + b)))
		return clamp(calibrated*100, 0, 100)
	}
}

// CalibratorSet maps event category to its correction. Missing categories
// fall back to identity.
type CalibratorSet map[string]Calibrator

// For returns the calibrator for a category and whether a non-identity
// entry was configured.
func (s CalibratorSet) For(category string) (Calibrator, bool) {
	if s == nil {
		return Identity, false
	}
	if f, ok := s[category]; ok && f != nil {
		return f, true
	}
	return Identity, false
}

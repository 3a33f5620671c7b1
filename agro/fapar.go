package agro

import (
	"fmt"
	"math"
)

// FAPARParams holds the constants of the exponential NDVI → fAPAR relation
// fapar = A * exp(B * ndvi).
type FAPARParams struct {
	A float64
	B float64
}

// DefaultFAPARParams returns the literature constants for green-canopy
// fAPAR from NDVI.
func DefaultFAPARParams() FAPARParams {
	return FAPARParams{A: 0.013, B: 4.48}
}

// FromNDVI converts one vegetation-index value to fAPAR. The function does
// not clamp or validate range: out-of-range inputs produce mathematically
// valid but physically meaningless output, which is why the series is
// cleaned upstream. Missing input (NaN) propagates.
func (p FAPARParams) FromNDVI(ndvi float64) float64 {
	if math.IsNaN(ndvi) {
		return math.NaN()
	}
	return p.A * math.Exp(p.B*ndvi)
}

// Validate fails fast on constants that would flip or zero the relation.
func (p FAPARParams) Validate() error {
	if p.A <= 0 {
		return fmt.Errorf("fapar params: A must be positive, got %g", p.A)
	}
	if p.B <= 0 {
		return fmt.Errorf("fapar params: B must be positive, got %g", p.B)
	}
	return nil
}

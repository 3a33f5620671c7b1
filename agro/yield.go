package agro

import "fmt"

// HarvestIndex is the grain-to-biomass ratio with a literature uncertainty
// band. The band communicates parameter uncertainty, not a statistical
// confidence interval.
type HarvestIndex struct {
	Value float64
	Low   float64
	High  float64
}

// DefaultHarvestIndex returns the ratio for modern wheat varieties.
func DefaultHarvestIndex() HarvestIndex {
	return HarvestIndex{Value: 0.45, Low: 0.40, High: 0.50}
}

// Validate fails fast on a ratio outside sane bounds.
func (h HarvestIndex) Validate() error {
	if h.Value <= 0 || h.Value >= 1 {
		return fmt.Errorf("harvest index: value must be in (0,1), got %g", h.Value)
	}
	if h.Low <= 0 || h.High >= 1 || h.Low > h.High {
		return fmt.Errorf("harvest index: band [%g,%g] invalid", h.Low, h.High)
	}
	if h.Value < h.Low || h.Value > h.High {
		return fmt.Errorf("harvest index: value %g outside band [%g,%g]", h.Value, h.Low, h.High)
	}
	return nil
}

// YieldEstimate is the terminal output for one field. Derived
// deterministically from the final cumulative biomass; no further mutation.
type YieldEstimate struct {
	FieldID            string
	TotalBiomassGPerM2 float64
	TotalBiomassTonHa  float64
	GrainYieldTonHa    float64
	YieldLowTonHa      float64
	YieldHighTonHa     float64
	HarvestIndexUsed   float64
}

// ConvertYield reduces total above-ground biomass into grain yield.
// Unit conversions are exact: g/m² → kg/ha is ×10, kg/ha → ton/ha is ÷1000.
func ConvertYield(fieldID string, totalBiomassGPerM2 float64, hi HarvestIndex) YieldEstimate {
	return YieldEstimate{
		FieldID:            fieldID,
		TotalBiomassGPerM2: totalBiomassGPerM2,
		TotalBiomassTonHa:  totalBiomassGPerM2 * 10 / 1000,
		GrainYieldTonHa:    totalBiomassGPerM2 * hi.Value * 10 / 1000,
		YieldLowTonHa:      totalBiomassGPerM2 * hi.Low * 10 / 1000,
		YieldHighTonHa:     totalBiomassGPerM2 * hi.High * 10 / 1000,
		HarvestIndexUsed:   hi.Value,
	}
}

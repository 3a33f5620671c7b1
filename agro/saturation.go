package agro

import (
	"math"
	"time"
)

// Correction is an auditable record of one substituted index value. The
// caller decides how to log it; the core only reports what changed.
type Correction struct {
	Index  int
	Date   time.Time
	Reason string
	Before float64
	After  float64 // NaN when the value was quarantined instead of replaced
}

// QuarantineSaturated screens a series for index values pinned at or above
// the physical ceiling, a known upstream artifact where percentile
// statistics collapse to a single value. Such values are never trusted:
// the pre-cleaning original is preferred, then the p50 statistic, and with
// neither available the value is marked missing so it propagates as NaN
// instead of feeding a saturated fAPAR into the simulation.
//
// The input is not mutated; substitutions are returned for logging.
func QuarantineSaturated(series []VegetationObservation, ceiling float64) ([]VegetationObservation, []Correction) {
	out := make([]VegetationObservation, len(series))
	copy(out, series)

	var corrections []Correction
	for i, o := range out {
		if !o.Valid() || o.IndexMean < ceiling {
			continue
		}
		before := o.IndexMean
		switch {
		case o.OriginalValue != nil && *o.OriginalValue < ceiling && !math.IsNaN(*o.OriginalValue):
			out[i].IndexMean = *o.OriginalValue
			corrections = append(corrections, Correction{
				Index: i, Date: o.ObservedAt(), Reason: "saturated mean replaced by original value",
				Before: before, After: out[i].IndexMean,
			})
		case o.P50 != nil && *o.P50 < ceiling && !math.IsNaN(*o.P50):
			out[i].IndexMean = *o.P50
			corrections = append(corrections, Correction{
				Index: i, Date: o.ObservedAt(), Reason: "saturated mean replaced by p50",
				Before: before, After: out[i].IndexMean,
			})
		default:
			out[i].IndexMean = math.NaN()
			corrections = append(corrections, Correction{
				Index: i, Date: o.ObservedAt(), Reason: "saturated mean quarantined",
				Before: before, After: math.NaN(),
			})
		}
	}
	return out, corrections
}

package agro

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// External collaborators deliver the same quantities under inconsistent
// field names (PAR_MJ vs par_mj_m2 vs par_mj, ndvi_mean vs index_mean,
// date vs from/to periods). All of that is resolved here, once, into the
// canonical observation types; nothing downstream branches on "which key
// exists".

var (
	radiationKeys   = []string{"PAR_MJ", "par_mj_m2", "par_mj", "par"}
	indexMeanKeys   = []string{"ndvi_mean", "index_mean", "mean"}
	originalKeys    = []string{"ndvi_mean_original", "original_value"}
	periodStartKeys = []string{"from", "period_start"}
	periodEndKeys   = []string{"to", "period_end"}
)

// ParseRadiation normalizes one raw radiation record into a
// RadiationObservation. PAR must be present and non-negative.
func ParseRadiation(raw map[string]any) (RadiationObservation, error) {
	date, err := pickDate(raw, "date")
	if err != nil {
		return RadiationObservation{}, fmt.Errorf("radiation record: %w", err)
	}
	par := pickFloat(raw, radiationKeys...)
	if par == nil {
		return RadiationObservation{}, fmt.Errorf("radiation record %s: no PAR value under any known key", dayKey(date))
	}
	if *par < 0 || math.IsNaN(*par) {
		return RadiationObservation{}, fmt.Errorf("radiation record %s: invalid PAR %g", dayKey(date), *par)
	}
	return RadiationObservation{Date: date, PARMJ: *par}, nil
}

// ParseVegetation normalizes one raw vegetation-index record. A record may
// carry a single date or a from/to aggregation period; a missing or null
// index mean becomes NaN so missingness propagates instead of being
// guessed.
func ParseVegetation(raw map[string]any) (VegetationObservation, error) {
	var obs VegetationObservation

	if start, err := pickDate(raw, periodStartKeys...); err == nil {
		end, err := pickDate(raw, periodEndKeys...)
		if err != nil {
			return obs, fmt.Errorf("vegetation record: period start without end: %w", err)
		}
		obs.Date = start
		obs.PeriodStart = &start
		obs.PeriodEnd = &end
	} else {
		date, err := pickDate(raw, "date")
		if err != nil {
			return obs, fmt.Errorf("vegetation record: %w", err)
		}
		obs.Date = date
	}

	if mean := pickFloat(raw, indexMeanKeys...); mean != nil {
		obs.IndexMean = *mean
	} else {
		obs.IndexMean = math.NaN()
	}

	obs.Std = pickFloat(raw, "ndvi_std", "std")
	obs.Min = pickFloat(raw, "ndvi_min", "min")
	obs.Max = pickFloat(raw, "ndvi_max", "max")
	obs.P10 = pickFloat(raw, "ndvi_p10", "p10")
	obs.P25 = pickFloat(raw, "ndvi_p25", "p25")
	obs.P50 = pickFloat(raw, "ndvi_p50", "p50")
	obs.P75 = pickFloat(raw, "ndvi_p75", "p75")
	obs.P90 = pickFloat(raw, "ndvi_p90", "p90")

	obs.OriginalValue = pickFloat(raw, originalKeys...)
	if v, ok := raw["was_outlier"].(bool); ok {
		obs.WasOutlier = v
	}
	return obs, nil
}

func pickFloat(raw map[string]any, keys ...string) *float64 {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			return &n
		case float32:
			f := float64(n)
			return &f
		case int:
			f := float64(n)
			return &f
		case int64:
			f := float64(n)
			return &f
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return &f
			}
		}
	}
	return nil
}

func pickDate(raw map[string]any, keys ...string) (time.Time, error) {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		switch d := v.(type) {
		case string:
			if t, err := time.Parse("2006-01-02", d); err == nil {
				return t, nil
			}
			if t, err := time.Parse(time.RFC3339, d); err == nil {
				return dateOnly(t), nil
			}
			return time.Time{}, fmt.Errorf("unparseable date %q under %q", d, k)
		case time.Time:
			return dateOnly(d), nil
		}
	}
	return time.Time{}, fmt.Errorf("no date under keys %v", keys)
}

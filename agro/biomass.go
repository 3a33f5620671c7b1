package agro

import (
	"math"
	"sort"
	"time"
)

// DailyBiomassRecord is one simulated day. The ordered sequence is the
// field's growth curve; records are immutable once emitted.
type DailyBiomassRecord struct {
	Date            time.Time
	DaysAfterSowing int
	FAPAR           float64
	PAR             float64 // MJ/m²
	AbsorbedPAR     float64 // MJ/m²
	RUE             float64 // g DM/MJ
	DailyBiomass    float64 // g DM/m²
	Cumulative      float64 // g DM/m², running sum including this day
}

// CoverageGap is a simulated-range day present in only one of the joined
// series. Gap days are dropped from the simulation, never zero-filled.
type CoverageGap struct {
	Date    time.Time
	Missing string // "radiation" or "vegetation"
}

// AccumulateBiomass walks the daily fAPAR series joined with the daily
// radiation series by exact date and produces the growth curve in strict
// ascending date order. Days before sowing are never simulated. An empty
// join is ErrNoOverlap: "no computation happened" must stay distinguishable
// from a legitimately near-zero yield.
func AccumulateBiomass(fapar []Sample, radiation []RadiationObservation, sowing time.Time, table RUETable) ([]DailyBiomassRecord, []CoverageGap, error) {
	sowing = dateOnly(sowing)

	parByDay := make(map[string]float64, len(radiation))
	for _, r := range radiation {
		parByDay[dayKey(r.Date)] = r.PARMJ
	}

	daily := make([]Sample, len(fapar))
	copy(daily, fapar)
	sort.Slice(daily, func(i, j int) bool { return daily[i].Date.Before(daily[j].Date) })

	var (
		records []DailyBiomassRecord
		gaps    []CoverageGap
		total   float64
		matched = make(map[string]bool, len(daily))
	)
	for _, d := range daily {
		date := dateOnly(d.Date)
		if date.Before(sowing) || math.IsNaN(d.Value) {
			continue
		}
		key := dayKey(date)
		par, ok := parByDay[key]
		if !ok {
			gaps = append(gaps, CoverageGap{Date: date, Missing: "radiation"})
			continue
		}
		matched[key] = true

		das := int(date.Sub(sowing).Hours() / 24)
		rue, err := table.ByDays(das)
		if err != nil {
			return nil, nil, err
		}
		apar := d.Value * par
		biomass := apar * rue
		total += biomass
		records = append(records, DailyBiomassRecord{
			Date:            date,
			DaysAfterSowing: das,
			FAPAR:           d.Value,
			PAR:             par,
			AbsorbedPAR:     apar,
			RUE:             rue,
			DailyBiomass:    biomass,
			Cumulative:      total,
		})
	}

	// Radiation days inside the simulated range with no vegetation match.
	if len(daily) > 0 {
		last := dateOnly(daily[len(daily)-1].Date)
		for _, r := range radiation {
			date := dateOnly(r.Date)
			if date.Before(sowing) || date.After(last) || matched[dayKey(date)] {
				continue
			}
			gaps = append(gaps, CoverageGap{Date: date, Missing: "vegetation"})
		}
	}
	sort.Slice(gaps, func(i, j int) bool { return gaps[i].Date.Before(gaps[j].Date) })

	if len(records) == 0 {
		return nil, gaps, ErrNoOverlap
	}
	return records, gaps, nil
}

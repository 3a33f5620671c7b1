package agro

import (
	"fmt"
	"strings"
)

// RUESegment maps the half-open day range [FromDay, ToDay) to a radiation
// use efficiency value in g dry matter per MJ absorbed PAR. The final
// segment of a table is open-ended and its ToDay is ignored.
type RUESegment struct {
	FromDay int
	ToDay   int
	RUE     float64
}

// RUETable maps crop age or a named growth stage to a radiation use
// efficiency coefficient. Values are configuration, not computation: each
// segment traces to a literature value, which is why a lookup table is used
// instead of a fitted curve.
type RUETable struct {
	Days     []RUESegment
	Stages   map[string]float64
	Fallback float64 // used for unrecognized stage names
}

// DefaultRUETable returns literature RUE values for wheat
// (Sinclair & Muchow 1999, Kiniry et al. 1989).
func DefaultRUETable() RUETable {
	return RUETable{
		Days: []RUESegment{
			{0, 20, 2.0},    // emergence
			{20, 45, 2.4},   // tillering
			{45, 75, 2.7},   // stem extension
			{75, 105, 2.6},  // heading/anthesis
			{105, 125, 2.3}, // early grain fill
			{125, 145, 2.0}, // late grain fill
			{145, 0, 1.8},   // maturity, open-ended
		},
		Stages: map[string]float64{
			"Emergence":        2.0,
			"Tillering":        2.4,
			"Stem Extension":   2.7,
			"Heading/Anthesis": 2.6,
			"Grain Fill":       2.2,
			"Maturity":         1.8,
		},
		Fallback: 2.4,
	}
}

// ByDays returns the RUE value for the given crop age. Negative ages are
// invalid input: days before sowing are never simulated.
func (t RUETable) ByDays(daysAfterSowing int) (float64, error) {
	if daysAfterSowing < 0 {
		return 0, fmt.Errorf("negative days after sowing: %d", daysAfterSowing)
	}
	for i, seg := range t.Days {
		if i == len(t.Days)-1 {
			if daysAfterSowing >= seg.FromDay {
				return seg.RUE, nil
			}
			break
		}
		if daysAfterSowing >= seg.FromDay && daysAfterSowing < seg.ToDay {
			return seg.RUE, nil
		}
	}
	return t.Fallback, nil
}

// ByStage returns the RUE value for a named growth stage. Decorated names
// such as "Stem Extension (Zadoks 30)" are normalized before lookup; an
// unrecognized name falls back to the flat average.
func (t RUETable) ByStage(stage string) float64 {
	name := normalizeStage(stage)
	if rue, ok := t.Stages[name]; ok {
		return rue
	}
	return t.Fallback
}

// stageAliases folds common stage-name variants onto table keys.
var stageAliases = []struct{ match, canonical string }{
	{"Stem Extension", "Stem Extension"},
	{"Heading", "Heading/Anthesis"},
	{"Anthesis", "Heading/Anthesis"},
	{"Flowering", "Heading/Anthesis"},
	{"Grain Fill", "Grain Fill"},
}

func normalizeStage(stage string) string {
	name, _, _ := strings.Cut(stage, "(")
	name = strings.TrimSpace(name)
	for _, a := range stageAliases {
		if strings.Contains(name, a.match) {
			return a.canonical
		}
	}
	return name
}

// Validate fails fast on a table that would produce negative biomass or
// leave day ranges uncovered.
func (t RUETable) Validate() error {
	if len(t.Days) == 0 {
		return fmt.Errorf("rue table: no day segments")
	}
	if t.Fallback <= 0 {
		return fmt.Errorf("rue table: fallback must be positive, got %g", t.Fallback)
	}
	if t.Days[0].FromDay != 0 {
		return fmt.Errorf("rue table: first segment must start at day 0, got %d", t.Days[0].FromDay)
	}
	for i, seg := range t.Days {
		if seg.RUE <= 0 {
			return fmt.Errorf("rue table: segment %d has non-positive rue %g", i, seg.RUE)
		}
		if i == len(t.Days)-1 {
			break
		}
		if seg.ToDay <= seg.FromDay {
			return fmt.Errorf("rue table: segment %d has empty range [%d,%d)", i, seg.FromDay, seg.ToDay)
		}
		if t.Days[i+1].FromDay != seg.ToDay {
			return fmt.Errorf("rue table: gap between day %d and %d", seg.ToDay, t.Days[i+1].FromDay)
		}
	}
	for name, rue := range t.Stages {
		if rue <= 0 {
			return fmt.Errorf("rue table: stage %q has non-positive rue %g", name, rue)
		}
	}
	return nil
}

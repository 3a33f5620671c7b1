package agro

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

// CleanConfig tunes outlier detection and gap filling for one source
// cadence. A rule with a zero threshold is disabled, which is how the
// weekly and daily regimes share one contract.
type CleanConfig struct {
	// Window is the centered rolling-median window; MinPeriods is the
	// number of valid points a window needs before it yields a statistic.
	Window     int
	MinPeriods int

	// Floor is the absolute index value below which a point is suspect.
	// With FloorStandalone set (dense daily sources) any value below the
	// floor is flagged as near-certain cloud contamination; otherwise the
	// floor only applies to local dips between healthy neighbors.
	Floor           float64
	FloorStandalone bool

	// NeighborDropRatio flags a point that falls below ratio × the average
	// of its two neighbors while both neighbors sit above the floor.
	NeighborDropRatio float64

	// MADFactor flags deviations from the rolling median larger than
	// factor × the median absolute deviation, restricted to points below
	// the rolling median (abnormal dips, not spikes).
	MADFactor float64

	// ZScore flags deviations from the rolling median larger than
	// zscore × the rolling standard deviation.
	ZScore float64

	// SuddenDrop flags points more than this far below the rolling median.
	SuddenDrop float64

	// Replacement values are clipped back into [ClipLow, ClipHigh].
	ClipLow  float64
	ClipHigh float64

	// MinObservations is the series length below which cleaning silently
	// degrades to a no-op; too few points to tell signal from noise.
	MinObservations int

	// Fill selects the interpolation used over non-outlier points.
	Fill InterpKind
}

// WeeklyCleanConfig returns the sparse/weekly regime: dip heuristics
// against immediate neighbors plus a MAD rule, linear gap fill.
func WeeklyCleanConfig() CleanConfig {
	return CleanConfig{
		Window:            3,
		MinPeriods:        1,
		Floor:             0.2,
		NeighborDropRatio: 0.7,
		MADFactor:         3,
		ClipLow:           0,
		ClipHigh:          1,
		MinObservations:   3,
		Fill:              InterpLinear,
	}
}

// DailyCleanConfig returns the dense/daily regime: absolute floor,
// z-score and sudden-drop rules over a wider window, cubic gap fill.
func DailyCleanConfig() CleanConfig {
	return CleanConfig{
		Window:          7,
		MinPeriods:      3,
		Floor:           0.2,
		FloorStandalone: true,
		ZScore:          3,
		SuddenDrop:      0.2,
		ClipLow:         0,
		ClipHigh:        1,
		MinObservations: 3,
		Fill:            InterpCubic,
	}
}

// Validate fails fast on thresholds that cannot work.
func (c CleanConfig) Validate() error {
	if c.Window < 1 {
		return fmt.Errorf("clean config: window must be >= 1, got %d", c.Window)
	}
	if c.MinPeriods < 1 {
		return fmt.Errorf("clean config: min periods must be >= 1, got %d", c.MinPeriods)
	}
	if c.MinObservations < 2 {
		return fmt.Errorf("clean config: min observations must be >= 2, got %d", c.MinObservations)
	}
	if c.ClipHigh <= c.ClipLow {
		return fmt.Errorf("clean config: clip range [%g,%g] is empty", c.ClipLow, c.ClipHigh)
	}
	if c.NeighborDropRatio < 0 || c.NeighborDropRatio >= 1 {
		return fmt.Errorf("clean config: neighbor drop ratio must be in [0,1), got %g", c.NeighborDropRatio)
	}
	for _, v := range []struct {
		name string
		val  float64
	}{{"floor", c.Floor}, {"mad factor", c.MADFactor}, {"z-score", c.ZScore}, {"sudden drop", c.SuddenDrop}} {
		if v.val < 0 {
			return fmt.Errorf("clean config: %s must be >= 0, got %g", v.name, v.val)
		}
	}
	return nil
}

// Cleaner detects anomalous vegetation-index points (cloud contamination,
// sensor artifacts) and replaces them with values interpolated from their
// temporal neighbors.
type Cleaner struct {
	cfg CleanConfig
}

func NewCleaner(cfg CleanConfig) (*Cleaner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Cleaner{cfg: cfg}, nil
}

// Clean returns a corrected copy of the series and the number of points
// replaced. The input is never mutated; every replaced observation keeps
// its original value and a WasOutlier marker. With too few valid points to
// detect or refill, the copy is returned unchanged.
func (c *Cleaner) Clean(series []VegetationObservation) ([]VegetationObservation, int) {
	out := make([]VegetationObservation, len(series))
	copy(out, series)

	values := make([]float64, len(series))
	valid := 0
	for i, o := range series {
		values[i] = o.IndexMean
		if o.Valid() {
			valid++
		}
	}
	if valid < c.cfg.MinObservations || len(series) < c.cfg.MinObservations {
		return out, 0
	}

	flags := c.detect(values)
	flagged := 0
	for _, f := range flags {
		if f {
			flagged++
		}
	}
	if flagged == 0 {
		return out, 0
	}

	// Interpolate over the non-outlier points only, parameterized by
	// elapsed days since the series' first date, with extrapolation at the
	// boundaries.
	first := dateOnly(series[0].ObservedAt())
	var xs, ys []float64
	for i, o := range series {
		if flags[i] || !o.Valid() {
			continue
		}
		xs = append(xs, dateOnly(o.ObservedAt()).Sub(first).Hours()/24)
		ys = append(ys, o.IndexMean)
	}
	f, err := interp1d(xs, ys, c.cfg.Fill, boundaryExtend)
	if err != nil {
		// Fewer than 2 clean points: refilling is impossible, return the
		// series unmodified rather than zero-filling or erroring.
		return out, 0
	}

	for i := range out {
		if !flags[i] {
			continue
		}
		x := dateOnly(out[i].ObservedAt()).Sub(first).Hours() / 24
		v := clip(f(x), c.cfg.ClipLow, c.cfg.ClipHigh)
		orig := out[i].IndexMean
		out[i].OriginalValue = &orig
		out[i].WasOutlier = true
		out[i].IndexMean = v
	}
	return out, flagged
}

// detect runs every enabled rule and ORs the flags. NaN values are neither
// flagged nor used as evidence against their neighbors.
func (c *Cleaner) detect(values []float64) []bool {
	n := len(values)
	flags := make([]bool, n)
	med := rollingMedian(values, c.cfg.Window, c.cfg.MinPeriods)
	sd := rollingStd(values, c.cfg.Window, c.cfg.MinPeriods)

	if c.cfg.FloorStandalone && c.cfg.Floor > 0 {
		for i, v := range values {
			if !math.IsNaN(v) && v < c.cfg.Floor {
				flags[i] = true
			}
		}
	}

	// Local-dip rules against immediate neighbors.
	if c.cfg.NeighborDropRatio > 0 {
		for i := 1; i < n-1; i++ {
			prev, curr, next := values[i-1], values[i], values[i+1]
			if math.IsNaN(prev) || math.IsNaN(curr) || math.IsNaN(next) {
				continue
			}
			if prev <= c.cfg.Floor || next <= c.cfg.Floor {
				continue
			}
			if curr < c.cfg.Floor {
				flags[i] = true
			}
			if curr < c.cfg.NeighborDropRatio*(prev+next)/2 {
				flags[i] = true
			}
		}
	}

	if c.cfg.MADFactor > 0 {
		var devs []float64
		dev := make([]float64, n)
		for i, v := range values {
			dev[i] = math.NaN()
			if math.IsNaN(v) || math.IsNaN(med[i]) {
				continue
			}
			dev[i] = math.Abs(v - med[i])
			if dev[i] > 0 {
				devs = append(devs, dev[i])
			}
		}
		if mad, err := stats.Median(devs); err == nil && mad > 0 {
			for i, v := range values {
				if math.IsNaN(dev[i]) {
					continue
				}
				if dev[i] > c.cfg.MADFactor*mad && v < med[i] {
					flags[i] = true
				}
			}
		}
	}

	for i, v := range values {
		if math.IsNaN(v) || math.IsNaN(med[i]) {
			continue
		}
		if c.cfg.ZScore > 0 && !math.IsNaN(sd[i]) && sd[i] > 0 {
			if math.Abs(v-med[i])/sd[i] > c.cfg.ZScore {
				flags[i] = true
			}
		}
		if c.cfg.SuddenDrop > 0 && v < med[i]-c.cfg.SuddenDrop {
			flags[i] = true
		}
	}
	return flags
}

// rollingMedian computes a centered rolling median, ignoring NaN values.
// Windows with fewer than minPeriods valid points yield NaN.
func rollingMedian(values []float64, window, minPeriods int) []float64 {
	return rolling(values, window, minPeriods, func(w []float64) (float64, error) {
		return stats.Median(w)
	})
}

// rollingStd computes a centered rolling sample standard deviation.
func rollingStd(values []float64, window, minPeriods int) []float64 {
	return rolling(values, window, minPeriods, func(w []float64) (float64, error) {
		if len(w) < 2 {
			return math.NaN(), nil
		}
		return stats.StandardDeviationSample(w)
	})
}

func rolling(values []float64, window, minPeriods int, fn func([]float64) (float64, error)) []float64 {
	n := len(values)
	out := make([]float64, n)
	half := window / 2
	for i := range values {
		lo := max(0, i-half)
		hi := min(n, i+half+1)
		w := make([]float64, 0, hi-lo)
		for _, v := range values[lo:hi] {
			if !math.IsNaN(v) {
				w = append(w, v)
			}
		}
		if len(w) < minPeriods {
			out[i] = math.NaN()
			continue
		}
		v, err := fn(w)
		if err != nil {
			v = math.NaN()
		}
		out[i] = v
	}
	return out
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

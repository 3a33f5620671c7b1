package agro

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// InterpKind selects the 1-D interpolation used when resampling a series.
// It is an explicit parameter rather than inferred from data cadence so the
// two can be tested independently and mixed deliberately.
type InterpKind int

const (
	InterpLinear InterpKind = iota
	InterpCubic
)

func (k InterpKind) String() string {
	switch k {
	case InterpLinear:
		return "linear"
	case InterpCubic:
		return "cubic"
	default:
		return fmt.Sprintf("interp(%d)", int(k))
	}
}

// boundary controls behaviour outside the fitted x range.
type boundary int

const (
	// boundaryHold returns the nearest endpoint value (no extrapolation
	// drift), used when upsampling to daily resolution.
	boundaryHold boundary = iota
	// boundaryExtend continues the end segment beyond the range, used when
	// filling flagged values at the edges of a series.
	boundaryExtend
)

// interp1d builds a 1-D interpolant over strictly increasing xs. Cubic
// interpolation needs at least four points and degrades to linear below
// that, matching how sparse series are handled elsewhere.
func interp1d(xs, ys []float64, kind InterpKind, b boundary) (func(float64) float64, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("interp: %d xs vs %d ys", len(xs), len(ys))
	}
	if len(xs) < 2 {
		return nil, ErrInsufficientData
	}
	for i := 1; i < len(xs); i++ {
		if xs[i] <= xs[i-1] {
			return nil, fmt.Errorf("interp: xs not strictly increasing at %d", i)
		}
	}
	if kind == InterpCubic && len(xs) >= 4 {
		return newSpline(xs, ys, b).eval, nil
	}
	return func(x float64) float64 { return linearAt(xs, ys, x, b) }, nil
}

func linearAt(xs, ys []float64, x float64, b boundary) float64 {
	n := len(xs)
	if x <= xs[0] {
		if b == boundaryHold {
			return ys[0]
		}
		return extendLinear(xs[0], ys[0], xs[1], ys[1], x)
	}
	if x >= xs[n-1] {
		if b == boundaryHold {
			return ys[n-1]
		}
		return extendLinear(xs[n-2], ys[n-2], xs[n-1], ys[n-1], x)
	}
	i := sort.SearchFloat64s(xs, x)
	if xs[i] == x {
		return ys[i]
	}
	return extendLinear(xs[i-1], ys[i-1], xs[i], ys[i], x)
}

func extendLinear(x0, y0, x1, y1, x float64) float64 {
	return y0 + (y1-y0)*(x-x0)/(x1-x0)
}

// spline is a natural cubic spline (zero second derivative at both ends).
type spline struct {
	xs, ys, y2 []float64
	bound      boundary
}

func newSpline(xs, ys []float64, b boundary) *spline {
	n := len(xs)
	y2 := make([]float64, n)
	u := make([]float64, n)
	for i := 1; i < n-1; i++ {
		sig := (xs[i] - xs[i-1]) / (xs[i+1] - xs[i-1])
		p := sig*y2[i-1] + 2
		y2[i] = (sig - 1) / p
		u[i] = (ys[i+1]-ys[i])/(xs[i+1]-xs[i]) - (ys[i]-ys[i-1])/(xs[i]-xs[i-1])
		u[i] = (6*u[i]/(xs[i+1]-xs[i-1]) - sig*u[i-1]) / p
	}
	for k := n - 2; k >= 1; k-- {
		y2[k] = y2[k]*y2[k+1] + u[k]
	}
	return &spline{xs: xs, ys: ys, y2: y2, bound: b}
}

func (s *spline) eval(x float64) float64 {
	n := len(s.xs)
	if s.bound == boundaryHold {
		if x <= s.xs[0] {
			return s.ys[0]
		}
		if x >= s.xs[n-1] {
			return s.ys[n-1]
		}
	}
	// Clamp to an end segment so out-of-range x continues its polynomial.
	i := sort.SearchFloat64s(s.xs, x)
	if i > 0 {
		i--
	}
	if i > n-2 {
		i = n - 2
	}
	h := s.xs[i+1] - s.xs[i]
	a := (s.xs[i+1] - x) / h
	bb := (x - s.xs[i]) / h
	return a*s.ys[i] + bb*s.ys[i+1] +
		((a*a*a-a)*s.y2[i]+(bb*bb*bb-bb)*s.y2[i+1])*h*h/6
}

// DailySeries resolves a sparse or irregular series to exactly one value per
// calendar day in [sowing, end], both inclusive. Samples are positioned at
// their dates (already midpoint-adjusted for weekly sources, see
// VegetationObservation.ObservedAt), interpolated over elapsed days since
// sowing, and held constant outside the observed range. Missing (NaN)
// samples are dropped; duplicate days keep the last sample.
//
// Fewer than 2 valid samples is ErrInsufficientData: the caller reports the
// field as not predictable instead of guessing.
func DailySeries(obs []Sample, sowing, end time.Time, kind InterpKind) ([]Sample, error) {
	sowing = dateOnly(sowing)
	end = dateOnly(end)
	if end.Before(sowing) {
		return nil, fmt.Errorf("daily series: end %s before sowing %s", dayKey(end), dayKey(sowing))
	}

	byDay := make(map[string]Sample, len(obs))
	for _, o := range obs {
		if math.IsNaN(o.Value) {
			continue
		}
		o.Date = dateOnly(o.Date)
		byDay[dayKey(o.Date)] = o
	}
	if len(byDay) < 2 {
		return nil, fmt.Errorf("daily series: %w: %d valid samples", ErrInsufficientData, len(byDay))
	}

	valid := make([]Sample, 0, len(byDay))
	for _, o := range byDay {
		valid = append(valid, o)
	}
	sort.Slice(valid, func(i, j int) bool { return valid[i].Date.Before(valid[j].Date) })

	xs := make([]float64, len(valid))
	ys := make([]float64, len(valid))
	for i, o := range valid {
		xs[i] = o.Date.Sub(sowing).Hours() / 24
		ys[i] = o.Value
	}
	f, err := interp1d(xs, ys, kind, boundaryHold)
	if err != nil {
		return nil, fmt.Errorf("daily series: %w", err)
	}

	days := int(end.Sub(sowing).Hours()/24) + 1
	out := make([]Sample, 0, days)
	for d := 0; d < days; d++ {
		date := sowing.AddDate(0, 0, d)
		out = append(out, Sample{Date: date, Value: f(float64(d))})
	}
	return out, nil
}

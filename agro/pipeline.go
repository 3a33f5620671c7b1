package agro

import (
	"context"
	"fmt"
	"sync"

	"github.com/montanaflynn/stats"
)

// Config is the full parameter surface of the pipeline. Everything the
// scripts used to hard-code is injected here so literature updates and
// per-region calibration never require code changes.
type Config struct {
	RUE     RUETable
	Harvest HarvestIndex
	FAPAR   FAPARParams
	Clean   CleanConfig
	Interp  InterpKind

	// SaturationCeiling enables the invalid-range quarantine when > 0:
	// index values at or above it are substituted before conversion.
	SaturationCeiling float64
}

// DefaultConfig returns the weekly-cadence configuration.
func DefaultConfig() Config {
	return Config{
		RUE:               DefaultRUETable(),
		Harvest:           DefaultHarvestIndex(),
		FAPAR:             DefaultFAPARParams(),
		Clean:             WeeklyCleanConfig(),
		Interp:            InterpLinear,
		SaturationCeiling: 1.0,
	}
}

// DailyConfig returns the dense-cadence configuration used for
// high-frequency satellite feeds.
func DailyConfig() Config {
	cfg := DefaultConfig()
	cfg.Clean = DailyCleanConfig()
	return cfg
}

// Validate fails fast at construction, not at the first field.
func (c Config) Validate() error {
	if err := c.RUE.Validate(); err != nil {
		return err
	}
	if err := c.Harvest.Validate(); err != nil {
		return err
	}
	if err := c.FAPAR.Validate(); err != nil {
		return err
	}
	if err := c.Clean.Validate(); err != nil {
		return err
	}
	return nil
}

// Result is the outcome of one field's pipeline run. Err is nil exactly
// when Estimate is set; a failed field reports its reason, never a
// fabricated zero yield.
type Result struct {
	FieldID          string
	Cleaned          []VegetationObservation
	OutliersReplaced int
	Corrections      []Correction
	Curve            []DailyBiomassRecord
	Gaps             []CoverageGap
	Estimate         *YieldEstimate
	Err              error
}

// Pipeline chains cleaning, fAPAR conversion, daily interpolation, biomass
// accumulation and yield conversion for one field at a time. It holds only
// read-only configuration and is safe to share across goroutines.
type Pipeline struct {
	cfg     Config
	cleaner *Cleaner
}

func NewPipeline(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline config: %w", err)
	}
	cleaner, err := NewCleaner(cfg.Clean)
	if err != nil {
		return nil, fmt.Errorf("pipeline config: %w", err)
	}
	return &Pipeline{cfg: cfg, cleaner: cleaner}, nil
}

func (p *Pipeline) Config() Config { return p.cfg }

// Run executes the whole chain for one field. All failures come back in
// Result.Err so batch callers can isolate them per field.
func (p *Pipeline) Run(fs FieldSeries) Result {
	res := Result{FieldID: fs.FieldID}

	if fs.EndDate.Before(fs.SowingDate) {
		res.Err = fmt.Errorf("field %s: end date %s before sowing date %s",
			fs.FieldID, dayKey(fs.EndDate), dayKey(fs.SowingDate))
		return res
	}
	valid := 0
	for _, o := range fs.Vegetation {
		if o.Valid() {
			valid++
		}
	}
	if valid < 2 {
		res.Err = fmt.Errorf("field %s: vegetation series: %w: %d valid observations",
			fs.FieldID, ErrInsufficientData, valid)
		return res
	}

	cleaned, replaced := p.cleaner.Clean(fs.Vegetation)
	if p.cfg.SaturationCeiling > 0 {
		cleaned, res.Corrections = QuarantineSaturated(cleaned, p.cfg.SaturationCeiling)
	}
	res.Cleaned = cleaned
	res.OutliersReplaced = replaced

	samples := make([]Sample, 0, len(cleaned))
	for _, o := range cleaned {
		samples = append(samples, Sample{Date: o.ObservedAt(), Value: p.cfg.FAPAR.FromNDVI(o.IndexMean)})
	}
	daily, err := DailySeries(samples, fs.SowingDate, fs.EndDate, p.cfg.Interp)
	if err != nil {
		res.Err = fmt.Errorf("field %s: interpolate fapar: %w", fs.FieldID, err)
		return res
	}

	curve, gaps, err := AccumulateBiomass(daily, fs.Radiation, fs.SowingDate, p.cfg.RUE)
	res.Gaps = gaps
	if err != nil {
		res.Err = fmt.Errorf("field %s: simulate biomass: %w", fs.FieldID, err)
		return res
	}
	res.Curve = curve

	est := ConvertYield(fs.FieldID, curve[len(curve)-1].Cumulative, p.cfg.Harvest)
	res.Estimate = &est
	return res
}

// RunBatch runs fields concurrently with a bounded worker pool. Fields are
// independent, so ordering across them does not matter; each result lands
// at its input index. Cancellation is field-granular: fields not yet
// started when ctx is done come back with ctx.Err, already-started fields
// finish atomically.
func (p *Pipeline) RunBatch(ctx context.Context, fields []FieldSeries, workers int) []Result {
	if workers < 1 {
		workers = 1
	}
	results := make([]Result, len(fields))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = p.Run(fields[i])
			}
		}()
	}
	for i := range fields {
		select {
		case <-ctx.Done():
			results[i] = Result{FieldID: fields[i].FieldID, Err: ctx.Err()}
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	return results
}

// BatchSummary aggregates predicted yields across a batch.
type BatchSummary struct {
	Fields    int
	Predicted int
	Mean      float64
	Median    float64
	Std       float64
	Min       float64
	Max       float64
}

// Summarize computes yield statistics over the predicted fields of a batch.
func Summarize(results []Result) BatchSummary {
	s := BatchSummary{Fields: len(results)}
	var yields []float64
	for _, r := range results {
		if r.Estimate != nil {
			yields = append(yields, r.Estimate.GrainYieldTonHa)
		}
	}
	s.Predicted = len(yields)
	if s.Predicted == 0 {
		return s
	}
	s.Mean, _ = stats.Mean(yields)
	s.Median, _ = stats.Median(yields)
	s.Std, _ = stats.StandardDeviationPopulation(yields)
	s.Min, _ = stats.Min(yields)
	s.Max, _ = stats.Max(yields)
	return s
}

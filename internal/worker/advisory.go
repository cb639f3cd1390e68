package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/smartirrigation/smartirrigation/internal/advisor"
	"github.com/smartirrigation/smartirrigation/internal/api/models"
	"github.com/smartirrigation/smartirrigation/internal/plot"
	"github.com/smartirrigation/smartirrigation/internal/weather"
)

const meterName = "github.com/smartirrigation/smartirrigation/internal/worker"

// Advisor computes advice for one plot. *advisor.Service implements it.
type Advisor interface {
	ForPlot(ctx context.Context, plotID string) (*models.Advice, error)
}

// PlotLister pages through saved plots. *plot.Service implements it.
type PlotLister interface {
	Page(ctx context.Context, opts plot.ListOptions) (*plot.ListResult, error)
}

// WeatherProbe fetches weather for the health check. *weather.Service implements it.
type WeatherProbe interface {
	GetSnapshot(ctx context.Context, lat, lon float64) (*weather.Snapshot, error)
}

// Flags exposes the runtime switches of the job. *featureflags.Service implements it.
type Flags interface {
	AdvisoryPaused(ctx context.Context) bool
	AdvisoryConcurrency(ctx context.Context) int
}

// AdvisoryJobConfig holds the dependencies of AdvisoryJob.
type AdvisoryJobConfig struct {
	Config  Config
	Advisor Advisor
	Plots   PlotLister
	Weather WeatherProbe
	Flags   Flags
	Logger  zerolog.Logger
	Meter   metric.Meter
}

// AdvisoryJob recomputes advice for every plot with a bounded worker pool.
type AdvisoryJob struct {
	config  Config
	advisor Advisor
	plots   PlotLister
	weather WeatherProbe
	flags   Flags
	logger  zerolog.Logger

	plotsProcessed metric.Int64Counter
	runDuration    metric.Float64Histogram

	mu    sync.RWMutex
	stats Stats
}

// Stats are cumulative job statistics.
type Stats struct {
	Runs          int64         `json:"runs"`
	SkippedRuns   int64         `json:"skippedRuns"`
	PlotsAdvised  int64         `json:"plotsAdvised"`
	PlotsFailed   int64         `json:"plotsFailed"`
	LastRunAt     time.Time     `json:"lastRunAt"`
	LastDuration  time.Duration `json:"lastDurationNs"`
	LastRunFailed bool          `json:"lastRunFailed"`
}

// AdvisoryResult is the outcome of one run.
type AdvisoryResult struct {
	StartTime   time.Time
	Duration    time.Duration
	Skipped     bool
	Total       int
	Advised     int
	Constrained int
	Failed      int
	Errors      []PlotError
}

// PlotError records a plot whose advice could not be computed.
type PlotError struct {
	PlotID string
	Error  string
}

// NewAdvisoryJob creates the advisory job.
func NewAdvisoryJob(cfg AdvisoryJobConfig) (*AdvisoryJob, error) {
	config := cfg.Config
	defaults := DefaultConfig()
	if config.PageSize <= 0 {
		config.PageSize = defaults.PageSize
	}
	if config.PlotTimeout <= 0 {
		config.PlotTimeout = defaults.PlotTimeout
	}

	meter := cfg.Meter
	if meter == nil {
		meter = otel.Meter(meterName)
	}
	plotsProcessed, err := meter.Int64Counter(
		"advisory.plots",
		metric.WithDescription("Plots processed by the advisory job"),
		metric.WithUnit("{plot}"),
	)
	if err != nil {
		return nil, err
	}
	runDuration, err := meter.Float64Histogram(
		"advisory.run.duration",
		metric.WithDescription("Duration of advisory runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &AdvisoryJob{
		config:         config,
		advisor:        cfg.Advisor,
		plots:          cfg.Plots,
		weather:        cfg.Weather,
		flags:          cfg.Flags,
		logger:         cfg.Logger,
		plotsProcessed: plotsProcessed,
		runDuration:    runDuration,
	}, nil
}

// Run computes advice for all plots. It is skipped while the pause flag is set.
// An error is returned only when plots could not be listed.
func (j *AdvisoryJob) Run(ctx context.Context) (*AdvisoryResult, error) {
	result := &AdvisoryResult{StartTime: time.Now()}

	if j.flags != nil && j.flags.AdvisoryPaused(ctx) {
		result.Skipped = true
		j.mu.Lock()
		j.stats.SkippedRuns++
		j.mu.Unlock()
		j.logger.Info().Msg("advisory job paused by feature flag, skipping run")
		return result, nil
	}

	concurrency := 4
	if j.flags != nil {
		concurrency = j.flags.AdvisoryConcurrency(ctx)
	}

	j.logger.Info().
		Int("concurrency", concurrency).
		Int("page_size", j.config.PageSize).
		Msg("starting advisory job")

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(concurrency)

	err := j.feed(ctx, func(id string) {
		g.Go(func() error {
			o := j.advise(ctx, id)
			mu.Lock()
			result.add(o)
			mu.Unlock()
			return nil
		})
	})
	_ = g.Wait()
	result.Duration = time.Since(result.StartTime)

	j.finish(ctx, result, err)
	if err != nil {
		return result, fmt.Errorf("listing plots: %w", err)
	}
	return result, nil
}

// feed passes every plot ID to dispatch, one repository page at a time.
func (j *AdvisoryJob) feed(ctx context.Context, dispatch func(id string)) error {
	cursor := ""
	for {
		page, err := j.plots.Page(ctx, plot.ListOptions{Limit: j.config.PageSize, Cursor: cursor})
		if err != nil {
			return err
		}
		for _, p := range page.Items {
			if err := ctx.Err(); err != nil {
				return err
			}
			dispatch(p.ID)
		}
		if page.NextCursor == "" {
			return nil
		}
		cursor = page.NextCursor
	}
}

type plotOutcome struct {
	plotID      string
	constrained bool
	err         error
}

func (r *AdvisoryResult) add(o plotOutcome) {
	r.Total++
	switch {
	case o.err != nil:
		r.Failed++
		r.Errors = append(r.Errors, PlotError{PlotID: o.plotID, Error: o.err.Error()})
	case o.constrained:
		r.Constrained++
		r.Advised++
	default:
		r.Advised++
	}
}

func (j *AdvisoryJob) advise(ctx context.Context, plotID string) plotOutcome {
	ctx, cancel := context.WithTimeout(ctx, j.config.PlotTimeout)
	defer cancel()

	advice, err := j.advisor.ForPlot(ctx, plotID)
	if err != nil {
		outcome := "error"
		var unavailable *advisor.UnavailableError
		if errors.As(err, &unavailable) {
			outcome = "unavailable"
		}
		j.plotsProcessed.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
		j.logger.Warn().Err(err).Str("plot_id", plotID).Msg("advice failed")
		return plotOutcome{plotID: plotID, err: err}
	}

	rec := advice.Recommendation
	outcome := "advised"
	if rec.ConstraintMessage != nil {
		outcome = "constrained"
	}
	j.plotsProcessed.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))

	j.logger.Info().
		Str("plot_id", plotID).
		Str("crop", rec.CropName).
		Str("stage", rec.Stage.String()).
		Float64("liters_per_m2", rec.LiterPerSquareMeter).
		Float64("total_liters", rec.TotalLiters).
		Str("window", rec.OptimalTimeWindow).
		Str("message", rec.ExplanatoryMessage).
		Msg("plot advised")

	return plotOutcome{plotID: plotID, constrained: rec.ConstraintMessage != nil}
}

func (j *AdvisoryJob) finish(ctx context.Context, result *AdvisoryResult, err error) {
	j.runDuration.Record(ctx, result.Duration.Seconds(),
		metric.WithAttributes(attribute.Bool("error", err != nil)))

	j.mu.Lock()
	j.stats.Runs++
	j.stats.PlotsAdvised += int64(result.Advised)
	j.stats.PlotsFailed += int64(result.Failed)
	j.stats.LastRunAt = result.StartTime
	j.stats.LastDuration = result.Duration
	j.stats.LastRunFailed = err != nil
	j.mu.Unlock()

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("total", result.Total).
		Int("advised", result.Advised).
		Int("constrained", result.Constrained).
		Int("failed", result.Failed).
		Msg("advisory job completed")
}

// HealthCheck verifies that plots can be listed and weather fetched.
func (j *AdvisoryJob) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.config.PlotTimeout)
	defer cancel()

	if _, err := j.plots.Page(ctx, plot.ListOptions{Limit: 1}); err != nil {
		return fmt.Errorf("plot store: %w", err)
	}
	if j.weather != nil {
		if _, err := j.weather.GetSnapshot(ctx, j.config.ProbeLat, j.config.ProbeLon); err != nil {
			return fmt.Errorf("weather: %w", err)
		}
	}
	return nil
}

// Stats returns a copy of the cumulative statistics.
func (j *AdvisoryJob) Stats() Stats {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.stats
}

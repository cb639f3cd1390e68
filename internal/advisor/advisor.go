// Package advisor produces irrigation advice for saved plots and ad-hoc
// requests by combining the weather at the plot with the recommendation engine.
package advisor

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/smartirrigation/smartirrigation/internal/api/models"
	"github.com/smartirrigation/smartirrigation/internal/irrigation"
	"github.com/smartirrigation/smartirrigation/internal/plot"
	"github.com/smartirrigation/smartirrigation/internal/weather"
)

const instrumentationName = "github.com/smartirrigation/smartirrigation/internal/advisor"

// ErrMissingWeather is returned by Compute when neither weather nor a location is given.
var ErrMissingWeather = errors.New("either weather or location is required")

// UnavailableError reports that no recommendation could be produced because
// its weather inputs could not be obtained.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return "recommendation unavailable: " + e.Err.Error()
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// WeatherSource provides weather snapshots. *weather.Service implements it.
type WeatherSource interface {
	GetSnapshot(ctx context.Context, lat, lon float64) (*weather.Snapshot, error)
	ProviderName() string
}

// PlotStore loads plots and their last irrigation. *plot.Service implements it.
type PlotStore interface {
	Find(ctx context.Context, id string) (*plot.Plot, error)
	LastEvent(ctx context.Context, plotID string) (*plot.IrrigationEvent, error)
}

// Flags exposes the runtime switches the advisor honors.
type Flags interface {
	RequireMeasuredRadiation(ctx context.Context) bool
}

// Config holds the dependencies of Service.
type Config struct {
	Engine  *irrigation.Engine
	Weather WeatherSource
	Plots   PlotStore
	Flags   Flags

	// Monthly is the radiation estimate used when none is measured.
	Monthly irrigation.MonthlyRadiation

	Logger zerolog.Logger
	Meter  metric.Meter
	Now    func() time.Time
}

// Service computes advice.
type Service struct {
	engine  *irrigation.Engine
	weather WeatherSource
	plots   PlotStore
	flags   Flags
	monthly irrigation.MonthlyRadiation
	logger  zerolog.Logger
	now     func() time.Time
	tracer  trace.Tracer
	metrics *metrics
}

// New creates an advisor service.
func New(cfg Config) (*Service, error) {
	meter := cfg.Meter
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	m, err := newMetrics(meter)
	if err != nil {
		return nil, err
	}

	engine := cfg.Engine
	if engine == nil {
		engine = irrigation.NewEngine()
	}
	monthly := cfg.Monthly
	if monthly == (irrigation.MonthlyRadiation{}) {
		monthly = irrigation.DefaultMonthlyRadiation
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		engine:  engine,
		weather: cfg.Weather,
		plots:   cfg.Plots,
		flags:   cfg.Flags,
		monthly: monthly,
		logger:  cfg.Logger,
		now:     now,
		tracer:  otel.Tracer(instrumentationName),
		metrics: m,
	}, nil
}

// Engine returns the recommendation engine.
func (s *Service) Engine() *irrigation.Engine {
	return s.engine
}

// ForPlot computes advice for a saved plot from the current weather at its location.
func (s *Service) ForPlot(ctx context.Context, plotID string) (*models.Advice, error) {
	ctx, span := s.tracer.Start(ctx, "advisor.ForPlot", trace.WithAttributes(attribute.String("plot.id", plotID)))
	defer span.End()

	p, err := s.plots.Find(ctx, plotID)
	if err != nil {
		return nil, err
	}

	snap, input, err := s.observe(ctx, p.Location.Lat, p.Location.Lon)
	if err != nil {
		s.fail(ctx, span, "plot", err)
		return nil, err
	}

	rec, err := s.engine.Generate(
		irrigation.CropInput{Name: p.CropName, PlantingDate: p.PlantingDate},
		s.engine.Soil(p.SoilName),
		input,
		p.AreaM2,
	)
	if err != nil {
		s.fail(ctx, span, "plot", err)
		return nil, err
	}
	s.record(ctx, span, "plot", rec)

	advice := &models.Advice{
		Recommendation: rec,
		PlotID:         &p.ID,
		Weather:        s.summarize(snap, input),
		GeneratedAt:    models.Timestamp(s.now().UTC()),
	}

	last, err := s.plots.LastEvent(ctx, p.ID)
	if err != nil {
		s.logger.Warn().Err(err).Str("plot_id", p.ID).Msg("failed to load last irrigation")
	} else if last != nil {
		event := plot.ToAPIEvent(last)
		advice.LastIrrigation = &event
	}

	return advice, nil
}

// Compute produces advice for an ad-hoc request. Weather given in the request
// is used as is; otherwise it is fetched for the request location.
func (s *Service) Compute(ctx context.Context, req *models.ComputeRequest) (*models.Advice, error) {
	ctx, span := s.tracer.Start(ctx, "advisor.Compute")
	defer span.End()

	var (
		input irrigation.WeatherInput
		snap  *weather.Snapshot
		err   error
	)
	switch {
	case req.Weather != nil:
		input, err = s.suppliedWeather(ctx, req.Weather)
	case req.Location != nil:
		snap, input, err = s.observe(ctx, req.Location.Lat, req.Location.Lon)
	default:
		err = &irrigation.ValidationError{Field: "weather", Reason: ErrMissingWeather.Error()}
	}
	if err != nil {
		s.fail(ctx, span, "compute", err)
		return nil, err
	}

	soil := s.engine.Soil(req.Soil.Name)
	if req.Soil.WaterRetentionCapacity != nil {
		soil.WaterRetentionCapacity = *req.Soil.WaterRetentionCapacity
	}
	if req.Soil.IrrigationIntervalDays != nil {
		soil.IrrigationIntervalDays = *req.Soil.IrrigationIntervalDays
	}
	if req.Soil.WaterRetentionCapacity != nil && req.Soil.IrrigationIntervalDays != nil {
		soil.Fallback = false
	}

	rec, err := s.engine.Generate(
		irrigation.CropInput{Name: req.Crop.Name, PlantingDate: req.Crop.PlantingDate.Time()},
		soil,
		input,
		req.AreaM2,
	)
	if err != nil {
		s.fail(ctx, span, "compute", err)
		return nil, err
	}
	s.record(ctx, span, "compute", rec)

	advice := &models.Advice{
		Recommendation: rec,
		GeneratedAt:    models.Timestamp(s.now().UTC()),
	}
	if snap != nil {
		advice.Weather = s.summarize(snap, input)
	}
	return advice, nil
}

// observe fetches the weather at a location and converts it to engine input.
func (s *Service) observe(ctx context.Context, lat, lon float64) (*weather.Snapshot, irrigation.WeatherInput, error) {
	snap, err := s.weather.GetSnapshot(ctx, lat, lon)
	if err != nil {
		if errors.Is(err, weather.ErrInvalidCoordinates) {
			return nil, irrigation.WeatherInput{}, &irrigation.ValidationError{Field: "location", Reason: "coordinates out of range"}
		}
		return nil, irrigation.WeatherInput{}, &UnavailableError{Err: err}
	}

	input, err := snap.Input(weather.RadiationPolicy{
		RequireMeasured: s.requireMeasured(ctx),
		Monthly:         s.monthly,
	})
	if err != nil {
		return nil, irrigation.WeatherInput{}, &UnavailableError{Err: err}
	}
	return snap, input, nil
}

func (s *Service) suppliedWeather(ctx context.Context, w *models.WeatherInput) (irrigation.WeatherInput, error) {
	switch {
	case w.MaxTemperatureC == nil:
		return irrigation.WeatherInput{}, missingWeather("maxTemperatureC")
	case w.MinTemperatureC == nil:
		return irrigation.WeatherInput{}, missingWeather("minTemperatureC")
	case w.RelativeHumidityPct == nil:
		return irrigation.WeatherInput{}, missingWeather("relativeHumidityPct")
	case w.HourOfDay == nil:
		return irrigation.WeatherInput{}, missingWeather("hourOfDay")
	}

	input := irrigation.WeatherInput{
		MaxTemperatureC:     *w.MaxTemperatureC,
		MinTemperatureC:     *w.MinTemperatureC,
		RelativeHumidityPct: *w.RelativeHumidityPct,
		IsRainingNow:        w.IsRainingNow,
		RainForecastLater:   w.RainForecastLater,
		HourOfDay:           *w.HourOfDay,
	}
	switch {
	case w.SolarRadiationMJm2Day != nil:
		input.SolarRadiationMJm2Day = *w.SolarRadiationMJm2Day
	case s.requireMeasured(ctx):
		return irrigation.WeatherInput{}, &UnavailableError{Err: weather.ErrRadiationUnavailable}
	default:
		month := s.now().Month()
		if w.ObservedOn != nil && !w.ObservedOn.IsZero() {
			month = w.ObservedOn.Time().Month()
		}
		input.SolarRadiationMJm2Day = s.monthly.For(month)
		input.RadiationEstimated = true
	}
	return input, nil
}

func missingWeather(field string) error {
	return &irrigation.ValidationError{Field: "weather." + field, Reason: "is required"}
}

func (s *Service) requireMeasured(ctx context.Context) bool {
	return s.flags != nil && s.flags.RequireMeasuredRadiation(ctx)
}

func (s *Service) summarize(snap *weather.Snapshot, input irrigation.WeatherInput) *models.WeatherSummary {
	hours := snap.RainHours()
	rain := make([]string, 0, len(hours))
	for _, h := range hours {
		rain = append(rain, h.Format("15:04"))
	}
	return &models.WeatherSummary{
		Provider:           s.weather.ProviderName(),
		Description:        snap.Description,
		Condition:          string(snap.Condition),
		TemperatureC:       snap.Temperature,
		ObservedAt:         models.Timestamp(snap.ObservedAt),
		RainHours:          rain,
		RadiationEstimated: input.RadiationEstimated,
	}
}

func (s *Service) record(ctx context.Context, span trace.Span, source string, rec irrigation.Recommendation) {
	span.SetAttributes(
		attribute.String("irrigation.stage", rec.Stage.String()),
		attribute.String("irrigation.constraint", string(rec.Constraint)),
		attribute.Float64("irrigation.liters_per_m2", rec.LiterPerSquareMeter),
	)
	s.metrics.recordRecommendation(ctx, source, rec)

	s.logger.Debug().
		Str("source", source).
		Str("crop", rec.CropName).
		Str("stage", rec.Stage.String()).
		Float64("liters_per_m2", rec.LiterPerSquareMeter).
		Str("constraint", string(rec.Constraint)).
		Msg("recommendation generated")
}

func (s *Service) fail(ctx context.Context, span trace.Span, source string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.metrics.recordFailure(ctx, source, err)
}

package irrigation

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Engine turns crop, soil and weather inputs into a Recommendation.
// An Engine is immutable after construction and safe for concurrent use.
type Engine struct {
	crops  CropTable
	soils  SoilTable
	stages StageResolver
	policy ConstraintPolicy
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithCropTable replaces the default crop coefficient table.
func WithCropTable(t CropTable) Option {
	return func(e *Engine) { e.crops = t }
}

// WithSoilTable replaces the default soil profile table.
func WithSoilTable(t SoilTable) Option {
	return func(e *Engine) { e.soils = t }
}

// WithStageResolver replaces the default growth stage thresholds.
func WithStageResolver(r StageResolver) Option {
	return func(e *Engine) { e.stages = r }
}

// WithConstraintPolicy replaces the default constraint policy.
func WithConstraintPolicy(p ConstraintPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithClock sets the clock used to compute elapsed days since planting.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine with default tables and the wall clock.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		crops:  DefaultCropTable(),
		soils:  DefaultSoilTable(),
		stages: DefaultStageResolver(),
		policy: DefaultConstraintPolicy(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Soil resolves a soil name against the engine's soil table.
func (e *Engine) Soil(name string) SoilInput {
	return e.soils.Lookup(name)
}

// Crops returns the engine's crop table.
func (e *Engine) Crops() CropTable {
	return e.crops
}

// Soils returns the engine's soil table.
func (e *Engine) Soils() SoilTable {
	return e.soils
}

// Stage returns the growth stage of a crop planted at planting.
func (e *Engine) Stage(planting time.Time) GrowthStage {
	return e.stages.Resolve(planting, e.now())
}

// Generate computes a recommendation. It returns a *ValidationError naming the
// first invalid field and no recommendation when any input is out of range.
func (e *Engine) Generate(crop CropInput, soil SoilInput, weather WeatherInput, area float64) (Recommendation, error) {
	if err := validate(crop, soil, weather, area); err != nil {
		return Recommendation{}, err
	}

	stage := e.stages.Resolve(crop.PlantingDate, e.now())
	kc, matched := e.crops.Lookup(crop.Name, stage)

	et0, err := Hargreaves(weather.MaxTemperatureC, weather.MinTemperatureC, weather.SolarRadiationMJm2Day)
	if err != nil {
		return Recommendation{}, err
	}

	etc := et0 * kc
	volume := etc * float64(soil.IrrigationIntervalDays)
	total := volume * area
	tod := TimeOfDayForHour(weather.HourOfDay)

	rec := Recommendation{
		CropName:            strings.TrimSpace(crop.Name),
		SoilName:            strings.TrimSpace(soil.Name),
		LiterPerSquareMeter: round(volume, 1),
		TotalLiters:         round(total, 0),
		FrequencyDays:       soil.IrrigationIntervalDays,
		TimeOfDay:           tod,
		OptimalTimeWindow:   tod.Window(),
		Stage:               stage,
		Kc:                  kc,
		ET0:                 et0,
		ETc:                 etc,
		KcFallback:          !matched,
		SoilFallback:        soil.Fallback,
		RadiationEstimated:  weather.RadiationEstimated,
	}

	if c := e.policy.Evaluate(weather, tod); c != nil {
		msg := c.Message
		rec.ConstraintMessage = &msg
		rec.ExplanatoryMessage = msg
		rec.Constraint = c.Kind
		return rec, nil
	}

	rec.ExplanatoryMessage = fmt.Sprintf("Apply %.1f L/m² (%.0f L total) every %d days for %s (%s) on %s soil.",
		rec.LiterPerSquareMeter, rec.TotalLiters, rec.FrequencyDays, rec.CropName, stage, rec.SoilName)
	return rec, nil
}

func validate(crop CropInput, soil SoilInput, w WeatherInput, area float64) error {
	switch {
	case strings.TrimSpace(crop.Name) == "":
		return invalid("crop.name", "is required")
	case crop.PlantingDate.IsZero():
		return invalid("crop.plantingDate", "is required")
	case strings.TrimSpace(soil.Name) == "":
		return invalid("soil.name", "is required")
	case !finite(soil.WaterRetentionCapacity) || soil.WaterRetentionCapacity <= 0:
		return invalid("soil.waterRetentionCapacity", "must be greater than 0")
	case soil.IrrigationIntervalDays <= 0:
		return invalid("soil.irrigationIntervalDays", "must be greater than 0")
	case !finite(w.MaxTemperatureC):
		return invalid("weather.maxTemperatureC", "must be a finite number")
	case !finite(w.MinTemperatureC):
		return invalid("weather.minTemperatureC", "must be a finite number")
	case w.MaxTemperatureC < w.MinTemperatureC:
		return invalid("weather.maxTemperatureC", "must be greater than or equal to minTemperatureC")
	case !finite(w.SolarRadiationMJm2Day) || w.SolarRadiationMJm2Day < 0:
		return invalid("weather.solarRadiationMJm2day", "must be a non-negative number")
	case !finite(w.RelativeHumidityPct) || w.RelativeHumidityPct < 0 || w.RelativeHumidityPct > 100:
		return invalid("weather.relativeHumidityPct", "must be between 0 and 100")
	case w.HourOfDay < 0 || w.HourOfDay > 23:
		return invalid("weather.hourOfDay", "must be between 0 and 23")
	case !finite(area) || area <= 0:
		return invalid("area", "must be greater than 0")
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

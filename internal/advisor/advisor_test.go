package advisor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/smartirrigation/smartirrigation/internal/advisor"
	"github.com/smartirrigation/smartirrigation/internal/api/models"
	"github.com/smartirrigation/smartirrigation/internal/irrigation"
	"github.com/smartirrigation/smartirrigation/internal/plot"
	"github.com/smartirrigation/smartirrigation/internal/weather"
)

var (
	fixedNow = time.Date(2026, 6, 30, 9, 0, 0, 0, time.UTC)
	local    = time.FixedZone("Africa/Porto-Novo", 3600)
)

type stubWeather struct {
	snap  *weather.Snapshot
	err   error
	calls int
}

func (w *stubWeather) GetSnapshot(_ context.Context, lat, lon float64) (*weather.Snapshot, error) {
	w.calls++
	if w.err != nil {
		return nil, w.err
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, weather.ErrInvalidCoordinates
	}
	return w.snap, nil
}

func (w *stubWeather) ProviderName() string { return "stub" }

type stubFlags struct{ requireMeasured bool }

func (f stubFlags) RequireMeasuredRadiation(context.Context) bool { return f.requireMeasured }

func ptr[T any](v T) *T { return &v }

// sunnyMorning is a dry morning with rain expected mid-afternoon.
func sunnyMorning() *weather.Snapshot {
	observed := time.Date(2026, 6, 30, 7, 0, 0, 0, local)
	return &weather.Snapshot{
		Lat:            6.37,
		Lon:            2.39,
		Timezone:       "Africa/Porto-Novo",
		ObservedAt:     observed,
		Temperature:    27,
		Humidity:       50,
		Code:           1,
		Condition:      weather.ConditionClear,
		Description:    "Mainly clear",
		MaxTemperature: 34,
		MinTemperature: 24,
		SolarRadiation: ptr(20.0),
		Hourly: []weather.Hour{
			{Time: observed.Add(time.Hour)},
			{Time: observed.Add(8 * time.Hour), PrecipitationMM: 1.2},
		},
	}
}

type fixture struct {
	svc     *advisor.Service
	plots   *plot.Service
	weather *stubWeather
	reader  *sdkmetric.ManualReader
}

func newFixture(t *testing.T, flags advisor.Flags) *fixture {
	t.Helper()
	clock := func() time.Time { return fixedNow }

	plots := plot.NewService(plot.ServiceConfig{
		Repository: plot.NewInMemoryRepository(),
		Logger:     zerolog.Nop(),
		Now:        clock,
	})
	ws := &stubWeather{snap: sunnyMorning()}
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	svc, err := advisor.New(advisor.Config{
		Engine:  irrigation.NewEngine(irrigation.WithClock(clock)),
		Weather: ws,
		Plots:   plots,
		Flags:   flags,
		Logger:  zerolog.Nop(),
		Meter:   mp.Meter("test"),
		Now:     clock,
	})
	require.NoError(t, err)

	return &fixture{svc: svc, plots: plots, weather: ws, reader: reader}
}

func (f *fixture) createPlot(t *testing.T) string {
	t.Helper()
	created, err := f.plots.Create(t.Context(), &models.PlotCreateRequest{
		Name:         "North field",
		CropName:     "Tomato",
		PlantingDate: models.Date(fixedNow.AddDate(0, 0, -30)),
		SoilName:     "clay",
		AreaM2:       50,
		Location:     models.Point{Lat: 6.37, Lon: 2.39},
	})
	require.NoError(t, err)
	return created.ID
}

func (f *fixture) collect(t *testing.T) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, f.reader.Collect(t.Context(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestService_ForPlot(t *testing.T) {
	f := newFixture(t, nil)
	plotID := f.createPlot(t)

	advice, err := f.svc.ForPlot(t.Context(), plotID)
	require.NoError(t, err)

	rec := advice.Recommendation
	assert.Equal(t, irrigation.StageDevelopment, rec.Stage)
	assert.Equal(t, 6.81, rec.ET0)
	assert.Equal(t, 23.2, rec.LiterPerSquareMeter)
	assert.Equal(t, 1158.0, rec.TotalLiters)
	assert.Equal(t, 4, rec.FrequencyDays)
	assert.Equal(t, irrigation.Morning, rec.TimeOfDay)
	assert.Nil(t, rec.ConstraintMessage, "rain later only blocks evening irrigation")

	require.NotNil(t, advice.PlotID)
	assert.Equal(t, plotID, *advice.PlotID)
	require.NotNil(t, advice.Weather)
	assert.Equal(t, "stub", advice.Weather.Provider)
	assert.Equal(t, "CLEAR", advice.Weather.Condition)
	assert.Equal(t, []string{"15:00"}, advice.Weather.RainHours)
	assert.False(t, advice.Weather.RadiationEstimated)
	assert.Nil(t, advice.LastIrrigation)
	assert.Equal(t, fixedNow, advice.GeneratedAt.Time())
}

func TestService_ForPlot_IncludesLastIrrigation(t *testing.T) {
	f := newFixture(t, nil)
	plotID := f.createPlot(t)

	_, err := f.plots.MarkIrrigated(t.Context(), plotID, &models.IrrigationEventCreateRequest{VolumeLiters: ptr(900.0)}, 0)
	require.NoError(t, err)

	advice, err := f.svc.ForPlot(t.Context(), plotID)
	require.NoError(t, err)
	require.NotNil(t, advice.LastIrrigation)
	assert.InDelta(t, 900.0, advice.LastIrrigation.VolumeLiters, 1e-9)
}

func TestService_ForPlot_EveningRainBlocks(t *testing.T) {
	f := newFixture(t, nil)
	plotID := f.createPlot(t)

	snap := sunnyMorning()
	snap.ObservedAt = time.Date(2026, 6, 30, 17, 0, 0, 0, local)
	snap.Hourly = []weather.Hour{{Time: snap.ObservedAt.Add(2 * time.Hour), PrecipitationMM: 3}}
	f.weather.snap = snap

	advice, err := f.svc.ForPlot(t.Context(), plotID)
	require.NoError(t, err)
	assert.Equal(t, irrigation.Evening, advice.Recommendation.TimeOfDay)
	assert.Equal(t, irrigation.ConstraintRainLater, advice.Recommendation.Constraint)
	require.NotNil(t, advice.Recommendation.ConstraintMessage)
}

func TestService_ForPlot_EstimatesMissingRadiation(t *testing.T) {
	f := newFixture(t, nil)
	plotID := f.createPlot(t)
	f.weather.snap.SolarRadiation = nil

	advice, err := f.svc.ForPlot(t.Context(), plotID)
	require.NoError(t, err)
	assert.True(t, advice.Recommendation.RadiationEstimated)
	assert.True(t, advice.Weather.RadiationEstimated)
}

func TestService_ForPlot_RequireMeasuredRadiation(t *testing.T) {
	f := newFixture(t, stubFlags{requireMeasured: true})
	plotID := f.createPlot(t)
	f.weather.snap.SolarRadiation = nil

	_, err := f.svc.ForPlot(t.Context(), plotID)
	require.Error(t, err)

	var unavailable *advisor.UnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.ErrorIs(t, err, weather.ErrRadiationUnavailable)
	assert.Equal(t, "recommendation unavailable: solar radiation unavailable", err.Error())
}

func TestService_ForPlot_WeatherDown(t *testing.T) {
	f := newFixture(t, nil)
	plotID := f.createPlot(t)
	f.weather.err = weather.ErrProviderUnavailable

	_, err := f.svc.ForPlot(t.Context(), plotID)
	require.Error(t, err)
	assert.ErrorIs(t, err, weather.ErrProviderUnavailable)
	assert.Contains(t, err.Error(), "recommendation unavailable: ")

	m := f.collect(t)
	failures, ok := m["irrigation.recommendation.failures"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, failures.DataPoints, 1)
	assert.Equal(t, int64(1), failures.DataPoints[0].Value)
}

func TestService_ForPlot_UnknownPlot(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.ForPlot(t.Context(), "plt_missing")
	assert.ErrorIs(t, err, plot.ErrPlotNotFound)
	assert.Zero(t, f.weather.calls)
}

func computeRequest() *models.ComputeRequest {
	return &models.ComputeRequest{
		Crop:   models.CropInput{Name: "tomato", PlantingDate: models.Date(fixedNow.AddDate(0, 0, -30))},
		Soil:   models.SoilInput{Name: "clay"},
		AreaM2: 50,
		Weather: &models.WeatherInput{
			MaxTemperatureC:       ptr(34.0),
			MinTemperatureC:       ptr(24.0),
			SolarRadiationMJm2Day: ptr(20.0),
			RelativeHumidityPct:   ptr(50.0),
			HourOfDay:             ptr(7),
		},
	}
}

func TestService_Compute_SuppliedWeather(t *testing.T) {
	f := newFixture(t, nil)

	advice, err := f.svc.Compute(t.Context(), computeRequest())
	require.NoError(t, err)

	assert.Equal(t, 23.2, advice.Recommendation.LiterPerSquareMeter)
	assert.Equal(t, 1158.0, advice.Recommendation.TotalLiters)
	assert.Nil(t, advice.Weather)
	assert.Nil(t, advice.PlotID)
	assert.Zero(t, f.weather.calls)

	m := f.collect(t)
	count, ok := m["irrigation.recommendations"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, count.DataPoints, 1)
	assert.Equal(t, int64(1), count.DataPoints[0].Value)
	stage, _ := count.DataPoints[0].Attributes.Value("stage")
	assert.Equal(t, "development", stage.AsString())

	volume, ok := m["irrigation.recommendation.volume"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, volume.DataPoints, 1)
	assert.Equal(t, uint64(1), volume.DataPoints[0].Count)
	assert.InDelta(t, 23.2, volume.DataPoints[0].Sum, 1e-9)
}

func TestService_Compute_SoilOverrides(t *testing.T) {
	f := newFixture(t, nil)
	req := computeRequest()
	req.Soil = models.SoilInput{Name: "terre de barre", WaterRetentionCapacity: ptr(90.0), IrrigationIntervalDays: ptr(2)}

	advice, err := f.svc.Compute(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, advice.Recommendation.FrequencyDays)
	assert.False(t, advice.Recommendation.SoilFallback)
	assert.Equal(t, 11.6, advice.Recommendation.LiterPerSquareMeter)
}

func TestService_Compute_UnknownSoilFallsBack(t *testing.T) {
	f := newFixture(t, nil)
	req := computeRequest()
	req.Soil = models.SoilInput{Name: "terre de barre"}

	advice, err := f.svc.Compute(t.Context(), req)
	require.NoError(t, err)
	assert.True(t, advice.Recommendation.SoilFallback)
	assert.Equal(t, 3, advice.Recommendation.FrequencyDays)
}

func TestService_Compute_EstimatesRadiation(t *testing.T) {
	f := newFixture(t, nil)
	req := computeRequest()
	req.Weather.SolarRadiationMJm2Day = nil

	advice, err := f.svc.Compute(t.Context(), req)
	require.NoError(t, err)
	assert.True(t, advice.Recommendation.RadiationEstimated)
	// June estimate of 18 MJ/m².
	expected, err := irrigation.Hargreaves(34, 24, 18)
	require.NoError(t, err)
	assert.Equal(t, expected, advice.Recommendation.ET0)
}

func TestService_Compute_EstimatesRadiationForObservedMonth(t *testing.T) {
	f := newFixture(t, nil)
	req := computeRequest()
	req.Weather.SolarRadiationMJm2Day = nil
	observed := models.Date(time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC))
	req.Weather.ObservedOn = &observed

	advice, err := f.svc.Compute(t.Context(), req)
	require.NoError(t, err)
	assert.True(t, advice.Recommendation.RadiationEstimated)
	// January estimate of 22 MJ/m², not the June one of the clock.
	expected, err := irrigation.Hargreaves(34, 24, 22)
	require.NoError(t, err)
	assert.Equal(t, expected, advice.Recommendation.ET0)
}

func TestService_Compute_RequireMeasuredRadiation(t *testing.T) {
	f := newFixture(t, stubFlags{requireMeasured: true})
	req := computeRequest()
	req.Weather.SolarRadiationMJm2Day = nil

	_, err := f.svc.Compute(t.Context(), req)
	assert.ErrorIs(t, err, weather.ErrRadiationUnavailable)
}

func TestService_Compute_ByLocation(t *testing.T) {
	f := newFixture(t, nil)
	req := computeRequest()
	req.Weather = nil
	req.Location = &models.Point{Lat: 6.37, Lon: 2.39}

	advice, err := f.svc.Compute(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, f.weather.calls)
	require.NotNil(t, advice.Weather)
	assert.Equal(t, 23.2, advice.Recommendation.LiterPerSquareMeter)
}

func TestService_Compute_InvalidInput(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(r *models.ComputeRequest)
		wantField string
	}{
		{"no weather or location", func(r *models.ComputeRequest) { r.Weather = nil }, "weather"},
		{"location out of range", func(r *models.ComputeRequest) {
			r.Weather = nil
			r.Location = &models.Point{Lat: 120, Lon: 0}
		}, "location"},
		{"empty crop", func(r *models.ComputeRequest) { r.Crop.Name = "" }, "crop.name"},
		{"zero area", func(r *models.ComputeRequest) { r.AreaM2 = 0 }, "area"},
		{"humidity out of range", func(r *models.ComputeRequest) { r.Weather.RelativeHumidityPct = ptr(140.0) }, "weather.relativeHumidityPct"},
		{"missing max temperature", func(r *models.ComputeRequest) { r.Weather.MaxTemperatureC = nil }, "weather.maxTemperatureC"},
		{"missing min temperature", func(r *models.ComputeRequest) { r.Weather.MinTemperatureC = nil }, "weather.minTemperatureC"},
		{"missing humidity", func(r *models.ComputeRequest) { r.Weather.RelativeHumidityPct = nil }, "weather.relativeHumidityPct"},
		{"missing hour", func(r *models.ComputeRequest) { r.Weather.HourOfDay = nil }, "weather.hourOfDay"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			req := computeRequest()
			tt.mutate(req)

			_, err := f.svc.Compute(t.Context(), req)
			require.ErrorIs(t, err, irrigation.ErrInvalidInput)

			var verr *irrigation.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

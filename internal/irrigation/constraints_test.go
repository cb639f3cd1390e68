package irrigation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartirrigation/smartirrigation/internal/irrigation"
)

func TestConstraintPolicy_Evaluate(t *testing.T) {
	policy := irrigation.DefaultConstraintPolicy()
	calm := irrigation.WeatherInput{MaxTemperatureC: 30, MinTemperatureC: 20, RelativeHumidityPct: 50}

	tests := []struct {
		name    string
		mutate  func(w *irrigation.WeatherInput)
		tod     irrigation.TimeOfDay
		kind    irrigation.ConstraintKind
		message string
	}{
		{
			name:    "humidity beats rain",
			mutate:  func(w *irrigation.WeatherInput) { w.RelativeHumidityPct = 85; w.IsRainingNow = true },
			tod:     irrigation.Morning,
			kind:    irrigation.ConstraintHighHumidity,
			message: "High humidity — irrigation not recommended.",
		},
		{
			name:    "raining in the morning",
			mutate:  func(w *irrigation.WeatherInput) { w.IsRainingNow = true; w.MaxTemperatureC = 40 },
			tod:     irrigation.Morning,
			kind:    irrigation.ConstraintRainingNow,
			message: "Raining this morning — wait until evening to reassess.",
		},
		{
			name:    "raining in the evening beats forecast",
			mutate:  func(w *irrigation.WeatherInput) { w.IsRainingNow = true; w.RainForecastLater = true },
			tod:     irrigation.Evening,
			kind:    irrigation.ConstraintRainingNow,
			message: "Raining this evening — today's rain is sufficient.",
		},
		{
			name:    "rain forecast in the evening",
			mutate:  func(w *irrigation.WeatherInput) { w.RainForecastLater = true; w.MaxTemperatureC = 40 },
			tod:     irrigation.Evening,
			kind:    irrigation.ConstraintRainLater,
			message: "Rain expected this evening — irrigate in the morning if not already done.",
		},
		{
			name:    "rain forecast in the morning falls through to heat",
			mutate:  func(w *irrigation.WeatherInput) { w.RainForecastLater = true; w.MaxTemperatureC = 39 },
			tod:     irrigation.Morning,
			kind:    irrigation.ConstraintExtremeHeat,
			message: "Very high temperature — irrigate very early morning or late evening.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := calm
			tt.mutate(&w)

			c := policy.Evaluate(w, tt.tod)
			require.NotNil(t, c)
			assert.Equal(t, tt.kind, c.Kind)
			assert.Equal(t, tt.message, c.Message)
		})
	}
}

func TestConstraintPolicy_ThresholdsAreExclusive(t *testing.T) {
	policy := irrigation.DefaultConstraintPolicy()
	w := irrigation.WeatherInput{MaxTemperatureC: 38, MinTemperatureC: 20, RelativeHumidityPct: 80}

	assert.Nil(t, policy.Evaluate(w, irrigation.Morning))
	assert.Nil(t, policy.Evaluate(w, irrigation.Evening))

	w.RainForecastLater = true
	assert.Nil(t, policy.Evaluate(w, irrigation.Morning))
}

func TestConstraintPolicy_CustomMessages(t *testing.T) {
	policy := irrigation.DefaultConstraintPolicy()
	policy.Messages.HighHumidity = "Humidité élevée — irrigation déconseillée."

	c := policy.Evaluate(irrigation.WeatherInput{RelativeHumidityPct: 95}, irrigation.Morning)
	require.NotNil(t, c)
	assert.Equal(t, "Humidité élevée — irrigation déconseillée.", c.Message)
}

package irrigation

// ConstraintKind names the weather condition that overrode a recommendation.
type ConstraintKind string

const (
	ConstraintNone         ConstraintKind = ""
	ConstraintHighHumidity ConstraintKind = "high_humidity"
	ConstraintRainingNow   ConstraintKind = "raining_now"
	ConstraintRainLater    ConstraintKind = "rain_forecast"
	ConstraintExtremeHeat  ConstraintKind = "extreme_heat"
)

// Constraint is a weather condition that supersedes the numeric recommendation.
type Constraint struct {
	Kind    ConstraintKind
	Message string
}

// ConstraintMessages holds the user-facing text for each constraint.
type ConstraintMessages struct {
	HighHumidity   string
	RainingMorning string
	RainingEvening string
	RainLater      string
	ExtremeHeat    string
}

// DefaultConstraintMessages returns the English message set.
func DefaultConstraintMessages() ConstraintMessages {
	return ConstraintMessages{
		HighHumidity:   "High humidity — irrigation not recommended.",
		RainingMorning: "Raining this morning — wait until evening to reassess.",
		RainingEvening: "Raining this evening — today's rain is sufficient.",
		RainLater:      "Rain expected this evening — irrigate in the morning if not already done.",
		ExtremeHeat:    "Very high temperature — irrigate very early morning or late evening.",
	}
}

// ConstraintPolicy decides whether the weather overrides a recommendation.
// Rules are checked in order: humidity, current rain, forecast rain in the
// evening, then heat. Only the first match is reported.
type ConstraintPolicy struct {
	MaxHumidityPct  float64
	MaxTemperatureC float64
	Messages        ConstraintMessages
}

// DefaultConstraintPolicy returns the policy with an 80% humidity and 38°C heat threshold.
func DefaultConstraintPolicy() ConstraintPolicy {
	return ConstraintPolicy{
		MaxHumidityPct:  80,
		MaxTemperatureC: 38,
		Messages:        DefaultConstraintMessages(),
	}
}

// Evaluate returns the constraint that applies, or nil.
func (p ConstraintPolicy) Evaluate(w WeatherInput, tod TimeOfDay) *Constraint {
	switch {
	case w.RelativeHumidityPct > p.MaxHumidityPct:
		return &Constraint{Kind: ConstraintHighHumidity, Message: p.Messages.HighHumidity}
	case w.IsRainingNow && tod == Morning:
		return &Constraint{Kind: ConstraintRainingNow, Message: p.Messages.RainingMorning}
	case w.IsRainingNow:
		return &Constraint{Kind: ConstraintRainingNow, Message: p.Messages.RainingEvening}
	case w.RainForecastLater && tod == Evening:
		return &Constraint{Kind: ConstraintRainLater, Message: p.Messages.RainLater}
	case w.MaxTemperatureC > p.MaxTemperatureC:
		return &Constraint{Kind: ConstraintExtremeHeat, Message: p.Messages.ExtremeHeat}
	}
	return nil
}

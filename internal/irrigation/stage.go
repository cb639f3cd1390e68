package irrigation

import "time"

// StageResolver maps elapsed days since planting to a GrowthStage.
// Each bound is the inclusive last day of its stage.
type StageResolver struct {
	InitialDays     int
	DevelopmentDays int
	FloweringDays   int
}

// DefaultStageResolver returns the 20/40/70 day thresholds.
func DefaultStageResolver() StageResolver {
	return StageResolver{InitialDays: 20, DevelopmentDays: 40, FloweringDays: 70}
}

// DaysElapsed returns the number of whole days between planting and now.
func DaysElapsed(planting, now time.Time) int {
	d := now.Sub(planting)
	days := int(d / (24 * time.Hour))
	if d < 0 && d%(24*time.Hour) != 0 {
		days--
	}
	return days
}

// Resolve returns the growth stage at now. A planting date in the future
// resolves to StageInitial.
func (r StageResolver) Resolve(planting, now time.Time) GrowthStage {
	return r.ForDays(DaysElapsed(planting, now))
}

// ForDays returns the growth stage after the given number of elapsed days.
func (r StageResolver) ForDays(days int) GrowthStage {
	switch {
	case days <= r.InitialDays:
		return StageInitial
	case days <= r.DevelopmentDays:
		return StageDevelopment
	case days <= r.FloweringDays:
		return StageFlowering
	default:
		return StageMaturity
	}
}

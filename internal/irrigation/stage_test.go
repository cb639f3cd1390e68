package irrigation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/smartirrigation/smartirrigation/internal/irrigation"
)

func TestStageResolver_Boundaries(t *testing.T) {
	r := irrigation.DefaultStageResolver()

	tests := []struct {
		days int
		want irrigation.GrowthStage
	}{
		{-10, irrigation.StageInitial},
		{0, irrigation.StageInitial},
		{20, irrigation.StageInitial},
		{21, irrigation.StageDevelopment},
		{40, irrigation.StageDevelopment},
		{41, irrigation.StageFlowering},
		{70, irrigation.StageFlowering},
		{71, irrigation.StageMaturity},
		{365, irrigation.StageMaturity},
	}

	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			planting := fixedNow.Add(-time.Duration(tt.days) * 24 * time.Hour)
			assert.Equal(t, tt.want, r.Resolve(planting, fixedNow), "days=%d", tt.days)
		})
	}
}

func TestStageResolver_PartialDaysRoundDown(t *testing.T) {
	r := irrigation.DefaultStageResolver()

	planting := fixedNow.Add(-(20*24 + 23) * time.Hour)
	assert.Equal(t, 20, irrigation.DaysElapsed(planting, fixedNow))
	assert.Equal(t, irrigation.StageInitial, r.Resolve(planting, fixedNow))

	planting = fixedNow.Add(-21 * 24 * time.Hour)
	assert.Equal(t, irrigation.StageDevelopment, r.Resolve(planting, fixedNow))
}

func TestDaysElapsed_FuturePlanting(t *testing.T) {
	assert.Equal(t, -1, irrigation.DaysElapsed(fixedNow.Add(12*time.Hour), fixedNow))
	assert.Equal(t, -2, irrigation.DaysElapsed(fixedNow.Add(48*time.Hour), fixedNow))
}

func TestGrowthStage_String(t *testing.T) {
	assert.Equal(t, "initial", irrigation.StageInitial.String())
	assert.Equal(t, "development", irrigation.StageDevelopment.String())
	assert.Equal(t, "flowering", irrigation.StageFlowering.String())
	assert.Equal(t, "maturity", irrigation.StageMaturity.String())
	assert.Equal(t, "unknown", irrigation.GrowthStage(42).String())
}

func TestParseGrowthStage(t *testing.T) {
	s, err := irrigation.ParseGrowthStage(" Flowering ")
	assert.NoError(t, err)
	assert.Equal(t, irrigation.StageFlowering, s)

	_, err = irrigation.ParseGrowthStage("harvest")
	assert.Error(t, err)
}

package irrigation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartirrigation/smartirrigation/internal/irrigation"
)

func TestCropTable_Lookup(t *testing.T) {
	table := irrigation.DefaultCropTable()

	for _, name := range []string{"tomato", "corn", "lettuce", "onion", "pepper", "eggplant", "carrot", "bean"} {
		for _, stage := range irrigation.Stages {
			kc, matched := table.Lookup(name, stage)
			assert.True(t, matched, "%s/%s", name, stage)
			assert.Greater(t, kc, 0.0, "%s/%s", name, stage)
		}
	}

	kc, matched := table.Lookup("  ToMaTo \t", irrigation.StageFlowering)
	assert.True(t, matched)
	assert.Equal(t, 1.15, kc)

	alias, _ := table.Lookup("Tomate", irrigation.StageFlowering)
	assert.Equal(t, kc, alias)
}

func TestCropTable_UnknownCropFallsBack(t *testing.T) {
	table := irrigation.DefaultCropTable()

	for _, stage := range irrigation.Stages {
		kc, matched := table.Lookup("Xyzzy", stage)
		assert.False(t, matched)
		assert.Equal(t, 0.8, kc)
	}

	kc, matched := table.Lookup("", irrigation.StageInitial)
	assert.False(t, matched)
	assert.Equal(t, irrigation.DefaultKc, kc)
}

func TestCropTable_MissingStageFallsBack(t *testing.T) {
	table := irrigation.NewCropTable([]irrigation.CropEntry{
		{Name: "okra", Coefficients: irrigation.StageCoefficients{irrigation.StageInitial: 0.5}},
	}, 0)

	kc, matched := table.Lookup("okra", irrigation.StageInitial)
	assert.True(t, matched)
	assert.Equal(t, 0.5, kc)

	kc, matched = table.Lookup("okra", irrigation.StageMaturity)
	assert.False(t, matched)
	assert.Equal(t, 0.8, kc)
	assert.Equal(t, 0.8, table.Fallback())
}

func TestCropTable_CopiesInput(t *testing.T) {
	coeffs := irrigation.StageCoefficients{irrigation.StageInitial: 0.5}
	table := irrigation.NewCropTable([]irrigation.CropEntry{{Name: "okra", Coefficients: coeffs}}, 0.7)

	coeffs[irrigation.StageInitial] = 9

	kc, _ := table.Lookup("okra", irrigation.StageInitial)
	assert.Equal(t, 0.5, kc)
}

func TestCropTable_Crops(t *testing.T) {
	crops := irrigation.DefaultCropTable().Crops()
	require.NotEmpty(t, crops)
	for i := 1; i < len(crops); i++ {
		assert.Less(t, crops[i-1].Name, crops[i].Name)
	}
}

func TestSoilTable_Lookup(t *testing.T) {
	table := irrigation.DefaultSoilTable()

	tests := []struct {
		name      string
		retention float64
		interval  int
	}{
		{"sandy", 40, 2},
		{"Sablonneux", 40, 2},
		{" CLAY ", 150, 4},
		{"argileux", 150, 4},
		{"loam", 100, 3},
		{"Hydromorphe", 160, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			soil := table.Lookup(tt.name)
			assert.False(t, soil.Fallback)
			assert.Equal(t, tt.retention, soil.WaterRetentionCapacity)
			assert.Equal(t, tt.interval, soil.IrrigationIntervalDays)
		})
	}
}

func TestSoilTable_UnknownSoilFallsBack(t *testing.T) {
	soil := irrigation.DefaultSoilTable().Lookup("  Volcanic ash ")

	assert.True(t, soil.Fallback)
	assert.Equal(t, "Volcanic ash", soil.Name)
	assert.Equal(t, 60.0, soil.WaterRetentionCapacity)
	assert.Equal(t, 3, soil.IrrigationIntervalDays)
}

func TestSoilTable_RetentionOrdering(t *testing.T) {
	table := irrigation.DefaultSoilTable()
	sandy, loam, clay := table.Lookup("sandy"), table.Lookup("loam"), table.Lookup("clay")

	assert.Less(t, sandy.WaterRetentionCapacity, loam.WaterRetentionCapacity)
	assert.Less(t, loam.WaterRetentionCapacity, clay.WaterRetentionCapacity)
	assert.Less(t, sandy.IrrigationIntervalDays, loam.IrrigationIntervalDays)
	assert.Less(t, loam.IrrigationIntervalDays, clay.IrrigationIntervalDays)
}

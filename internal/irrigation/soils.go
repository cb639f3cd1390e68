package irrigation

import (
	"sort"
	"strings"
)

// DefaultSoil is the profile used when a soil name is not recognized.
var DefaultSoil = SoilInput{WaterRetentionCapacity: 60, IrrigationIntervalDays: 3}

// SoilEntry describes one soil type in a SoilTable.
type SoilEntry struct {
	Name                   string
	Aliases                []string
	WaterRetentionCapacity float64
	IrrigationIntervalDays int
}

// SoilTable is an immutable lookup of soil profiles keyed by normalized soil name.
type SoilTable struct {
	entries  []SoilEntry
	index    map[string]SoilEntry
	fallback SoilInput
}

// NewSoilTable builds a table from entries and the profile returned for unknown names.
func NewSoilTable(entries []SoilEntry, fallback SoilInput) SoilTable {
	t := SoilTable{
		entries:  make([]SoilEntry, 0, len(entries)),
		index:    make(map[string]SoilEntry),
		fallback: fallback,
	}
	for _, e := range entries {
		e.Aliases = append([]string(nil), e.Aliases...)
		t.entries = append(t.entries, e)
		t.index[normalizeName(e.Name)] = e
		for _, a := range e.Aliases {
			t.index[normalizeName(a)] = e
		}
	}
	return t
}

// DefaultSoilTable returns profiles for the soil classes found in the field
// data, keyed in English with French aliases.
func DefaultSoilTable() SoilTable {
	return NewSoilTable([]SoilEntry{
		{Name: "sandy", Aliases: []string{"sand", "sablonneux", "sableux"}, WaterRetentionCapacity: 40, IrrigationIntervalDays: 2},
		{Name: "loam", Aliases: []string{"loamy"}, WaterRetentionCapacity: 100, IrrigationIntervalDays: 3},
		{Name: "silt", Aliases: []string{"silty", "limoneux"}, WaterRetentionCapacity: 120, IrrigationIntervalDays: 3},
		{Name: "clay", Aliases: []string{"clayey", "argileux"}, WaterRetentionCapacity: 150, IrrigationIntervalDays: 4},
		{Name: "ferrallitic", Aliases: []string{"ferrallitique", "lateritic"}, WaterRetentionCapacity: 100, IrrigationIntervalDays: 3},
		{Name: "hydromorphic", Aliases: []string{"hydromorphe"}, WaterRetentionCapacity: 160, IrrigationIntervalDays: 5},
		{Name: "alluvial", Aliases: []string{"alluvium"}, WaterRetentionCapacity: 120, IrrigationIntervalDays: 3},
	}, DefaultSoil)
}

// Lookup returns the profile for name. Unknown names yield the fallback
// profile with Fallback set. The returned Name is always the caller's input, trimmed.
func (t SoilTable) Lookup(name string) SoilInput {
	display := strings.TrimSpace(name)
	e, ok := t.index[normalizeName(name)]
	if !ok {
		out := t.fallback
		out.Name = display
		out.Fallback = true
		return out
	}
	return SoilInput{
		Name:                   display,
		WaterRetentionCapacity: e.WaterRetentionCapacity,
		IrrigationIntervalDays: e.IrrigationIntervalDays,
	}
}

// Soils returns the table entries sorted by name.
func (t SoilTable) Soils() []SoilEntry {
	out := append([]SoilEntry(nil), t.entries...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

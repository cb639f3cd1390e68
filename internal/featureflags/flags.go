// Package featureflags provides runtime switches for the recommendation
// service, stored in the database and cached in memory.
package featureflags

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Flag keys.
const (
	// FlagRequireMeasuredRadiation makes recommendations fail instead of
	// falling back to the monthly radiation estimate.
	FlagRequireMeasuredRadiation = "require_measured_radiation"

	// FlagPauseAdvisoryJob stops the scheduled advisory run.
	FlagPauseAdvisoryJob = "pause_advisory_job"

	// FlagAdvisoryConcurrency bounds the number of plots processed in parallel.
	FlagAdvisoryConcurrency = "advisory_concurrency"
)

// ErrInvalidFlag is returned for updates to unknown flags or with mistyped values.
var ErrInvalidFlag = errors.New("invalid feature flag")

// Flag is a feature flag with its current value.
type Flag struct {
	Key       string    `json:"key"`
	Value     any       `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FlagList is the admin listing of flags, sorted by key.
type FlagList struct {
	Items []Flag `json:"items"`
}

// FlagUpdate sets one flag.
type FlagUpdate struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// FlagUpdateRequest is the admin request to change flags.
type FlagUpdateRequest struct {
	Updates []FlagUpdate `json:"updates"`
	Reason  string       `json:"reason"`
}

// BoolValue returns the flag as a boolean, or def when unset or not a boolean.
func (f *Flag) BoolValue(def bool) bool {
	if f == nil {
		return def
	}
	switch v := f.Value.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	default:
		return def
	}
}

// IntValue returns the flag as an integer, or def when unset or not a number.
func (f *Flag) IntValue(def int) int {
	if f == nil {
		return def
	}
	switch v := f.Value.(type) {
	case float64:
		// encoding/json decodes numbers as float64
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

// DefaultFlags returns the value of each known flag when nothing is stored.
func DefaultFlags() map[string]*Flag {
	return map[string]*Flag{
		FlagRequireMeasuredRadiation: {Key: FlagRequireMeasuredRadiation, Value: false},
		FlagPauseAdvisoryJob:         {Key: FlagPauseAdvisoryJob, Value: false},
		FlagAdvisoryConcurrency:      {Key: FlagAdvisoryConcurrency, Value: 4},
	}
}

// ValidateUpdate checks that an update targets a known flag with a value of the right type.
func ValidateUpdate(u FlagUpdate) error {
	switch u.Key {
	case FlagRequireMeasuredRadiation, FlagPauseAdvisoryJob:
		if _, ok := u.Value.(bool); !ok {
			return fmt.Errorf("%w: %s must be a boolean", ErrInvalidFlag, u.Key)
		}
	case FlagAdvisoryConcurrency:
		n, ok := u.Value.(float64)
		if !ok || n < 1 || n > 64 || n != float64(int(n)) {
			return fmt.Errorf("%w: %s must be an integer between 1 and 64", ErrInvalidFlag, u.Key)
		}
	default:
		return fmt.Errorf("%w: unknown flag %q", ErrInvalidFlag, u.Key)
	}
	return nil
}

// List converts a flag map into a FlagList sorted by key.
func List(flags map[string]*Flag) FlagList {
	items := make([]Flag, 0, len(flags))
	for _, f := range flags {
		items = append(items, *f)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	return FlagList{Items: items}
}

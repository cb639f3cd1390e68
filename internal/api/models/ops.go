package models

// Health is the liveness/readiness response.
type Health struct {
	Status  HealthStatus   `json:"status"`
	Time    Timestamp      `json:"time"`
	Details map[string]any `json:"details,omitempty"`
}

// SystemStatus summarizes subsystems, upstream providers and active flags.
type SystemStatus struct {
	Status       HealthStatus       `json:"status"`
	Time         Timestamp          `json:"time"`
	Version      string             `json:"version,omitempty"`
	Subsystems   []SubsystemStatus  `json:"subsystems"`
	Providers    []ProviderStatus   `json:"providers"`
	WeatherCache *WeatherCacheStats `json:"weatherCache,omitempty"`
	ActiveFlags  []string           `json:"activeFlags,omitempty"`
}

// SubsystemStatus represents the status of a subsystem.
type SubsystemStatus struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail *string      `json:"detail,omitempty"`
}

// ProviderStatus represents the status of an upstream provider.
type ProviderStatus struct {
	Provider      string       `json:"provider"`
	Status        HealthStatus `json:"status"`
	CircuitState  string       `json:"circuitState"`
	LastSuccessAt *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt *Timestamp   `json:"lastFailureAt,omitempty"`
	Message       *string      `json:"message,omitempty"`
}

// WeatherCacheStats reports weather cache effectiveness.
type WeatherCacheStats struct {
	Entries      int   `json:"entries"`
	FreshEntries int   `json:"freshEntries"`
	Hits         int64 `json:"hits"`
	Misses       int64 `json:"misses"`
	StaleServed  int64 `json:"staleServed"`
}

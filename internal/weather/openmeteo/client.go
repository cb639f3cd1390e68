// Package openmeteo implements weather.Provider on top of the Open-Meteo
// forecast API, which needs no API key.
package openmeteo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartirrigation/smartirrigation/internal/provider/resilience"
	"github.com/smartirrigation/smartirrigation/internal/weather"
)

const (
	// ProviderName identifies this weather provider.
	ProviderName = "open-meteo"

	// DefaultBaseURL is the Open-Meteo API base URL.
	DefaultBaseURL = "https://api.open-meteo.com"

	timeLayout = "2006-01-02T15:04"
	dateLayout = "2006-01-02"
)

var errIncompleteResponse = errors.New("incomplete forecast response")

// ClientConfig holds configuration for the Open-Meteo client.
type ClientConfig struct {
	// BaseURL is the API base URL (optional, defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	Logger zerolog.Logger
}

// Client is an Open-Meteo API client.
type Client struct {
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new Open-Meteo client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetSnapshot fetches current conditions, today's extremes and radiation, and
// the hourly precipitation forecast for today in the location's timezone.
func (c *Client) GetSnapshot(ctx context.Context, lat, lon float64) (*weather.Snapshot, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	q.Set("current", "temperature_2m,relative_humidity_2m,precipitation,weather_code")
	q.Set("hourly", "precipitation")
	q.Set("daily", "temperature_2m_max,temperature_2m_min,shortwave_radiation_sum")
	q.Set("timezone", "auto")
	q.Set("forecast_days", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/forecast?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Reason != "" {
			return nil, fmt.Errorf("unexpected status code: %d: %s", resp.StatusCode, apiErr.Reason)
		}
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var fr forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&fr); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	snap, err := fr.toSnapshot()
	if err != nil {
		c.logger.Warn().Err(err).
			Float64("lat", lat).
			Float64("lon", lon).
			Msg("open-meteo returned an unusable forecast")
		return nil, err
	}
	return snap, nil
}

type errorResponse struct {
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

type forecastResponse struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	Timezone         string  `json:"timezone"`
	UTCOffsetSeconds int     `json:"utc_offset_seconds"`

	Current struct {
		Time             string  `json:"time"`
		Temperature      float64 `json:"temperature_2m"`
		RelativeHumidity float64 `json:"relative_humidity_2m"`
		Precipitation    float64 `json:"precipitation"`
		WeatherCode      int     `json:"weather_code"`
	} `json:"current"`

	Hourly struct {
		Time          []string   `json:"time"`
		Precipitation []*float64 `json:"precipitation"`
	} `json:"hourly"`

	Daily struct {
		Time                  []string   `json:"time"`
		TemperatureMax        []*float64 `json:"temperature_2m_max"`
		TemperatureMin        []*float64 `json:"temperature_2m_min"`
		ShortwaveRadiationSum []*float64 `json:"shortwave_radiation_sum"`
	} `json:"daily"`
}

func (r *forecastResponse) toSnapshot() (*weather.Snapshot, error) {
	loc := time.FixedZone(r.Timezone, r.UTCOffsetSeconds)

	observedAt, err := time.ParseInLocation(timeLayout, r.Current.Time, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: current time %q", errIncompleteResponse, r.Current.Time)
	}

	day := dailyIndex(r.Daily.Time, observedAt)
	if day < 0 || !present(r.Daily.TemperatureMax, day) || !present(r.Daily.TemperatureMin, day) {
		return nil, fmt.Errorf("%w: missing daily temperature extremes", errIncompleteResponse)
	}

	cond, desc := weather.DescribeWMO(r.Current.WeatherCode)
	snap := &weather.Snapshot{
		Lat:             r.Latitude,
		Lon:             r.Longitude,
		Timezone:        r.Timezone,
		ObservedAt:      observedAt,
		Temperature:     r.Current.Temperature,
		Humidity:        r.Current.RelativeHumidity,
		PrecipitationMM: r.Current.Precipitation,
		Code:            r.Current.WeatherCode,
		Condition:       cond,
		Description:     desc,
		MaxTemperature:  *r.Daily.TemperatureMax[day],
		MinTemperature:  *r.Daily.TemperatureMin[day],
	}
	if present(r.Daily.ShortwaveRadiationSum, day) {
		ra := *r.Daily.ShortwaveRadiationSum[day]
		snap.SolarRadiation = &ra
	}

	for i, ts := range r.Hourly.Time {
		t, err := time.ParseInLocation(timeLayout, ts, loc)
		if err != nil || !present(r.Hourly.Precipitation, i) {
			continue
		}
		snap.Hourly = append(snap.Hourly, weather.Hour{Time: t, PrecipitationMM: *r.Hourly.Precipitation[i]})
	}

	return snap, nil
}

func dailyIndex(days []string, at time.Time) int {
	want := at.Format(dateLayout)
	for i, d := range days {
		if d == want {
			return i
		}
	}
	return -1
}

func present(values []*float64, i int) bool {
	return i >= 0 && i < len(values) && values[i] != nil
}

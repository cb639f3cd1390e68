// Package geocode resolves plot coordinates to human-readable place names.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/smartirrigation/smartirrigation/internal/provider/resilience"
)

const (
	// ProviderName identifies the Nominatim geocoder.
	ProviderName = "nominatim"

	// DefaultBaseURL is the public OpenStreetMap Nominatim endpoint.
	DefaultBaseURL = "https://nominatim.openstreetmap.org"
)

// Place is the result of a reverse geocoding lookup.
type Place struct {
	Name    string
	Region  string
	Country string
}

// Label returns "Name, Country", or whichever part is known.
func (p Place) Label() string {
	switch {
	case p.Name != "" && p.Country != "":
		return p.Name + ", " + p.Country
	case p.Name != "":
		return p.Name
	default:
		return p.Country
	}
}

// Config holds configuration for the Nominatim client.
type Config struct {
	BaseURL    string
	Language   string
	HTTPClient *resilience.Client
	Logger     zerolog.Logger
}

// Nominatim is a reverse geocoder backed by the OpenStreetMap Nominatim API.
type Nominatim struct {
	baseURL    string
	language   string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewNominatim creates a Nominatim client.
func NewNominatim(cfg Config) *Nominatim {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.HTTPClient == nil {
		rc := resilience.DefaultClientConfig(ProviderName)
		rc.UserAgent = "SmartIrrigation/1.0"
		cfg.HTTPClient = resilience.NewClient(rc)
	}
	return &Nominatim{
		baseURL:    cfg.BaseURL,
		language:   cfg.Language,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}
}

// Reverse returns the place at lat/lon at town level.
func (n *Nominatim) Reverse(ctx context.Context, lat, lon float64) (Place, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	q.Set("zoom", "10")
	q.Set("accept-language", n.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/reverse?"+q.Encode(), http.NoBody)
	if err != nil {
		return Place{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return Place{}, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Place{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var body reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Place{}, fmt.Errorf("decoding response: %w", err)
	}

	a := body.Address
	place := Place{Region: a.State, Country: a.Country}
	for _, name := range []string{a.City, a.Town, a.Village, a.Municipality, a.County} {
		if name != "" {
			place.Name = name
			break
		}
	}
	return place, nil
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		City         string `json:"city"`
		Town         string `json:"town"`
		Village      string `json:"village"`
		Municipality string `json:"municipality"`
		County       string `json:"county"`
		State        string `json:"state"`
		Country      string `json:"country"`
	} `json:"address"`
}

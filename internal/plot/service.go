package plot

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/smartirrigation/smartirrigation/internal/api/models"
	"github.com/smartirrigation/smartirrigation/internal/geocode"
)

// Validation constants.
const (
	MaxNameLength = 80
	MaxNoteLength = 500

	// MaxPlantingLead is how far in the future a planting date may be scheduled.
	MaxPlantingLead = 365 * 24 * time.Hour
)

// Geocoder resolves coordinates to a place name.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (geocode.Place, error)
}

// ServiceConfig holds the dependencies of Service.
type ServiceConfig struct {
	Repository Repository

	// Geocoder is optional. When set, new plots get a location name.
	Geocoder Geocoder

	Logger zerolog.Logger
	Now    func() time.Time
}

// Service provides plot operations.
type Service struct {
	repo     Repository
	geocoder Geocoder
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService creates a new plot service.
func NewService(cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:     cfg.Repository,
		geocoder: cfg.Geocoder,
		logger:   cfg.Logger,
		now:      now,
	}
}

// Find returns the domain plot, for callers that compute on it.
func (s *Service) Find(ctx context.Context, id string) (*Plot, error) {
	return s.repo.Get(ctx, id)
}

// Page returns one page of domain plots.
func (s *Service) Page(ctx context.Context, opts ListOptions) (*ListResult, error) {
	return s.repo.List(ctx, opts)
}

// List returns a page of plots.
func (s *Service) List(ctx context.Context, limit int, cursor string) (*models.PagedPlots, error) {
	result, err := s.repo.List(ctx, ListOptions{Limit: limit, Cursor: cursor})
	if err != nil {
		return nil, err
	}

	items := make([]models.Plot, 0, len(result.Items))
	for _, p := range result.Items {
		items = append(items, ToAPIPlot(p))
	}

	var nextCursor *string
	if result.NextCursor != "" {
		nextCursor = &result.NextCursor
	}

	return &models.PagedPlots{
		Items: items,
		Meta: models.PagedResponseMeta{
			Limit:      clampLimit(limit),
			NextCursor: nextCursor,
		},
	}, nil
}

// Get retrieves a plot by ID.
func (s *Service) Get(ctx context.Context, id string) (*models.Plot, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	result := ToAPIPlot(p)
	return &result, nil
}

// Create validates and stores a new plot.
func (s *Service) Create(ctx context.Context, input *models.PlotCreateRequest) (*models.Plot, error) {
	if fieldErrors := s.validateCreateInput(input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	now := s.now().UTC()
	p := &Plot{
		ID:           "plt_" + uuid.New().String()[:22],
		Name:         strings.TrimSpace(input.Name),
		CropName:     strings.TrimSpace(input.CropName),
		PlantingDate: input.PlantingDate.Time(),
		SoilName:     strings.TrimSpace(input.SoilName),
		AreaM2:       input.AreaM2,
		Location:     Point{Lat: input.Location.Lat, Lon: input.Location.Lon},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	p.LocationName = s.locationName(ctx, p.Location)

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	result := ToAPIPlot(p)
	return &result, nil
}

// Update applies a partial update to a plot.
func (s *Service) Update(ctx context.Context, id string, input *models.PlotUpdateRequest) (*models.Plot, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if fieldErrors := s.validateUpdateInput(input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	if input.Name != nil {
		p.Name = strings.TrimSpace(*input.Name)
	}
	if input.CropName != nil {
		p.CropName = strings.TrimSpace(*input.CropName)
	}
	if input.PlantingDate != nil {
		p.PlantingDate = input.PlantingDate.Time()
	}
	if input.SoilName != nil {
		p.SoilName = strings.TrimSpace(*input.SoilName)
	}
	if input.AreaM2 != nil {
		p.AreaM2 = *input.AreaM2
	}
	if input.Location != nil {
		p.Location = Point{Lat: input.Location.Lat, Lon: input.Location.Lon}
		p.LocationName = s.locationName(ctx, p.Location)
	}
	p.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	result := ToAPIPlot(p)
	return &result, nil
}

// Delete removes a plot and its irrigation log.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// MarkIrrigated records an irrigation of the plot. The volume defaults to
// defaultVolume, the recommended total for the plot when the caller has one.
func (s *Service) MarkIrrigated(ctx context.Context, plotID string, input *models.IrrigationEventCreateRequest, defaultVolume float64) (*models.IrrigationEvent, error) {
	p, err := s.repo.Get(ctx, plotID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var errs []models.FieldError
	irrigatedAt := now
	if input.IrrigatedAt != nil {
		irrigatedAt = input.IrrigatedAt.Time().UTC()
		if irrigatedAt.After(now.Add(time.Minute)) {
			errs = append(errs, models.FieldError{Field: "irrigatedAt", Message: "cannot be in the future"})
		}
	}
	volume := defaultVolume
	if input.VolumeLiters != nil {
		volume = *input.VolumeLiters
		if !finite(volume) || volume < 0 {
			errs = append(errs, models.FieldError{Field: "volumeLiters", Message: "must be a non-negative number"})
		}
	}
	if input.Note != nil && utf8.RuneCountInString(*input.Note) > MaxNoteLength {
		errs = append(errs, models.FieldError{Field: "note", Message: "must be at most 500 characters"})
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	e := &IrrigationEvent{
		ID:           "irr_" + uuid.New().String()[:22],
		PlotID:       p.ID,
		IrrigatedAt:  irrigatedAt,
		VolumeLiters: volume,
		LitersPerM2:  math.Round(volume/p.AreaM2*10) / 10,
		Note:         input.Note,
		CreatedAt:    now,
	}
	if err := s.repo.AddEvent(ctx, e); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("plot_id", p.ID).
		Str("event_id", e.ID).
		Float64("volume_liters", volume).
		Msg("irrigation recorded")

	result := ToAPIEvent(e)
	return &result, nil
}

// Events returns the plot's irrigation log, most recent first.
func (s *Service) Events(ctx context.Context, plotID string, limit int) (*models.IrrigationEvents, error) {
	if _, err := s.repo.Get(ctx, plotID); err != nil {
		return nil, err
	}
	events, err := s.repo.ListEvents(ctx, plotID, limit)
	if err != nil {
		return nil, err
	}

	items := make([]models.IrrigationEvent, 0, len(events))
	for _, e := range events {
		items = append(items, ToAPIEvent(e))
	}
	return &models.IrrigationEvents{Items: items}, nil
}

// LastEvent returns the most recent irrigation, or nil when the plot was never irrigated.
func (s *Service) LastEvent(ctx context.Context, plotID string) (*IrrigationEvent, error) {
	e, err := s.repo.LastEvent(ctx, plotID)
	if errors.Is(err, ErrEventNotFound) {
		return nil, nil
	}
	return e, err
}

func (s *Service) locationName(ctx context.Context, pt Point) *string {
	if s.geocoder == nil {
		return nil
	}
	place, err := s.geocoder.Reverse(ctx, pt.Lat, pt.Lon)
	if err != nil {
		s.logger.Warn().Err(err).
			Float64("lat", pt.Lat).
			Float64("lon", pt.Lon).
			Msg("reverse geocoding failed")
		return nil
	}
	label := place.Label()
	if label == "" {
		return nil
	}
	return &label
}

func (s *Service) validateCreateInput(input *models.PlotCreateRequest) []models.FieldError {
	var errs []models.FieldError

	errs = append(errs, validateText("name", input.Name, MaxNameLength)...)
	errs = append(errs, validateText("cropName", input.CropName, MaxNameLength)...)
	errs = append(errs, validateText("soilName", input.SoilName, MaxNameLength)...)

	if input.PlantingDate.IsZero() {
		errs = append(errs, models.FieldError{Field: "plantingDate", Message: "is required"})
	} else {
		errs = append(errs, s.validatePlantingDate(input.PlantingDate)...)
	}

	errs = append(errs, validateArea(input.AreaM2)...)
	errs = append(errs, validateLocation(input.Location)...)

	return errs
}

func (s *Service) validateUpdateInput(input *models.PlotUpdateRequest) []models.FieldError {
	var errs []models.FieldError

	if input.Name != nil {
		errs = append(errs, validateText("name", *input.Name, MaxNameLength)...)
	}
	if input.CropName != nil {
		errs = append(errs, validateText("cropName", *input.CropName, MaxNameLength)...)
	}
	if input.SoilName != nil {
		errs = append(errs, validateText("soilName", *input.SoilName, MaxNameLength)...)
	}
	if input.PlantingDate != nil {
		if input.PlantingDate.IsZero() {
			errs = append(errs, models.FieldError{Field: "plantingDate", Message: "cannot be empty"})
		} else {
			errs = append(errs, s.validatePlantingDate(*input.PlantingDate)...)
		}
	}
	if input.AreaM2 != nil {
		errs = append(errs, validateArea(*input.AreaM2)...)
	}
	if input.Location != nil {
		errs = append(errs, validateLocation(*input.Location)...)
	}

	return errs
}

func (s *Service) validatePlantingDate(d models.Date) []models.FieldError {
	if d.Time().After(s.now().Add(MaxPlantingLead)) {
		return []models.FieldError{{Field: "plantingDate", Message: "must be within one year from today"}}
	}
	return nil
}

func validateText(field, value string, max int) []models.FieldError {
	value = strings.TrimSpace(value)
	if value == "" {
		return []models.FieldError{{Field: field, Message: "is required"}}
	}
	if utf8.RuneCountInString(value) > max {
		return []models.FieldError{{Field: field, Message: "must be at most 80 characters"}}
	}
	return nil
}

func validateArea(area float64) []models.FieldError {
	if !finite(area) || area <= 0 {
		return []models.FieldError{{Field: "areaM2", Message: "must be greater than 0"}}
	}
	return nil
}

func validateLocation(pt models.Point) []models.FieldError {
	var errs []models.FieldError
	if !finite(pt.Lat) || pt.Lat < -90 || pt.Lat > 90 {
		errs = append(errs, models.FieldError{Field: "location.lat", Message: "must be between -90 and 90"})
	}
	if !finite(pt.Lon) || pt.Lon < -180 || pt.Lon > 180 {
		errs = append(errs, models.FieldError{Field: "location.lon", Message: "must be between -180 and 180"})
	}
	return errs
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ToAPIPlot converts a domain Plot to an API Plot.
func ToAPIPlot(p *Plot) models.Plot {
	return models.Plot{
		ID:           p.ID,
		Name:         p.Name,
		CropName:     p.CropName,
		PlantingDate: models.Date(p.PlantingDate),
		SoilName:     p.SoilName,
		AreaM2:       p.AreaM2,
		Location:     models.Point{Lat: p.Location.Lat, Lon: p.Location.Lon},
		LocationName: p.LocationName,
		CreatedAt:    models.Timestamp(p.CreatedAt),
		UpdatedAt:    models.Timestamp(p.UpdatedAt),
	}
}

// ToAPIEvent converts a domain IrrigationEvent to an API IrrigationEvent.
func ToAPIEvent(e *IrrigationEvent) models.IrrigationEvent {
	return models.IrrigationEvent{
		ID:           e.ID,
		PlotID:       e.PlotID,
		IrrigatedAt:  models.Timestamp(e.IrrigatedAt),
		VolumeLiters: e.VolumeLiters,
		LitersPerM2:  e.LitersPerM2,
		Note:         e.Note,
		CreatedAt:    models.Timestamp(e.CreatedAt),
	}
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

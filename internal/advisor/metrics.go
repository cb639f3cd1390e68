package advisor

import (
	"context"
	"errors"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/smartirrigation/smartirrigation/internal/irrigation"
)

type metrics struct {
	recommendations metric.Int64Counter
	volume          metric.Float64Histogram
	failures        metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	recommendations, err := meter.Int64Counter(
		"irrigation.recommendations",
		metric.WithDescription("Number of irrigation recommendations generated"),
		metric.WithUnit("{recommendation}"),
	)
	if err != nil {
		return nil, err
	}

	volume, err := meter.Float64Histogram(
		"irrigation.recommendation.volume",
		metric.WithDescription("Recommended water depth per application"),
		metric.WithUnit("L/m2"),
		metric.WithExplicitBucketBoundaries(0, 2, 5, 10, 15, 20, 30, 40, 60, 80),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter(
		"irrigation.recommendation.failures",
		metric.WithDescription("Number of recommendation requests that produced no recommendation"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &metrics{recommendations: recommendations, volume: volume, failures: failures}, nil
}

func (m *metrics) recordRecommendation(ctx context.Context, source string, rec irrigation.Recommendation) {
	constraint := string(rec.Constraint)
	if constraint == "" {
		constraint = "none"
	}
	attrs := metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("stage", rec.Stage.String()),
		attribute.String("constraint", constraint),
		attribute.String("kc_fallback", strconv.FormatBool(rec.KcFallback)),
		attribute.String("soil_fallback", strconv.FormatBool(rec.SoilFallback)),
		attribute.String("radiation_estimated", strconv.FormatBool(rec.RadiationEstimated)),
	)
	m.recommendations.Add(ctx, 1, attrs)
	m.volume.Record(ctx, rec.LiterPerSquareMeter, metric.WithAttributes(attribute.String("stage", rec.Stage.String())))
}

func (m *metrics) recordFailure(ctx context.Context, source string, err error) {
	reason := "error"
	var unavailable *UnavailableError
	switch {
	case errors.Is(err, irrigation.ErrInvalidInput):
		reason = "invalid_input"
	case errors.As(err, &unavailable):
		reason = "unavailable"
	}
	m.failures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("reason", reason),
	))
}

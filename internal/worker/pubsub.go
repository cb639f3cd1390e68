package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Job types carried in the job_type field of a message.
const (
	JobAdvisoryRun = "advisory_run"
	JobHealthCheck = "health_check"
)

// ErrUnknownJob is returned for messages with an unrecognized job type.
var ErrUnknownJob = errors.New("unknown job type")

// JobMessage is the JSON payload of a worker message.
type JobMessage struct {
	JobType string `json:"job_type"`
}

// Dispatcher runs jobs by type. It is shared by the Pub/Sub handler and the ticker.
type Dispatcher struct {
	job    *AdvisoryJob
	logger zerolog.Logger
}

// NewDispatcher creates a dispatcher for the advisory job.
func NewDispatcher(job *AdvisoryJob, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{job: job, logger: logger}
}

// Dispatch runs the job named by msg.
func (d *Dispatcher) Dispatch(ctx context.Context, msg JobMessage) error {
	switch msg.JobType {
	case JobAdvisoryRun:
		result, err := d.job.Run(ctx)
		if err != nil {
			return err
		}
		// A run where every plot failed points at an upstream outage; let it be redelivered.
		if result.Total > 0 && result.Failed == result.Total {
			return fmt.Errorf("advisory run failed for all %d plots", result.Total)
		}
		return nil
	case JobHealthCheck:
		return d.job.HealthCheck(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJob, msg.JobType)
	}
}

// DispatchRaw decodes a JSON job message and dispatches it.
func (d *Dispatcher) DispatchRaw(ctx context.Context, data []byte) error {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("decode job message: %w", err)
	}
	return d.Dispatch(ctx, msg)
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Dispatcher       *Dispatcher
	Logger           zerolog.Logger
}

// PubSubHandler receives job messages from a Pub/Sub subscription.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	dispatcher       *Dispatcher
	logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)
	// Advisory runs are long and must not overlap.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 1
	subscriber.ReceiveSettings.MaxExtension = 30 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		dispatcher:       cfg.Dispatcher,
		logger:           cfg.Logger,
	}, nil
}

// Start receives messages until ctx is done.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		start := time.Now()
		logger := h.logger.With().
			Str("message_id", msg.ID).
			Time("publish_time", msg.PublishTime).
			Logger()

		err := h.dispatcher.DispatchRaw(ctx, msg.Data)
		if ack(err) {
			msg.Ack()
		} else {
			msg.Nack()
		}

		if err != nil {
			logger.Error().Err(err).Bool("acked", ack(err)).Msg("job failed")
			return
		}
		logger.Info().Dur("duration", time.Since(start)).Msg("job completed")
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

// ack reports whether a message should be acknowledged after err. Messages
// that can never succeed are acked so they are not redelivered.
func ack(err error) bool {
	if err == nil {
		return true
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.Is(err, ErrUnknownJob) || errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

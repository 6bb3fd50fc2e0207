// internal/event/nats.go
// Package event provides NATS JetStream implementation for event publishing.
// It streams resource changes and orphaned media assets so downstream
// consumers and operators can react to them.
package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/vidshare/vidshare-api-go/internal/metrics"
	"github.com/vidshare/vidshare-api-go/internal/model"
	"github.com/vidshare/vidshare-api-go/internal/reqctx"
)

// Resource kinds used in subjects.
const (
	KindVideo    = "video"
	KindComment  = "comment"
	KindTweet    = "tweet"
	KindPlaylist = "playlist"
	KindLike     = "like"
)

// Actions used in subjects.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Publisher interface defines the event publishing operations required by the service.
type Publisher interface {
	// PublishResourceEvent announces a change to one resource.
	PublishResourceEvent(ctx context.Context, kind, action, id string, payload interface{}) error

	// PublishOrphanedAsset reports a remote asset that could not be deleted.
	PublishOrphanedAsset(ctx context.Context, asset model.OrphanedAsset) error

	// Close closes the publisher connection
	Close() error
}

// noop is a no-op implementation of Publisher for when NATS is not configured.
type noop struct{}

// NewNoop returns a Publisher that drops every event.
func NewNoop() Publisher { return &noop{} }

func (n *noop) Close() error { return nil }

func (n *noop) PublishResourceEvent(ctx context.Context, kind, action, id string, payload interface{}) error {
	return nil
}

// PublishOrphanedAsset still logs, so orphans are visible without NATS.
func (n *noop) PublishOrphanedAsset(ctx context.Context, asset model.OrphanedAsset) error {
	slog.Warn("Orphaned media asset", "video_id", asset.VideoID, "url", asset.URL,
		"role", asset.Role, "stage", asset.Stage, "reason", asset.Reason)
	return nil
}

// natsPub is the NATS JetStream implementation of Publisher.
// Duplicate suppression relies on the stream's duplicate window and the
// Nats-Msg-Id header rather than on local state.
type natsPub struct {
	nc      *nats.Conn            // NATS connection
	js      nats.JetStreamContext // JetStream context for stream operations
	metrics *metrics.Metrics
}

// NewPublisher connects to NATS at url.
// If url is empty or the connection fails, it returns a no-op publisher.
func NewPublisher(url string) Publisher {
	if url == "" {
		return &noop{}
	}

	nc, err := nats.Connect(url, nats.Name("vidshared"))
	if err != nil {
		slog.Warn("NATS connect failed, using noop publisher", "error", err)
		return &noop{}
	}

	js, err := nc.JetStream()
	if err != nil {
		slog.Warn("NATS JetStream context creation failed, using noop publisher", "error", err)
		nc.Close()
		return &noop{}
	}

	if err := initStreams(js); err != nil {
		slog.Warn("NATS stream initialization failed, using noop publisher", "error", err)
		nc.Close()
		return &noop{}
	}

	return &natsPub{nc: nc, js: js, metrics: metrics.NewMetrics()}
}

// initStreams creates the VIDSHARE_RESOURCES and VIDSHARE_MEDIA streams.
func initStreams(js nats.JetStreamContext) error {
	_, err := js.AddStream(&nats.StreamConfig{
		Name:       "VIDSHARE_RESOURCES",
		Subjects:   []string{"vidshare.resources.>"},
		Retention:  nats.LimitsPolicy,
		MaxAge:     24 * time.Hour,
		Discard:    nats.DiscardOld,
		Storage:    nats.FileStorage,
		Duplicates: 2 * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("failed to create VIDSHARE_RESOURCES stream: %w", err)
	}

	// Orphans are kept longer; someone has to clean them up.
	_, err = js.AddStream(&nats.StreamConfig{
		Name:       "VIDSHARE_MEDIA",
		Subjects:   []string{"vidshare.media.>"},
		Retention:  nats.LimitsPolicy,
		MaxAge:     7 * 24 * time.Hour,
		Discard:    nats.DiscardOld,
		Storage:    nats.FileStorage,
		Duplicates: 2 * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("failed to create VIDSHARE_MEDIA stream: %w", err)
	}

	return nil
}

// EventEnvelope represents the standard event envelope structure.
// All events published to NATS are wrapped in this envelope for consistency.
type EventEnvelope struct {
	ID            string      `json:"id"`            // Unique per event
	Type          string      `json:"type"`          // Event type identifier, equal to the subject
	Version       string      `json:"version"`       // Event schema version
	OccurredAt    time.Time   `json:"occurredAt"`    // When the event occurred
	CorrelationID string      `json:"correlationId"` // Correlation ID of the originating request
	Payload       interface{} `json:"payload"`       // Event-specific data
}

// newEnvelope wraps payload for subject, taking the correlation id from ctx.
func newEnvelope(ctx context.Context, subject string, payload interface{}) EventEnvelope {
	correlationID := reqctx.CorrelationID(ctx)
	if correlationID == "" {
		correlationID = uuid.New().String()
	}
	return EventEnvelope{
		ID:            uuid.New().String(),
		Type:          subject,
		Version:       "1.0.0",
		OccurredAt:    time.Now().UTC(),
		CorrelationID: correlationID,
		Payload:       payload,
	}
}

// Close closes the NATS connection.
func (p *natsPub) Close() error {
	if p.nc != nil {
		return p.nc.Drain()
	}
	return nil
}

// publish sends one envelope. msgID feeds JetStream de-duplication.
func (p *natsPub) publish(ctx context.Context, subject, msgID string, env EventEnvelope) (err error) {
	start := time.Now()
	defer func() {
		status := metrics.Status(err)
		p.metrics.EventPublishTotal.WithLabelValues(subject, status).Inc()
		p.metrics.EventPublishDuration.WithLabelValues(subject, status).Observe(time.Since(start).Seconds())
	}()

	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(subject, b, nats.MsgId(msgID), nats.Context(ctx))
	return err
}

// PublishResourceEvent publishes to vidshare.resources.<kind>.<action>.
// Parameters:
//   - ctx: Context for the operation
//   - kind: Resource kind, one of the Kind constants
//   - action: One of the Action constants
//   - id: Resource id
//   - payload: The resource as it is after the change
//
// Returns:
//   - error: Any error that occurred during publishing
func (p *natsPub) PublishResourceEvent(ctx context.Context, kind, action, id string, payload interface{}) error {
	subject := fmt.Sprintf("vidshare.resources.%s.%s", kind, action)
	env := newEnvelope(ctx, subject, payload)
	// Creates and deletes happen once per id; updates are distinct events.
	msgID := subject + ":" + id
	if action == ActionUpdated {
		msgID = env.ID
	}
	return p.publish(ctx, subject, msgID, env)
}

// PublishOrphanedAsset publishes to vidshare.media.orphaned.
func (p *natsPub) PublishOrphanedAsset(ctx context.Context, asset model.OrphanedAsset) error {
	const subject = "vidshare.media.orphaned"
	return p.publish(ctx, subject, subject+":"+asset.URL, newEnvelope(ctx, subject, asset))
}

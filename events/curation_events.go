package events

import (
	"context"
	"encoding/json"
	"time"

	"curation-bff/models"
	awspkg "curation-bff/pkg/aws"

	"go.uber.org/zap"
)

const (
	EventProductCurated   = "product.curated"
	EventProductPublished = "product.published"
	EventProductRejected  = "product.rejected"
	EventProductReverted  = "product.reverted"
	EventProductDeleted   = "product.deleted"
	EventJobSubmitted     = "curation_job.submitted"
)

// CurationEvent describes one applied transition.
type CurationEvent struct {
	EventType       string                `json:"event_type"`
	ProductID       string                `json:"product_id,omitempty"`
	FromStatus      models.CurationStatus `json:"from_status,omitempty"`
	ToStatus        models.CurationStatus `json:"to_status,omitempty"`
	Kind            models.CurationKind   `json:"kind,omitempty"`
	JobID           string                `json:"job_id,omitempty"`
	GlobalProductID string                `json:"global_product_id,omitempty"`
	ProductIDs      []string              `json:"product_ids,omitempty"`
	OccurredAt      time.Time             `json:"occurred_at"`
}

// Publisher emits curation events. Implementations never fail the caller.
type Publisher interface {
	Publish(ctx context.Context, event CurationEvent)
}

// SNSPublisher sends events to an SNS topic.
type SNSPublisher struct {
	sns      awspkg.SNSPublisher
	topicArn string
	logger   *zap.Logger
}

func NewSNSPublisher(sns awspkg.SNSPublisher, topicArn string, logger *zap.Logger) *SNSPublisher {
	return &SNSPublisher{sns: sns, topicArn: topicArn, logger: logger}
}

// Publish marshals and publishes event (non-fatal on error).
func (p *SNSPublisher) Publish(ctx context.Context, event CurationEvent) {
	if p.sns == nil || p.topicArn == "" {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	b, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal curation event", zap.Error(err))
		return
	}
	attrs := map[string]string{"event_type": event.EventType}
	if err := p.sns.Publish(ctx, p.topicArn, b, attrs); err != nil {
		p.logger.Error("Failed to publish curation event",
			zap.String("event_type", event.EventType),
			zap.String("product_id", event.ProductID),
			zap.Error(err),
		)
		return
	}
	p.logger.Debug("Published curation event", zap.String("event_type", event.EventType), zap.String("product_id", event.ProductID))
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, CurationEvent) {}

package projector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/kwameasiedu/shopstack/internal/marketplace"
	"github.com/kwameasiedu/shopstack/internal/sellers"
	"github.com/kwameasiedu/shopstack/pkg/db"
	"github.com/kwameasiedu/shopstack/pkg/db/models"
	"github.com/kwameasiedu/shopstack/pkg/enums"
	"github.com/kwameasiedu/shopstack/pkg/logger"
	"github.com/kwameasiedu/shopstack/pkg/metrics"
	"github.com/kwameasiedu/shopstack/pkg/outbox"
	"github.com/kwameasiedu/shopstack/pkg/outbox/idempotency"
	"github.com/kwameasiedu/shopstack/pkg/outbox/payloads"
	"github.com/kwameasiedu/shopstack/pkg/outbox/registry"
	"gorm.io/gorm"
)

const consumerName = "marketplace-projector"

type profileSource interface {
	FindBySellerID(ctx context.Context, sellerID uuid.UUID) (*models.SellerProfile, error)
}

// Projector keeps marketplace_listings in step with catalog change events.
// Delivery is at-least-once; a Redis ledger keyed by event id makes every
// rule safe to receive twice.
type Projector struct {
	dbClient     *db.Client
	listings     *marketplace.Repository
	profiles     profileSource
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	decoders     *registry.DecoderRegistry
	metrics      *metrics.ProjectorMetrics
	logg         *logger.Logger
	fanoutChunk  int
}

// New builds a projector consuming the catalog change subscription.
func New(
	dbClient *db.Client,
	listings *marketplace.Repository,
	profiles profileSource,
	subscription *pubsub.Subscriber,
	manager *idempotency.Manager,
	projMetrics *metrics.ProjectorMetrics,
	logg *logger.Logger,
	fanoutChunk int,
) (*Projector, error) {
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if listings == nil {
		return nil, fmt.Errorf("listings repository required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile source required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("catalog subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Projector{
		dbClient:     dbClient,
		listings:     listings,
		profiles:     profiles,
		subscription: subscription,
		idempotency:  manager,
		decoders:     newDecoderRegistry(),
		metrics:      projMetrics,
		logg:         logg,
		fanoutChunk:  fanoutChunk,
	}, nil
}

func newDecoderRegistry() *registry.DecoderRegistry {
	decoders := registry.NewDecoderRegistry()
	decodeChange := func(raw json.RawMessage) (interface{}, error) {
		var payload payloads.ProductChangeEvent
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
		return payload, nil
	}
	decoders.Register(enums.EventProductCreated, 1, decodeChange)
	decoders.Register(enums.EventProductUpdated, 1, decodeChange)
	decoders.Register(enums.EventProductDeleted, 1, decodeChange)
	decoders.Register(enums.EventSellerProfileUpdated, 1, func(raw json.RawMessage) (interface{}, error) {
		var payload payloads.SellerProfileUpdatedEvent
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
		return payload, nil
	})
	return decoders
}

// Run starts the consumer loop until the context is canceled.
func (p *Projector) Run(ctx context.Context) error {
	return p.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := p.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (p *Projector) process(ctx context.Context, msg *pubsub.Message) processResult {
	rawType := msg.Attributes["event_type"]
	logCtx := p.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": rawType,
	})

	eventType, err := enums.ParseOutboxEventType(rawType)
	if err != nil {
		p.logg.Info(logCtx, "skipping unrelated event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		p.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		p.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}
	logCtx = p.logg.WithFields(logCtx, map[string]any{"event_id": eventID.String()})

	already, err := p.idempotency.CheckAndMarkProcessed(ctx, consumerName, eventID)
	if err != nil {
		p.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		p.metrics.IncDuplicate(rawType)
		p.logg.Info(logCtx, "event already projected")
		return processResult{ack: true}
	}

	decoded, err := p.decoders.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		// An undecodable payload never succeeds on redelivery.
		p.logg.Error(logCtx, "failed to decode payload", err)
		_ = p.idempotency.Delete(ctx, consumerName, eventID)
		return processResult{ack: true}
	}

	started := time.Now()
	if err := p.apply(ctx, eventType, decoded, envelope.OccurredAt); err != nil {
		p.metrics.IncFailed(rawType)
		p.logg.Error(logCtx, "projection failed", err)
		_ = p.idempotency.Delete(ctx, consumerName, eventID)
		return processResult{nack: true}
	}

	p.metrics.IncApplied(rawType)
	p.metrics.ObserveApply(rawType, time.Since(started))
	p.logg.Info(logCtx, "event projected")
	return processResult{ack: true}
}

func (p *Projector) apply(ctx context.Context, eventType enums.OutboxEventType, decoded interface{}, occurredAt time.Time) error {
	switch eventType {
	case enums.EventProductCreated, enums.EventProductUpdated:
		payload, ok := decoded.(payloads.ProductChangeEvent)
		if !ok {
			return fmt.Errorf("unexpected payload type %T", decoded)
		}
		return p.applyProductChange(ctx, payload)
	case enums.EventProductDeleted:
		payload, ok := decoded.(payloads.ProductChangeEvent)
		if !ok {
			return fmt.Errorf("unexpected payload type %T", decoded)
		}
		return p.applyProductDeleted(ctx, payload)
	case enums.EventSellerProfileUpdated:
		payload, ok := decoded.(payloads.SellerProfileUpdatedEvent)
		if !ok {
			return fmt.Errorf("unexpected payload type %T", decoded)
		}
		return p.applySellerProfileUpdated(ctx, payload, occurredAt)
	default:
		return fmt.Errorf("no projection rule for %s", eventType)
	}
}

// applyProductChange upserts the listing from the After snapshot and, when
// the quantity dropped, credits the delta to sold in the same transaction.
func (p *Projector) applyProductChange(ctx context.Context, payload payloads.ProductChangeEvent) error {
	if payload.After == nil {
		return fmt.Errorf("product change event without after snapshot")
	}

	display, err := p.sellerDisplay(ctx, payload.After.SellerID)
	if err != nil {
		return fmt.Errorf("load seller profile: %w", err)
	}

	listing := marketplace.BuildListing(payload.After, display, payload.After.UpdatedAt)

	return p.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		listings := p.listings.WithTx(tx)
		if err := listings.Upsert(ctx, listing); err != nil {
			return fmt.Errorf("upsert listing: %w", err)
		}
		if delta := soldDelta(payload); delta > 0 {
			if err := listings.IncrementSold(ctx, payload.ProductID, delta); err != nil {
				return fmt.Errorf("increment sold: %w", err)
			}
		}
		return nil
	})
}

func (p *Projector) applyProductDeleted(ctx context.Context, payload payloads.ProductChangeEvent) error {
	return p.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		return p.listings.WithTx(tx).Delete(ctx, payload.ProductID)
	})
}

func (p *Projector) applySellerProfileUpdated(ctx context.Context, payload payloads.SellerProfileUpdatedEvent, occurredAt time.Time) error {
	display := marketplace.SellerDisplay{
		BusinessName:   payload.BusinessName,
		BusinessType:   payload.BusinessType,
		Phone:          payload.Phone,
		Address:        payload.Address,
		Country:        payload.Country,
		CurrencyName:   payload.CurrencyName,
		CurrencySymbol: payload.CurrencySymbol,
		WhatsAppLink:   payload.WhatsAppLink,
	}
	return p.listings.ApplySellerDisplay(ctx, payload.SellerID, display, occurredAt, p.fanoutChunk)
}

// sellerDisplay reads the seller's current profile. A product can be
// projected before its seller has a profile; the listing then carries empty
// display fields until the profile event arrives.
func (p *Projector) sellerDisplay(ctx context.Context, sellerID uuid.UUID) (marketplace.SellerDisplay, error) {
	profile, err := p.profiles.FindBySellerID(ctx, sellerID)
	if err != nil {
		if sellers.IsNotFound(err) {
			return marketplace.SellerDisplay{}, nil
		}
		return marketplace.SellerDisplay{}, err
	}
	return marketplace.SellerDisplay{
		BusinessName:   profile.BusinessName,
		BusinessType:   profile.BusinessType,
		Phone:          profile.Phone,
		Address:        profile.Address,
		Country:        profile.Country,
		CurrencyName:   profile.Currency.String(),
		CurrencySymbol: profile.Currency.Symbol(),
		WhatsAppLink:   sellers.WhatsAppLink(profile.Phone),
	}, nil
}

// soldDelta derives units sold from the snapshot diff. Restocks (quantity
// increases) and creates contribute nothing.
func soldDelta(payload payloads.ProductChangeEvent) int64 {
	if payload.Before == nil || payload.After == nil {
		return 0
	}
	if payload.Before.Quantity <= payload.After.Quantity {
		return 0
	}
	return int64(payload.Before.Quantity - payload.After.Quantity)
}

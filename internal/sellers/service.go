package sellers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kwameasiedu/shopstack/pkg/db"
	"github.com/kwameasiedu/shopstack/pkg/db/models"
	"github.com/kwameasiedu/shopstack/pkg/enums"
	pkgerrors "github.com/kwameasiedu/shopstack/pkg/errors"
	"github.com/kwameasiedu/shopstack/pkg/outbox"
	"github.com/kwameasiedu/shopstack/pkg/outbox/payloads"
)

// Service manages seller business profiles. Profile writes queue a change
// event so the marketplace can refresh the seller fields denormalized onto
// every listing.
type Service interface {
	UpsertProfile(ctx context.Context, sellerID uuid.UUID, input ProfileInput) (*ProfileDTO, error)
	GetProfile(ctx context.Context, sellerID uuid.UUID) (*ProfileDTO, error)
}

// ProfileInput holds the validated payload for a profile write.
type ProfileInput struct {
	BusinessName string
	BusinessType string
	Phone        string
	Address      string
	Country      string
	Currency     string
}

// ProfileDTO is the API representation of a seller profile.
type ProfileDTO struct {
	SellerID       uuid.UUID `json:"seller_id"`
	BusinessName   string    `json:"business_name"`
	BusinessType   string    `json:"business_type"`
	Phone          string    `json:"phone"`
	Address        string    `json:"address"`
	Country        string    `json:"country"`
	Currency       string    `json:"currency"`
	CurrencySymbol string    `json:"currency_symbol"`
	WhatsAppLink   string    `json:"whatsapp_link"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	emitter  eventEmitter
}

// NewService constructs a seller profile service.
func NewService(repo *Repository, dbClient *db.Client, emitter eventEmitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("seller repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &service{repo: repo, dbClient: dbClient, emitter: emitter}, nil
}

// UpsertProfile writes the profile and queues the fan-out event.
func (s *service) UpsertProfile(ctx context.Context, sellerID uuid.UUID, input ProfileInput) (*ProfileDTO, error) {
	if strings.TrimSpace(input.BusinessName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business_name is required")
	}
	currency, err := enums.ParseCurrency(input.Currency)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency")
	}

	profile := &models.SellerProfile{
		SellerID:     sellerID,
		BusinessName: strings.TrimSpace(input.BusinessName),
		BusinessType: strings.TrimSpace(input.BusinessType),
		Phone:        strings.TrimSpace(input.Phone),
		Address:      strings.TrimSpace(input.Address),
		Country:      strings.TrimSpace(input.Country),
		Currency:     currency,
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		saved, err := txRepo.Upsert(ctx, profile)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: upsert seller profile")
		}
		profile = saved

		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSellerProfileUpdated,
			AggregateType: enums.AggregateSellerProfile,
			AggregateID:   sellerID,
			Actor:         &outbox.ActorRef{SellerID: sellerID},
			Version:       1,
			Data: payloads.SellerProfileUpdatedEvent{
				SellerID:       sellerID,
				BusinessName:   saved.BusinessName,
				BusinessType:   saved.BusinessType,
				Phone:          saved.Phone,
				Address:        saved.Address,
				Country:        saved.Country,
				CurrencyName:   saved.Currency.String(),
				CurrencySymbol: saved.Currency.Symbol(),
				WhatsAppLink:   WhatsAppLink(saved.Phone),
			},
		})
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert seller profile")
	}

	dto := newProfileDTO(profile)
	return &dto, nil
}

// GetProfile loads the seller's profile.
func (s *service) GetProfile(ctx context.Context, sellerID uuid.UUID) (*ProfileDTO, error) {
	profile, err := s.repo.FindBySellerID(ctx, sellerID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load seller profile")
	}
	dto := newProfileDTO(profile)
	return &dto, nil
}

// WhatsAppLink builds a wa.me deep link from a phone number, dropping
// everything but digits. Empty phones yield an empty link.
func WhatsAppLink(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return ""
	}
	return "https://wa.me/" + digits.String()
}

func newProfileDTO(profile *models.SellerProfile) ProfileDTO {
	return ProfileDTO{
		SellerID:       profile.SellerID,
		BusinessName:   profile.BusinessName,
		BusinessType:   profile.BusinessType,
		Phone:          profile.Phone,
		Address:        profile.Address,
		Country:        profile.Country,
		Currency:       profile.Currency.String(),
		CurrencySymbol: profile.Currency.Symbol(),
		WhatsAppLink:   WhatsAppLink(profile.Phone),
		UpdatedAt:      profile.UpdatedAt,
	}
}

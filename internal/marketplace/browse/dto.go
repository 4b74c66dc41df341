package browse

import (
	"time"

	"github.com/google/uuid"

	"github.com/kwameasiedu/shopstack/pkg/db/models"
	"github.com/kwameasiedu/shopstack/pkg/money"
)

// ListingDTO is the buyer-facing representation of a marketplace listing.
type ListingDTO struct {
	ProductID         uuid.UUID `json:"product_id"`
	SellerID          uuid.UUID `json:"seller_id"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	SellingPriceCents int64     `json:"selling_price_cents"`
	PriceDisplay      string    `json:"price_display"`
	Quantity          int       `json:"quantity"`
	Sold              int64     `json:"sold"`
	Images            []string  `json:"images"`
	CategoryID        string    `json:"category_id"`
	DepartmentID      string    `json:"department_id,omitempty"`
	BusinessName      string    `json:"business_name,omitempty"`
	BusinessType      string    `json:"business_type,omitempty"`
	Address           string    `json:"address,omitempty"`
	Country           string    `json:"country,omitempty"`
	CurrencyName      string    `json:"currency_name,omitempty"`
	CurrencySymbol    string    `json:"currency_symbol,omitempty"`
	WhatsAppLink      string    `json:"whatsapp_link,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// NewListingDTO maps a listing row to its API shape.
func NewListingDTO(listing models.MarketplaceListing) ListingDTO {
	images := []string(listing.Images)
	if images == nil {
		images = []string{}
	}
	return ListingDTO{
		ProductID:         listing.ProductID,
		SellerID:          listing.SellerID,
		Name:              listing.Name,
		Description:       listing.Description,
		SellingPriceCents: listing.SellingPriceCents,
		PriceDisplay:      money.Format(listing.CurrencySymbol, listing.SellingPriceCents),
		Quantity:          listing.Quantity,
		Sold:              listing.Sold,
		Images:            images,
		CategoryID:        listing.CategoryID,
		DepartmentID:      listing.DepartmentID,
		BusinessName:      listing.BusinessName,
		BusinessType:      listing.BusinessType,
		Address:           listing.Address,
		Country:           listing.Country,
		CurrencyName:      listing.CurrencyName,
		CurrencySymbol:    listing.CurrencySymbol,
		WhatsAppLink:      listing.WhatsAppLink,
		UpdatedAt:         listing.UpdatedAt,
	}
}

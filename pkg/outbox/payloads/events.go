package payloads

import (
	"time"

	"github.com/google/uuid"
)

// ProductSnapshot carries the listing-relevant fields of a product at a
// point in time. Before/After pairs of snapshots let consumers derive what
// changed without re-reading the catalog.
type ProductSnapshot struct {
	ProductID         uuid.UUID `json:"product_id"`
	SellerID          uuid.UUID `json:"seller_id"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	SellingPriceCents int64     `json:"selling_price_cents"`
	Quantity          int       `json:"quantity"`
	CategoryID        string    `json:"category_id"`
	DepartmentID      string    `json:"department_id"`
	Images            []string  `json:"images,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ProductChangeEvent describes a catalog write. Before is nil on create,
// After is nil on delete; both are set on update.
type ProductChangeEvent struct {
	ProductID uuid.UUID        `json:"product_id"`
	SellerID  uuid.UUID        `json:"seller_id"`
	Before    *ProductSnapshot `json:"before,omitempty"`
	After     *ProductSnapshot `json:"after,omitempty"`
}

// SellerProfileUpdatedEvent carries the display fields the marketplace
// denormalizes onto every listing a seller owns.
type SellerProfileUpdatedEvent struct {
	SellerID       uuid.UUID `json:"seller_id"`
	BusinessName   string    `json:"business_name"`
	BusinessType   string    `json:"business_type"`
	Phone          string    `json:"phone"`
	Address        string    `json:"address"`
	Country        string    `json:"country"`
	CurrencyName   string    `json:"currency_name"`
	CurrencySymbol string    `json:"currency_symbol"`
	WhatsAppLink   string    `json:"whatsapp_link"`
}

package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/kwameasiedu/shopstack/pkg/db/types"
)

// MarketplaceListing is the buyer-facing, denormalized projection of a Product
// merged with its seller's display fields. Only the change-propagation
// reconciler writes this table; buyer-facing code reads it exclusively.
// ProductID doubles as the primary key so Product and listing share identity.
type MarketplaceListing struct {
	ProductID         uuid.UUID          `gorm:"column:product_id;type:uuid;primaryKey"`
	SellerID          uuid.UUID          `gorm:"column:seller_id;type:uuid;not null;index"`
	Name              string             `gorm:"column:name;not null"`
	NameLower         string             `gorm:"column:name_lower;not null;index"`
	Description       string             `gorm:"column:description;not null;default:''"`
	SellingPriceCents int64              `gorm:"column:selling_price_cents;not null"`
	Quantity          int                `gorm:"column:quantity;not null;default:0"`
	Sold              int64              `gorm:"column:sold;not null;default:0"`
	Images            dbtypes.StringList `gorm:"column:images;type:jsonb;not null;default:'[]'"`
	CategoryID        string             `gorm:"column:category_id;not null;default:'';index"`
	DepartmentID      string             `gorm:"column:department_id;not null;default:''"`
	BusinessName      string             `gorm:"column:business_name;not null;default:''"`
	BusinessType      string             `gorm:"column:business_type;not null;default:''"`
	Phone             string             `gorm:"column:phone;not null;default:''"`
	Address           string             `gorm:"column:address;not null;default:''"`
	Country           string             `gorm:"column:country;not null;default:''"`
	CurrencyName      string             `gorm:"column:currency_name;not null;default:''"`
	CurrencySymbol    string             `gorm:"column:currency_symbol;not null;default:''"`
	WhatsAppLink      string             `gorm:"column:whatsapp_link;not null;default:''"`
	// CreatedAt is set on first projection only; UpdatedAt carries the event
	// time of the latest applied change, so neither uses gorm auto-timestamps.
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;index:idx_marketplace_listings_updated_at,sort:desc"`
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kwameasiedu/shopstack/pkg/enums"
)

// SellerProfile is the canonical business/contact record for one seller.
// The reconciler reads it to populate listing display fields; any update here
// eventually fans out to every listing the seller owns.
type SellerProfile struct {
	SellerID     uuid.UUID      `gorm:"column:seller_id;type:uuid;primaryKey"`
	BusinessName string         `gorm:"column:business_name;not null"`
	BusinessType string         `gorm:"column:business_type;not null;default:''"`
	Phone        string         `gorm:"column:phone;not null;default:''"`
	Address      string         `gorm:"column:address;not null;default:''"`
	Country      string         `gorm:"column:country;not null;default:''"`
	Currency     enums.Currency `gorm:"column:currency;not null;default:'GHS'"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

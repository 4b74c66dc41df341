package models

import (
	"time"

	"github.com/google/uuid"
)

// DailyAggregate accumulates one seller's sales for one calendar day.
// Every counter is maintained with additive upserts so concurrent sale
// transactions compose without read-modify-write of the whole row.
type DailyAggregate struct {
	SellerID     uuid.UUID `gorm:"column:seller_id;type:uuid;primaryKey"`
	Day          string    `gorm:"column:day;primaryKey"` // YYYY-MM-DD in the seller's business timezone
	// SalesCount counts units sold, not transactions.
	SalesCount   int64     `gorm:"column:sales_count;not null;default:0"`
	RevenueCents int64     `gorm:"column:revenue_cents;not null;default:0"`
	ProfitCents  int64     `gorm:"column:profit_cents;not null;default:0"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// DailyProductRollup is the per-product slice of a DailyAggregate, keyed by
// (seller, day, product). Quantity and revenue grow by increments only.
type DailyProductRollup struct {
	SellerID     uuid.UUID `gorm:"column:seller_id;type:uuid;primaryKey"`
	Day          string    `gorm:"column:day;primaryKey"`
	ProductID    uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	Name         string    `gorm:"column:name;not null"`
	Quantity     int64     `gorm:"column:quantity;not null;default:0"`
	RevenueCents int64     `gorm:"column:revenue_cents;not null;default:0"`
}

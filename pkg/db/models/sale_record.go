package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SaleRecord is an immutable financial ledger entry: one row per completed
// sale (direct or basket), never updated or deleted after creation. Line items
// snapshot name and prices at sale time so later product edits cannot rewrite
// history.
type SaleRecord struct {
	ID               uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	SellerID         uuid.UUID      `gorm:"column:seller_id;type:uuid;not null;index"`
	TotalAmountCents int64          `gorm:"column:total_amount_cents;not null"`
	TotalProfitCents int64          `gorm:"column:total_profit_cents;not null"`
	LineItems        []SaleLineItem `gorm:"foreignKey:SaleRecordID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time      `gorm:"column:created_at;autoCreateTime"`
}

// SaleLineItem is one basket line inside a SaleRecord.
type SaleLineItem struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SaleRecordID      uuid.UUID `gorm:"column:sale_record_id;type:uuid;not null;index"`
	ProductID         uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Name              string    `gorm:"column:name;not null"`
	Quantity          int       `gorm:"column:quantity;not null"`
	SellingPriceCents int64     `gorm:"column:selling_price_cents;not null"`
	CostPriceCents    int64     `gorm:"column:cost_price_cents;not null"`
	ProfitCents       int64     `gorm:"column:profit_cents;not null"`
	LineTotalCents    int64     `gorm:"column:line_total_cents;not null"`
	DepartmentID      string    `gorm:"column:department_id;not null;default:''"`
}

func (s *SaleRecord) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (li *SaleLineItem) BeforeCreate(*gorm.DB) error {
	if li.ID == uuid.Nil {
		li.ID = uuid.New()
	}
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbtypes "github.com/kwameasiedu/shopstack/pkg/db/types"
)

// Product is the canonical, seller-private catalog entry. Quantity is the
// contended field: sale transactions decrement it and the schema refuses
// negative values outright.
type Product struct {
	ID                uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	SellerID          uuid.UUID          `gorm:"column:seller_id;type:uuid;not null;index"`
	Name              string             `gorm:"column:name;not null"`
	Description       *string            `gorm:"column:description"`
	CostPriceCents    int64              `gorm:"column:cost_price_cents;not null;default:0"`
	SellingPriceCents int64              `gorm:"column:selling_price_cents;not null"`
	Quantity          int                `gorm:"column:quantity;not null;default:0;check:chk_products_quantity_non_negative,quantity >= 0"`
	CategoryID        string             `gorm:"column:category_id;not null;default:''"`
	DepartmentID      string             `gorm:"column:department_id;not null;default:''"`
	Images            dbtypes.StringList `gorm:"column:images;type:jsonb;not null;default:'[]'"`
	CreatedAt         time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

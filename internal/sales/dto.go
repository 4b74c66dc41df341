package sales

import (
	"time"

	"github.com/google/uuid"

	"github.com/kwameasiedu/shopstack/pkg/db/models"
)

// SaleDTO is the API representation of a recorded sale.
type SaleDTO struct {
	ID               uuid.UUID     `json:"id"`
	SellerID         uuid.UUID     `json:"seller_id"`
	TotalAmountCents int64         `json:"total_amount_cents"`
	TotalProfitCents int64         `json:"total_profit_cents"`
	Items            []SaleItemDTO `json:"items"`
	CreatedAt        time.Time     `json:"created_at"`
}

// SaleItemDTO is one line of a sale.
type SaleItemDTO struct {
	ProductID         uuid.UUID `json:"product_id"`
	Name              string    `json:"name"`
	Quantity          int       `json:"quantity"`
	SellingPriceCents int64     `json:"selling_price_cents"`
	LineTotalCents    int64     `json:"line_total_cents"`
	ProfitCents       int64     `json:"profit_cents"`
	DepartmentID      string    `json:"department_id"`
}

// NewSaleDTO maps a sale ledger row to its API shape.
func NewSaleDTO(record *models.SaleRecord) SaleDTO {
	items := make([]SaleItemDTO, 0, len(record.LineItems))
	for _, line := range record.LineItems {
		items = append(items, SaleItemDTO{
			ProductID:         line.ProductID,
			Name:              line.Name,
			Quantity:          line.Quantity,
			SellingPriceCents: line.SellingPriceCents,
			LineTotalCents:    line.LineTotalCents,
			ProfitCents:       line.ProfitCents,
			DepartmentID:      line.DepartmentID,
		})
	}
	return SaleDTO{
		ID:               record.ID,
		SellerID:         record.SellerID,
		TotalAmountCents: record.TotalAmountCents,
		TotalProfitCents: record.TotalProfitCents,
		Items:            items,
		CreatedAt:        record.CreatedAt,
	}
}

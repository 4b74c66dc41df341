package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/kwameasiedu/shopstack/pkg/db/models"
)

// ProductDTO is the API representation of a catalog product.
type ProductDTO struct {
	ID                uuid.UUID `json:"id"`
	SellerID          uuid.UUID `json:"seller_id"`
	Name              string    `json:"name"`
	Description       *string   `json:"description,omitempty"`
	CostPriceCents    int64     `json:"cost_price_cents"`
	SellingPriceCents int64     `json:"selling_price_cents"`
	Quantity          int       `json:"quantity"`
	CategoryID        string    `json:"category_id"`
	DepartmentID      string    `json:"department_id"`
	Images            []string  `json:"images"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// NewProductDTO maps a product row to its API shape.
func NewProductDTO(product *models.Product) ProductDTO {
	images := []string(product.Images)
	if images == nil {
		images = []string{}
	}
	return ProductDTO{
		ID:                product.ID,
		SellerID:          product.SellerID,
		Name:              product.Name,
		Description:       product.Description,
		CostPriceCents:    product.CostPriceCents,
		SellingPriceCents: product.SellingPriceCents,
		Quantity:          product.Quantity,
		CategoryID:        product.CategoryID,
		DepartmentID:      product.DepartmentID,
		Images:            images,
		CreatedAt:         product.CreatedAt,
		UpdatedAt:         product.UpdatedAt,
	}
}

package marketplace

import (
	"strings"
	"time"

	"github.com/kwameasiedu/shopstack/pkg/db/models"
	"github.com/kwameasiedu/shopstack/pkg/outbox/payloads"
)

// CategoryAll is the browse filter value that matches every category.
const CategoryAll = "all"

// BuildListing merges a product snapshot with the seller's display fields
// into a listing row. CreatedAt is left for the repository's first-write
// handling; UpdatedAt carries the snapshot's event time.
func BuildListing(snapshot *payloads.ProductSnapshot, display SellerDisplay, createdAt time.Time) *models.MarketplaceListing {
	images := snapshot.Images
	if images == nil {
		images = []string{}
	}
	return &models.MarketplaceListing{
		ProductID:         snapshot.ProductID,
		SellerID:          snapshot.SellerID,
		Name:              snapshot.Name,
		NameLower:         strings.ToLower(snapshot.Name),
		Description:       snapshot.Description,
		SellingPriceCents: snapshot.SellingPriceCents,
		Quantity:          snapshot.Quantity,
		Images:            images,
		CategoryID:        snapshot.CategoryID,
		DepartmentID:      snapshot.DepartmentID,
		BusinessName:      display.BusinessName,
		BusinessType:      display.BusinessType,
		Phone:             display.Phone,
		Address:           display.Address,
		Country:           display.Country,
		CurrencyName:      display.CurrencyName,
		CurrencySymbol:    display.CurrencySymbol,
		WhatsAppLink:      display.WhatsAppLink,
		CreatedAt:         createdAt,
		UpdatedAt:         snapshot.UpdatedAt,
	}
}

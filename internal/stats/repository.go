package stats

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kwameasiedu/shopstack/pkg/db/models"
)

// Repository reads the daily aggregates written by the sales recorder.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// LoadDay returns the aggregate and rollups for one seller-day. A day with
// no sales yields a zero-valued document, not an error.
func (r *Repository) LoadDay(ctx context.Context, sellerID uuid.UUID, day string) (dayDocument, error) {
	var agg models.DailyAggregate
	err := r.db.WithContext(ctx).
		First(&agg, "seller_id = ? AND day = ?", sellerID, day).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dayDocument{TopProducts: []dayProduct{}}, nil
		}
		return dayDocument{}, err
	}

	var rollups []models.DailyProductRollup
	err = r.db.WithContext(ctx).
		Where("seller_id = ? AND day = ?", sellerID, day).
		Order("quantity DESC").
		Order("product_id ASC").
		Find(&rollups).
		Error
	if err != nil {
		return dayDocument{}, err
	}

	products := make([]dayProduct, 0, len(rollups))
	for _, rollup := range rollups {
		products = append(products, dayProduct{
			ProductID:    rollup.ProductID.String(),
			Name:         rollup.Name,
			Quantity:     rollup.Quantity,
			RevenueCents: rollup.RevenueCents,
		})
	}

	return dayDocument{
		SalesCount:   agg.SalesCount,
		RevenueCents: agg.RevenueCents,
		ProfitCents:  agg.ProfitCents,
		TopProducts:  products,
	}, nil
}

// EarliestDay returns the first day with sales for the seller, or "" when
// the seller has none.
func (r *Repository) EarliestDay(ctx context.Context, sellerID uuid.UUID) (string, error) {
	var day *string
	err := r.db.WithContext(ctx).
		Model(&models.DailyAggregate{}).
		Where("seller_id = ?", sellerID).
		Select("MIN(day)").
		Scan(&day).
		Error
	if err != nil {
		return "", err
	}
	if day == nil {
		return "", nil
	}
	return *day, nil
}

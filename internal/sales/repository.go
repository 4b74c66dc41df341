package sales

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kwameasiedu/shopstack/pkg/db/models"
)

// Repository persists sale records and the daily aggregates they feed.
// All writes are additive so concurrent sales commute regardless of commit
// order.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindProductForSale loads the seller's product row inside the transaction.
func (r *Repository) FindProductForSale(ctx context.Context, sellerID, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		First(&product, "id = ? AND seller_id = ?", productID, sellerID).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// DecrementQuantity subtracts qty from the product's stock. The row CHECK
// constraint rejects the write if it would go negative.
func (r *Repository) DecrementQuantity(ctx context.Context, productID uuid.UUID, qty int) error {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity - ?", qty),
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateSaleRecord inserts the immutable sale ledger row and its line items.
func (r *Repository) CreateSaleRecord(ctx context.Context, record *models.SaleRecord) (*models.SaleRecord, error) {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// AddToDailyAggregate folds a sale into the seller's per-day totals.
func (r *Repository) AddToDailyAggregate(ctx context.Context, agg models.DailyAggregate) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "seller_id"}, {Name: "day"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"sales_count":   gorm.Expr("daily_aggregates.sales_count + excluded.sales_count"),
				"revenue_cents": gorm.Expr("daily_aggregates.revenue_cents + excluded.revenue_cents"),
				"profit_cents":  gorm.Expr("daily_aggregates.profit_cents + excluded.profit_cents"),
				"updated_at":    gorm.Expr("excluded.updated_at"),
			}),
		}).
		Create(&agg).Error
}

// AddToProductRollup folds a line item into the per-day product rollup.
func (r *Repository) AddToProductRollup(ctx context.Context, rollup models.DailyProductRollup) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "seller_id"}, {Name: "day"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity":      gorm.Expr("daily_product_rollups.quantity + excluded.quantity"),
				"revenue_cents": gorm.Expr("daily_product_rollups.revenue_cents + excluded.revenue_cents"),
				"name":          gorm.Expr("excluded.name"),
			}),
		}).
		Create(&rollup).Error
}

// ListSaleRecords returns the seller's sales newest-first.
func (r *Repository) ListSaleRecords(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.SaleRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.SaleRecord
	err := r.db.WithContext(ctx).
		Preload("LineItems").
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).
		Error
	return rows, err
}

// IsNotFound reports whether err is the gorm missing-record sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

package marketplace

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kwameasiedu/shopstack/pkg/db/models"
	"github.com/kwameasiedu/shopstack/pkg/pagination"
)

// Repository owns the marketplace_listings projection table. The reconciler
// is its only writer; the browse layer only reads.
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

// FindByID loads one listing by its product id.
func (r *Repository) FindByID(ctx context.Context, productID uuid.UUID) (*models.MarketplaceListing, error) {
	var listing models.MarketplaceListing
	err := r.db.WithContext(ctx).
		First(&listing, "product_id = ?", productID).
		Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// Upsert writes the denormalized listing. created_at and sold are set on
// first projection only; every later event overwrites the remaining fields.
func (r *Repository) Upsert(ctx context.Context, listing *models.MarketplaceListing) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"seller_id", "name", "name_lower", "description",
				"selling_price_cents", "quantity", "images",
				"category_id", "department_id",
				"business_name", "business_type", "phone", "address",
				"country", "currency_name", "currency_symbol", "whatsapp_link",
				"updated_at",
			}),
		}).
		Create(listing).
		Error
}

// IncrementSold adds delta to the listing's sold counter. A missing listing
// is not an error; the upsert in the same transaction creates it first.
func (r *Repository) IncrementSold(ctx context.Context, productID uuid.UUID, delta int64) error {
	return r.db.WithContext(ctx).
		Model(&models.MarketplaceListing{}).
		Where("product_id = ?", productID).
		UpdateColumn("sold", gorm.Expr("sold + ?", delta)).
		Error
}

// Delete removes a listing. Deleting an absent listing is a no-op.
func (r *Repository) Delete(ctx context.Context, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Delete(&models.MarketplaceListing{}).
		Error
}

// SellerDisplay is the denormalized seller slice of a listing.
type SellerDisplay struct {
	BusinessName   string
	BusinessType   string
	Phone          string
	Address        string
	Country        string
	CurrencyName   string
	CurrencySymbol string
	WhatsAppLink   string
}

// ApplySellerDisplay fans a profile change out to every listing the seller
// owns. The update is chunked by product id so a large catalog never holds
// one long row lock; chunk failures are collected, not short-circuited.
func (r *Repository) ApplySellerDisplay(ctx context.Context, sellerID uuid.UUID, display SellerDisplay, updatedAt time.Time, chunkSize int) error {
	if chunkSize <= 0 {
		chunkSize = 200
	}

	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.MarketplaceListing{}).
		Where("seller_id = ?", sellerID).
		Order("product_id ASC").
		Pluck("product_id", &ids).
		Error
	if err != nil {
		return err
	}

	assignments := map[string]any{
		"business_name":   display.BusinessName,
		"business_type":   display.BusinessType,
		"phone":           display.Phone,
		"address":         display.Address,
		"country":         display.Country,
		"currency_name":   display.CurrencyName,
		"currency_symbol": display.CurrencySymbol,
		"whatsapp_link":   display.WhatsAppLink,
		"updated_at":      updatedAt,
	}

	var errs error
	for start := 0; start < len(ids); start += chunkSize {
		end := start + chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		err := r.db.WithContext(ctx).
			Model(&models.MarketplaceListing{}).
			Where("product_id IN ?", ids[start:end]).
			Updates(assignments).
			Error
		if err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// ListByCategory pages listings newest-first. Category "all" (or empty)
// means no category filter.
func (r *Repository) ListByCategory(ctx context.Context, category string, cursor *pagination.RecencyCursor, limit int) ([]models.MarketplaceListing, error) {
	query := r.db.WithContext(ctx).Model(&models.MarketplaceListing{})
	if category != "" && category != CategoryAll {
		query = query.Where("category_id = ?", category)
	}
	if cursor != nil {
		query = query.Where(
			"(updated_at < ?) OR (updated_at = ? AND product_id < ?)",
			cursor.UpdatedAt, cursor.UpdatedAt, cursor.ID,
		)
	}

	var rows []models.MarketplaceListing
	err := query.
		Order("updated_at DESC").
		Order("product_id DESC").
		Limit(limit).
		Find(&rows).
		Error
	return rows, err
}

// SearchByNamePrefix pages listings whose lower-cased name starts with the
// given text, ordered by name.
func (r *Repository) SearchByNamePrefix(ctx context.Context, text string, cursor *pagination.NameCursor, limit int) ([]models.MarketplaceListing, error) {
	prefix := strings.ToLower(strings.TrimSpace(text))
	query := r.db.WithContext(ctx).
		Model(&models.MarketplaceListing{}).
		Where(`name_lower LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%")
	if cursor != nil {
		query = query.Where(
			"(name_lower > ?) OR (name_lower = ? AND product_id > ?)",
			cursor.NameLower, cursor.NameLower, cursor.ID,
		)
	}

	var rows []models.MarketplaceListing
	err := query.
		Order("name_lower ASC").
		Order("product_id ASC").
		Limit(limit).
		Find(&rows).
		Error
	return rows, err
}

// IsNotFound reports whether err means the listing does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

package sellers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kwameasiedu/shopstack/pkg/db/models"
)

// Repository persists seller profiles.
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

// Upsert creates the profile or overwrites its mutable columns.
func (r *Repository) Upsert(ctx context.Context, profile *models.SellerProfile) (*models.SellerProfile, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "seller_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"business_name", "business_type", "phone", "address", "country", "currency", "updated_at",
			}),
		}).
		Create(profile).Error
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// FindBySellerID loads a profile by its owner.
func (r *Repository) FindBySellerID(ctx context.Context, sellerID uuid.UUID) (*models.SellerProfile, error) {
	var profile models.SellerProfile
	if err := r.db.WithContext(ctx).First(&profile, "seller_id = ?", sellerID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// IsNotFound reports whether err is the gorm missing-record sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kwameasiedu/shopstack/pkg/db"
	"github.com/kwameasiedu/shopstack/pkg/db/models"
	dbtypes "github.com/kwameasiedu/shopstack/pkg/db/types"
	"github.com/kwameasiedu/shopstack/pkg/enums"
	pkgerrors "github.com/kwameasiedu/shopstack/pkg/errors"
	"github.com/kwameasiedu/shopstack/pkg/outbox"
	"github.com/kwameasiedu/shopstack/pkg/outbox/payloads"
)

// Service exposes seller catalog management. Every mutation queues a change
// event in the same transaction so the marketplace projection always
// converges to the catalog state.
type Service interface {
	CreateProduct(ctx context.Context, sellerID uuid.UUID, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, sellerID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, sellerID, productID uuid.UUID) error
	GetProduct(ctx context.Context, sellerID, productID uuid.UUID) (*ProductDTO, error)
	ListProducts(ctx context.Context, sellerID uuid.UUID) ([]ProductDTO, error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name              string
	Description       *string
	CostPriceCents    int64
	SellingPriceCents int64
	Quantity          int
	CategoryID        string
	DepartmentID      string
	Images            []string
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name              *string
	Description       *string
	CostPriceCents    *int64
	SellingPriceCents *int64
	Quantity          *int
	CategoryID        *string
	DepartmentID      *string
	Images            *[]string
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	emitter  eventEmitter
}

// NewService constructs a catalog service instance.
func NewService(repo *Repository, dbClient *db.Client, emitter eventEmitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &service{repo: repo, dbClient: dbClient, emitter: emitter}, nil
}

// CreateProduct inserts the product and queues a created event.
func (s *service) CreateProduct(ctx context.Context, sellerID uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	var created *models.Product
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		product := &models.Product{
			SellerID:          sellerID,
			Name:              input.Name,
			Description:       input.Description,
			CostPriceCents:    input.CostPriceCents,
			SellingPriceCents: input.SellingPriceCents,
			Quantity:          input.Quantity,
			CategoryID:        input.CategoryID,
			DepartmentID:      input.DepartmentID,
			Images:            dbtypes.StringList(input.Images),
		}

		row, err := txRepo.CreateProduct(ctx, product)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
		}
		created = row

		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProductCreated,
			AggregateType: enums.AggregateProduct,
			AggregateID:   row.ID,
			Actor:         &outbox.ActorRef{SellerID: sellerID},
			Version:       1,
			Data: payloads.ProductChangeEvent{
				ProductID: row.ID,
				SellerID:  sellerID,
				After:     SnapshotOf(row),
			},
		})
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}

	dto := NewProductDTO(created)
	return &dto, nil
}

// UpdateProduct applies partial changes and queues an updated event carrying
// before/after snapshots.
func (s *service) UpdateProduct(ctx context.Context, sellerID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	var updated *models.Product
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		product, err := txRepo.FindOwned(ctx, sellerID, productID)
		if err != nil {
			if IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
		}
		before := SnapshotOf(product)

		applyUpdate(product, input)
		if err := validateProduct(product); err != nil {
			return err
		}
		product.UpdatedAt = time.Now().UTC()

		row, err := txRepo.UpdateProduct(ctx, product)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
		}
		updated = row

		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProductUpdated,
			AggregateType: enums.AggregateProduct,
			AggregateID:   row.ID,
			Actor:         &outbox.ActorRef{SellerID: sellerID},
			Version:       1,
			Data: payloads.ProductChangeEvent{
				ProductID: row.ID,
				SellerID:  sellerID,
				Before:    before,
				After:     SnapshotOf(row),
			},
		})
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}

	dto := NewProductDTO(updated)
	return &dto, nil
}

// DeleteProduct removes the product and queues a deleted event.
func (s *service) DeleteProduct(ctx context.Context, sellerID, productID uuid.UUID) error {
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		product, err := txRepo.FindOwned(ctx, sellerID, productID)
		if err != nil {
			if IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
		}
		before := SnapshotOf(product)

		if err := txRepo.DeleteProduct(ctx, productID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product")
		}

		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProductDeleted,
			AggregateType: enums.AggregateProduct,
			AggregateID:   productID,
			Actor:         &outbox.ActorRef{SellerID: sellerID},
			Version:       1,
			Data: payloads.ProductChangeEvent{
				ProductID: productID,
				SellerID:  sellerID,
				Before:    before,
			},
		})
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}

// GetProduct loads a single product owned by the seller.
func (s *service) GetProduct(ctx context.Context, sellerID, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindOwned(ctx, sellerID, productID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	dto := NewProductDTO(product)
	return &dto, nil
}

// ListProducts returns the seller's catalog newest-first.
func (s *service) ListProducts(ctx context.Context, sellerID uuid.UUID) ([]ProductDTO, error) {
	rows, err := s.repo.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list products")
	}
	dtos := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, NewProductDTO(&rows[i]))
	}
	return dtos, nil
}

func applyUpdate(product *models.Product, input UpdateProductInput) {
	if input.Name != nil {
		product.Name = *input.Name
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.CostPriceCents != nil {
		product.CostPriceCents = *input.CostPriceCents
	}
	if input.SellingPriceCents != nil {
		product.SellingPriceCents = *input.SellingPriceCents
	}
	if input.Quantity != nil {
		product.Quantity = *input.Quantity
	}
	if input.CategoryID != nil {
		product.CategoryID = *input.CategoryID
	}
	if input.DepartmentID != nil {
		product.DepartmentID = *input.DepartmentID
	}
	if input.Images != nil {
		product.Images = dbtypes.StringList(*input.Images)
	}
}

func validateCreate(input CreateProductInput) error {
	if input.Name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.Quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if input.SellingPriceCents < 0 || input.CostPriceCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "prices cannot be negative")
	}
	return nil
}

func validateProduct(product *models.Product) error {
	if product.Name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if product.Quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if product.SellingPriceCents < 0 || product.CostPriceCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "prices cannot be negative")
	}
	return nil
}

// SnapshotOf captures the listing-relevant fields of a product row.
func SnapshotOf(product *models.Product) *payloads.ProductSnapshot {
	if product == nil {
		return nil
	}
	description := ""
	if product.Description != nil {
		description = *product.Description
	}
	return &payloads.ProductSnapshot{
		ProductID:         product.ID,
		SellerID:          product.SellerID,
		Name:              product.Name,
		Description:       description,
		SellingPriceCents: product.SellingPriceCents,
		Quantity:          product.Quantity,
		CategoryID:        product.CategoryID,
		DepartmentID:      product.DepartmentID,
		Images:            []string(product.Images),
		UpdatedAt:         product.UpdatedAt,
	}
}

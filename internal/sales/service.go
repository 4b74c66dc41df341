package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kwameasiedu/shopstack/internal/catalog"
	"github.com/kwameasiedu/shopstack/pkg/db"
	"github.com/kwameasiedu/shopstack/pkg/db/models"
	"github.com/kwameasiedu/shopstack/pkg/enums"
	pkgerrors "github.com/kwameasiedu/shopstack/pkg/errors"
	"github.com/kwameasiedu/shopstack/pkg/outbox"
	"github.com/kwameasiedu/shopstack/pkg/outbox/payloads"
)

// DayKeyLayout formats the calendar bucket daily aggregates are keyed by.
const DayKeyLayout = "2006-01-02"

// Service records sales. Every sale commits its ledger row, the stock
// decrement, the daily aggregate increments, and the change event in one
// serializable transaction, so a buyer either gets all effects or none.
type Service interface {
	RecordDirectSale(ctx context.Context, sellerID uuid.UUID, item SaleItemInput) (*SaleDTO, error)
	RecordBasketSale(ctx context.Context, sellerID uuid.UUID, items []SaleItemInput) (*SaleDTO, error)
	ListSales(ctx context.Context, sellerID uuid.UUID, limit int) ([]SaleDTO, error)
}

// SaleItemInput identifies a product and the quantity sold. UnitPriceCents
// overrides the catalog selling price for this sale only (a haggled price);
// the canonical Product row is never touched by it.
type SaleItemInput struct {
	ProductID      uuid.UUID
	Quantity       int
	UnitPriceCents *int64
}

// OutOfStockDetails explains a rejected sale.
type OutOfStockDetails struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Available int       `json:"available"`
	Requested int       `json:"requested"`
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	emitter  eventEmitter
	now      func() time.Time
}

// NewService constructs a sales service instance.
func NewService(repo *Repository, dbClient *db.Client, emitter eventEmitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &service{
		repo:     repo,
		dbClient: dbClient,
		emitter:  emitter,
		now:      time.Now,
	}, nil
}

// RecordDirectSale sells a single product at the counter.
func (s *service) RecordDirectSale(ctx context.Context, sellerID uuid.UUID, item SaleItemInput) (*SaleDTO, error) {
	return s.recordSale(ctx, sellerID, []SaleItemInput{item})
}

// RecordBasketSale sells a basket of products. Stock for every item is
// re-checked inside the transaction; any shortfall aborts the whole basket.
func (s *service) RecordBasketSale(ctx context.Context, sellerID uuid.UUID, items []SaleItemInput) (*SaleDTO, error) {
	return s.recordSale(ctx, sellerID, items)
}

func (s *service) recordSale(ctx context.Context, sellerID uuid.UUID, items []SaleItemInput) (*SaleDTO, error) {
	merged, err := mergeItems(items)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	day := now.Format(DayKeyLayout)

	var record *models.SaleRecord
	if err := s.dbClient.WithSerializableTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		lineItems := make([]models.SaleLineItem, 0, len(merged))
		events := make([]outbox.DomainEvent, 0, len(merged))
		var totalAmount, totalProfit, totalUnits int64

		for _, item := range merged {
			product, err := txRepo.FindProductForSale(ctx, sellerID, item.ProductID)
			if err != nil {
				if IsNotFound(err) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
			}
			if product.Quantity < item.Quantity {
				return pkgerrors.New(pkgerrors.CodeOutOfStock, "insufficient stock").
					WithDetails(OutOfStockDetails{
						ProductID: product.ID,
						Name:      product.Name,
						Available: product.Quantity,
						Requested: item.Quantity,
					})
			}

			before := catalog.SnapshotOf(product)

			if err := txRepo.DecrementQuantity(ctx, product.ID, item.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: decrement stock")
			}

			after := catalog.SnapshotOf(product)
			after.Quantity = product.Quantity - item.Quantity
			after.UpdatedAt = now

			unitPrice := product.SellingPriceCents
			if item.UnitPriceCents != nil {
				unitPrice = *item.UnitPriceCents
			}

			qty := int64(item.Quantity)
			lineTotal := unitPrice * qty
			profit := (unitPrice - product.CostPriceCents) * qty
			totalAmount += lineTotal
			totalProfit += profit
			totalUnits += qty

			lineItems = append(lineItems, models.SaleLineItem{
				ProductID:         product.ID,
				Name:              product.Name,
				Quantity:          item.Quantity,
				SellingPriceCents: unitPrice,
				CostPriceCents:    product.CostPriceCents,
				ProfitCents:       profit,
				LineTotalCents:    lineTotal,
				DepartmentID:      product.DepartmentID,
			})

			events = append(events, outbox.DomainEvent{
				EventType:     enums.EventProductUpdated,
				AggregateType: enums.AggregateProduct,
				AggregateID:   product.ID,
				Actor:         &outbox.ActorRef{SellerID: sellerID},
				Version:       1,
				OccurredAt:    now,
				Data: payloads.ProductChangeEvent{
					ProductID: product.ID,
					SellerID:  sellerID,
					Before:    before,
					After:     after,
				},
			})

			if err := txRepo.AddToProductRollup(ctx, models.DailyProductRollup{
				SellerID:     sellerID,
				Day:          day,
				ProductID:    product.ID,
				Name:         product.Name,
				Quantity:     qty,
				RevenueCents: lineTotal,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: upsert product rollup")
			}
		}

		row, err := txRepo.CreateSaleRecord(ctx, &models.SaleRecord{
			SellerID:         sellerID,
			TotalAmountCents: totalAmount,
			TotalProfitCents: totalProfit,
			LineItems:        lineItems,
			CreatedAt:        now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert sale record")
		}
		record = row

		// salesCount counts units sold, not transactions
		if err := txRepo.AddToDailyAggregate(ctx, models.DailyAggregate{
			SellerID:     sellerID,
			Day:          day,
			SalesCount:   totalUnits,
			RevenueCents: totalAmount,
			ProfitCents:  totalProfit,
			UpdatedAt:    now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: upsert daily aggregate")
		}

		for _, event := range events {
			if err := s.emitter.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue change event")
			}
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record sale")
	}

	dto := NewSaleDTO(record)
	return &dto, nil
}

// ListSales returns the seller's sale history newest-first.
func (s *service) ListSales(ctx context.Context, sellerID uuid.UUID, limit int) ([]SaleDTO, error) {
	rows, err := s.repo.ListSaleRecords(ctx, sellerID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list sales")
	}
	dtos := make([]SaleDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, NewSaleDTO(&rows[i]))
	}
	return dtos, nil
}

// mergeItems folds duplicate product entries into one line so stock checks
// see the basket's true demand.
func mergeItems(items []SaleItemInput) ([]SaleItemInput, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	index := make(map[uuid.UUID]int, len(items))
	merged := make([]SaleItemInput, 0, len(items))
	for _, item := range items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		if item.UnitPriceCents != nil && *item.UnitPriceCents <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must be positive")
		}
		if at, ok := index[item.ProductID]; ok {
			if !samePrice(merged[at].UnitPriceCents, item.UnitPriceCents) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "conflicting unit prices for the same product")
			}
			merged[at].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	return merged, nil
}

func samePrice(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

package sales

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kwameasiedu/shopstack/pkg/db"
	"github.com/kwameasiedu/shopstack/pkg/db/models"
	"github.com/kwameasiedu/shopstack/pkg/enums"
	pkgerrors "github.com/kwameasiedu/shopstack/pkg/errors"
	"github.com/kwameasiedu/shopstack/pkg/outbox"
	"github.com/kwameasiedu/shopstack/pkg/outbox/payloads"
)

type recordingEmitter struct {
	events []outbox.DomainEvent
}

func (r *recordingEmitter) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:sales_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.Product{},
		&models.SaleRecord{},
		&models.SaleLineItem{},
		&models.DailyAggregate{},
		&models.DailyProductRollup{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func newTestService(t *testing.T, at time.Time) (*service, *gorm.DB, *recordingEmitter) {
	t.Helper()
	conn := newTestDB(t)
	emitter := &recordingEmitter{}
	svc := &service{
		repo:     NewRepository(conn),
		dbClient: db.NewFromConn(conn),
		emitter:  emitter,
		now:      func() time.Time { return at },
	}
	return svc, conn, emitter
}

func seedProduct(t *testing.T, conn *gorm.DB, sellerID uuid.UUID, name string, qty int, selling, cost int64) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:                uuid.New(),
		SellerID:          sellerID,
		Name:              name,
		Quantity:          qty,
		SellingPriceCents: selling,
		CostPriceCents:    cost,
		DepartmentID:      "food",
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func TestDirectSaleDepletesStockThenRejects(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	svc, conn, _ := newTestService(t, at)
	ctx := context.Background()
	sellerID := uuid.New()
	product := seedProduct(t, conn, sellerID, "Sugar", 3, 500, 300)

	for i := 0; i < 3; i++ {
		if _, err := svc.RecordDirectSale(ctx, sellerID, SaleItemInput{ProductID: product.ID, Quantity: 1}); err != nil {
			t.Fatalf("sale %d: %v", i+1, err)
		}
	}

	_, err := svc.RecordDirectSale(ctx, sellerID, SaleItemInput{ProductID: product.ID, Quantity: 1})
	if !pkgerrors.IsCode(err, pkgerrors.CodeOutOfStock) {
		t.Fatalf("expected out of stock, got %v", err)
	}
	details, ok := pkgerrors.As(err).Details().(OutOfStockDetails)
	if !ok {
		t.Fatalf("unexpected details type %T", pkgerrors.As(err).Details())
	}
	if details.Available != 0 || details.Requested != 1 {
		t.Fatalf("unexpected details %+v", details)
	}

	var row models.Product
	if err := conn.First(&row, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if row.Quantity != 0 {
		t.Fatalf("expected quantity 0, got %d", row.Quantity)
	}

	var agg models.DailyAggregate
	if err := conn.First(&agg, "seller_id = ? AND day = ?", sellerID, "2026-03-14").Error; err != nil {
		t.Fatalf("load aggregate: %v", err)
	}
	if agg.SalesCount != 3 || agg.RevenueCents != 1500 || agg.ProfitCents != 600 {
		t.Fatalf("unexpected aggregate %+v", agg)
	}
}

func TestRejectedSaleLeavesNoTrace(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	svc, conn, emitter := newTestService(t, at)
	ctx := context.Background()
	sellerID := uuid.New()
	product := seedProduct(t, conn, sellerID, "Rice", 2, 1000, 700)

	_, err := svc.RecordDirectSale(ctx, sellerID, SaleItemInput{ProductID: product.ID, Quantity: 5})
	if !pkgerrors.IsCode(err, pkgerrors.CodeOutOfStock) {
		t.Fatalf("expected out of stock, got %v", err)
	}

	var sales, aggs int64
	conn.Model(&models.SaleRecord{}).Count(&sales)
	conn.Model(&models.DailyAggregate{}).Count(&aggs)
	if sales != 0 || aggs != 0 {
		t.Fatalf("expected no writes after rejection, got sales=%d aggs=%d", sales, aggs)
	}
	if len(emitter.events) != 0 {
		t.Fatalf("expected no events after rejection, got %d", len(emitter.events))
	}

	var row models.Product
	if err := conn.First(&row, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if row.Quantity != 2 {
		t.Fatalf("expected stock untouched, got %d", row.Quantity)
	}
}

func TestBasketSaleTotalsAndDecrements(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	svc, conn, emitter := newTestService(t, at)
	ctx := context.Background()
	sellerID := uuid.New()
	sugar := seedProduct(t, conn, sellerID, "Sugar", 10, 50, 30)
	flour := seedProduct(t, conn, sellerID, "Flour", 5, 60, 40)

	dto, err := svc.RecordBasketSale(ctx, sellerID, []SaleItemInput{
		{ProductID: sugar.ID, Quantity: 1},
		{ProductID: flour.ID, Quantity: 3},
	})
	if err != nil {
		t.Fatalf("RecordBasketSale: %v", err)
	}
	if dto.TotalAmountCents != 230 {
		t.Fatalf("expected total 230, got %d", dto.TotalAmountCents)
	}
	if dto.TotalProfitCents != 80 {
		t.Fatalf("expected profit 80, got %d", dto.TotalProfitCents)
	}
	if len(dto.Items) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(dto.Items))
	}

	var sugarRow, flourRow models.Product
	conn.First(&sugarRow, "id = ?", sugar.ID)
	conn.First(&flourRow, "id = ?", flour.ID)
	if sugarRow.Quantity != 9 || flourRow.Quantity != 2 {
		t.Fatalf("unexpected stock: sugar=%d flour=%d", sugarRow.Quantity, flourRow.Quantity)
	}

	// sales count is the basket's unit total, not one per checkout
	var agg models.DailyAggregate
	if err := conn.First(&agg, "seller_id = ? AND day = ?", sellerID, "2026-03-14").Error; err != nil {
		t.Fatalf("load aggregate: %v", err)
	}
	if agg.SalesCount != 4 {
		t.Fatalf("expected 4 units counted, got %d", agg.SalesCount)
	}

	// one change event per product, each carrying the quantity delta
	if len(emitter.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(emitter.events))
	}
	for _, event := range emitter.events {
		if event.EventType != enums.EventProductUpdated {
			t.Fatalf("unexpected event type %s", event.EventType)
		}
		change := event.Data.(payloads.ProductChangeEvent)
		if change.Before == nil || change.After == nil {
			t.Fatal("expected before and after snapshots")
		}
		if change.Before.Quantity <= change.After.Quantity {
			t.Fatalf("expected quantity decrease, before=%d after=%d", change.Before.Quantity, change.After.Quantity)
		}
	}
}

func TestBasketSaleAbortsWhenAnyItemShort(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	svc, conn, _ := newTestService(t, at)
	ctx := context.Background()
	sellerID := uuid.New()
	sugar := seedProduct(t, conn, sellerID, "Sugar", 10, 50, 30)
	flour := seedProduct(t, conn, sellerID, "Flour", 1, 60, 40)

	_, err := svc.RecordBasketSale(ctx, sellerID, []SaleItemInput{
		{ProductID: sugar.ID, Quantity: 2},
		{ProductID: flour.ID, Quantity: 3},
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeOutOfStock) {
		t.Fatalf("expected out of stock, got %v", err)
	}

	var sugarRow models.Product
	conn.First(&sugarRow, "id = ?", sugar.ID)
	if sugarRow.Quantity != 10 {
		t.Fatalf("expected sugar stock untouched after abort, got %d", sugarRow.Quantity)
	}
}

func TestBasketMergesDuplicateItems(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	svc, conn, _ := newTestService(t, at)
	ctx := context.Background()
	sellerID := uuid.New()
	sugar := seedProduct(t, conn, sellerID, "Sugar", 3, 50, 30)

	_, err := svc.RecordBasketSale(ctx, sellerID, []SaleItemInput{
		{ProductID: sugar.ID, Quantity: 2},
		{ProductID: sugar.ID, Quantity: 2},
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeOutOfStock) {
		t.Fatalf("expected merged demand of 4 to exceed stock of 3, got %v", err)
	}
}

func TestSaleScopedToSeller(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	svc, conn, _ := newTestService(t, at)
	ctx := context.Background()
	owner := uuid.New()
	product := seedProduct(t, conn, owner, "Salt", 5, 20, 10)

	_, err := svc.RecordDirectSale(ctx, uuid.New(), SaleItemInput{ProductID: product.ID, Quantity: 1})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for foreign seller, got %v", err)
	}
}

func TestDailyAggregateAdditiveAcrossSales(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	svc, conn, _ := newTestService(t, at)
	ctx := context.Background()
	sellerID := uuid.New()
	sugar := seedProduct(t, conn, sellerID, "Sugar", 100, 50, 30)
	flour := seedProduct(t, conn, sellerID, "Flour", 100, 60, 40)

	if _, err := svc.RecordDirectSale(ctx, sellerID, SaleItemInput{ProductID: sugar.ID, Quantity: 2}); err != nil {
		t.Fatalf("sale 1: %v", err)
	}
	if _, err := svc.RecordDirectSale(ctx, sellerID, SaleItemInput{ProductID: flour.ID, Quantity: 1}); err != nil {
		t.Fatalf("sale 2: %v", err)
	}
	if _, err := svc.RecordDirectSale(ctx, sellerID, SaleItemInput{ProductID: sugar.ID, Quantity: 1}); err != nil {
		t.Fatalf("sale 3: %v", err)
	}

	var agg models.DailyAggregate
	if err := conn.First(&agg, "seller_id = ? AND day = ?", sellerID, "2026-03-14").Error; err != nil {
		t.Fatalf("load aggregate: %v", err)
	}
	if agg.SalesCount != 4 {
		t.Fatalf("expected 4 units across the three sales, got %d", agg.SalesCount)
	}
	if agg.RevenueCents != 2*50+60+50 {
		t.Fatalf("unexpected revenue %d", agg.RevenueCents)
	}

	var rollup models.DailyProductRollup
	if err := conn.First(&rollup, "seller_id = ? AND day = ? AND product_id = ?", sellerID, "2026-03-14", sugar.ID).Error; err != nil {
		t.Fatalf("load rollup: %v", err)
	}
	if rollup.Quantity != 3 || rollup.RevenueCents != 150 {
		t.Fatalf("unexpected rollup %+v", rollup)
	}
}

func TestListSalesNewestFirst(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	svc, conn, _ := newTestService(t, at)
	ctx := context.Background()
	sellerID := uuid.New()
	sugar := seedProduct(t, conn, sellerID, "Sugar", 100, 50, 30)

	for i := 0; i < 2; i++ {
		if _, err := svc.RecordDirectSale(ctx, sellerID, SaleItemInput{ProductID: sugar.ID, Quantity: 1}); err != nil {
			t.Fatalf("sale: %v", err)
		}
	}

	rows, err := svc.ListSales(ctx, sellerID, 10)
	if err != nil {
		t.Fatalf("ListSales: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 sales, got %d", len(rows))
	}
	if len(rows[0].Items) != 1 {
		t.Fatalf("expected line items preloaded, got %d", len(rows[0].Items))
	}
}

func TestMergeItemsValidation(t *testing.T) {
	t.Parallel()

	if _, err := mergeItems(nil); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for empty basket, got %v", err)
	}
	if _, err := mergeItems([]SaleItemInput{{ProductID: uuid.New(), Quantity: 0}}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for zero quantity, got %v", err)
	}
	if _, err := mergeItems([]SaleItemInput{{ProductID: uuid.Nil, Quantity: 1}}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for nil product, got %v", err)
	}

	zero := int64(0)
	if _, err := mergeItems([]SaleItemInput{{ProductID: uuid.New(), Quantity: 1, UnitPriceCents: &zero}}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for non-positive price, got %v", err)
	}

	id := uuid.New()
	low, high := int64(900), int64(950)
	if _, err := mergeItems([]SaleItemInput{
		{ProductID: id, Quantity: 1, UnitPriceCents: &low},
		{ProductID: id, Quantity: 1, UnitPriceCents: &high},
	}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for conflicting prices, got %v", err)
	}
}

func TestDirectSaleHonorsEditedPrice(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	svc, conn, _ := newTestService(t, at)
	ctx := context.Background()
	sellerID := uuid.New()
	product := seedProduct(t, conn, sellerID, "Cloth", 5, 1000, 600)

	haggled := int64(900)
	dto, err := svc.RecordDirectSale(ctx, sellerID, SaleItemInput{
		ProductID:      product.ID,
		Quantity:       2,
		UnitPriceCents: &haggled,
	})
	if err != nil {
		t.Fatalf("RecordDirectSale: %v", err)
	}
	if dto.TotalAmountCents != 1800 {
		t.Fatalf("expected total 1800 at haggled price, got %d", dto.TotalAmountCents)
	}
	if dto.TotalProfitCents != 600 {
		t.Fatalf("expected profit 600 at haggled price, got %d", dto.TotalProfitCents)
	}
	if len(dto.Items) != 1 || dto.Items[0].SellingPriceCents != 900 {
		t.Fatalf("expected line item at 900, got %+v", dto.Items)
	}

	// the haggled price applies to this sale only
	var row models.Product
	if err := conn.First(&row, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if row.SellingPriceCents != 1000 {
		t.Fatalf("expected catalog price untouched, got %d", row.SellingPriceCents)
	}

	var agg models.DailyAggregate
	if err := conn.First(&agg, "seller_id = ? AND day = ?", sellerID, "2026-03-14").Error; err != nil {
		t.Fatalf("load aggregate: %v", err)
	}
	if agg.RevenueCents != 1800 || agg.ProfitCents != 600 {
		t.Fatalf("unexpected aggregate %+v", agg)
	}
}

package projector

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kwameasiedu/shopstack/internal/marketplace"
	"github.com/kwameasiedu/shopstack/internal/sellers"
	"github.com/kwameasiedu/shopstack/pkg/db"
	"github.com/kwameasiedu/shopstack/pkg/db/models"
	"github.com/kwameasiedu/shopstack/pkg/enums"
	"github.com/kwameasiedu/shopstack/pkg/logger"
	"github.com/kwameasiedu/shopstack/pkg/outbox"
	"github.com/kwameasiedu/shopstack/pkg/outbox/idempotency"
	"github.com/kwameasiedu/shopstack/pkg/outbox/payloads"
)

type memoryStore struct {
	keys map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{keys: make(map[string]string)}
}

func (s *memoryStore) Get(_ context.Context, key string) (string, error) {
	return s.keys[key], nil
}

func (s *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := s.keys[key]; ok {
		return false, nil
	}
	s.keys[key] = value.(string)
	return true, nil
}

func (s *memoryStore) IdempotencyKey(scope, id string) string {
	return "ss:idempotency:" + scope + ":" + id
}

func (s *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.keys, key)
	}
	return nil
}

func newTestProjector(t *testing.T) (*Projector, *gorm.DB) {
	t.Helper()
	dsn := "file:projector_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.MarketplaceListing{}, &models.SellerProfile{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	manager, err := idempotency.NewManager(newMemoryStore(), time.Hour)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	proj := &Projector{
		dbClient:    db.NewFromConn(conn),
		listings:    marketplace.NewRepository(conn),
		profiles:    sellers.NewRepository(conn),
		idempotency: manager,
		decoders:    newDecoderRegistry(),
		logg:        logger.New(logger.Options{ServiceName: "projector-test", Output: io.Discard}),
		fanoutChunk: 2,
	}
	return proj, conn
}

func snapshot(productID, sellerID uuid.UUID, name string, price int64, quantity int, at time.Time) *payloads.ProductSnapshot {
	return &payloads.ProductSnapshot{
		ProductID:         productID,
		SellerID:          sellerID,
		Name:              name,
		Description:       "desc",
		SellingPriceCents: price,
		Quantity:          quantity,
		CategoryID:        "beverages",
		DepartmentID:      "grocery",
		Images:            []string{"img-1"},
		UpdatedAt:         at,
	}
}

func changeMessage(t *testing.T, eventType enums.OutboxEventType, payload any) *pubsub.Message {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		Data:       data,
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return &pubsub.Message{
		ID:         uuid.NewString(),
		Data:       raw,
		Attributes: map[string]string{"event_type": string(eventType)},
	}
}

func loadListing(t *testing.T, conn *gorm.DB, productID uuid.UUID) models.MarketplaceListing {
	t.Helper()
	var listing models.MarketplaceListing
	if err := conn.First(&listing, "product_id = ?", productID).Error; err != nil {
		t.Fatalf("load listing: %v", err)
	}
	return listing
}

func TestProjectCreateThenUpdatePreservesCreatedAt(t *testing.T) {
	t.Parallel()

	proj, conn := newTestProjector(t)
	ctx := context.Background()
	productID := uuid.New()
	sellerID := uuid.New()

	if err := conn.Create(&models.SellerProfile{
		SellerID:     sellerID,
		BusinessName: "Ama Provisions",
		Phone:        "+233 24 000 0000",
		Currency:     enums.CurrencyGHS,
	}).Error; err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	createdAt := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	created := changeMessage(t, enums.EventProductCreated, payloads.ProductChangeEvent{
		ProductID: productID,
		SellerID:  sellerID,
		After:     snapshot(productID, sellerID, "Blue Soap", 500, 10, createdAt),
	})
	if result := proj.process(ctx, created); !result.ack || result.nack {
		t.Fatalf("expected ack on create, got %+v", result)
	}

	listing := loadListing(t, conn, productID)
	if listing.NameLower != "blue soap" || listing.BusinessName != "Ama Provisions" {
		t.Fatalf("unexpected listing %+v", listing)
	}
	if listing.WhatsAppLink != "https://wa.me/233240000000" {
		t.Fatalf("unexpected whatsapp link %q", listing.WhatsAppLink)
	}
	if !listing.CreatedAt.Equal(createdAt) {
		t.Fatalf("created_at = %v, want %v", listing.CreatedAt, createdAt)
	}

	updatedAt := createdAt.Add(48 * time.Hour)
	updated := changeMessage(t, enums.EventProductUpdated, payloads.ProductChangeEvent{
		ProductID: productID,
		SellerID:  sellerID,
		Before:    snapshot(productID, sellerID, "Blue Soap", 500, 10, createdAt),
		After:     snapshot(productID, sellerID, "Blue Soap XL", 600, 10, updatedAt),
	})
	if result := proj.process(ctx, updated); !result.ack {
		t.Fatalf("expected ack on update, got %+v", result)
	}

	listing = loadListing(t, conn, productID)
	if listing.Name != "Blue Soap XL" || listing.SellingPriceCents != 600 {
		t.Fatalf("update not applied: %+v", listing)
	}
	if !listing.CreatedAt.Equal(createdAt) {
		t.Fatalf("created_at overwritten: %v", listing.CreatedAt)
	}
	if !listing.UpdatedAt.Equal(updatedAt) {
		t.Fatalf("updated_at = %v, want %v", listing.UpdatedAt, updatedAt)
	}
}

func TestQuantityDecreaseIncrementsSold(t *testing.T) {
	t.Parallel()

	proj, conn := newTestProjector(t)
	ctx := context.Background()
	productID := uuid.New()
	sellerID := uuid.New()
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	created := changeMessage(t, enums.EventProductCreated, payloads.ProductChangeEvent{
		ProductID: productID,
		SellerID:  sellerID,
		After:     snapshot(productID, sellerID, "Sugar", 300, 10, at),
	})
	if result := proj.process(ctx, created); !result.ack {
		t.Fatalf("create: %+v", result)
	}

	sale := changeMessage(t, enums.EventProductUpdated, payloads.ProductChangeEvent{
		ProductID: productID,
		SellerID:  sellerID,
		Before:    snapshot(productID, sellerID, "Sugar", 300, 10, at),
		After:     snapshot(productID, sellerID, "Sugar", 300, 7, at.Add(time.Hour)),
	})
	if result := proj.process(ctx, sale); !result.ack {
		t.Fatalf("sale event: %+v", result)
	}
	if got := loadListing(t, conn, productID).Sold; got != 3 {
		t.Fatalf("sold = %d, want 3", got)
	}

	restock := changeMessage(t, enums.EventProductUpdated, payloads.ProductChangeEvent{
		ProductID: productID,
		SellerID:  sellerID,
		Before:    snapshot(productID, sellerID, "Sugar", 300, 7, at.Add(time.Hour)),
		After:     snapshot(productID, sellerID, "Sugar", 300, 20, at.Add(2*time.Hour)),
	})
	if result := proj.process(ctx, restock); !result.ack {
		t.Fatalf("restock event: %+v", result)
	}
	if got := loadListing(t, conn, productID).Sold; got != 3 {
		t.Fatalf("restock must not change sold, got %d", got)
	}
}

func TestRedeliveredEventIsSkipped(t *testing.T) {
	t.Parallel()

	proj, conn := newTestProjector(t)
	ctx := context.Background()
	productID := uuid.New()
	sellerID := uuid.New()
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	created := changeMessage(t, enums.EventProductCreated, payloads.ProductChangeEvent{
		ProductID: productID,
		SellerID:  sellerID,
		After:     snapshot(productID, sellerID, "Sugar", 300, 10, at),
	})
	if result := proj.process(ctx, created); !result.ack {
		t.Fatalf("create: %+v", result)
	}

	sale := changeMessage(t, enums.EventProductUpdated, payloads.ProductChangeEvent{
		ProductID: productID,
		SellerID:  sellerID,
		Before:    snapshot(productID, sellerID, "Sugar", 300, 10, at),
		After:     snapshot(productID, sellerID, "Sugar", 300, 8, at.Add(time.Hour)),
	})
	if result := proj.process(ctx, sale); !result.ack {
		t.Fatalf("first delivery: %+v", result)
	}
	// same message redelivered
	if result := proj.process(ctx, sale); !result.ack {
		t.Fatalf("redelivery must ack, got %+v", result)
	}
	if got := loadListing(t, conn, productID).Sold; got != 2 {
		t.Fatalf("redelivery double-counted sold: %d", got)
	}
}

func TestProductDeletedRemovesListing(t *testing.T) {
	t.Parallel()

	proj, conn := newTestProjector(t)
	ctx := context.Background()
	productID := uuid.New()
	sellerID := uuid.New()
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	created := changeMessage(t, enums.EventProductCreated, payloads.ProductChangeEvent{
		ProductID: productID,
		SellerID:  sellerID,
		After:     snapshot(productID, sellerID, "Sugar", 300, 10, at),
	})
	if result := proj.process(ctx, created); !result.ack {
		t.Fatalf("create: %+v", result)
	}

	deleted := changeMessage(t, enums.EventProductDeleted, payloads.ProductChangeEvent{
		ProductID: productID,
		SellerID:  sellerID,
		Before:    snapshot(productID, sellerID, "Sugar", 300, 10, at),
	})
	if result := proj.process(ctx, deleted); !result.ack {
		t.Fatalf("delete: %+v", result)
	}

	var count int64
	if err := conn.Model(&models.MarketplaceListing{}).Where("product_id = ?", productID).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatal("listing survived delete event")
	}

	// deleting an already-removed listing is a no-op on redelivery
	if result := proj.process(ctx, changeMessage(t, enums.EventProductDeleted, payloads.ProductChangeEvent{
		ProductID: productID,
		SellerID:  sellerID,
	})); !result.ack {
		t.Fatalf("redelivered delete: %+v", result)
	}
}

func TestSellerProfileFanOutUpdatesAllListings(t *testing.T) {
	t.Parallel()

	proj, conn := newTestProjector(t)
	ctx := context.Background()
	sellerID := uuid.New()
	otherSeller := uuid.New()
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	// five listings for the seller so the chunk size of 2 forces multiple batches
	for i := 0; i < 5; i++ {
		msg := changeMessage(t, enums.EventProductCreated, payloads.ProductChangeEvent{
			ProductID: uuid.New(),
			SellerID:  sellerID,
			After:     snapshot(uuid.New(), sellerID, "Item", 100, 1, at),
		})
		if result := proj.process(ctx, msg); !result.ack {
			t.Fatalf("seed listing %d: %+v", i, result)
		}
	}
	foreign := changeMessage(t, enums.EventProductCreated, payloads.ProductChangeEvent{
		ProductID: uuid.New(),
		SellerID:  otherSeller,
		After:     snapshot(uuid.New(), otherSeller, "Foreign", 100, 1, at),
	})
	if result := proj.process(ctx, foreign); !result.ack {
		t.Fatalf("seed foreign listing: %+v", result)
	}

	profile := changeMessage(t, enums.EventSellerProfileUpdated, payloads.SellerProfileUpdatedEvent{
		SellerID:       sellerID,
		BusinessName:   "Kofi Traders",
		Phone:          "+233 20 111 2222",
		Country:        "GH",
		CurrencyName:   "GHS",
		CurrencySymbol: "GH₵",
		WhatsAppLink:   "https://wa.me/233201112222",
	})
	if result := proj.process(ctx, profile); !result.ack {
		t.Fatalf("profile event: %+v", result)
	}

	var updated int64
	err := conn.Model(&models.MarketplaceListing{}).
		Where("seller_id = ? AND business_name = ?", sellerID, "Kofi Traders").
		Count(&updated).
		Error
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if updated != 5 {
		t.Fatalf("fan-out updated %d listings, want 5", updated)
	}

	var untouched models.MarketplaceListing
	if err := conn.First(&untouched, "seller_id = ?", otherSeller).Error; err != nil {
		t.Fatalf("load foreign listing: %v", err)
	}
	if untouched.BusinessName == "Kofi Traders" {
		t.Fatal("fan-out leaked into another seller's listings")
	}
}

func TestUnrelatedAndMalformedMessagesAck(t *testing.T) {
	t.Parallel()

	proj, _ := newTestProjector(t)
	ctx := context.Background()

	unrelated := &pubsub.Message{
		ID:         uuid.NewString(),
		Data:       []byte("{}"),
		Attributes: map[string]string{"event_type": "invoice_settled"},
	}
	if result := proj.process(ctx, unrelated); !result.ack || result.nack {
		t.Fatalf("unrelated event: %+v", result)
	}

	garbage := &pubsub.Message{
		ID:         uuid.NewString(),
		Data:       []byte("not json"),
		Attributes: map[string]string{"event_type": string(enums.EventProductCreated)},
	}
	if result := proj.process(ctx, garbage); !result.ack || result.nack {
		t.Fatalf("garbage envelope: %+v", result)
	}
}

func TestSoldDelta(t *testing.T) {
	t.Parallel()

	at := time.Now().UTC()
	productID := uuid.New()
	sellerID := uuid.New()
	before := snapshot(productID, sellerID, "Sugar", 300, 10, at)

	cases := []struct {
		name    string
		payload payloads.ProductChangeEvent
		want    int64
	}{
		{"decrease", payloads.ProductChangeEvent{Before: before, After: snapshot(productID, sellerID, "Sugar", 300, 6, at)}, 4},
		{"restock", payloads.ProductChangeEvent{Before: before, After: snapshot(productID, sellerID, "Sugar", 300, 15, at)}, 0},
		{"unchanged", payloads.ProductChangeEvent{Before: before, After: snapshot(productID, sellerID, "Sugar", 300, 10, at)}, 0},
		{"create", payloads.ProductChangeEvent{After: before}, 0},
		{"delete", payloads.ProductChangeEvent{Before: before}, 0},
	}
	for _, tc := range cases {
		if got := soldDelta(tc.payload); got != tc.want {
			t.Errorf("%s: soldDelta = %d, want %d", tc.name, got, tc.want)
		}
	}
}

package browse

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kwameasiedu/shopstack/internal/marketplace"
	"github.com/kwameasiedu/shopstack/pkg/config"
	"github.com/kwameasiedu/shopstack/pkg/db/models"
	pkgerrors "github.com/kwameasiedu/shopstack/pkg/errors"
	"github.com/kwameasiedu/shopstack/pkg/outbox/payloads"
	"github.com/kwameasiedu/shopstack/pkg/pagination"
)

type fakePageCache struct {
	data map[string]string
	sets int
}

func newFakePageCache() *fakePageCache {
	return &fakePageCache{data: make(map[string]string)}
}

type cacheMiss struct{}

func (cacheMiss) Error() string { return "cache miss" }

func (c *fakePageCache) Get(_ context.Context, key string) (string, error) {
	if v, ok := c.data[key]; ok {
		return v, nil
	}
	return "", cacheMiss{}
}

func (c *fakePageCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.sets++
	c.data[key] = value.(string)
	return nil
}

func (c *fakePageCache) MarketplacePageKey(mode, term string) string {
	return "ss:marketplace:" + mode + ":" + term
}

func newTestRepo(t *testing.T) *marketplace.Repository {
	t.Helper()
	dsn := "file:browse_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.MarketplaceListing{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return marketplace.NewRepository(conn)
}

func seedListing(t *testing.T, repo *marketplace.Repository, name, category string, updatedAt time.Time) uuid.UUID {
	t.Helper()
	listing := marketplace.BuildListing(&payloads.ProductSnapshot{
		ProductID:         uuid.New(),
		SellerID:          uuid.New(),
		Name:              name,
		SellingPriceCents: 100,
		Quantity:          5,
		CategoryID:        category,
		UpdatedAt:         updatedAt,
	}, marketplace.SellerDisplay{BusinessName: "Shop"}, updatedAt)
	if err := repo.Upsert(context.Background(), listing); err != nil {
		t.Fatalf("seed %s: %v", name, err)
	}
	return listing.ProductID
}

func newSessionWithClock(t *testing.T, repo *marketplace.Repository, cache pageCache, pageSize int, at time.Time) *Session {
	t.Helper()
	svc, err := NewService(repo, nil, config.MarketplaceConfig{PageSize: pageSize, CacheTTL: 10 * time.Minute})
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	session, err := NewSession(svc, repo, cache)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	session.now = func() time.Time { return at }
	return session
}

func TestBrowsePagesNewestFirst(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedListing(t, repo, "Item", "beverages", base.Add(time.Duration(i)*time.Minute))
	}

	svc, err := NewService(repo, nil, config.MarketplaceConfig{PageSize: 2})
	if err != nil {
		t.Fatalf("service: %v", err)
	}

	ctx := context.Background()
	page, err := svc.Browse(ctx, "beverages", pagination.Params{})
	if err != nil {
		t.Fatalf("browse: %v", err)
	}
	if len(page.Items) != 2 || !page.HasMore || page.NextCursor == "" {
		t.Fatalf("unexpected first page: %d items, hasMore=%v", len(page.Items), page.HasMore)
	}
	if !page.Items[0].UpdatedAt.After(page.Items[1].UpdatedAt) {
		t.Fatal("items not ordered newest-first")
	}

	seen := map[uuid.UUID]bool{}
	for _, item := range page.Items {
		seen[item.ProductID] = true
	}
	cursor := page.NextCursor
	total := len(page.Items)
	for cursor != "" {
		page, err = svc.Browse(ctx, "beverages", pagination.Params{Cursor: cursor})
		if err != nil {
			t.Fatalf("browse page: %v", err)
		}
		for _, item := range page.Items {
			if seen[item.ProductID] {
				t.Fatalf("item %s returned twice", item.ProductID)
			}
			seen[item.ProductID] = true
		}
		total += len(page.Items)
		cursor = page.NextCursor
	}
	if total != 5 {
		t.Fatalf("paged through %d items, want 5", total)
	}
}

func TestSearchPrefixOrderedByName(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	seedListing(t, repo, "Blue Soap", "household", at)
	seedListing(t, repo, "Blue Band", "grocery", at)
	seedListing(t, repo, "Sugar", "grocery", at)

	svc, err := NewService(repo, nil, config.MarketplaceConfig{PageSize: 10})
	if err != nil {
		t.Fatalf("service: %v", err)
	}

	page, err := svc.Search(context.Background(), "blu", pagination.Params{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(page.Items))
	}
	if page.Items[0].Name != "Blue Band" || page.Items[1].Name != "Blue Soap" {
		t.Fatalf("matches not ordered by name: %v, %v", page.Items[0].Name, page.Items[1].Name)
	}

	if _, err := svc.Search(context.Background(), "   ", pagination.Params{}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for blank text, got %v", err)
	}
}

func newServiceWithClock(t *testing.T, repo *marketplace.Repository, cache pageCache, pageSize int, at time.Time) *Service {
	t.Helper()
	svc, err := NewService(repo, cache, config.MarketplaceConfig{PageSize: pageSize, CacheTTL: 10 * time.Minute})
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	svc.now = func() time.Time { return at }
	return svc
}

func TestServiceServesFirstPageFromCache(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	cache := newFakePageCache()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	seedListing(t, repo, "Item", "beverages", base)

	svc := newServiceWithClock(t, repo, cache, 10, base.Add(time.Hour))
	ctx := context.Background()

	if _, err := svc.Browse(ctx, "beverages", pagination.Params{}); err != nil {
		t.Fatalf("first browse: %v", err)
	}
	if cache.sets != 1 {
		t.Fatalf("expected the first page cached, got %d writes", cache.sets)
	}

	// within the TTL the cached view hides a new listing
	seedListing(t, repo, "Fresh", "beverages", base.Add(time.Minute))
	svc.now = func() time.Time { return base.Add(time.Hour + 5*time.Minute) }
	page, err := svc.Browse(ctx, "beverages", pagination.Params{})
	if err != nil {
		t.Fatalf("warm browse: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("fresh cache should serve the stored view, got %d items", len(page.Items))
	}

	// past the TTL the view is refetched and recached
	svc.now = func() time.Time { return base.Add(time.Hour + 11*time.Minute) }
	page, err = svc.Browse(ctx, "beverages", pagination.Params{})
	if err != nil {
		t.Fatalf("cold browse: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("stale cache should refetch, got %d items", len(page.Items))
	}
	if cache.sets != 2 {
		t.Fatalf("expected the refetched page cached, got %d writes", cache.sets)
	}
}

func TestServiceCacheSkipsContinuationPages(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	cache := newFakePageCache()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedListing(t, repo, "Item", "beverages", base.Add(time.Duration(i)*time.Minute))
	}

	svc := newServiceWithClock(t, repo, cache, 2, base.Add(time.Hour))
	ctx := context.Background()

	page, err := svc.Browse(ctx, "beverages", pagination.Params{})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	next, err := svc.Browse(ctx, "beverages", pagination.Params{Cursor: page.NextCursor})
	if err != nil {
		t.Fatalf("continuation: %v", err)
	}
	if len(next.Items) != 2 || next.Items[0].ProductID == page.Items[0].ProductID {
		t.Fatalf("continuation did not advance: %+v", next.Items)
	}
	if cache.sets != 1 {
		t.Fatalf("only the first page belongs in the cache, got %d writes", cache.sets)
	}

	// explicit limits bypass the cache too
	if _, err := svc.Browse(ctx, "beverages", pagination.Params{Limit: 4}); err != nil {
		t.Fatalf("limited browse: %v", err)
	}
	if cache.sets != 1 {
		t.Fatalf("limited page must not be cached, got %d writes", cache.sets)
	}
}

func TestServiceCacheCursorRevalidation(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	cache := newFakePageCache()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		seedListing(t, repo, "Item", "beverages", base.Add(time.Duration(i)*time.Minute))
	}

	svc := newServiceWithClock(t, repo, cache, 2, base.Add(time.Hour))
	ctx := context.Background()

	page, err := svc.Browse(ctx, "beverages", pagination.Params{})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if !page.HasMore {
		t.Fatal("expected a continuation")
	}

	// the cached page's last row vanishes; the cache entry is unusable
	// and the next first-page read goes back to the table
	last := page.Items[len(page.Items)-1].ProductID
	if err := repo.Delete(ctx, last); err != nil {
		t.Fatalf("delete %s: %v", last, err)
	}
	fresh, err := svc.Browse(ctx, "beverages", pagination.Params{})
	if err != nil {
		t.Fatalf("browse after delete: %v", err)
	}
	for _, item := range fresh.Items {
		if item.ProductID == last {
			t.Fatal("deleted listing served from cache")
		}
	}
}

func TestSessionCacheRoundTrip(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	cache := newFakePageCache()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		seedListing(t, repo, "Item", "beverages", base.Add(time.Duration(i)*time.Minute))
	}
	seedListing(t, repo, "Mop", "household", base)

	session := newSessionWithClock(t, repo, cache, 10, base.Add(time.Hour))
	ctx := context.Background()

	first, err := session.Browse(ctx, marketplace.CategoryAll)
	if err != nil {
		t.Fatalf("browse all: %v", err)
	}
	if _, err := session.Browse(ctx, "household"); err != nil {
		t.Fatalf("browse household: %v", err)
	}

	again, err := session.Browse(ctx, marketplace.CategoryAll)
	if err != nil {
		t.Fatalf("browse all again: %v", err)
	}
	if len(again) != len(first) {
		t.Fatalf("round trip returned %d items, want %d", len(again), len(first))
	}
	for i := range first {
		if first[i].ProductID != again[i].ProductID {
			t.Fatalf("round trip reordered items at %d", i)
		}
	}
}

func TestSessionStaleCacheRefetches(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	cache := newFakePageCache()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	seedListing(t, repo, "Item", "beverages", base)

	session := newSessionWithClock(t, repo, cache, 10, base)
	ctx := context.Background()
	if _, err := session.Browse(ctx, "beverages"); err != nil {
		t.Fatalf("first browse: %v", err)
	}

	// a new listing appears; within the TTL the cached view hides it
	seedListing(t, repo, "Fresh", "beverages", base.Add(time.Minute))
	session.now = func() time.Time { return base.Add(5 * time.Minute) }
	items, err := session.Browse(ctx, "beverages")
	if err != nil {
		t.Fatalf("warm browse: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("fresh cache should serve the stored view, got %d items", len(items))
	}

	// past the TTL the view is stale and refetched cold
	session.now = func() time.Time { return base.Add(11 * time.Minute) }
	items, err = session.Browse(ctx, "beverages")
	if err != nil {
		t.Fatalf("cold browse: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("stale cache should refetch, got %d items", len(items))
	}
}

func TestSessionLoadMoreMergesWithoutDuplicates(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	cache := newFakePageCache()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedListing(t, repo, "Item", "beverages", base.Add(time.Duration(i)*time.Minute))
	}

	session := newSessionWithClock(t, repo, cache, 2, base.Add(time.Hour))
	ctx := context.Background()

	if _, err := session.Browse(ctx, "beverages"); err != nil {
		t.Fatalf("browse: %v", err)
	}
	for session.HasMore() {
		if _, err := session.LoadMore(ctx); err != nil {
			t.Fatalf("load more: %v", err)
		}
	}
	items := session.Items()
	if len(items) != 5 {
		t.Fatalf("merged %d items, want 5", len(items))
	}
	ids := map[uuid.UUID]bool{}
	for _, item := range items {
		if ids[item.ProductID] {
			t.Fatalf("duplicate item %s", item.ProductID)
		}
		ids[item.ProductID] = true
	}

	// exhausted view: LoadMore is a no-op
	if _, err := session.LoadMore(ctx); err != nil {
		t.Fatalf("load more on exhausted view: %v", err)
	}
	if len(session.Items()) != 5 {
		t.Fatal("exhausted LoadMore changed the result set")
	}
}

func TestSessionWarmStartRestoresCursor(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	cache := newFakePageCache()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedListing(t, repo, "Item", "beverages", base.Add(time.Duration(i)*time.Minute))
	}

	// first session fetches one page and persists the view
	first := newSessionWithClock(t, repo, cache, 2, base.Add(time.Hour))
	ctx := context.Background()
	if _, err := first.Browse(ctx, "beverages"); err != nil {
		t.Fatalf("browse: %v", err)
	}

	// a second session warm-starts from the cache and continues paging
	second := newSessionWithClock(t, repo, cache, 2, base.Add(time.Hour))
	items, err := second.Browse(ctx, "beverages")
	if err != nil {
		t.Fatalf("warm browse: %v", err)
	}
	if len(items) != 2 || !second.HasMore() {
		t.Fatalf("warm start lost state: %d items, hasMore=%v", len(items), second.HasMore())
	}

	if _, err := second.LoadMore(ctx); err != nil {
		t.Fatalf("load more after warm start: %v", err)
	}
	items = second.Items()
	if len(items) != 4 {
		t.Fatalf("continued paging yielded %d items, want 4", len(items))
	}
	ids := map[uuid.UUID]bool{}
	for _, item := range items {
		if ids[item.ProductID] {
			t.Fatalf("warm continuation duplicated %s", item.ProductID)
		}
		ids[item.ProductID] = true
	}
}

func TestSessionModeSwitchResetsPagination(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	cache := newFakePageCache()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		seedListing(t, repo, "Item", "beverages", base.Add(time.Duration(i)*time.Minute))
	}

	session := newSessionWithClock(t, repo, cache, 2, base.Add(time.Hour))
	ctx := context.Background()
	if _, err := session.Browse(ctx, "beverages"); err != nil {
		t.Fatalf("browse: %v", err)
	}
	if !session.HasMore() {
		t.Fatal("expected more pages before switching")
	}

	if _, err := session.Search(ctx, "item"); err != nil {
		t.Fatalf("search: %v", err)
	}
	if session.mode != ModeSearch {
		t.Fatalf("mode = %q, want search", session.mode)
	}

	// LoadMore now pages the search, not the abandoned browse
	for session.HasMore() {
		if _, err := session.LoadMore(ctx); err != nil {
			t.Fatalf("load more: %v", err)
		}
	}
	if len(session.Items()) != 4 {
		t.Fatalf("search paging yielded %d, want 4", len(session.Items()))
	}
}

func TestSessionLoadMoreWithoutViewFails(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	session := newSessionWithClock(t, repo, newFakePageCache(), 2, time.Now().UTC())
	if _, err := session.LoadMore(context.Background()); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

package browse

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kwameasiedu/shopstack/internal/marketplace"
	pkgerrors "github.com/kwameasiedu/shopstack/pkg/errors"
	"github.com/kwameasiedu/shopstack/pkg/pagination"
)

// Browse modes. A session is in exactly one mode at a time; switching
// resets the other mode's cursor.
const (
	ModeBrowse = "browse"
	ModeSearch = "search"
)

const defaultCacheTTL = 10 * time.Minute

type pageCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	MarketplacePageKey(mode, term string) string
}

// cacheEntry is the persisted shape of one session view. LastID lets a warm
// start re-resolve its cursor against the live table instead of trusting a
// stored cursor that may point at a moved row.
type cacheEntry struct {
	Items   []ListingDTO `json:"items"`
	LastID  string       `json:"lastId"`
	HasMore bool         `json:"hasMore"`
	SavedAt time.Time    `json:"savedAt"`
}

// Session tracks one consumer's position in the marketplace: the active
// mode, its term, opaque cursor and has-more flag, and the result set merged
// by product id so a refetched page never duplicates items. Fetched views
// are persisted to Redis and restored on warm starts while fresh.
//
// Session is not safe for concurrent use.
type Session struct {
	svc   *Service
	repo  *marketplace.Repository
	cache pageCache
	ttl   time.Duration
	now   func() time.Time

	mode    string
	term    string
	cursor  string
	hasMore bool
	items   []ListingDTO
	seen    map[uuid.UUID]int
}

// NewSession builds an empty session over the read service.
func NewSession(svc *Service, repo *marketplace.Repository, cache pageCache) (*Session, error) {
	if svc == nil {
		return nil, fmt.Errorf("browse service required")
	}
	if repo == nil {
		return nil, fmt.Errorf("marketplace repository required")
	}
	if cache == nil {
		return nil, fmt.Errorf("page cache required")
	}
	ttl := svc.cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Session{
		svc:   svc,
		repo:  repo,
		cache: cache,
		ttl:   ttl,
		now:   time.Now,
		seen:  make(map[uuid.UUID]int),
	}, nil
}

// Items returns the merged result set for the active view.
func (s *Session) Items() []ListingDTO {
	return s.items
}

// HasMore reports whether the active view has another page.
func (s *Session) HasMore() bool {
	return s.hasMore
}

// Browse activates category browsing. A fresh cached view for the category
// is restored, including its cursor; anything older than the TTL triggers a
// cold refetch of the first page.
func (s *Session) Browse(ctx context.Context, category string) ([]ListingDTO, error) {
	category = normalizeCategory(category)
	s.reset(ModeBrowse, category)

	if s.restoreFromCache(ctx) {
		return s.items, nil
	}

	page, err := s.svc.Browse(ctx, category, pagination.Params{})
	if err != nil {
		return nil, err
	}
	s.applyPage(ctx, page)
	return s.items, nil
}

// Search activates free-text search for the given prefix, clearing the
// browse cursor.
func (s *Session) Search(ctx context.Context, text string) ([]ListingDTO, error) {
	text = strings.TrimSpace(text)
	s.reset(ModeSearch, strings.ToLower(text))

	if s.restoreFromCache(ctx) {
		return s.items, nil
	}

	page, err := s.svc.Search(ctx, text, pagination.Params{})
	if err != nil {
		return nil, err
	}
	s.applyPage(ctx, page)
	return s.items, nil
}

// LoadMore fetches the next page of the active view and merges it in.
func (s *Session) LoadMore(ctx context.Context) ([]ListingDTO, error) {
	if s.mode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no active view")
	}
	if !s.hasMore {
		return s.items, nil
	}

	params := pagination.Params{Cursor: s.cursor}
	var (
		page *Page
		err  error
	)
	switch s.mode {
	case ModeBrowse:
		page, err = s.svc.Browse(ctx, s.term, params)
	case ModeSearch:
		page, err = s.svc.Search(ctx, s.term, params)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "unknown view mode")
	}
	if err != nil {
		return nil, err
	}
	s.applyPage(ctx, page)
	return s.items, nil
}

func (s *Session) reset(mode, term string) {
	s.mode = mode
	s.term = term
	s.cursor = ""
	s.hasMore = false
	s.items = nil
	s.seen = make(map[uuid.UUID]int)
}

// applyPage merges a fetched page by product id and persists the view.
// Already-held ids are updated in place, so refetching a page is a no-op
// for everything it already contributed.
func (s *Session) applyPage(ctx context.Context, page *Page) {
	for _, item := range page.Items {
		if idx, ok := s.seen[item.ProductID]; ok {
			s.items[idx] = item
			continue
		}
		s.seen[item.ProductID] = len(s.items)
		s.items = append(s.items, item)
	}
	s.cursor = page.NextCursor
	s.hasMore = page.HasMore
	s.persist(ctx)
}

func (s *Session) persist(ctx context.Context) {
	entry := cacheEntry{
		Items:   s.items,
		HasMore: s.hasMore,
		SavedAt: s.now().UTC(),
	}
	if len(s.items) > 0 {
		entry.LastID = s.items[len(s.items)-1].ProductID.String()
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	// Staleness is judged against SavedAt; the Redis TTL just garbage-collects.
	_ = s.cache.Set(ctx, s.cache.MarketplacePageKey(s.mode, s.term), string(raw), s.ttl)
}

// restoreFromCache rebuilds the view from a fresh cache entry. The cursor is
// re-resolved from the last cached item's id so LoadMore continues from the
// live row; a vanished row forces a cold refetch.
func (s *Session) restoreFromCache(ctx context.Context) bool {
	raw, err := s.cache.Get(ctx, s.cache.MarketplacePageKey(s.mode, s.term))
	if err != nil {
		return false
	}
	var entry cacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return false
	}
	if s.now().UTC().Sub(entry.SavedAt) > s.ttl {
		return false
	}

	cursor, ok := resolveEntryCursor(ctx, s.repo, s.mode, entry)
	if !ok {
		return false
	}

	s.items = entry.Items
	s.seen = make(map[uuid.UUID]int, len(entry.Items))
	for idx, item := range entry.Items {
		s.seen[item.ProductID] = idx
	}
	s.hasMore = entry.HasMore
	s.cursor = cursor
	return true
}

// resolveEntryCursor re-derives a continuation cursor from the cached view's
// last item against the live table. A row deleted since the view was saved
// invalidates the whole entry so the caller starts over.
func resolveEntryCursor(ctx context.Context, repo *marketplace.Repository, mode string, entry cacheEntry) (string, bool) {
	if !entry.HasMore || entry.LastID == "" {
		return "", true
	}
	lastID, err := uuid.Parse(entry.LastID)
	if err != nil {
		return "", false
	}
	listing, err := repo.FindByID(ctx, lastID)
	if err != nil {
		return "", false
	}
	switch mode {
	case ModeBrowse:
		return pagination.EncodeRecencyCursor(pagination.RecencyCursor{
			UpdatedAt: listing.UpdatedAt,
			ID:        listing.ProductID,
		}), true
	case ModeSearch:
		return pagination.EncodeNameCursor(pagination.NameCursor{
			NameLower: listing.NameLower,
			ID:        listing.ProductID,
		}), true
	}
	return "", false
}

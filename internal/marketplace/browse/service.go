package browse

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kwameasiedu/shopstack/internal/marketplace"
	"github.com/kwameasiedu/shopstack/pkg/config"
	pkgerrors "github.com/kwameasiedu/shopstack/pkg/errors"
	"github.com/kwameasiedu/shopstack/pkg/pagination"
)

// Page is one fetched slice of the marketplace.
type Page struct {
	Items      []ListingDTO `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
	HasMore    bool         `json:"has_more"`
}

// Service executes the two paginated marketplace read modes. First pages
// (no cursor, default size) are served from the shared Redis page cache
// while fresh; continuation pages always hit the database. Session layers
// per-consumer mode tracking and result merging on top of it.
type Service struct {
	repo  *marketplace.Repository
	cache pageCache
	cfg   config.MarketplaceConfig
	ttl   time.Duration
	now   func() time.Time
}

// NewService builds the marketplace read service. A nil cache disables
// first-page caching.
func NewService(repo *marketplace.Repository, cache pageCache, cfg config.MarketplaceConfig) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("marketplace repository required")
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Service{repo: repo, cache: cache, cfg: cfg, ttl: ttl, now: time.Now}, nil
}

func (s *Service) pageSize(limit int) int {
	if limit > 0 {
		return pagination.NormalizeLimit(limit)
	}
	return pagination.NormalizeLimit(s.cfg.PageSize)
}

// Browse pages listings in a category (or "all") newest-first.
func (s *Service) Browse(ctx context.Context, category string, params pagination.Params) (*Page, error) {
	category = normalizeCategory(category)
	cursor, err := pagination.ParseRecencyCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	firstPage := params.Cursor == "" && params.Limit <= 0
	if firstPage {
		if page, ok := s.cachedPage(ctx, ModeBrowse, category); ok {
			return page, nil
		}
	}

	limit := s.pageSize(params.Limit)
	rows, err := s.repo.ListByCategory(ctx, category, cursor, limit+1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: browse listings")
	}

	page := &Page{Items: make([]ListingDTO, 0, limit)}
	if len(rows) > limit {
		page.HasMore = true
		rows = rows[:limit]
	}
	for _, row := range rows {
		page.Items = append(page.Items, NewListingDTO(row))
	}
	if page.HasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		page.NextCursor = pagination.EncodeRecencyCursor(pagination.RecencyCursor{
			UpdatedAt: last.UpdatedAt,
			ID:        last.ProductID,
		})
	}
	if firstPage {
		s.storePage(ctx, ModeBrowse, category, page)
	}
	return page, nil
}

// Search pages listings whose name starts with the given text, ordered by
// name. The prefix match is case-insensitive via the lower-cased name column.
func (s *Service) Search(ctx context.Context, text string, params pagination.Params) (*Page, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search text required")
	}
	cursor, err := pagination.ParseNameCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	term := strings.ToLower(text)
	firstPage := params.Cursor == "" && params.Limit <= 0
	if firstPage {
		if page, ok := s.cachedPage(ctx, ModeSearch, term); ok {
			return page, nil
		}
	}

	limit := s.pageSize(params.Limit)
	rows, err := s.repo.SearchByNamePrefix(ctx, text, cursor, limit+1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: search listings")
	}

	page := &Page{Items: make([]ListingDTO, 0, limit)}
	if len(rows) > limit {
		page.HasMore = true
		rows = rows[:limit]
	}
	for _, row := range rows {
		page.Items = append(page.Items, NewListingDTO(row))
	}
	if page.HasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		page.NextCursor = pagination.EncodeNameCursor(pagination.NameCursor{
			NameLower: last.NameLower,
			ID:        last.ProductID,
		})
	}
	if firstPage {
		s.storePage(ctx, ModeSearch, term, page)
	}
	return page, nil
}

// cachedPage restores a fresh first page from the shared view cache. The
// continuation cursor is re-resolved against the live table, so a stale or
// broken entry falls through to the database.
func (s *Service) cachedPage(ctx context.Context, mode, term string) (*Page, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, s.cache.MarketplacePageKey(mode, term))
	if err != nil {
		return nil, false
	}
	var entry cacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, false
	}
	if s.now().UTC().Sub(entry.SavedAt) > s.ttl {
		return nil, false
	}
	cursor, ok := resolveEntryCursor(ctx, s.repo, mode, entry)
	if !ok {
		return nil, false
	}
	return &Page{Items: entry.Items, NextCursor: cursor, HasMore: entry.HasMore}, true
}

func (s *Service) storePage(ctx context.Context, mode, term string, page *Page) {
	if s.cache == nil {
		return
	}
	entry := cacheEntry{
		Items:   page.Items,
		HasMore: page.HasMore,
		SavedAt: s.now().UTC(),
	}
	if len(page.Items) > 0 {
		entry.LastID = page.Items[len(page.Items)-1].ProductID.String()
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, s.cache.MarketplacePageKey(mode, term), string(raw), s.ttl)
}

func normalizeCategory(category string) string {
	category = strings.TrimSpace(category)
	if category == "" {
		return marketplace.CategoryAll
	}
	return category
}

package stats

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kwameasiedu/shopstack/pkg/config"
	pkgerrors "github.com/kwameasiedu/shopstack/pkg/errors"
	"github.com/kwameasiedu/shopstack/pkg/logger"
	"github.com/kwameasiedu/shopstack/pkg/redis"
)

// DayKeyLayout formats the calendar bucket day documents are keyed by.
const DayKeyLayout = "2006-01-02"

// topProductLimit caps how many products the dashboard summary reports.
const topProductLimit = 5

// Named dashboard ranges.
const (
	RangeDay   = "day"
	RangeWeek  = "week"
	RangeMonth = "month"
	RangeYear  = "year"
	RangeAll   = "all"
)

// Service folds per-day sales documents into dashboard summaries. Closed
// days are immutable, so they are cached in Redis without a TTL; today is
// always read from the database.
type Service interface {
	Summarize(ctx context.Context, sellerID uuid.UUID, rangeName string) (*SummaryDTO, error)
	SummarizeBetween(ctx context.Context, sellerID uuid.UUID, fromDay, toDay string) (*SummaryDTO, error)
}

// SummaryDTO is the API representation of a dashboard summary.
type SummaryDTO struct {
	Range        string          `json:"range"`
	From         string          `json:"from"`
	To           string          `json:"to"`
	SalesCount   int64           `json:"sales_count"`
	RevenueCents int64           `json:"revenue_cents"`
	ProfitCents  int64           `json:"profit_cents"`
	TopProducts  []TopProductDTO `json:"top_products"`
}

// TopProductDTO is one entry of the best-sellers list.
type TopProductDTO struct {
	ProductID    string `json:"product_id"`
	Name         string `json:"name"`
	Quantity     int64  `json:"quantity"`
	RevenueCents int64  `json:"revenue_cents"`
}

type dayCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	StatsDayKey(sellerID, day string) string
}

type service struct {
	repo  *Repository
	cache dayCache
	cfg   config.StatsConfig
	logg  *logger.Logger
	now   func() time.Time
}

// NewService constructs a stats service instance.
func NewService(repo *Repository, cache dayCache, cfg config.StatsConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stats repository required")
	}
	if cache == nil {
		return nil, fmt.Errorf("day cache required")
	}
	return &service{
		repo:  repo,
		cache: cache,
		cfg:   cfg,
		logg:  logg,
		now:   time.Now,
	}, nil
}

// Summarize folds the seller's day documents for the named range.
func (s *service) Summarize(ctx context.Context, sellerID uuid.UUID, rangeName string) (*SummaryDTO, error) {
	today := s.now().UTC().Truncate(24 * time.Hour)
	from, err := s.rangeStart(ctx, sellerID, rangeName, today)
	if err != nil {
		return nil, err
	}

	maxDays := s.cfg.MaxRangeDays
	if maxDays <= 0 {
		maxDays = 366
	}
	if earliest := today.AddDate(0, 0, -(maxDays - 1)); from.Before(earliest) {
		from = earliest
	}

	return s.foldRange(ctx, sellerID, rangeName, from, today, today)
}

// SummarizeBetween folds the seller's day documents over an explicit
// closed interval of day keys. Days beyond today contribute nothing.
func (s *service) SummarizeBetween(ctx context.Context, sellerID uuid.UUID, fromDay, toDay string) (*SummaryDTO, error) {
	from, err := time.ParseInLocation(DayKeyLayout, fromDay, time.UTC)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from must be a YYYY-MM-DD day")
	}
	to, err := time.ParseInLocation(DayKeyLayout, toDay, time.UTC)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "to must be a YYYY-MM-DD day")
	}
	if from.After(to) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from must not be after to")
	}

	maxDays := s.cfg.MaxRangeDays
	if maxDays <= 0 {
		maxDays = 366
	}
	if int(to.Sub(from).Hours()/24)+1 > maxDays {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("interval exceeds %d days", maxDays))
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	summary, err := s.foldRange(ctx, sellerID, "custom", from, to, today)
	if err != nil {
		return nil, err
	}
	// The summary reports the requested bounds even when today clips the walk.
	summary.From = fromDay
	summary.To = toDay
	return summary, nil
}

// foldRange walks the day keys in [from, to], clipped at today, and folds
// their documents into one summary.
func (s *service) foldRange(ctx context.Context, sellerID uuid.UUID, rangeName string, from, to, today time.Time) (*SummaryDTO, error) {
	if to.After(today) {
		to = today
	}

	summary := &SummaryDTO{
		Range:       rangeName,
		From:        from.Format(DayKeyLayout),
		To:          to.Format(DayKeyLayout),
		TopProducts: []TopProductDTO{},
	}

	fold := newTopProductFolder()
	for cursor := from; !cursor.After(to); cursor = cursor.AddDate(0, 0, 1) {
		day := cursor.Format(DayKeyLayout)
		doc, err := s.loadDay(ctx, sellerID, day, !cursor.Before(today))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load day document")
		}
		summary.SalesCount += doc.SalesCount
		summary.RevenueCents += doc.RevenueCents
		summary.ProfitCents += doc.ProfitCents
		fold.add(doc.TopProducts)
	}
	summary.TopProducts = fold.top(topProductLimit)

	return summary, nil
}

// loadDay serves a closed day from the cache when possible. Today bypasses
// the cache because its document is still changing.
func (s *service) loadDay(ctx context.Context, sellerID uuid.UUID, day string, isToday bool) (dayDocument, error) {
	if isToday {
		return s.repo.LoadDay(ctx, sellerID, day)
	}

	key := s.cache.StatsDayKey(sellerID.String(), day)
	cached, err := s.cache.Get(ctx, key)
	if err == nil {
		doc, decodeErr := decodeDayDocument([]byte(cached))
		if decodeErr == nil {
			return doc, nil
		}
		if s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("discarding unreadable day document %s: %v", day, decodeErr))
		}
	} else if !redis.IsNil(err) {
		// The cache is an optimization; fall through to the database.
		if s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("day cache read failed for %s: %v", day, err))
		}
	}

	doc, err := s.repo.LoadDay(ctx, sellerID, day)
	if err != nil {
		return dayDocument{}, err
	}

	if encoded, encodeErr := encodeDayDocument(doc); encodeErr == nil {
		// Closed days never change, so the entry carries no TTL.
		if setErr := s.cache.Set(ctx, key, string(encoded), 0); setErr != nil && s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("day cache write failed for %s: %v", day, setErr))
		}
	}
	return doc, nil
}

func (s *service) rangeStart(ctx context.Context, sellerID uuid.UUID, rangeName string, today time.Time) (time.Time, error) {
	switch rangeName {
	case RangeDay:
		return today, nil
	case RangeWeek:
		return today.AddDate(0, 0, -6), nil
	case RangeMonth:
		return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	case RangeYear:
		return time.Date(today.Year(), 1, 1, 0, 0, 0, 0, time.UTC), nil
	case RangeAll:
		earliest, err := s.repo.EarliestDay(ctx, sellerID)
		if err != nil {
			return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: earliest day")
		}
		if earliest == "" {
			return today, nil
		}
		parsed, err := time.ParseInLocation(DayKeyLayout, earliest, time.UTC)
		if err != nil {
			return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parse earliest day")
		}
		return parsed, nil
	default:
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "unsupported range")
	}
}

// topProductFolder merges per-day rollups. Insertion order is preserved so
// equal quantities rank by first appearance in the range.
type topProductFolder struct {
	order   []string
	entries map[string]*TopProductDTO
}

func newTopProductFolder() *topProductFolder {
	return &topProductFolder{entries: make(map[string]*TopProductDTO)}
}

func (f *topProductFolder) add(products []dayProduct) {
	for _, product := range products {
		if entry, ok := f.entries[product.ProductID]; ok {
			entry.Quantity += product.Quantity
			entry.RevenueCents += product.RevenueCents
			if entry.Name == "" {
				entry.Name = product.Name
			}
			continue
		}
		f.order = append(f.order, product.ProductID)
		f.entries[product.ProductID] = &TopProductDTO{
			ProductID:    product.ProductID,
			Name:         product.Name,
			Quantity:     product.Quantity,
			RevenueCents: product.RevenueCents,
		}
	}
}

func (f *topProductFolder) top(limit int) []TopProductDTO {
	result := make([]TopProductDTO, 0, len(f.order))
	for _, id := range f.order {
		result = append(result, *f.entries[id])
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Quantity > result[j].Quantity
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result
}

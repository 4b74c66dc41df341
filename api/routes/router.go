package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kwameasiedu/shopstack/api/controllers"
	"github.com/kwameasiedu/shopstack/api/middleware"
	"github.com/kwameasiedu/shopstack/internal/catalog"
	"github.com/kwameasiedu/shopstack/internal/marketplace/browse"
	"github.com/kwameasiedu/shopstack/internal/sales"
	"github.com/kwameasiedu/shopstack/internal/sellers"
	"github.com/kwameasiedu/shopstack/internal/stats"
	"github.com/kwameasiedu/shopstack/pkg/config"
	"github.com/kwameasiedu/shopstack/pkg/db"
	"github.com/kwameasiedu/shopstack/pkg/logger"
	"github.com/kwameasiedu/shopstack/pkg/redis"
)

// Deps bundles everything the router mounts.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          db.Pinger
	Redis       *redis.Client
	Registry    *prometheus.Registry
	Catalog     catalog.Service
	Sales       sales.Service
	Sellers     sellers.Service
	Stats       stats.Service
	Marketplace *browse.Service
}

// NewRouter assembles the HTTP surface: public marketplace reads, health
// probes, and the seller-scoped management API behind the gateway header.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/marketplace", func(r chi.Router) {
		r.Get("/listings", controllers.MarketplaceBrowse(deps.Marketplace, logg))
		r.Get("/search", controllers.MarketplaceSearch(deps.Marketplace, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.SellerContext(logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(deps.Catalog, logg))
			r.Post("/", controllers.CreateProduct(deps.Catalog, logg))
			r.Get("/{productId}", controllers.GetProduct(deps.Catalog, logg))
			r.Patch("/{productId}", controllers.UpdateProduct(deps.Catalog, logg))
			r.Delete("/{productId}", controllers.DeleteProduct(deps.Catalog, logg))
		})

		r.Route("/sales", func(r chi.Router) {
			r.Get("/", controllers.ListSales(deps.Sales, logg))
			r.Post("/", controllers.RecordDirectSale(deps.Sales, logg))
			r.Post("/checkout", controllers.RecordBasketSale(deps.Sales, logg))
		})

		r.Get("/stats/summary", controllers.StatsSummary(deps.Stats, logg))

		r.Route("/profile", func(r chi.Router) {
			r.Get("/", controllers.GetProfile(deps.Sellers, logg))
			r.Put("/", controllers.UpsertProfile(deps.Sellers, logg))
		})
	})

	return r
}

package controllers

import (
	"net/http"
	"strings"

	"github.com/kwameasiedu/shopstack/api/responses"
	"github.com/kwameasiedu/shopstack/api/validators"
	"github.com/kwameasiedu/shopstack/internal/marketplace/browse"
	"github.com/kwameasiedu/shopstack/pkg/logger"
	"github.com/kwameasiedu/shopstack/pkg/pagination"
)

// MarketplaceBrowse handles GET /marketplace/listings?category=&cursor=&limit=.
// It is a public route; no seller context is required.
func MarketplaceBrowse(svc *browse.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.Browse(r.Context(), r.URL.Query().Get("category"), pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

// MarketplaceSearch handles GET /marketplace/search?q=&cursor=&limit=.
func MarketplaceSearch(svc *browse.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.Search(r.Context(), r.URL.Query().Get("q"), pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

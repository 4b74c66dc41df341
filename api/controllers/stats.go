package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/kwameasiedu/shopstack/api/middleware"
	"github.com/kwameasiedu/shopstack/api/responses"
	"github.com/kwameasiedu/shopstack/internal/stats"
	pkgerrors "github.com/kwameasiedu/shopstack/pkg/errors"
	"github.com/kwameasiedu/shopstack/pkg/logger"
)

// StatsSummary handles GET /stats/summary?range=week and, for explicit
// intervals, GET /stats/summary?from=2026-03-01&to=2026-03-14.
func StatsSummary(svc stats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID := middleware.SellerIDFromContext(r.Context())
		if sellerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller context missing"))
			return
		}

		query := r.URL.Query()
		fromDay := strings.TrimSpace(query.Get("from"))
		toDay := strings.TrimSpace(query.Get("to"))
		if fromDay != "" || toDay != "" {
			if fromDay == "" || toDay == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "from and to must be provided together"))
				return
			}
			summary, err := svc.SummarizeBetween(r.Context(), sellerID, fromDay, toDay)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, summary)
			return
		}

		rangeName := strings.TrimSpace(query.Get("range"))
		if rangeName == "" {
			rangeName = stats.RangeDay
		}

		summary, err := svc.Summarize(r.Context(), sellerID, rangeName)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}

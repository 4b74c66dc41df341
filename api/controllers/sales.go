package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kwameasiedu/shopstack/api/middleware"
	"github.com/kwameasiedu/shopstack/api/responses"
	"github.com/kwameasiedu/shopstack/api/validators"
	"github.com/kwameasiedu/shopstack/internal/sales"
	pkgerrors "github.com/kwameasiedu/shopstack/pkg/errors"
	"github.com/kwameasiedu/shopstack/pkg/logger"
)

type directSaleRequest struct {
	ProductID      uuid.UUID `json:"product_id" validate:"required"`
	Quantity       int       `json:"quantity,omitempty" validate:"omitempty,min=1"`
	UnitPriceCents *int64    `json:"unit_price_cents,omitempty" validate:"omitempty,min=1"`
}

type basketSaleRequest struct {
	Items []basketItemRequest `json:"items" validate:"required,min=1,dive"`
}

type basketItemRequest struct {
	ProductID      uuid.UUID `json:"product_id" validate:"required"`
	Quantity       int       `json:"quantity" validate:"required,min=1"`
	UnitPriceCents *int64    `json:"unit_price_cents,omitempty" validate:"omitempty,min=1"`
}

// RecordDirectSale handles POST /sales. A missing quantity means one unit.
func RecordDirectSale(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID := middleware.SellerIDFromContext(r.Context())
		if sellerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller context missing"))
			return
		}

		var payload directSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Quantity == 0 {
			payload.Quantity = 1
		}

		sale, err := svc.RecordDirectSale(r.Context(), sellerID, sales.SaleItemInput{
			ProductID:      payload.ProductID,
			Quantity:       payload.Quantity,
			UnitPriceCents: payload.UnitPriceCents,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, sale)
	}
}

// RecordBasketSale handles POST /sales/checkout. The basket commits whole
// or not at all.
func RecordBasketSale(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID := middleware.SellerIDFromContext(r.Context())
		if sellerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller context missing"))
			return
		}

		var payload basketSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]sales.SaleItemInput, 0, len(payload.Items))
		for _, item := range payload.Items {
			items = append(items, sales.SaleItemInput{
				ProductID:      item.ProductID,
				Quantity:       item.Quantity,
				UnitPriceCents: item.UnitPriceCents,
			})
		}

		sale, err := svc.RecordBasketSale(r.Context(), sellerID, items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, sale)
	}
}

// ListSales handles GET /sales.
func ListSales(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID := middleware.SellerIDFromContext(r.Context())
		if sellerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller context missing"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		records, err := svc.ListSales(r.Context(), sellerID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, records)
	}
}

package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kwameasiedu/shopstack/api/middleware"
	"github.com/kwameasiedu/shopstack/api/responses"
	"github.com/kwameasiedu/shopstack/api/validators"
	"github.com/kwameasiedu/shopstack/internal/catalog"
	pkgerrors "github.com/kwameasiedu/shopstack/pkg/errors"
	"github.com/kwameasiedu/shopstack/pkg/logger"
)

const maxNameLen = 200

type createProductRequest struct {
	Name              string   `json:"name" validate:"required,max=200"`
	Description       *string  `json:"description,omitempty" validate:"omitempty,max=2000"`
	CostPriceCents    int64    `json:"cost_price_cents" validate:"min=0"`
	SellingPriceCents int64    `json:"selling_price_cents" validate:"required,min=1"`
	Quantity          int      `json:"quantity" validate:"min=0"`
	CategoryID        string   `json:"category_id" validate:"required,max=100"`
	DepartmentID      string   `json:"department_id,omitempty" validate:"omitempty,max=100"`
	Images            []string `json:"images,omitempty" validate:"omitempty,dive,required"`
}

type updateProductRequest struct {
	Name              *string   `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description       *string   `json:"description,omitempty" validate:"omitempty,max=2000"`
	CostPriceCents    *int64    `json:"cost_price_cents,omitempty" validate:"omitempty,min=0"`
	SellingPriceCents *int64    `json:"selling_price_cents,omitempty" validate:"omitempty,min=1"`
	Quantity          *int      `json:"quantity,omitempty" validate:"omitempty,min=0"`
	CategoryID        *string   `json:"category_id,omitempty" validate:"omitempty,max=100"`
	DepartmentID      *string   `json:"department_id,omitempty" validate:"omitempty,max=100"`
	Images            *[]string `json:"images,omitempty" validate:"omitempty,dive,required"`
}

// CreateProduct handles POST /products.
func CreateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID := middleware.SellerIDFromContext(r.Context())
		if sellerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller context missing"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), sellerID, catalog.CreateProductInput{
			Name:              validators.SanitizeString(payload.Name, maxNameLen),
			Description:       payload.Description,
			CostPriceCents:    payload.CostPriceCents,
			SellingPriceCents: payload.SellingPriceCents,
			Quantity:          payload.Quantity,
			CategoryID:        payload.CategoryID,
			DepartmentID:      payload.DepartmentID,
			Images:            payload.Images,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// UpdateProduct handles PATCH /products/{productId}.
func UpdateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID := middleware.SellerIDFromContext(r.Context())
		if sellerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller context missing"))
			return
		}

		productID, err := uuid.Parse(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), sellerID, productID, catalog.UpdateProductInput{
			Name:              payload.Name,
			Description:       payload.Description,
			CostPriceCents:    payload.CostPriceCents,
			SellingPriceCents: payload.SellingPriceCents,
			Quantity:          payload.Quantity,
			CategoryID:        payload.CategoryID,
			DepartmentID:      payload.DepartmentID,
			Images:            payload.Images,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// DeleteProduct handles DELETE /products/{productId}.
func DeleteProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID := middleware.SellerIDFromContext(r.Context())
		if sellerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller context missing"))
			return
		}

		productID, err := uuid.Parse(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		if err := svc.DeleteProduct(r.Context(), sellerID, productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// GetProduct handles GET /products/{productId}.
func GetProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID := middleware.SellerIDFromContext(r.Context())
		if sellerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller context missing"))
			return
		}

		productID, err := uuid.Parse(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		product, err := svc.GetProduct(r.Context(), sellerID, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// ListProducts handles GET /products.
func ListProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID := middleware.SellerIDFromContext(r.Context())
		if sellerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller context missing"))
			return
		}

		products, err := svc.ListProducts(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, products)
	}
}

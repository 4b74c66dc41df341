package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kwameasiedu/shopstack/api/middleware"
	"github.com/kwameasiedu/shopstack/api/responses"
	"github.com/kwameasiedu/shopstack/api/validators"
	"github.com/kwameasiedu/shopstack/internal/sellers"
	pkgerrors "github.com/kwameasiedu/shopstack/pkg/errors"
	"github.com/kwameasiedu/shopstack/pkg/logger"
)

type upsertProfileRequest struct {
	BusinessName string `json:"business_name" validate:"required,max=200"`
	BusinessType string `json:"business_type,omitempty" validate:"omitempty,max=100"`
	Phone        string `json:"phone,omitempty" validate:"omitempty,max=30"`
	Address      string `json:"address,omitempty" validate:"omitempty,max=300"`
	Country      string `json:"country,omitempty" validate:"omitempty,max=100"`
	Currency     string `json:"currency,omitempty" validate:"omitempty,max=10"`
}

// UpsertProfile handles PUT /profile.
func UpsertProfile(svc sellers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID := middleware.SellerIDFromContext(r.Context())
		if sellerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller context missing"))
			return
		}

		var payload upsertProfileRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.UpsertProfile(r.Context(), sellerID, sellers.ProfileInput{
			BusinessName: validators.SanitizeString(payload.BusinessName, maxNameLen),
			BusinessType: payload.BusinessType,
			Phone:        payload.Phone,
			Address:      payload.Address,
			Country:      payload.Country,
			Currency:     payload.Currency,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, profile)
	}
}

// GetProfile handles GET /profile.
func GetProfile(svc sellers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID := middleware.SellerIDFromContext(r.Context())
		if sellerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller context missing"))
			return
		}

		profile, err := svc.GetProfile(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, profile)
	}
}

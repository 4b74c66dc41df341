package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kwameasiedu/shopstack/api/responses"
	pkgerrors "github.com/kwameasiedu/shopstack/pkg/errors"
	"github.com/kwameasiedu/shopstack/pkg/logger"
)

const sellerIDHeader = "X-Seller-Id"

// SellerContext resolves the seller identity set by the auth gateway. Routes
// behind it can assume a non-nil seller id in the request context.
func SellerContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw := r.Header.Get(sellerIDHeader)
			if raw == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller identity required"))
				return
			}
			sellerID, err := uuid.Parse(raw)
			if err != nil || sellerID == uuid.Nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid seller identity"))
				return
			}

			ctx = WithSellerID(ctx, sellerID)
			if logg != nil {
				ctx = logg.WithSellerID(ctx, sellerID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

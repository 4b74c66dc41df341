package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const ctxSellerID contextKey = "seller_id"

// SellerIDFromContext returns the authenticated seller id, or uuid.Nil when
// the request carried none.
func SellerIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxSellerID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

// WithSellerID injects the seller identifier into the context.
func WithSellerID(ctx context.Context, sellerID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSellerID, sellerID)
}

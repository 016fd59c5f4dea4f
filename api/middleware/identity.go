package middleware

import (
	"context"
	"net/http"

	"github.com/obiagwu/vendara-backend/pkg/logger"
)

// Identity headers are set by the gateway in front of this service; token
// verification happens there, not here.
const (
	userIDHeader   = "X-User-Id"
	vendorIDHeader = "X-Vendor-Id"
)

type contextKey string

const (
	ctxUserID   contextKey = "user_id"
	ctxVendorID contextKey = "vendor_id"
)

// Identity copies the caller identity headers into the request context.
func Identity(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if userID := r.Header.Get(userIDHeader); userID != "" {
				ctx = context.WithValue(ctx, ctxUserID, userID)
				if logg != nil {
					ctx = logg.WithUserID(ctx, userID)
				}
			}
			if vendorID := r.Header.Get(vendorIDHeader); vendorID != "" {
				ctx = context.WithValue(ctx, ctxVendorID, vendorID)
				if logg != nil {
					ctx = logg.WithVendorID(ctx, vendorID)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithUserID and WithVendorID seed identity directly, bypassing the headers.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxUserID, userID)
}

func WithVendorID(ctx context.Context, vendorID string) context.Context {
	return context.WithValue(ctx, ctxVendorID, vendorID)
}

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func VendorIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxVendorID).(string); ok {
		return v
	}
	return ""
}

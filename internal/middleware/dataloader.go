package middleware

import (
	"context"
	"net/http"

	"github.com/rpattn/visadesk/internal/auth"
	"github.com/rpattn/visadesk/internal/serviceloader"
)

type ctxKey string

const serviceTypeLoaderKey ctxKey = "serviceTypeLoader"

// DataLoaderMiddleware attaches a per-request service type loader. It must run
// after OrganizationScopeMiddleware; unscoped requests get no loader.
func DataLoaderMiddleware(source serviceloader.ServiceTypeSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			orgID, ok := auth.OrganizationIDFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			loader := serviceloader.NewServiceTypeLoader(source, orgID)
			ctx := context.WithValue(r.Context(), serviceTypeLoaderKey, loader)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ServiceTypeLoaderFromContext retrieves the loader from context
func ServiceTypeLoaderFromContext(ctx context.Context) *serviceloader.ServiceTypeLoader {
	if l, ok := ctx.Value(serviceTypeLoaderKey).(*serviceloader.ServiceTypeLoader); ok {
		return l
	}
	return nil
}

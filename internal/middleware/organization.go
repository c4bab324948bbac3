package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/rpattn/visadesk/internal/auth"
)

// OrganizationHeader carries the tenant a request acts for.
const OrganizationHeader = "X-Organization-ID"

// OrganizationScopeMiddleware stores the organization named by
// OrganizationHeader in the request context. Requests without the header pass
// through unscoped; a malformed header is rejected.
func OrganizationScopeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(OrganizationHeader))
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		id, err := uuid.Parse(raw)
		if err != nil || id == uuid.Nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid " + OrganizationHeader + " header"})
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.ContextWithOrganizationID(r.Context(), id)))
	})
}

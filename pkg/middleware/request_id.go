package middleware

import (
	"net/http"

	"github.com/contracthub/extraction-service/pkg/requestid"
)

// RequestID takes the request ID from the x-request-id header, or generates
// one, and injects it into the request context so every layer below can tag
// its logs and responses with it.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("x-request-id")
		if id == "" {
			id = requestid.Generate()
		}

		ctx := requestid.ToContext(r.Context(), id)
		w.Header().Set("x-request-id", id)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

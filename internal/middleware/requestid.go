package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/klaudly/klaudly/internal/ctxkeys"
)

const requestIDHeader = "X-Request-ID"

// WithRequestID tags the request with an id, reusing a sane inbound
// X-Request-ID, and echoes it on the response.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ctxkeys.WithRequestID(r.Context(), id)))
	})
}

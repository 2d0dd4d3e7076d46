package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/yicone/chatgpt-web-share/internal/logging"
	"github.com/yicone/chatgpt-web-share/internal/stats"
)

// RequestID ensures every request carries an X-Request-ID, generating one
// when the caller did not send any, and propagates it via the context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), requestID)))
	})
}

// CountRequests folds every served request into the statistics store.
func CountRequests(store *stats.Store) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store.CountRequest()
			next.ServeHTTP(w, r)
		})
	}
}

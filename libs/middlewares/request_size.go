package middlewares

import (
	"net/http"
)

// DefaultMaxRequestSize is the body limit applied by the API server
const DefaultMaxRequestSize int64 = 10 * 1024 * 1024

// RequestSizeLimitMiddleware rejects declared bodies over maxRequestSize and caps the rest while reading
func RequestSizeLimitMiddleware(maxRequestSize int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxRequestSize {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				w.Write([]byte(`{"error":"Request body too large"}`))
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)
			next.ServeHTTP(w, r)
		})
	}
}

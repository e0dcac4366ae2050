package request

import (
	"net/http"
)

// DefaultBodyLimit caps request bodies. Credential payloads are small.
const DefaultBodyLimit int64 = 1 << 20

// BodyLimit wraps the body in http.MaxBytesReader. Reads past maxBytes fail
// with *http.MaxBytesError, which the JSON decoder reports as 413.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

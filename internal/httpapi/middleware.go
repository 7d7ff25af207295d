package httpapi

import (
	"log"
	"net/http"
	"time"
)

// maxRequestBody caps device submissions.  The largest message
// (an access record with pin and timestamp) encodes to well under 1 KiB
// of JSON, so 4 KiB is generous.
const maxRequestBody = 4096

func loggingMiddleware(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now().UTC()
			next.ServeHTTP(w, r)
			logger.Printf("%s %s from=%s dur=%s", r.Method, r.URL.Path, r.RemoteAddr, time.Since(start))
		})
	}
}

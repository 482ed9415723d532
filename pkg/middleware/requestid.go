package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/relevance-labs/cal-engine/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestID stashes a request id (the incoming X-Request-ID header if
// present, otherwise a freshly generated one) into the request context
// via logger.WithRequestID, and echoes it back on the response so every
// log line for this request carries the same id.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = generateRequestID()
		}
		w.Header().Set(requestIDHeader, requestID)
		ctx := logger.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func generateRequestID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(buf[:])
}

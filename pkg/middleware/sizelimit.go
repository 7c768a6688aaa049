package middleware

import (
	"net/http"
	"strconv"

	"github.com/taskforge/taskforge/pkg/observability"
)

// DefaultMaxRequestSize is the request body limit when none is configured.
const DefaultMaxRequestSize = 10 * 1024 * 1024 // 10 MiB

// SizeLimitMiddleware rejects oversized request bodies before handlers
// read them
type SizeLimitMiddleware struct {
	maxBytes int64
	logger   *observability.Logger
}

// NewSizeLimitMiddleware creates a size limit middleware. maxBytes <= 0
// selects the default limit.
func NewSizeLimitMiddleware(maxBytes int64, logger *observability.Logger) *SizeLimitMiddleware {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestSize
	}
	return &SizeLimitMiddleware{
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// Handler wraps an HTTP handler with request size enforcement. A declared
// Content-Length over the limit is rejected with 413; a malformed one with
// 400. Bodies without a declared length are capped with MaxBytesReader so
// chunked uploads cannot bypass the limit.
func (m *SizeLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if lengthHeader := r.Header.Get("Content-Length"); lengthHeader != "" {
			length, err := strconv.ParseInt(lengthHeader, 10, 64)
			if err != nil || length < 0 {
				m.logger.WithField("content_length", lengthHeader).Warn("malformed Content-Length header")
				writeJSONError(w, http.StatusBadRequest, "invalid Content-Length header")
				return
			}
			if length > m.maxBytes {
				m.logger.WithFields(map[string]interface{}{
					"content_length": length,
					"max_bytes":      m.maxBytes,
					"path":           r.URL.Path,
				}).Warn("request body too large")
				writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
		}

		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, m.maxBytes)
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSONError writes a minimal JSON error without pulling in httputil,
// keeping this package free of response-shaping dependencies.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + message + `"}`))
}

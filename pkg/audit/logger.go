package audit

import (
	"github.com/taskforge/taskforge/pkg/observability"
)

// Logger writes audit entries as structured JSON log records
type Logger struct {
	base *observability.Logger
}

// NewLogger creates an audit logger on top of the application logger.
func NewLogger(base *observability.Logger) *Logger {
	return &Logger{base: base.WithField("component", "audit")}
}

// Log writes one audit entry. The level follows the response class: 2xx/3xx
// are informational, 4xx warnings, 5xx errors.
func (l *Logger) Log(entry Entry) {
	logger := l.base.WithFields(map[string]interface{}{
		"request_id": entry.RequestID,
		"method":     entry.Method,
		"path":       entry.Path,
		"status":     entry.Status,
		"duration":   entry.Duration.String(),
		"client_ip":  entry.ClientIP,
		"actor":      entry.Actor,
		"sensitive":  entry.Sensitive,
	})
	if entry.Query != "" {
		logger = logger.WithField("query", entry.Query)
	}
	if entry.UserAgent != "" {
		logger = logger.WithField("user_agent", entry.UserAgent)
	}

	switch {
	case entry.Status >= 500:
		logger.Error("request audit")
	case entry.Status >= 400:
		logger.Warn("request audit")
	default:
		logger.Info("request audit")
	}
}

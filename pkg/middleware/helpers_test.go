package middleware

import (
	"io"

	"github.com/taskforge/taskforge/pkg/observability"
)

// discardLogger returns a logger whose output is thrown away.
func discardLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

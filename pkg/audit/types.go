// Package audit records security-relevant request activity as structured
// log entries: authentication traffic, failures, admin actions, and slow
// requests, plus everything else when log-all mode is on.
package audit

import "time"

// Entry is one audit record for a completed HTTP request
type Entry struct {
	RequestID string        `json:"request_id"`
	Timestamp time.Time     `json:"timestamp"`
	Method    string        `json:"method"`
	Path      string        `json:"path"`
	Query     string        `json:"query,omitempty"`
	Status    int           `json:"status"`
	Duration  time.Duration `json:"duration"`
	ClientIP  string        `json:"client_ip"`
	UserAgent string        `json:"user_agent,omitempty"`

	// Actor is the authenticated username, or "anonymous".
	Actor string `json:"actor"`

	// Sensitive marks paths that always produce an entry.
	Sensitive bool `json:"sensitive"`
}

// AnonymousActor is recorded when no session is attached to the request.
const AnonymousActor = "anonymous"

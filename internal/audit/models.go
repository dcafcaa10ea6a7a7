// Package audit keeps an append-only trail of verification outcomes. Events
// are emitted fire-and-forget from the orchestrator and drained by a worker,
// so audit persistence latency never sits on the request path.
package audit

import "time"

// Event records one completed verification.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	PopupID    string    `json:"popup_id"`
	UserID     string    `json:"user_id"`
	ClientIP   string    `json:"client_ip,omitempty"`
	TotalScore int       `json:"total_score"`
	Passed     bool      `json:"passed"`
	Methods    []string  `json:"methods"`
}

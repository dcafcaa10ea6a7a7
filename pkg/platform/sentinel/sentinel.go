package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and resilience primitives
// return these (optionally wrapped) so services can translate them into domain
// errors or degraded results.
//
// These represent factual states about resources, not validation failures:
// - ErrCircuitOpen: circuit breaker is shedding load for a dependency
// - ErrTimeout: wrapped call exceeded its request timeout
// - ErrReplayed: one-time code already consumed
// - ErrExpired: code or window no longer valid
// - ErrUnavailable: backing store or service temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrCircuitOpen = errors.New("circuit open")
	ErrTimeout     = errors.New("request timeout")
	ErrReplayed    = errors.New("code already used")
	ErrExpired     = errors.New("expired")
	ErrUnavailable = errors.New("unavailable")
)

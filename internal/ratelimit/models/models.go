package models

import (
	"strings"
	"time"
)

// Result is the outcome of a rate limit check. A rejection is a normal
// result, not an error, so callers can render a retry-after hint.
type Result struct {
	Success   bool      `json:"success"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
	ResetIn   int       `json:"reset_in"` // seconds until a fresh window
}

// Preset names a caller-facing rate limit tier.
type Preset string

const (
	PresetStrict  Preset = "strict"  // verification and other abuse-prone writes
	PresetNormal  Preset = "normal"  // general API traffic
	PresetRelaxed Preset = "relaxed" // cheap reads
)

// Limits returns the requests-per-window and window for the preset. Unknown
// presets get the strict tier: misconfiguration should never loosen a limit.
func (p Preset) Limits() (int, time.Duration) {
	switch p {
	case PresetNormal:
		return 60, time.Minute
	case PresetRelaxed:
		return 120, time.Minute
	default:
		return 10, time.Minute
	}
}

// IsValid checks if the preset is one of the supported tiers.
func (p Preset) IsValid() bool {
	switch p {
	case PresetStrict, PresetNormal, PresetRelaxed:
		return true
	}
	return false
}

// SanitizeKeySegment escapes delimiter characters in rate limit key segments
// to prevent key collision attacks where user-controlled identifiers
// containing ':' could manipulate adjacent rate limit buckets.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// IPKey builds the bucket key for a client IP.
func IPKey(ip string) string {
	return "rl:ip:" + SanitizeKeySegment(ip)
}

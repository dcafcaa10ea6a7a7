// Package totp derives and verifies time-based one-time codes bound to a
// shared secret, per RFC 6238 with the RFC 4226 truncation scheme. Codes are
// 6 digits over a 30 second window; verification tolerates the immediately
// preceding window to absorb clock and transmission skew, and nothing more.
package totp

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

const (
	// Window is the code validity quantum.
	Window = 30 * time.Second

	// Digits is the code length.
	Digits = 6

	codeModulo = 1_000_000
)

// Result reports a verification outcome. WindowOffset is 0 when the code
// matched the current window, -1 for the previous window, and meaningless
// when Valid is false.
type Result struct {
	Valid        bool
	WindowOffset int
}

// Generate derives the 6-digit code for the window containing t.
func Generate(secret []byte, t time.Time) string {
	return generateCounter(secret, counterFor(t, 0))
}

// Verify checks code against the current window, then the previous one.
// Malformed codes never match and never error. Comparisons are constant-time
// so response latency does not reveal where a guess diverged.
func Verify(code string, secret []byte, t time.Time) Result {
	for _, offset := range []int{0, -1} {
		expected := generateCounter(secret, counterFor(t, offset))
		if ConstantTimeEqual(code, expected) {
			return Result{Valid: true, WindowOffset: offset}
		}
	}
	return Result{}
}

// RemainingSeconds returns how long the code for the window containing t
// stays current.
func RemainingSeconds(t time.Time) int {
	elapsed := t.Unix() % int64(Window/time.Second)
	return int(int64(Window/time.Second) - elapsed)
}

// SecretFromBase32 decodes an authenticator-app style base32 secret,
// tolerating lowercase and missing padding.
func SecretFromBase32(s string) ([]byte, error) {
	normalized := strings.ToUpper(strings.TrimRight(s, "="))
	secret, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(normalized)
	if err != nil {
		return nil, fmt.Errorf("decode base32 secret: %w", err)
	}
	return secret, nil
}

// ConstantTimeEqual compares two strings in time independent of where they
// first differ. Mismatched lengths return false without scanning.
func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// counterFor quantizes t into a window index, shifted by offset windows.
func counterFor(t time.Time, offset int) uint64 {
	idx := t.Unix()/int64(Window/time.Second) + int64(offset)
	return uint64(idx)
}

// generateCounter applies HMAC-SHA-256 to the big-endian counter and reduces
// the dynamic truncation (RFC 4226 §5.3) to a zero-padded 6-digit code.
func generateCounter(secret []byte, counter uint64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha256.New, secret)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	value := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	return fmt.Sprintf("%0*d", Digits, value%codeModulo)
}

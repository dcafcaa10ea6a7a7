package totp

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("popcheck-shared-secret")

// windowStart pins tests to a window boundary so skew math is exact.
func windowStart() time.Time {
	t := time.Unix(1_700_000_010, 0)
	return t.Truncate(Window)
}

func TestGenerate_ShapeAndDeterminism(t *testing.T) {
	now := windowStart()
	code := Generate(testSecret, now)

	require.Len(t, code, Digits)
	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9', "code must be numeric, got %q", code)
	}

	// Same secret and window yields the same code
	assert.Equal(t, code, Generate(testSecret, now.Add(29*time.Second)))

	// Different secret yields a different code (overwhelmingly)
	assert.NotEqual(t, code, Generate([]byte("other-secret"), now))
}

func TestVerify_RoundTrip(t *testing.T) {
	now := windowStart().Add(7 * time.Second)
	code := Generate(testSecret, now)

	res := Verify(code, testSecret, now)
	assert.True(t, res.Valid)
	assert.Equal(t, 0, res.WindowOffset)
}

func TestVerify_SkewTolerance(t *testing.T) {
	issued := windowStart()
	code := Generate(testSecret, issued)

	// Still current at t+29s
	res := Verify(code, testSecret, issued.Add(29*time.Second))
	assert.True(t, res.Valid)
	assert.Equal(t, 0, res.WindowOffset)

	// One window later it matches via the previous-window check
	res = Verify(code, testSecret, issued.Add(31*time.Second))
	assert.True(t, res.Valid)
	assert.Equal(t, -1, res.WindowOffset)

	// Two windows later it is gone
	res = Verify(code, testSecret, issued.Add(61*time.Second))
	assert.False(t, res.Valid)
}

func TestVerify_WrongCode(t *testing.T) {
	now := windowStart()
	code := Generate(testSecret, now)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	assert.False(t, Verify(wrong, testSecret, now).Valid)
}

func TestVerify_MalformedCodesNeverMatch(t *testing.T) {
	now := windowStart()
	for _, code := range []string{"", "12345", "1234567", "abcdef", "12 456", strings.Repeat("9", 64)} {
		assert.False(t, Verify(code, testSecret, now).Valid, "code %q", code)
	}
}

func TestRemainingSeconds(t *testing.T) {
	start := windowStart()
	assert.Equal(t, 30, RemainingSeconds(start))
	assert.Equal(t, 1, RemainingSeconds(start.Add(29*time.Second)))
}

func TestSecretFromBase32(t *testing.T) {
	secret, err := SecretFromBase32("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)
	assert.NotEmpty(t, secret)

	// Lowercase and padding are tolerated
	same, err := SecretFromBase32("jbswy3dpehpk3pxp======")
	require.NoError(t, err)
	assert.Equal(t, secret, same)

	_, err = SecretFromBase32("not!base32")
	assert.Error(t, err)
}

func TestConstantTimeEqual(t *testing.T) {
	assert.True(t, ConstantTimeEqual("482913", "482913"))
	assert.False(t, ConstantTimeEqual("482913", "482914"))
	assert.False(t, ConstantTimeEqual("482913", "48291"))
	assert.False(t, ConstantTimeEqual("", "482913"))
	assert.True(t, ConstantTimeEqual("", ""))
}

package receipt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Verify(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/receipt/verify", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"verified":      true,
			"score":         18,
			"brandMatched":  true,
			"dateValid":     true,
			"extractedText": "TAMBURINS 압구정",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-token")
	result, err := c.Verify(context.Background(), "aGVsbG8=", "Tamburins", "popup-1", time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "aGVsbG8=", gotBody["imageBase64"])
	assert.Equal(t, "Tamburins", gotBody["brandName"])
	assert.Equal(t, "popup-1", gotBody["popupId"])
	assert.Equal(t, "2026-03-14T12:00:00Z", gotBody["checkInDate"])

	assert.True(t, result.Verified)
	assert.Equal(t, 18, result.Score)
	assert.Equal(t, "TAMBURINS 압구정", result.ExtractedText)
}

func TestClient_NonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.Verify(context.Background(), "aGVsbG8=", "brand", "popup-1", time.Now())
	assert.ErrorContains(t, err, "unexpected status 502")
}

func TestClient_NetworkErrorIsError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "")
	_, err := c.Verify(context.Background(), "aGVsbG8=", "brand", "popup-1", time.Now())
	assert.Error(t, err)
}

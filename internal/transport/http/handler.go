// Package httptransport is the thin HTTP layer. Handlers decode, delegate to
// the verification service, and encode; business logic stays below.
package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"popcheck/internal/verification/models"
	dErrors "popcheck/pkg/domain-errors"
	"popcheck/pkg/platform/httputil"
)

// Verifier is what the transport needs from the verification service.
type Verifier interface {
	Verify(ctx context.Context, req *models.Request) (*models.Result, error)
}

// HealthChecker reports dependency liveness. Optional.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handler serves the public verification API.
type Handler struct {
	verifier Verifier
	redis    HealthChecker
	logger   *slog.Logger
}

// NewHandler creates the HTTP handler. redis may be nil when the service runs
// on in-memory stores only.
func NewHandler(verifier Verifier, redis HealthChecker, logger *slog.Logger) *Handler {
	return &Handler{verifier: verifier, redis: redis, logger: logger}
}

// handleVerify is POST /verify.
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req models.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "malformed JSON body"))
		return
	}

	result, err := h.verifier.Verify(r.Context(), &req)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.Error("verification failed", "error", err)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// handleHealthz is GET /healthz. Degraded dependencies are reported but do
// not fail the probe: the service still verifies on in-memory stores.
func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	if h.redis != nil {
		if err := h.redis.Health(r.Context()); err != nil {
			status["redis"] = "unavailable"
		} else {
			status["redis"] = "ok"
		}
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"zkcomply/internal/screening"
	dErrors "zkcomply/pkg/domain-errors"
	"zkcomply/pkg/platform/httputil"
)

// ScreeningService is the slice of the screening service the handler needs.
type ScreeningService interface {
	Screen(ctx context.Context, req screening.Request) (*screening.Result, error)
	VerifyCredential(tokenString string) (*screening.Claims, error)
}

// SanctionsSource serves the padded sanctioned set for client-side proving.
type SanctionsSource interface {
	SanctionedHashes(ctx context.Context, capacity int) ([]*big.Int, error)
	Total(ctx context.Context) (int, error)
}

type ScreeningHandler struct {
	screening ScreeningService
	sanctions SanctionsSource
	capacity  int
	logger    *slog.Logger
}

func NewScreeningHandler(s ScreeningService, src SanctionsSource, capacity int, logger *slog.Logger) *ScreeningHandler {
	return &ScreeningHandler{screening: s, sanctions: src, capacity: capacity, logger: logger}
}

func (h *ScreeningHandler) Register(r chi.Router) {
	r.Post("/screen", h.handleScreen)
	r.Get("/sanctioned-hashes", h.handleSanctionedHashes)
	r.Post("/credentials/verify", h.handleVerifyCredential)
}

type screenResponse struct {
	Success   bool              `json:"success"`
	Reason    string            `json:"reason,omitempty"`
	Result    *screening.Result `json:"result,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

func (h *ScreeningHandler) handleScreen(w http.ResponseWriter, r *http.Request) {
	var req screening.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid JSON body"))
		return
	}

	result, err := h.screening.Screen(r.Context(), req)
	if err != nil {
		// Screening refusals share the success envelope so clients get one
		// shape for both outcomes.
		if dErrors.HasCode(err, dErrors.CodeScreeningFailed) {
			httputil.WriteJSON(w, http.StatusForbidden, screenResponse{
				Reason:    err.Error(),
				Timestamp: time.Now().UTC(),
			})
			return
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, screenResponse{
		Success:   true,
		Result:    result,
		Timestamp: time.Now().UTC(),
	})
}

func (h *ScreeningHandler) handleSanctionedHashes(w http.ResponseWriter, r *http.Request) {
	hashes, err := h.sanctions.SanctionedHashes(r.Context(), h.capacity)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "sanctioned set unavailable"))
		return
	}
	total, err := h.sanctions.Total(r.Context())
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "sanctioned set unavailable"))
		return
	}

	encoded := make([]string, len(hashes))
	for i, hash := range hashes {
		encoded[i] = hash.String()
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"sanctionedHashes": encoded,
		"total":            total,
	})
}

type verifyCredentialRequest struct {
	Credential string `json:"credential"`
}

func (h *ScreeningHandler) handleVerifyCredential(w http.ResponseWriter, r *http.Request) {
	var req verifyCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Credential == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "credential is required"))
		return
	}

	claims, err := h.screening.VerifyCredential(req.Credential)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"valid":      true,
		"commitment": claims.Subject,
		"expires_at": claims.ExpiresAt.Time,
	})
}

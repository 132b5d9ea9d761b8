package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"zkcomply/internal/audit"
	"zkcomply/internal/proof"
	"zkcomply/internal/registry/models"
	dErrors "zkcomply/pkg/domain-errors"
	"zkcomply/pkg/platform/httputil"
)

// RegistryService is the slice of the registry service the handler needs.
type RegistryService interface {
	SubmitProof(ctx context.Context, identity models.Identity, p *proof.Proof, rawSignals []string) (*models.Record, error)
	AuthorizePayment(ctx context.Context, sender, recipient models.Identity, amount int64) (*models.Transaction, error)
	RevokeCompliance(ctx context.Context, caller, identity models.Identity) error
	GetUserCompliance(ctx context.Context, identity models.Identity) (*models.Compliance, error)
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	GetSystemStats(ctx context.Context) (*models.Stats, error)
	KeyInfo() proof.KeyInfo
}

// AuditLog is the read side of the audit trail.
type AuditLog interface {
	List(ctx context.Context, identity string) ([]audit.Event, error)
}

type RegistryHandler struct {
	registry RegistryService
	audit    AuditLog
	logger   *slog.Logger
}

func NewRegistryHandler(registry RegistryService, auditLog AuditLog, logger *slog.Logger) *RegistryHandler {
	return &RegistryHandler{registry: registry, audit: auditLog, logger: logger}
}

func (h *RegistryHandler) Register(r chi.Router) {
	r.Post("/proofs", h.handleSubmitProof)
	r.Post("/payments", h.handleAuthorizePayment)
	r.Post("/revocations", h.handleRevoke)
	r.Get("/compliance/{identity}", h.handleGetCompliance)
	r.Get("/transactions/{id}", h.handleGetTransaction)
	r.Get("/audit/{identity}", h.handleAuditTrail)
	r.Get("/stats", h.handleStats)
	r.Get("/key", h.handleKeyInfo)
}

type submitProofRequest struct {
	Identity      string       `json:"identity"`
	Proof         *proof.Proof `json:"proof"`
	PublicSignals []string     `json:"public_signals"`
}

func (h *RegistryHandler) handleSubmitProof(w http.ResponseWriter, r *http.Request) {
	var req submitProofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid JSON body"))
		return
	}

	record, err := h.registry.SubmitProof(r.Context(), models.Identity(req.Identity), req.Proof, req.PublicSignals)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	status := models.StatusCompliant
	if !record.IsCompliant {
		status = models.StatusNonCompliant
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"identity":    record.Identity,
		"status":      status,
		"verified_at": record.VerifiedAt,
		"expires_at":  record.ExpiresAt,
		"proof_count": record.ProofCount,
	})
}

type paymentRequest struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"`
}

func (h *RegistryHandler) handleAuthorizePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid JSON body"))
		return
	}

	tx, err := h.registry.AuthorizePayment(r.Context(), models.Identity(req.Sender), models.Identity(req.Recipient), req.Amount)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, tx)
}

type revokeRequest struct {
	Caller   string `json:"caller"`
	Identity string `json:"identity"`
}

func (h *RegistryHandler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	var req revokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid JSON body"))
		return
	}

	if err := h.registry.RevokeCompliance(r.Context(), models.Identity(req.Caller), models.Identity(req.Identity)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"identity": req.Identity,
		"status":   models.StatusRevoked,
	})
}

func (h *RegistryHandler) handleGetCompliance(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")
	view, err := h.registry.GetUserCompliance(r.Context(), models.Identity(identity))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *RegistryHandler) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.registry.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tx)
}

func (h *RegistryHandler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")
	events, err := h.audit.List(r.Context(), identity)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"identity": identity,
		"events":   events,
	})
}

func (h *RegistryHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.registry.GetSystemStats(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *RegistryHandler) handleKeyInfo(w http.ResponseWriter, _ *http.Request) {
	key := h.registry.KeyInfo()
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"key_version": key.Version,
		"capacity":    key.Capacity,
	})
}

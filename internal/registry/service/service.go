// Package service implements the compliance registry: the trusted verifier
// that consumes proofs, maintains per-identity compliance windows, and gates
// payments on both counterparties being currently compliant.
package service

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/crypto/sha3"

	"zkcomply/internal/audit"
	"zkcomply/internal/proof"
	"zkcomply/internal/registry/metrics"
	"zkcomply/internal/registry/models"
	"zkcomply/internal/sentinel"
	dErrors "zkcomply/pkg/domain-errors"
)

const DefaultValidityPeriod = 30 * 24 * time.Hour

// Store and UsedProofStore mirror the store package contracts; redeclared
// here so the service states exactly what it depends on.
type Store interface {
	SaveRecord(ctx context.Context, record *models.Record) (*models.Record, error)
	FindRecord(ctx context.Context, identity models.Identity) (*models.Record, error)
	MarkRevoked(ctx context.Context, identity models.Identity, revokedAt time.Time) error
	SaveTransaction(ctx context.Context, tx *models.Transaction) error
	FindTransaction(ctx context.Context, id string) (*models.Transaction, error)
	CountVerified(ctx context.Context) (int64, error)
	CountTransactions(ctx context.Context) (int64, error)
}

type UsedProofStore interface {
	MarkUsed(ctx context.Context, fingerprint string) error
}

type Option func(*Service)

// Service is safe for concurrent use; atomicity of replay detection lives in
// the used-proof store, not in a service-level lock.
type Service struct {
	store      Store
	usedProofs UsedProofStore
	verifier   proof.Backend
	auditor    *audit.Publisher
	metrics    *metrics.Metrics
	logger     *slog.Logger

	owner    models.Identity
	validity time.Duration
	now      func() time.Time
}

func NewService(store Store, usedProofs UsedProofStore, verifier proof.Backend, owner models.Identity, opts ...Option) *Service {
	svc := &Service{
		store:      store,
		usedProofs: usedProofs,
		verifier:   verifier,
		owner:      owner,
		validity:   DefaultValidityPeriod,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func WithAuditor(a *audit.Publisher) Option {
	return func(s *Service) { s.auditor = a }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithValidityPeriod overrides how long an accepted proof confers compliance.
func WithValidityPeriod(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.validity = d
		}
	}
}

// WithClock injects the time source for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Fingerprint derives the replay-guard key from the proof payload, the
// public signals, and the submitting identity. The timestamp is deliberately
// not part of it: resubmitting the identical proof later must collide with
// the original submission, not slip past it.
func Fingerprint(p *proof.Proof, signals proof.PublicSignals, caller models.Identity) string {
	h := sha3.NewLegacyKeccak256()
	h.Write(p.Payload)
	for _, s := range signals.Slice() {
		h.Write([]byte{0x00})
		h.Write([]byte(s))
	}
	h.Write([]byte{0x00})
	h.Write([]byte(caller))
	return hex.EncodeToString(h.Sum(nil))
}

// transactionHash keys a payment by its content. An identical authorization
// tuple hashes to the same ID and is treated as the same logical event.
func transactionHash(sender, recipient models.Identity, amount int64, at time.Time, senderCommit, recipientCommit string) string {
	h := sha3.NewLegacyKeccak256()
	parts := []string{
		string(sender), string(recipient),
		strconv.FormatInt(amount, 10), strconv.FormatInt(at.Unix(), 10),
		senderCommit, recipientCommit,
	}
	for _, part := range parts {
		h.Write([]byte(part))
		h.Write([]byte{0x00})
	}
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

// SubmitProof verifies a compliance proof and records the result, opening
// (or refreshing) the caller's compliance window when the proof attests
// compliance. Rejections are ordered: structure, cryptographic verification,
// then replay. A proof consumed by the replay guard is burned even if the
// subsequent record write fails; the client must generate a fresh proof,
// never resubmit.
func (s *Service) SubmitProof(ctx context.Context, identity models.Identity, p *proof.Proof, rawSignals []string) (*models.Record, error) {
	if identity == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "identity is required")
	}
	if p == nil || len(p.Payload) == 0 {
		s.rejectProof(ctx, identity, "structural")
		return nil, dErrors.New(dErrors.CodeStructuralProof, "proof payload is required")
	}

	signals, err := proof.ParseSignals(rawSignals)
	if err != nil {
		s.rejectProof(ctx, identity, "structural")
		return nil, dErrors.Wrap(err, dErrors.CodeStructuralProof, "malformed public signals")
	}

	start := s.now()
	verified := s.verifier.Verify(p, signals)
	if s.metrics != nil {
		s.metrics.ObserveVerifyLatency(s.now().Sub(start).Seconds())
	}
	if !verified {
		s.rejectProof(ctx, identity, "verification_failed")
		return nil, dErrors.New(dErrors.CodeVerificationFailed, "proof verification failed")
	}

	fingerprint := Fingerprint(p, signals, identity)
	if err := s.usedProofs.MarkUsed(ctx, fingerprint); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			s.rejectProof(ctx, identity, "replayed")
			return nil, dErrors.New(dErrors.CodeReplayedProof, "proof was already used")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "replay guard unavailable")
	}

	// A verified proof of non-compliance is recorded too: the identity is
	// verified, just never payment-eligible. The store owns the proof
	// counter and increments it atomically, so concurrent submissions for
	// one identity never lose a count.
	now := s.now()
	record, err := s.store.SaveRecord(ctx, &models.Record{
		Identity:       identity,
		IsCompliant:    signals.IsCompliant,
		CommitmentHash: signals.CommitmentHash.String(),
		KeyVersion:     p.KeyVersion,
		VerifiedAt:     now,
		ExpiresAt:      now.Add(s.validity),
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save compliance record")
	}

	s.emitAudit(ctx, audit.Event{
		Identity: string(identity),
		Action:   audit.ActionProofSubmitted,
		Outcome:  audit.OutcomeAccepted,
	})
	if s.metrics != nil {
		s.metrics.IncrementProofsAccepted()
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "compliance proof accepted",
			"identity", identity,
			"is_compliant", record.IsCompliant,
			"key_version", p.KeyVersion,
			"expires_at", record.ExpiresAt,
		)
	}
	return record, nil
}

// CheckCompliance reports whether the identity holds an active compliance
// record right now. Expiry is evaluated here, at read time.
func (s *Service) CheckCompliance(ctx context.Context, identity models.Identity) (bool, error) {
	record, err := s.store.FindRecord(ctx, identity)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read compliance record")
	}
	return record.ActiveAt(s.now()), nil
}

// GetUserCompliance returns the full read model for an identity. Unknown
// identities get a well-formed "unverified" view, not an error.
func (s *Service) GetUserCompliance(ctx context.Context, identity models.Identity) (*models.Compliance, error) {
	record, err := s.store.FindRecord(ctx, identity)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return &models.Compliance{Identity: identity, Status: models.StatusUnverified}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read compliance record")
	}
	return &models.Compliance{
		Identity:       identity,
		Status:         record.ComputeStatus(s.now()),
		CommitmentHash: record.CommitmentHash,
		VerifiedAt:     &record.VerifiedAt,
		ExpiresAt:      &record.ExpiresAt,
		ProofCount:     record.ProofCount,
	}, nil
}

// AuthorizePayment gates a payment on both parties. The sender's failure
// modes are distinguished (never verified vs. expired vs. revoked); any
// recipient defect collapses to a single recipient-side refusal so the
// sender learns nothing about why their counterparty is blocked.
func (s *Service) AuthorizePayment(ctx context.Context, sender, recipient models.Identity, amount int64) (*models.Transaction, error) {
	if sender == "" || recipient == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "sender and recipient are required")
	}
	if sender == recipient {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "sender and recipient must differ")
	}
	if amount <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "amount must be positive")
	}

	now := s.now()

	senderRecord, err := s.store.FindRecord(ctx, sender)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read sender record")
	}
	switch senderRecord.ComputeStatus(now) {
	case models.StatusCompliant:
	case models.StatusExpired:
		s.denyPayment(ctx, sender, "sender_expired")
		return nil, dErrors.New(dErrors.CodeExpiredCredential, "sender compliance credential expired")
	default:
		s.denyPayment(ctx, sender, "sender_not_compliant")
		return nil, dErrors.New(dErrors.CodeNotCompliant, "sender is not compliant")
	}

	recipientRecord, err := s.store.FindRecord(ctx, recipient)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read recipient record")
	}
	if !recipientRecord.ActiveAt(now) {
		s.denyPayment(ctx, sender, "recipient_not_compliant")
		return nil, dErrors.New(dErrors.CodeRecipientNotCompliant, "recipient is not compliant")
	}

	tx := &models.Transaction{
		ID:           transactionHash(sender, recipient, amount, now, senderRecord.CommitmentHash, recipientRecord.CommitmentHash),
		Sender:       sender,
		Recipient:    recipient,
		Amount:       amount,
		AuthorizedAt: now,
	}
	if err := s.store.SaveTransaction(ctx, tx); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save transaction")
	}

	s.emitAudit(ctx, audit.Event{
		Identity: string(sender),
		Action:   audit.ActionPaymentAuthorized,
		Outcome:  audit.OutcomeAccepted,
	})
	if s.metrics != nil {
		s.metrics.IncrementPaymentsAuthorized()
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "payment authorized",
			"transaction_id", tx.ID,
			"sender", sender,
			"recipient", recipient,
		)
	}
	return tx, nil
}

// RevokeCompliance immediately ends an identity's compliance window. Only
// the registry owner may revoke.
func (s *Service) RevokeCompliance(ctx context.Context, caller, identity models.Identity) error {
	if caller != s.owner {
		return dErrors.New(dErrors.CodeUnauthorized, "only the registry owner may revoke compliance")
	}
	if err := s.store.MarkRevoked(ctx, identity, s.now()); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "no compliance record for identity")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke compliance")
	}

	s.emitAudit(ctx, audit.Event{
		Identity: string(identity),
		Action:   audit.ActionComplianceRevoked,
		Outcome:  audit.OutcomeAccepted,
	})
	if s.metrics != nil {
		s.metrics.IncrementRevocations()
	}
	if s.logger != nil {
		s.logger.WarnContext(ctx, "compliance revoked", "identity", identity)
	}
	return nil
}

func (s *Service) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	tx, err := s.store.FindTransaction(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "transaction not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read transaction")
	}
	return tx, nil
}

func (s *Service) GetSystemStats(ctx context.Context) (*models.Stats, error) {
	verified, err := s.store.CountVerified(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count verified identities")
	}
	transactions, err := s.store.CountTransactions(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count transactions")
	}
	return &models.Stats{
		TotalVerifiedUsers: verified,
		TotalTransactions:  transactions,
		ValidityPeriod:     s.validity,
	}, nil
}

// KeyInfo exposes the verifier's key identity for the API surface.
func (s *Service) KeyInfo() proof.KeyInfo {
	return s.verifier.Key()
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Emit(ctx, event)
}

func (s *Service) rejectProof(ctx context.Context, identity models.Identity, reason string) {
	s.emitAudit(ctx, audit.Event{
		Identity: string(identity),
		Action:   audit.ActionProofSubmitted,
		Outcome:  audit.OutcomeRejected,
		Reason:   reason,
	})
	if s.metrics != nil {
		s.metrics.IncrementProofsRejected(reason)
	}
	if s.logger != nil {
		s.logger.WarnContext(ctx, "compliance proof rejected",
			"identity", identity,
			"reason", reason,
		)
	}
}

func (s *Service) denyPayment(ctx context.Context, sender models.Identity, reason string) {
	s.emitAudit(ctx, audit.Event{
		Identity: string(sender),
		Action:   audit.ActionPaymentAuthorized,
		Outcome:  audit.OutcomeRejected,
		Reason:   reason,
	})
	if s.metrics != nil {
		s.metrics.IncrementPaymentsDenied(reason)
	}
}

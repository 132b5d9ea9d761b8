// Package screening implements the KYC gate: exact matching of an identity
// against the sanctioned-entity dataset, and issuance of signed screening
// credentials for identities that pass.
package screening

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"zkcomply/internal/audit"
	"zkcomply/internal/identity"
	"zkcomply/internal/sanctions"
	dErrors "zkcomply/pkg/domain-errors"
)

const (
	DefaultCredentialTTL = 30 * 24 * time.Hour
	issuer               = "zkcomply-screening"
)

// Request carries the raw identity fields to screen. They are used for the
// duration of the call and never stored.
type Request struct {
	FullName      string `json:"full_name"`
	DateOfBirth   string `json:"date_of_birth"`
	BankAccount   string `json:"bank_account"`
	WalletAddress string `json:"wallet_address"`
}

// Result is a passed screening: a signed credential plus the commitment the
// screened identity reduces to.
type Result struct {
	Credential string    `json:"credential"`
	Commitment string    `json:"commitment"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Claims are the credential contents. Subject is the identity commitment in
// decimal, so the credential binds to the same value the circuit consumes
// without carrying any raw identity field.
type Claims struct {
	jwt.RegisteredClaims
}

// Screener is what the client orchestrator depends on.
type Screener interface {
	Screen(ctx context.Context, req Request) (*Result, error)
}

type Option func(*Service)

// Service screens identities against the provider's dataset.
type Service struct {
	provider *sanctions.Provider
	secret   []byte
	ttl      time.Duration
	auditor  *audit.Publisher
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(provider *sanctions.Provider, secret []byte, opts ...Option) *Service {
	svc := &Service{
		provider: provider,
		secret:   secret,
		ttl:      DefaultCredentialTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func WithCredentialTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithAuditor(a *audit.Publisher) Option {
	return func(s *Service) { s.auditor = a }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Screen matches the request against the dataset. Matching is exact on
// normalized name plus date of birth; a hit refuses the identity, a miss
// issues a credential. Name-only or birthdate-only coincidences pass.
func (s *Service) Screen(ctx context.Context, req Request) (*Result, error) {
	if req.FullName == "" || req.DateOfBirth == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "full name and date of birth are required")
	}

	name := identity.Normalize(req.FullName)
	dob := req.DateOfBirth
	commitment := identity.UserCommitment(req.FullName, req.DateOfBirth)

	for _, entry := range s.provider.Entries() {
		if identity.Normalize(entry.Name) == name && entry.DateOfBirth == dob {
			s.emitAudit(ctx, audit.OutcomeRejected, entry.Source)
			if s.logger != nil {
				s.logger.WarnContext(ctx, "screening rejected identity", "source", entry.Source)
			}
			return nil, dErrors.New(dErrors.CodeScreeningFailed,
				fmt.Sprintf("identity matched sanctions list %s", entry.Source))
		}
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   commitment.String(),
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign screening credential")
	}

	s.emitAudit(ctx, audit.OutcomeAccepted, "")
	return &Result{
		Credential: signed,
		Commitment: commitment.String(),
		ExpiresAt:  expiresAt,
	}, nil
}

// VerifyCredential parses and validates a screening credential. Only HS256
// under the service secret is accepted.
func (s *Service) VerifyCredential(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid screening credential")
	}
	return claims, nil
}

func (s *Service) emitAudit(ctx context.Context, outcome, reason string) {
	if s.auditor == nil {
		return
	}
	// Identity is deliberately absent: the audit trail must not link raw
	// screening traffic to identities.
	_ = s.auditor.Emit(ctx, audit.Event{
		Action:  audit.ActionScreeningPerformed,
		Outcome: outcome,
		Reason:  reason,
	})
}

// Package client orchestrates proof generation on behalf of a user: screen
// the identity, fetch the sanctioned set, generate the proof, and verify it
// locally before anything leaves the client.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"golang.org/x/sync/errgroup"

	"zkcomply/internal/circuit"
	"zkcomply/internal/identity"
	"zkcomply/internal/proof"
	"zkcomply/internal/sanctions"
	"zkcomply/internal/screening"
	dErrors "zkcomply/pkg/domain-errors"
)

// Stage names the pipeline step a failure belongs to, so callers can tell a
// screening refusal from an infrastructure fault without string matching.
type Stage string

const (
	StageScreening   Stage = "screening"
	StageFetchSet    Stage = "fetch_set"
	StageProve       Stage = "prove"
	StageLocalVerify Stage = "local_verify"
)

// PipelineError tags a failure with the stage that produced it.
type PipelineError struct {
	Stage Stage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline stage %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// StageOf extracts the pipeline stage from an error chain, or "" if the
// error did not come from the pipeline.
func StageOf(err error) Stage {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Stage
	}
	return ""
}

// Identity is the raw user input. It lives for the duration of one pipeline
// run; only commitments derived from it survive.
type Identity struct {
	FullName      string
	DateOfBirth   string
	BankAccount   string
	WalletAddress string
}

// Bundle is everything a successful run produces: the screening credential
// and the locally-verified proof ready for registry submission.
type Bundle struct {
	Credential    string
	Proof         *proof.Proof
	PublicSignals []string
	GeneratedAt   time.Time
}

type Option func(*Orchestrator)

// Orchestrator runs the pipeline. The screener and set source may be local
// services or HTTP clients; the orchestrator does not care which.
type Orchestrator struct {
	screener screening.Screener
	set      sanctions.Set
	backend  proof.Backend
	logger   *slog.Logger
	newSalt  func() (*big.Int, error)
}

func NewOrchestrator(screener screening.Screener, set sanctions.Set, backend proof.Backend, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		screener: screener,
		set:      set,
		backend:  backend,
		newSalt:  identity.NewSalt,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithSaltSource injects the salt generator for deterministic tests.
func WithSaltSource(newSalt func() (*big.Int, error)) Option {
	return func(o *Orchestrator) {
		if newSalt != nil {
			o.newSalt = newSalt
		}
	}
}

// GenerateComplianceProof runs the full pipeline. Screening and set fetch
// have no data dependency, so they run concurrently; the first failure
// cancels the other.
//
// A proof that fails its own local verification is never returned: that can
// only mean key mismatch or a backend defect, and submitting it would burn a
// registry round-trip on a proof known to be rejected.
func (o *Orchestrator) GenerateComplianceProof(ctx context.Context, id Identity) (*Bundle, error) {
	capacity := o.backend.Key().Capacity

	var screened *screening.Result
	var set []*big.Int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		result, err := o.screener.Screen(gctx, screening.Request{
			FullName:      id.FullName,
			DateOfBirth:   id.DateOfBirth,
			BankAccount:   id.BankAccount,
			WalletAddress: id.WalletAddress,
		})
		if err != nil {
			return &PipelineError{Stage: StageScreening, Err: err}
		}
		screened = result
		return nil
	})
	g.Go(func() error {
		hashes, err := o.set.SanctionedHashes(gctx, capacity)
		if err != nil {
			return &PipelineError{Stage: StageFetchSet, Err: err}
		}
		set = hashes
		return nil
	})
	if err := g.Wait(); err != nil {
		o.logFailure(ctx, err)
		return nil, err
	}

	salt, err := o.newSalt()
	if err != nil {
		return nil, &PipelineError{Stage: StageProve, Err: err}
	}

	p, signals, err := o.backend.Produce(ctx, circuit.Inputs{
		UserCommitment: identity.UserCommitment(id.FullName, id.DateOfBirth),
		BankCommitment: identity.BankCommitment(id.BankAccount),
		WalletID:       identity.WalletCommitment(id.WalletAddress),
		Salt:           salt,
		SanctionedList: set,
	})
	if err != nil {
		err = &PipelineError{Stage: StageProve, Err: err}
		o.logFailure(ctx, err)
		return nil, err
	}

	if !o.backend.Verify(p, signals) {
		err := &PipelineError{
			Stage: StageLocalVerify,
			Err:   dErrors.New(dErrors.CodeInternalConsistency, "self-produced proof failed local verification"),
		}
		o.logFailure(ctx, err)
		return nil, err
	}

	if o.logger != nil {
		o.logger.InfoContext(ctx, "compliance proof generated",
			"scheme", p.Scheme,
			"key_version", p.KeyVersion,
		)
	}
	return &Bundle{
		Credential:    screened.Credential,
		Proof:         p,
		PublicSignals: signals.Slice(),
		GeneratedAt:   time.Now().UTC(),
	}, nil
}

func (o *Orchestrator) logFailure(ctx context.Context, err error) {
	if o.logger == nil {
		return
	}
	o.logger.WarnContext(ctx, "compliance pipeline failed",
		"stage", StageOf(err),
		"error", err,
	)
}

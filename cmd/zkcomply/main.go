// Command zkcomply runs the full compliance flow in-process: screening,
// proof generation, registry submission, and payment authorization, for one
// clean identity pair and one sanctioned identity.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"zkcomply/internal/client"
	"zkcomply/internal/platform/config"
	"zkcomply/internal/platform/logger"
	"zkcomply/internal/proof"
	"zkcomply/internal/registry/models"
	registryservice "zkcomply/internal/registry/service"
	registrystore "zkcomply/internal/registry/store"
	"zkcomply/internal/sanctions"
	"zkcomply/internal/screening"
	dErrors "zkcomply/pkg/domain-errors"
)

func main() {
	cfg := config.FromEnv()
	var (
		useGroth16   = flag.Bool("groth16", false, "use the Groth16 backend instead of the simulated one")
		capacity     = flag.Int("capacity", 16, "sanctioned-set circuit capacity")
		screeningURL = flag.String("screening-url", cfg.ScreeningURL,
			"screen and fetch the sanctioned set from a running server instead of in-process")
	)
	flag.Parse()

	if err := run(context.Background(), *useGroth16, *capacity, *screeningURL); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, useGroth16 bool, capacity int, screeningURL string) error {
	log := logger.New(config.FromEnv().LogLevel)

	var backend proof.Backend
	if useGroth16 {
		fmt.Printf("compiling circuit and running setup (n=%d), this can take a while...\n", capacity)
		g16, err := proof.NewGroth16(capacity)
		if err != nil {
			return err
		}
		backend = g16
	} else {
		backend = proof.NewSimulated(capacity)
	}

	provider := sanctions.NewProvider(sanctions.Builtin())
	store := registrystore.NewInMemory()
	registry := registryservice.NewService(store, store, backend, "registry-owner",
		registryservice.WithValidityPeriod(config.DefaultValidityPeriod),
		registryservice.WithLogger(log),
	)

	// Screening and the sanctioned set come from a remote server when one is
	// configured, otherwise run in-process.
	var screener screening.Screener
	var set sanctions.Set
	if screeningURL != "" {
		fmt.Printf("screening against %s\n", screeningURL)
		screener = screening.NewClient(screeningURL)
		set = sanctions.NewClient(screeningURL)
	} else {
		screener = screening.NewService(provider, []byte("demo-secret"))
		set = provider
	}
	orchestrator := client.NewOrchestrator(screener, set, backend, client.WithLogger(log))

	fmt.Printf("proof backend: %s\n\n", backend.Key().Version)

	// Two clean identities prove in parallel.
	users := []struct {
		identity models.Identity
		fields   client.Identity
	}{
		{"0xalice", client.Identity{
			FullName: "Alice Johnson", DateOfBirth: "1990-05-15",
			BankAccount: "DE89370400440532013000", WalletAddress: "0xalice",
		}},
		{"0xbob", client.Identity{
			FullName: "Bob Smith", DateOfBirth: "1985-11-02",
			BankAccount: "GB29NWBK60161331926819", WalletAddress: "0xbob",
		}},
	}

	bundles := make([]*client.Bundle, len(users))
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range users {
		g.Go(func() error {
			start := time.Now()
			bundle, err := orchestrator.GenerateComplianceProof(gctx, u.fields)
			if err != nil {
				return fmt.Errorf("%s: %w", u.fields.FullName, err)
			}
			fmt.Printf("✓ %s: proof generated in %s\n", u.fields.FullName, time.Since(start).Round(time.Millisecond))
			bundles[i] = bundle
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, u := range users {
		record, err := registry.SubmitProof(ctx, u.identity, bundles[i].Proof, bundles[i].PublicSignals)
		if err != nil {
			return fmt.Errorf("submit for %s: %w", u.identity, err)
		}
		fmt.Printf("✓ %s: registered compliant until %s\n", u.identity, record.ExpiresAt.Format(time.RFC3339))
	}

	// A sanctioned identity must fail at the screening stage, before any
	// proof material exists.
	fmt.Println()
	_, err := orchestrator.GenerateComplianceProof(ctx, client.Identity{
		FullName: "Vladimir Putin", DateOfBirth: "1952-10-07",
		BankAccount: "RU0204452560040702810412345678901", WalletAddress: "0xkremlin",
	})
	if err == nil {
		return fmt.Errorf("sanctioned identity unexpectedly passed the pipeline")
	}
	if stage := client.StageOf(err); stage != client.StageScreening || !dErrors.HasCode(err, dErrors.CodeScreeningFailed) {
		return fmt.Errorf("sanctioned identity failed at the wrong stage: %w", err)
	}
	fmt.Println("✓ sanctioned identity blocked at screening, no proof generated")

	// Replay: resubmitting Alice's consumed proof must be refused.
	if _, err := registry.SubmitProof(ctx, users[0].identity, bundles[0].Proof, bundles[0].PublicSignals); !dErrors.HasCode(err, dErrors.CodeReplayedProof) {
		return fmt.Errorf("replayed proof was not refused: %w", err)
	}
	fmt.Println("✓ replayed proof refused")

	tx, err := registry.AuthorizePayment(ctx, users[0].identity, users[1].identity, 125_00)
	if err != nil {
		return fmt.Errorf("authorize payment: %w", err)
	}
	fmt.Printf("✓ payment %s authorized: %s -> %s (%d)\n", tx.ID, tx.Sender, tx.Recipient, tx.Amount)

	stats, err := registry.GetSystemStats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\nregistry: %d verified identities, %d transactions\n",
		stats.TotalVerifiedUsers, stats.TotalTransactions)
	return nil
}

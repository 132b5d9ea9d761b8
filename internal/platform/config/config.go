package config

import (
	"os"
	"strconv"
	"time"
)

// Defaults mirror the protocol constants: a 30-day compliance validity window
// and a sanctioned-set capacity baked into the circuit key.
const (
	DefaultValidityPeriod  = 30 * 24 * time.Hour
	DefaultCircuitCapacity = 64
)

// Server captures process-level configuration. Values come from the
// environment so main stays lean.
type Server struct {
	Addr        string
	Environment string
	LogLevel    string

	// ValidityPeriod bounds every compliance credential issued by the registry.
	ValidityPeriod time.Duration

	// CircuitCapacity is n, the fixed sanctioned-set size of the circuit.
	// Changing it requires a new proving/verification key, not just new data.
	CircuitCapacity int

	// ProofBackend selects the proving system: "groth16" or "simulated".
	ProofBackend string

	// OwnerIdentity may call privileged registry operations (revocation).
	OwnerIdentity string

	// JWTSigningKey signs screening credentials.
	JWTSigningKey string

	ScreeningURL string
	DatabaseURL  string
	RedisURL     string
	KafkaBrokers string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:            getEnv("ZKCOMPLY_ADDR", ":8080"),
		Environment:     getEnv("ZKCOMPLY_ENV", "development"),
		LogLevel:        getEnv("ZKCOMPLY_LOG_LEVEL", "info"),
		ValidityPeriod:  DefaultValidityPeriod,
		CircuitCapacity: DefaultCircuitCapacity,
		ProofBackend:    getEnv("ZKCOMPLY_PROOF_BACKEND", "simulated"),
		OwnerIdentity:   getEnv("ZKCOMPLY_OWNER_IDENTITY", "registry-owner"),
		JWTSigningKey:   getEnv("ZKCOMPLY_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		ScreeningURL:    os.Getenv("ZKCOMPLY_SCREENING_URL"),
		DatabaseURL:     os.Getenv("ZKCOMPLY_DATABASE_URL"),
		RedisURL:        os.Getenv("ZKCOMPLY_REDIS_URL"),
		KafkaBrokers:    os.Getenv("ZKCOMPLY_KAFKA_BROKERS"),
	}

	if raw := os.Getenv("ZKCOMPLY_VALIDITY_PERIOD"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.ValidityPeriod = d
		}
	}
	if raw := os.Getenv("ZKCOMPLY_CIRCUIT_CAPACITY"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			cfg.CircuitCapacity = n
		}
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

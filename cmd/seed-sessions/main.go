package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/arenalab/policy-arena/internal/seeder"
)

// Default configuration constants.
const (
	defaultNumSessions = 20
	defaultNumPolicies = 6
	defaultNumRounds   = 5
	defaultTimeout     = 30 * time.Second
	defaultRunTimeout  = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numSessions = flag.Int("sessions", defaultNumSessions, "Number of sessions to submit")
		numPolicies = flag.Int("policies", defaultNumPolicies, "Size of the generated policy roster")
		numRounds   = flag.Int("rounds", defaultNumRounds, "Rounds per session")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seeder.ShowHelp()
		return
	}

	if err := seeder.SetupLogging(); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &seeder.Config{
		BaseURL:          *baseURL,
		NumSessions:      *numSessions,
		NumPolicies:      *numPolicies,
		RoundsPerSession: *numRounds,
		Timeout:          *timeout,
		Verbose:          *verbose,
	}

	if err := seeder.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Seeding failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

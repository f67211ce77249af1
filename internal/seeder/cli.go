package seeder

import (
	"fmt"
	"os"

	"github.com/arenalab/policy-arena/pkg/logger"
)

// SetupLogging initializes the logger for the seeder.
func SetupLogging() error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// ShowHelp prints usage information for the session seeder.
func ShowHelp() {
	os.Stdout.WriteString(`Policy Arena Session Seeder
===========================

Submits generated evaluation sessions against a running arena service and
verifies the resulting leaderboard against the rating invariants.

Usage:
  go run cmd/seed-sessions/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -sessions int
        Number of sessions to submit (default 20)
  -policies int
        Size of the generated policy roster (default 6)
  -rounds int
        Rounds per session (default 5)
  -timeout duration
        HTTP request timeout (default 30s)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Seed with default settings
  go run cmd/seed-sessions/main.go

  # Seed a bigger roster against a local instance
  go run cmd/seed-sessions/main.go -sessions 100 -policies 12 -url http://localhost:8080

  # Seed with verbose output
  go run cmd/seed-sessions/main.go -verbose -sessions 10
`)
}

package main

import (
	"fmt"
	"os"

	infraconfig "github.com/jonesrussell/feedback-api/infrastructure/config"
	"github.com/jonesrussell/feedback-api/internal/config"
	"github.com/jonesrussell/feedback-api/internal/database"
)

// Exit codes for the migrate command.
const (
	exitSuccess = 0
	exitFailure = 1
)

// migrationsDir is the relative path to the migrations directory.
const migrationsDir = "migrations"

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: migrate <up|down>")
		return exitFailure
	}

	direction := os.Args[1]
	if direction != database.MigrateUp && direction != database.MigrateDown {
		fmt.Fprintf(os.Stderr, "Invalid direction: %q (must be \"up\" or \"down\")\n", direction)
		return exitFailure
	}

	cfg, err := config.Load(infraconfig.GetConfigPath("config.yml"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return exitFailure
	}

	if cfg.Database.Driver != config.DriverPostgres {
		fmt.Fprintf(os.Stderr, "Migrations apply to PostgreSQL only; the %s schema is created at startup\n", cfg.Database.Driver)
		return exitFailure
	}

	changed, err := database.Migrate(cfg.Database.MigrateURL(), migrationsDir, direction)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Migration %s failed: %v\n", direction, err)
		return exitFailure
	}

	if !changed {
		fmt.Println("No migrations to apply")
		return exitSuccess
	}

	fmt.Printf("Migration %s completed successfully\n", direction)
	return exitSuccess
}

package database

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" //nolint:blankimports // PostgreSQL migrate driver
	_ "github.com/golang-migrate/migrate/v4/source/file"       //nolint:blankimports // File source driver
)

// Migration directions accepted by Migrate.
const (
	MigrateUp   = "up"
	MigrateDown = "down"
)

// ErrUnknownDirection is returned for a direction other than up or down.
var ErrUnknownDirection = errors.New("direction must be \"up\" or \"down\"")

// Migrate applies (up) or reverts (down) every PostgreSQL migration found in
// dir. It reports whether anything changed.
func Migrate(databaseURL, dir, direction string) (bool, error) {
	if direction != MigrateUp && direction != MigrateDown {
		return false, ErrUnknownDirection
	}

	if absPath, err := filepath.Abs(dir); err == nil {
		dir = absPath
	}

	m, err := migrate.New("file://"+dir, databaseURL)
	if err != nil {
		return false, fmt.Errorf("create migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if direction == MigrateUp {
		err = m.Up()
	} else {
		err = m.Down()
	}

	if errors.Is(err, migrate.ErrNoChange) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("run migrations %s: %w", direction, err)
	}
	return true, nil
}

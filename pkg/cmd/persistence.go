// Package cmd provides shared initialization for the command-line
// binaries: persistence, event bus and registry construction.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dripline/dripline/pkg/persistence"
	"github.com/dripline/dripline/pkg/persistence/file"
	"github.com/dripline/dripline/pkg/persistence/postgresql"
)

// NewPersistence builds the store selected by the database URL scheme:
// postgres for production, a file tree for local development.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to initialize postgres persistence: %w", err))
		}

		return p
	default:
		return file.NewPersistence(databaseURL)
	}
}

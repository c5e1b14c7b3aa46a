package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"pumpfun-indexer/internal/storage/postgres"
)

//go:embed postgres/*.sql
var postgresFiles embed.FS

// RunPostgresMigrations applies the embedded schema files in lexical order.
// Every file must be written to be idempotent so startup can re-run the set.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	names, err := fs.Glob(postgresFiles, "postgres/*.sql")
	if err != nil {
		return fmt.Errorf("list postgres migrations: %w", err)
	}

	for _, name := range names {
		data, err := postgresFiles.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		sql := strings.TrimSpace(string(data))
		if sql == "" {
			continue
		}
		if _, err := pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}

	return nil
}

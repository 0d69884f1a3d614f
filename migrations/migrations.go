// Package migrations embeds the PostgreSQL schema of the development store.
package migrations

import (
	"context"
	"embed"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed *.sql
var files embed.FS

// Up returns the forward migrations in apply order.
func Up() ([]string, error) {
	entries, err := fs.Glob(files, "*.up.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(entries)

	out := make([]string, 0, len(entries))
	for _, name := range entries {
		data, err := files.ReadFile(name)
		if err != nil {
			return nil, err
		}
		out = append(out, strings.TrimSpace(string(data)))
	}
	return out, nil
}

// Apply runs every forward migration against pool. The scripts are
// idempotent so Apply is safe on every start.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	scripts, err := Up()
	if err != nil {
		return err
	}
	for _, script := range scripts {
		if _, err := pool.Exec(ctx, script); err != nil {
			return err
		}
	}
	return nil
}

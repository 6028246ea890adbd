package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed migrations/schema.sql
var schemaSQL string

// Migrate ensures the catalog tables exist. Statements are idempotent.
func (db *Database) Migrate(ctx context.Context) error {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	for i, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d: %w", i+1, err)
		}
	}
	return nil
}

// Package postgis stores parcels and analyses in PostgreSQL with PostGIS,
// answering radius queries with ST_DWithin on a geography column.
package postgis

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const metersPerMile = 1609.344

//go:embed schema.sql
var schemaSQL string

// EnsureSchema enables PostGIS and creates the tables when missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure postgis schema: %w", err)
	}
	return nil
}

// args accumulates positional parameters for a dynamically built query.
type args []any

func (a *args) add(v any) string {
	*a = append(*a, v)
	return fmt.Sprintf("$%d", len(*a))
}

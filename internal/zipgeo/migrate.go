package zipgeo

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/haulview/carrier-api/internal/db"
)

// migrations are idempotent DDL statements applied in order.
var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS postgis`,
	`CREATE TABLE IF NOT EXISTS zips (
		zip   text PRIMARY KEY,
		city  text,
		state text,
		lat   double precision NOT NULL,
		lon   double precision NOT NULL,
		geom  geography(Point, 4326) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS zips_geom_idx ON zips USING gist (geom)`,
	`CREATE INDEX IF NOT EXISTS zips_coord_idx ON zips (lat, lon)`,
}

// Migrate creates the zips reference table and its spatial index.
func Migrate(ctx context.Context, pool db.Pool) error {
	for _, sql := range migrations {
		if _, err := pool.Exec(ctx, sql); err != nil {
			return eris.Wrap(err, "zipgeo: migrate")
		}
	}
	zap.L().Info("zips schema up to date")
	return nil
}

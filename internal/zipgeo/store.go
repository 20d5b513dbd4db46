package zipgeo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/haulview/carrier-api/internal/db"
)

// Store defines the reference-table operations the radius search needs.
type Store interface {
	// LookupOrigin resolves a ZIP to its stored centroid. Returns
	// ErrZipNotFound when no row matches.
	LookupOrigin(ctx context.Context, zip string) (*Origin, error)
	// WithinRadius returns all points within q.Miles of the origin,
	// nearest first, optionally deduplicated by coordinate pair.
	WithinRadius(ctx context.Context, q RadiusQuery) ([]Result, error)
}

// PostgresStore implements Store against the zips PostGIS table.
type PostgresStore struct {
	pool db.Pool
}

// Ensure PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// LookupOrigin implements Store.
func (s *PostgresStore) LookupOrigin(ctx context.Context, zip string) (*Origin, error) {
	sql := `SELECT ST_X(geom::geometry), ST_Y(geom::geometry) FROM zips WHERE zip = $1 LIMIT 1`
	o := Origin{Zip: zip}
	err := s.pool.QueryRow(ctx, sql, zip).Scan(&o.Lng, &o.Lat)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrZipNotFound
		}
		return nil, eris.Wrap(err, "zipgeo: lookup origin")
	}
	return &o, nil
}

// radiusSQL selects every point within the distance bound with a derived
// distance column, rounded to 2 decimals, ordered nearest first.
const radiusSQL = `
	SELECT z.zip, z.city, z.state,
	       ROUND((ST_Distance(z.geom, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) / 1609.344)::numeric, 2)::float8 AS distance_miles
	FROM zips z
	WHERE ST_DWithin(z.geom, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
	ORDER BY distance_miles
	LIMIT $4
`

// radiusUniqueSQL collapses to one row per distinct coordinate pair first
// (keeping the nearest row for each pair), then re-orders purely by
// distance so the final set is still non-decreasing by distance.
const radiusUniqueSQL = `
	SELECT zip, city, state, distance_miles FROM (
		SELECT DISTINCT ON (z.lat, z.lon) z.zip, z.city, z.state,
		       ROUND((ST_Distance(z.geom, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) / 1609.344)::numeric, 2)::float8 AS distance_miles
		FROM zips z
		WHERE ST_DWithin(z.geom, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		ORDER BY z.lat, z.lon, distance_miles
	) d
	ORDER BY distance_miles
	LIMIT $4
`

// WithinRadius implements Store.
func (s *PostgresStore) WithinRadius(ctx context.Context, q RadiusQuery) ([]Result, error) {
	sql := radiusSQL
	if q.Unique {
		sql = radiusUniqueSQL
	}
	meters := q.Miles * MetersPerMile

	rows, err := s.pool.Query(ctx, sql, q.Lng, q.Lat, meters, q.Limit)
	if err != nil {
		return nil, eris.Wrap(err, "zipgeo: radius query")
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Zip, &r.City, &r.State, &r.DistanceMiles); err != nil {
			return nil, eris.Wrap(err, "zipgeo: scan radius row")
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "zipgeo: radius rows")
	}
	return results, nil
}

package zipgeo

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestLookupOrigin_Found(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT ST_X`).
		WithArgs("37934").
		WillReturnRows(pgxmock.NewRows([]string{"st_x", "st_y"}).AddRow(-84.17, 35.87))

	store := NewPostgresStore(mock)
	origin, err := store.LookupOrigin(context.Background(), "37934")
	require.NoError(t, err)
	assert.Equal(t, "37934", origin.Zip)
	assert.Equal(t, -84.17, origin.Lng)
	assert.Equal(t, 35.87, origin.Lat)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupOrigin_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT ST_X`).
		WithArgs("00000").
		WillReturnError(pgx.ErrNoRows)

	store := NewPostgresStore(mock)
	_, err = store.LookupOrigin(context.Background(), "00000")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrZipNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinRadius_ConvertsMilesToMeters(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT z\.zip`).
		WithArgs(-84.17, 35.87, 10*MetersPerMile, 100).
		WillReturnRows(pgxmock.NewRows([]string{"zip", "city", "state", "distance_miles"}).
			AddRow("37934", strPtr("Farragut"), strPtr("TN"), 0.0).
			AddRow("37922", strPtr("Knoxville"), strPtr("TN"), 4.31))

	store := NewPostgresStore(mock)
	results, err := store.WithinRadius(context.Background(), RadiusQuery{
		Lng: -84.17, Lat: 35.87, Miles: 10, Limit: 100, Unique: false,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "37934", results[0].Zip)
	assert.Equal(t, "Farragut", *results[0].City)
	assert.Equal(t, 4.31, results[1].DistanceMiles)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinRadius_UniqueUsesDistinctOn(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`DISTINCT ON \(z\.lat, z\.lon\)`).
		WithArgs(-84.17, 35.87, 5*MetersPerMile, 50).
		WillReturnRows(pgxmock.NewRows([]string{"zip", "city", "state", "distance_miles"}).
			AddRow("37934", strPtr("Farragut"), strPtr("TN"), 0.0))

	store := NewPostgresStore(mock)
	results, err := store.WithinRadius(context.Background(), RadiusQuery{
		Lng: -84.17, Lat: 35.87, Miles: 5, Limit: 50, Unique: true,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinRadius_NullCityState(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT z\.zip`).
		WithArgs(-84.17, 35.87, 1*MetersPerMile, 10).
		WillReturnRows(pgxmock.NewRows([]string{"zip", "city", "state", "distance_miles"}).
			AddRow("37934", (*string)(nil), (*string)(nil), 0.42))

	store := NewPostgresStore(mock)
	results, err := store.WithinRadius(context.Background(), RadiusQuery{
		Lng: -84.17, Lat: 35.87, Miles: 1, Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Nil(t, results[0].City)
	assert.Nil(t, results[0].State)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_AppliesAllStatements(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`CREATE EXTENSION IF NOT EXISTS postgis`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS zips`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`zips_geom_idx`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`zips_coord_idx`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, Migrate(context.Background(), mock))
	assert.NoError(t, mock.ExpectationsWereMet())
}

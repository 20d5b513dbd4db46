package zipgeo

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"

	"github.com/haulview/carrier-api/internal/db"
)

const copyBatchSize = 5000

var zipColumns = []string{"zip", "city", "state", "lat", "lon", "geom"}

// pointEWKB encodes a lng/lat pair as an EWKB point with SRID 4326, the
// form PostGIS accepts directly on COPY into a geography column.
func pointEWKB(lng, lat float64) ([]byte, error) {
	p := geom.NewPointFlat(geom.XY, []float64{lng, lat}).SetSRID(4326)
	data, err := ewkb.Marshal(p, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "zipgeo: encode point")
	}
	return data, nil
}

// ParseCSV reads a headered CSV of ZIP centroids and returns COPY rows.
// Recognized header names (case-insensitive): zip, city, state,
// lat/latitude, lng/lon/longitude. Rows with a missing zip or unparseable
// coordinates are skipped and counted.
func ParseCSV(r io.Reader) ([][]any, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "zipgeo: read csv header")
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	zipIdx, ok := idx["zip"]
	if !ok {
		return nil, eris.New("zipgeo: csv has no zip column")
	}
	latIdx, ok := firstIndex(idx, "lat", "latitude")
	if !ok {
		return nil, eris.New("zipgeo: csv has no lat column")
	}
	lngIdx, ok := firstIndex(idx, "lng", "lon", "longitude")
	if !ok {
		return nil, eris.New("zipgeo: csv has no lng column")
	}
	cityIdx, hasCity := idx["city"]
	stateIdx, hasState := idx["state"]

	var rows [][]any
	var skipped int
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "zipgeo: read csv row")
		}

		zip := strings.TrimSpace(rec[zipIdx])
		lat, latErr := strconv.ParseFloat(strings.TrimSpace(rec[latIdx]), 64)
		lng, lngErr := strconv.ParseFloat(strings.TrimSpace(rec[lngIdx]), 64)
		if zip == "" || latErr != nil || lngErr != nil {
			skipped++
			continue
		}

		wkb, err := pointEWKB(lng, lat)
		if err != nil {
			return nil, err
		}
		rows = append(rows, []any{zip, optional(rec, cityIdx, hasCity), optional(rec, stateIdx, hasState), lat, lng, wkb})
	}

	if skipped > 0 {
		zap.L().Warn("zipgeo: skipped malformed csv rows", zap.Int("skipped", skipped))
	}
	return rows, nil
}

// ParseZCTAShapefile reads a Census ZCTA5 shapefile and returns COPY rows
// built from its internal-point attributes. The ZCTA source carries no
// city or state, so those columns are NULL.
func ParseZCTAShapefile(path string) ([][]any, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "zipgeo: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	// Field names are vintage-suffixed (ZCTA5CE10, ZCTA5CE20, ...), so
	// match by prefix.
	fields := reader.Fields()
	zipIdx, latIdx, lngIdx := -1, -1, -1
	for i, f := range fields {
		name := strings.ToUpper(strings.TrimRight(f.String(), "\x00"))
		switch {
		case strings.HasPrefix(name, "ZCTA5CE"):
			zipIdx = i
		case strings.HasPrefix(name, "INTPTLAT"):
			latIdx = i
		case strings.HasPrefix(name, "INTPTLON"):
			lngIdx = i
		}
	}
	if zipIdx < 0 || latIdx < 0 || lngIdx < 0 {
		return nil, eris.New("zipgeo: shapefile is missing ZCTA5CE/INTPTLAT/INTPTLON attributes")
	}

	var rows [][]any
	var skipped int
	for reader.Next() {
		zip := strings.TrimSpace(strings.TrimRight(reader.Attribute(zipIdx), "\x00"))
		// Census internal points carry an explicit leading sign.
		lat, latErr := strconv.ParseFloat(strings.TrimPrefix(strings.TrimSpace(reader.Attribute(latIdx)), "+"), 64)
		lng, lngErr := strconv.ParseFloat(strings.TrimPrefix(strings.TrimSpace(reader.Attribute(lngIdx)), "+"), 64)
		if zip == "" || latErr != nil || lngErr != nil {
			skipped++
			continue
		}

		wkb, err := pointEWKB(lng, lat)
		if err != nil {
			return nil, err
		}
		rows = append(rows, []any{zip, nil, nil, lat, lng, wkb})
	}

	if skipped > 0 {
		zap.L().Warn("zipgeo: skipped malformed shapefile records", zap.Int("skipped", skipped))
	}
	return rows, nil
}

// Load COPYs parsed rows into the zips table in batches. When truncate is
// true the table is emptied first (COPY cannot upsert).
func Load(ctx context.Context, pool db.Pool, rows [][]any, truncate bool) (int64, error) {
	if truncate {
		if _, err := pool.Exec(ctx, `TRUNCATE zips`); err != nil {
			return 0, eris.Wrap(err, "zipgeo: truncate")
		}
	}
	if len(rows) == 0 {
		return 0, nil
	}

	log := zap.L().With(zap.String("component", "zipgeo.load"), zap.Int("total_rows", len(rows)))

	var total int64
	for i := 0; i < len(rows); i += copyBatchSize {
		end := i + copyBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		n, err := pool.CopyFrom(ctx, pgx.Identifier{"zips"}, zipColumns, pgx.CopyFromRows(rows[i:end]))
		if err != nil {
			return total, eris.Wrapf(err, "zipgeo: COPY into zips (batch %d-%d)", i, end)
		}
		total += n
		log.Debug("batch loaded", zap.Int("batch_start", i), zap.Int64("batch_rows", n))
	}

	return total, nil
}

func firstIndex(idx map[string]int, names ...string) (int, bool) {
	for _, n := range names {
		if i, ok := idx[n]; ok {
			return i, true
		}
	}
	return 0, false
}

func optional(rec []string, i int, ok bool) any {
	if !ok {
		return nil
	}
	v := strings.TrimSpace(rec[i])
	if v == "" {
		return nil
	}
	return v
}

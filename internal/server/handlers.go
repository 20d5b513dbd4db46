package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/haulview/carrier-api/internal/zipgeo"
	"github.com/haulview/carrier-api/pkg/socrata"
	"github.com/haulview/carrier-api/pkg/vpic"
)

// handleCarriers proxies a paginated carrier search to the catalog.
// limit/offset are passed through as raw strings; the catalog enforces
// its own bounds.
func (s *Server) handleCarriers(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	q := qs.Get("q")
	limit := qs.Get("limit")
	if limit == "" {
		limit = "100"
	}
	offset := qs.Get("offset")
	if offset == "" {
		offset = "0"
	}

	data, err := s.catalog.Search(r.Context(), q, limit, offset)
	if err != nil {
		var statusErr *socrata.StatusError
		if errors.As(err, &statusErr) {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "Upstream error"})
			return
		}
		zap.L().Error("carrier search failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Server error"})
		return
	}

	// The catalog changes infrequently; let the CDN absorb load and serve
	// stale while revalidating.
	w.Header().Set("Cache-Control", "s-maxage=120, stale-while-revalidate=600")
	writeJSON(w, http.StatusOK, map[string]json.RawMessage{"data": data})
}

// handleVINDecode validates the batch request, decodes via vPIC, and
// reconciles the JSON-or-XML response. An XML body is still a 200: the
// caller inspects the warning marker rather than losing the result.
func (s *Server) handleVINDecode(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		zap.L().Error("vin decode: read body failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Server error"})
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing JSON body"})
		return
	}

	var req struct {
		Vins []string `json:"vins"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
		return
	}
	if len(req.Vins) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "vins[] required"})
		return
	}

	result, err := s.decoder.DecodeBatch(r.Context(), req.Vins)
	if err != nil {
		var statusErr *vpic.StatusError
		if errors.As(err, &statusErr) {
			writeJSON(w, http.StatusBadGateway, map[string]any{
				"error":  "NHTSA error",
				"status": statusErr.StatusCode,
				"body":   statusErr.Body,
			})
			return
		}
		zap.L().Error("vin decode failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":  "Server error",
			"detail": eris.Cause(err).Error(),
		})
		return
	}

	switch result.Kind {
	case vpic.KindJSON:
		// Decoding is deterministic per input set; a short edge cache is safe.
		w.Header().Set("Cache-Control", "s-maxage=30")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(result.JSON)
	default:
		writeJSON(w, http.StatusOK, map[string]string{
			"warning": "XML response from NHTSA",
			"xml":     result.XML,
		})
	}
}

// handleZipRadius resolves a ZIP to its centroid and returns all
// reference points within the (clamped) radius, nearest first.
func (s *Server) handleZipRadius(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	zip := strings.TrimSpace(qs.Get("zip"))
	miles, milesErr := strconv.ParseFloat(qs.Get("miles"), 64)
	if zip == "" || milesErr != nil || math.IsNaN(miles) || math.IsInf(miles, 0) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Use ?zip=XXXXX&miles=YY"})
		return
	}

	limit := 100
	if v := qs.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	limit = clampInt(limit, 1, 500)

	unique := true
	if v := qs.Get("unique"); v != "" {
		unique = strings.EqualFold(v, "true")
	}

	// Silently clamped, not rejected: the forgiving contract for a search
	// UI. The response echoes the clamped value.
	milesClamped := clampFloat(miles, 1, 300)

	origin, err := s.zips.LookupOrigin(r.Context(), zip)
	if err != nil {
		if errors.Is(err, zipgeo.ErrZipNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("ZIP %s not found", zip)})
			return
		}
		zap.L().Error("zip radius: origin lookup failed", zap.String("zip", zip), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Server error"})
		return
	}

	results, err := s.zips.WithinRadius(r.Context(), zipgeo.RadiusQuery{
		Lng:    origin.Lng,
		Lat:    origin.Lat,
		Miles:  milesClamped,
		Limit:  limit,
		Unique: unique,
	})
	if err != nil {
		zap.L().Error("zip radius: query failed", zap.String("zip", zip), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Server error"})
		return
	}
	if results == nil {
		results = []zipgeo.Result{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"origin_zip": zip,
		"miles":      milesClamped,
		"unique":     unique,
		"count":      len(results),
		"results":    results,
	})
}

// handleHealth verifies database reachability with a trivial round trip.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var ok int
	if err := s.pool.QueryRow(r.Context(), `SELECT 1 AS ok`).Scan(&ok); err != nil {
		zap.L().Error("health check failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": eris.Cause(err).Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "db": map[string]int{"ok": ok}})
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

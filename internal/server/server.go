// Package server wires the gateway's HTTP surface: four read-only
// endpoints proxying the carrier catalog, the VIN decoder, and the ZIP
// reference table.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/haulview/carrier-api/internal/db"
	"github.com/haulview/carrier-api/internal/zipgeo"
	"github.com/haulview/carrier-api/pkg/vpic"
)

// CatalogClient is the carrier catalog operation the server depends on.
type CatalogClient interface {
	Search(ctx context.Context, q, limit, offset string) (json.RawMessage, error)
}

// DecodeClient is the VIN decode operation the server depends on.
type DecodeClient interface {
	DecodeBatch(ctx context.Context, vins []string) (*vpic.BatchResult, error)
}

// Server holds the gateway's injected dependencies. Handlers are
// stateless; every request is an independent parse → call → normalize
// cycle.
type Server struct {
	catalog CatalogClient
	decoder DecodeClient
	zips    zipgeo.Store
	pool    db.Pool
}

// New creates a Server with explicit dependencies.
func New(catalog CatalogClient, decoder DecodeClient, zips zipgeo.Store, pool db.Pool) *Server {
	return &Server{catalog: catalog, decoder: decoder, zips: zips, pool: pool}
}

// Router builds the chi router with middleware and routes.
func (s *Server) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(accessLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/carriers", s.handleCarriers)
		r.Post("/vin/decode", s.handleVINDecode)
		r.Get("/zip/radius", s.handleZipRadius)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

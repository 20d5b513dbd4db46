package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/haulview/carrier-api/internal/db"
	"github.com/haulview/carrier-api/internal/server"
	"github.com/haulview/carrier-api/internal/zipgeo"
	"github.com/haulview/carrier-api/pkg/socrata"
	"github.com/haulview/carrier-api/pkg/vpic"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("store"); err != nil {
			return err
		}

		pool, err := db.Connect(ctx, cfg.Store.DatabaseURL, db.Config{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
		if err != nil {
			return err
		}
		defer pool.Close()

		catalog := socrata.NewClient(socrata.Config{
			BaseURL:    cfg.Socrata.BaseURL,
			Dataset:    cfg.Socrata.Dataset,
			AppToken:   cfg.Socrata.AppToken,
			Timeout:    time.Duration(cfg.Socrata.TimeoutSecs) * time.Second,
			RatePerSec: cfg.Socrata.RatePerSec,
		})
		decoder := vpic.NewClient(vpic.Config{
			BaseURL: cfg.VPIC.BaseURL,
			Timeout: time.Duration(cfg.VPIC.TimeoutSecs) * time.Second,
		})
		zips := zipgeo.NewPostgresStore(pool)

		srv := server.New(catalog, decoder, zips, pool)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: srv.Router(cfg.Server.AllowedOrigins),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = httpSrv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

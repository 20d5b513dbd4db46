package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/haulview/carrier-api/internal/db"
	"github.com/haulview/carrier-api/internal/zipgeo"
)

var (
	zipsCSVPath  string
	zipsShpPath  string
	zipsTruncate bool
)

var zipsCmd = &cobra.Command{
	Use:   "zips",
	Short: "Manage the ZIP centroid reference table",
}

var zipsMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the zips table and spatial index",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

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

		return zipgeo.Migrate(ctx, pool)
	},
}

var zipsLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Seed the zips table from a CSV or Census ZCTA shapefile",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if (zipsCSVPath == "") == (zipsShpPath == "") {
			return eris.New("exactly one of --csv or --shp is required")
		}
		if err := cfg.Validate("store"); err != nil {
			return err
		}

		var rows [][]any
		var err error
		if zipsCSVPath != "" {
			f, openErr := os.Open(zipsCSVPath)
			if openErr != nil {
				return eris.Wrapf(openErr, "open %s", zipsCSVPath)
			}
			defer f.Close() //nolint:errcheck
			rows, err = zipgeo.ParseCSV(f)
		} else {
			rows, err = zipgeo.ParseZCTAShapefile(zipsShpPath)
		}
		if err != nil {
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

		n, err := zipgeo.Load(ctx, pool, rows, zipsTruncate)
		if err != nil {
			return err
		}
		zap.L().Info("zips loaded", zap.Int64("rows", n), zap.Bool("truncated", zipsTruncate))
		return nil
	},
}

func init() {
	zipsLoadCmd.Flags().StringVar(&zipsCSVPath, "csv", "", "path to a zip,city,state,lat,lng CSV")
	zipsLoadCmd.Flags().StringVar(&zipsShpPath, "shp", "", "path to a Census ZCTA5 shapefile")
	zipsLoadCmd.Flags().BoolVar(&zipsTruncate, "truncate", false, "empty the table before loading")
	zipsCmd.AddCommand(zipsMigrateCmd)
	zipsCmd.AddCommand(zipsLoadCmd)
	rootCmd.AddCommand(zipsCmd)
}

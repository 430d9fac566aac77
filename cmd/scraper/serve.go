package main

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-scrape-perfumes/api"
	"github.com/aluiziolira/go-scrape-perfumes/catalog"
	"github.com/aluiziolira/go-scrape-perfumes/config"
)

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", config.DefaultConfig().ListenAddr, "Listen address")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve [--addr :8000]",
	Short: "Serves the dataset and downloaded images over a read-only HTTP API.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.ListenAddr = serveAddr
		}
		logger, err := setup(cfg)
		if err != nil {
			return err
		}
		if !cfg.Verbose {
			gin.SetMode(gin.ReleaseMode)
		}

		store := catalog.NewStore(cfg.OutputFile)
		if cat, err := store.Catalog(); err != nil {
			logger.Warn("dataset not loaded yet", slog.String("path", cfg.OutputFile), slog.Any("error", err))
		} else {
			logger.Info("dataset loaded", slog.String("path", cfg.OutputFile), slog.Int("records", cat.Len()))
		}

		router := api.NewRouter(api.NewHandler(store, logger), cfg.ImageDir, logger)
		return api.Serve(cmd.Context(), cfg.ListenAddr, router, logger)
	},
}

package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/qlp-hq/production-scheduler/internal/api"
	"github.com/qlp-hq/production-scheduler/internal/config"
	"github.com/qlp-hq/production-scheduler/internal/logger"
	"github.com/qlp-hq/production-scheduler/internal/metrics/promexport"
	"github.com/qlp-hq/production-scheduler/internal/store/postgres"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only schedule/metrics query API and a Prometheus scrape endpoint",
	RunE:  doServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func doServe(cmd *cobra.Command, args []string) error {
	appCfg := config.Load()
	log := logger.WithComponent("cli-serve")

	store, err := postgres.Open(appCfg.DatabaseURL)
	if err != nil {
		return err
	}

	exporter := promexport.New()
	handler := api.NewHandler(store, exporter)

	router := mux.NewRouter()
	router.Handle("/metrics", exporter.Handler())
	handler.RegisterRoutes(router)

	log.Info("serving", zap.String("addr", appCfg.HTTPAddr))
	return http.ListenAndServe(appCfg.HTTPAddr, router)
}

package main

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-conf-sync/internal/config"
	"github.com/MKhiriev/go-conf-sync/internal/handler"
	"github.com/MKhiriev/go-conf-sync/internal/handler/http"
	"github.com/MKhiriev/go-conf-sync/internal/logger"
	"github.com/MKhiriev/go-conf-sync/internal/metrics"
	"github.com/MKhiriev/go-conf-sync/internal/server"
	"github.com/MKhiriev/go-conf-sync/internal/service"
	"github.com/MKhiriev/go-conf-sync/internal/store"
	"github.com/MKhiriev/go-conf-sync/models"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewLogger("go-conf-sync-server")
	cfg, err := config.GetServerConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}
	if cfg.App.Version == "" {
		cfg.App.Version = buildVersion
	}

	storages, err := store.NewStorages(context.Background(), cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating storages")
	}
	defer storages.Close()

	services, err := service.NewServices(storages, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating services")
	}

	handlers, err := handler.NewHandlers(services, cfg.Server, http.Options{
		HashKey:   cfg.App.HashKey,
		Metrics:   metrics.New(prometheus.NewRegistry()),
		BuildInfo: models.NewAppBuildInfo(buildVersion, buildDate, buildCommit),
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating handlers")
	}

	srv, err := server.NewServer(handlers, cfg.Server, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating server")
	}

	srv.RunServer()
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}

	if buildDate == "" {
		buildDate = "N/A"
	}

	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}

package main

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-conf-sync/internal/client"
	"github.com/MKhiriev/go-conf-sync/internal/config"
	"github.com/MKhiriev/go-conf-sync/internal/logger"
	"github.com/MKhiriev/go-conf-sync/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	cfg, err := config.GetClientConfig()
	if err != nil {
		logger.NewLogger("go-conf-sync-client").Fatal().Err(err).Msg("error getting configs")
	}
	if cfg.App.Version == "" {
		cfg.App.Version = buildVersion
	}

	log := logger.NewClientLogger("go-conf-sync-client", cfg.Storage.LogFile)

	remote, closer, err := client.NewRemoteStore(context.Background(), cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create remote store")
	}
	defer closer.Close()

	app, err := client.NewApp(cfg, remote, nil, metrics.New(prometheus.NewRegistry()), log)
	if err != nil {
		log.Fatal().Err(err).Msg("init client app error")
	}

	if err = app.Run(); err != nil {
		log.Fatal().Err(err).Msg("client run error")
	}
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

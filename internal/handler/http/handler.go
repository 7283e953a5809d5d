package http

import (
	"github.com/MKhiriev/go-conf-sync/internal/logger"
	"github.com/MKhiriev/go-conf-sync/internal/metrics"
	"github.com/MKhiriev/go-conf-sync/internal/service"
	"github.com/MKhiriev/go-conf-sync/internal/utils"
	"github.com/MKhiriev/go-conf-sync/models"
)

// Options tunes a [Handler].
type Options struct {
	// HashKey keys the HMAC checked on record uploads. Empty disables the
	// check.
	HashKey string

	// Metrics receives per-request observations and backs GET /metrics.
	Metrics *metrics.Metrics

	// BuildInfo is reported by GET /api/version.
	BuildInfo models.AppBuildInfo
}

type Handler struct {
	services  *service.Services
	hasher    *utils.Hasher
	metrics   *metrics.Metrics
	buildInfo models.AppBuildInfo

	logger *logger.Logger
}

func NewHandler(services *service.Services, opts Options, logger *logger.Logger) *Handler {
	logger.Info().Msg("http handler created")

	h := &Handler{
		services:  services,
		metrics:   opts.Metrics,
		buildInfo: opts.BuildInfo,
		logger:    logger,
	}
	if opts.HashKey != "" {
		h.hasher = utils.NewHasher(opts.HashKey)
	}
	return h
}

package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer, h.withTraceID, h.withLogging)

	// routes without authorization
	router.Group(func(r chi.Router) {
		r.Post("/api/users", h.registerUser)
		r.Get("/api/version", h.getServerVersion)
		r.Method("GET", "/metrics", h.metrics.Handler())
	})

	router.Group(func(r chi.Router) {
		r.Use(h.auth)

		r.Get("/api/records", h.getRecord)
		r.With(h.recordHashing).Put("/api/records", h.putRecord)

		r.Get("/api/history", h.getHistory)
		r.Post("/api/history", h.appendHistory)

		r.Get("/api/devices", h.listDevices)
		r.Post("/api/devices", h.registerDevice)
		r.Patch("/api/devices/{deviceID}", h.updateDeviceStats)
	})

	router.MethodNotAllowed(CheckHTTPMethod(router))

	return router
}

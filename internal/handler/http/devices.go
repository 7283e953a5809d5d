package http

import (
	"net/http"

	"github.com/MKhiriev/go-conf-sync/internal/logger"
	"github.com/MKhiriev/go-conf-sync/internal/utils"
	"github.com/MKhiriev/go-conf-sync/models"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) registerDevice(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	userID, err := userFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var device models.Device
	if err = utils.ReadJSON(r, &device); err != nil {
		log.Err(err).Str("func", "*Handler.registerDevice").Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}
	if device.UserID == "" {
		device.UserID = userID
	}

	registered, err := h.services.DeviceService.RegisterDevice(r.Context(), device)
	if err != nil {
		log.Err(err).
			Str("func", "*Handler.registerDevice").
			Str("user_id", userID).
			Str("device_id", device.DeviceID).
			Msg("error registering device")
		writeError(w, err)
		return
	}

	utils.WriteJSON(w, registered, http.StatusOK)
}

func (h *Handler) updateDeviceStats(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	userID, err := userFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	deviceID := chi.URLParam(r, "deviceID")

	var update models.DeviceStatsUpdate
	if err = utils.ReadJSON(r, &update); err != nil {
		log.Err(err).Str("func", "*Handler.updateDeviceStats").Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	if err = h.services.DeviceService.UpdateDeviceStats(r.Context(), userID, deviceID, update); err != nil {
		log.Err(err).
			Str("func", "*Handler.updateDeviceStats").
			Str("user_id", userID).
			Str("device_id", deviceID).
			Msg("error updating device stats")
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listDevices(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	userID, err := userFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	devices, err := h.services.DeviceService.ListDevices(r.Context(), userID)
	if err != nil {
		log.Err(err).Str("func", "*Handler.listDevices").Str("user_id", userID).Msg("error listing devices")
		writeError(w, err)
		return
	}

	utils.WriteJSON(w, models.DevicesResponse{Devices: devices, Length: len(devices)}, http.StatusOK)
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"thermoguard/internal/metrics"
	"thermoguard/internal/sensor"
	"thermoguard/internal/zone"
)

// ShutdownLog is the optional persistent event source backing the
// shutdown-history endpoint. When nil the in-memory log serves queries.
type ShutdownLog interface {
	ListShutdownEvents(ctx context.Context, zoneID string, limit int) ([]zone.Event, error)
}

// Handler serves the read-only diagnostics surface plus the ingest and
// operator endpoints.
type Handler struct {
	Sensors *sensor.Registry
	Zones   *zone.Manager
	History ShutdownLog
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

type errorResponse struct {
	Ok      bool   `json:"ok"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", h.handleHealth)

	r.Route("/sensors", func(r chi.Router) {
		r.Get("/", h.handleListSensors)
		r.Get("/{sensorId}", h.handleGetSensor)
		r.Get("/{sensorId}/diagnostics", h.handleDiagnostics)
		r.Post("/{sensorId}/readings", h.handleSubmitReading)
		r.Post("/{sensorId}/calibrate", h.handleCalibrate)
	})

	r.Route("/zones", func(r chi.Router) {
		r.Get("/", h.handleListZones)
		r.Get("/{zoneId}", h.handleGetZone)
		r.Get("/{zoneId}/history", h.handleZoneHistory)
		r.Post("/{zoneId}/status", h.handleUpdateZoneStatus)
		r.Post("/{zoneId}/shutdown", h.handleTriggerShutdown)
		r.Post("/{zoneId}/reactivate", h.handleReactivate)
	})

	r.Get("/shutdown-history", h.handleShutdownHistory)
	r.Get("/statistics", h.handleStatistics)
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) handleListSensors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Sensors.All())
}

func (h *Handler) handleGetSensor(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Sensors.Snapshot(chi.URLParam(r, "sensorId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	d, err := h.Sensors.Diagnostics(chi.URLParam(r, "sensorId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) handleSubmitReading(w http.ResponseWriter, r *http.Request) {
	var raw sensor.RawSample
	if err := decodeJSON(r, &raw); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "bad_request", Message: err.Error()})
		return
	}
	reading, err := h.Sensors.SubmitReading(chi.URLParam(r, "sensorId"), raw)
	if err != nil {
		h.Metrics.IncReadingsRejected()
		h.writeError(w, err)
		return
	}
	h.Metrics.IncReadingsProcessed()
	writeJSON(w, http.StatusOK, reading)
}

type calibrateRequest struct {
	ReferenceTemperature float64 `json:"referenceTemperature"`
	ReferenceCurrent     float64 `json:"referenceCurrent"`
	ReferenceVoltage     float64 `json:"referenceVoltage"`
}

func (h *Handler) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	var req calibrateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "bad_request", Message: err.Error()})
		return
	}
	cal, err := h.Sensors.Calibrate(chi.URLParam(r, "sensorId"), req.ReferenceTemperature, req.ReferenceCurrent, req.ReferenceVoltage)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cal)
}

func (h *Handler) handleListZones(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Zones.Zones())
}

func (h *Handler) handleGetZone(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Zones.Zone(chi.URLParam(r, "zoneId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type zoneStatusRequest struct {
	Temperature float64  `json:"temperature"`
	Power       *float64 `json:"power,omitempty"`
}

func (h *Handler) handleUpdateZoneStatus(w http.ResponseWriter, r *http.Request) {
	var req zoneStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "bad_request", Message: err.Error()})
		return
	}
	if err := h.Zones.UpdateStatus(chi.URLParam(r, "zoneId"), req.Temperature, req.Power); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type triggerRequest struct {
	Severity string `json:"severity"`
	Reason   string `json:"reason"`
}

func (h *Handler) handleTriggerShutdown(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "bad_request", Message: err.Error()})
		return
	}
	reason := req.Reason
	if reason == "" {
		reason = "operator request"
	}
	if err := h.Zones.TriggerShutdown(chi.URLParam(r, "zoneId"), zone.Severity(req.Severity), reason); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

func (h *Handler) handleReactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.Zones.Reactivate(chi.URLParam(r, "zoneId")); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleZoneHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Zones.History(chi.URLParam(r, "zoneId"), queryLimit(r)))
}

func (h *Handler) handleShutdownHistory(w http.ResponseWriter, r *http.Request) {
	zoneID := r.URL.Query().Get("zone")
	limit := queryLimit(r)
	if h.History != nil {
		events, err := h.History.ListShutdownEvents(r.Context(), zoneID, limit)
		if err == nil {
			writeJSON(w, http.StatusOK, events)
			return
		}
		h.Logger.Error("persistent shutdown history unavailable, serving in-memory log",
			slog.String("error", err.Error()))
	}
	writeJSON(w, http.StatusOK, h.Zones.History(zoneID, limit))
}

func (h *Handler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Zones.Statistics())
}

func queryLimit(r *http.Request) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var oor *sensor.OutOfRangeError
	switch {
	case errors.Is(err, sensor.ErrSensorNotFound), errors.Is(err, zone.ErrZoneNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Code: "not_found", Message: err.Error()})
	case errors.Is(err, sensor.ErrDuplicateSensor), errors.Is(err, zone.ErrDuplicateZone):
		writeJSON(w, http.StatusConflict, errorResponse{Code: "duplicate", Message: err.Error()})
	case errors.As(err, &oor):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Code: "out_of_range", Message: err.Error()})
	case errors.Is(err, sensor.ErrNoReadingForCalibration):
		writeJSON(w, http.StatusConflict, errorResponse{Code: "calibration_error", Message: err.Error()})
	case errors.Is(err, zone.ErrReactivationNotAllowed), errors.Is(err, zone.ErrShutdownActive),
		errors.Is(err, zone.ErrShutdownSuppressed), errors.Is(err, zone.ErrShutdownDisabled):
		writeJSON(w, http.StatusConflict, errorResponse{Code: "not_allowed", Message: err.Error()})
	case errors.Is(err, zone.ErrInvalidConfiguration), errors.Is(err, zone.ErrProcedureNotFound):
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "invalid_configuration", Message: err.Error()})
	default:
		h.Logger.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Code: "internal", Message: "internal error"})
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

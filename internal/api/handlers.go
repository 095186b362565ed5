package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/neexbeast/weatherosm/internal/device"
	"github.com/neexbeast/weatherosm/internal/refresh"
	"github.com/neexbeast/weatherosm/internal/weather"
)

var validate = validator.New()

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	repo      ReadingRepo
	cache     ReadingCache
	resolver  WeatherResolver
	refresher DeviceRefresher
	log       *slog.Logger
}

// NewHandlers constructs Handlers with all required dependencies.
func NewHandlers(repo ReadingRepo, cache ReadingCache, resolver WeatherResolver, refresher DeviceRefresher, log *slog.Logger) *Handlers {
	return &Handlers{
		repo:      repo,
		cache:     cache,
		resolver:  resolver,
		refresher: refresher,
		log:       log,
	}
}

// coordinateRequest is the body of location and refresh requests. Pointers
// tell a missing field apart from a zero coordinate.
type coordinateRequest struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
}

func (c coordinateRequest) coordinate() weather.Coordinate {
	return weather.Coordinate{Latitude: *c.Lat, Longitude: *c.Lon}
}

// weatherResponse is returned by the one-shot weather endpoint.
type weatherResponse struct {
	Coordinate weather.Coordinate     `json:"coordinate"`
	Units      weather.Units          `json:"units"`
	Weather    *weather.WeatherRecord `json:"weather"`
	Summary    weather.Summary        `json:"summary"`
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeResolveError maps pipeline and refresh failures to HTTP statuses.
func (h *Handlers) writeResolveError(w http.ResponseWriter, deviceID string, err error) {
	switch {
	case errors.Is(err, weather.ErrInvalidPlace), errors.Is(err, weather.ErrNoLocationFound):
		h.log.Info("location not resolvable", "device", deviceID, "err", err)
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, refresh.ErrNoFix):
		writeError(w, http.StatusConflict, "no recent location reported for device")
	case errors.Is(err, weather.ErrNetwork), errors.Is(err, weather.ErrParse):
		h.log.Error("upstream failure", "device", deviceID, "err", err)
		writeError(w, http.StatusBadGateway, "weather service unavailable")
	default:
		h.log.Error("refresh failed", "device", deviceID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeCoordinate reads and validates a coordinate body. It reports
// io.EOF unchanged when the body is empty.
func decodeCoordinate(r *http.Request) (weather.Coordinate, error) {
	var req coordinateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return weather.Coordinate{}, io.EOF
		}
		return weather.Coordinate{}, fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := validate.Struct(req); err != nil {
		return weather.Coordinate{}, err
	}
	return req.coordinate(), nil
}

// GetWeather handles GET /api/v1/weather?lat=&lon=&units=.
// Runs the pipeline once without publishing anything.
func (h *Handlers) GetWeather(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "lat must be a number")
		return
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "lon must be a number")
		return
	}
	coord := weather.Coordinate{Latitude: lat, Longitude: lon}
	if err := validate.Struct(coord); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	units, err := weather.ParseUnits(q.Get("units"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.resolver.Resolve(r.Context(), coord, weather.Options{Units: units})
	if err != nil {
		h.writeResolveError(w, "", err)
		return
	}

	writeJSON(w, http.StatusOK, weatherResponse{
		Coordinate: coord,
		Units:      units,
		Weather:    rec,
		Summary:    weather.Summarize(rec, units, ""),
	})
}

// ReportLocation handles POST /api/v1/devices/{device}/location.
func (h *Handlers) ReportLocation(w http.ResponseWriter, r *http.Request) {
	deviceID := device.NormalizeID(chi.URLParam(r, "device"))

	coord, err := decodeCoordinate(r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "request body required")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	fix := h.refresher.Report(deviceID, coord)
	writeJSON(w, http.StatusAccepted, fix)
}

// RefreshDevice handles POST /api/v1/devices/{device}/refresh.
// A coordinate body is recorded and used; an empty body uses the tracked fix.
func (h *Handlers) RefreshDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := device.NormalizeID(chi.URLParam(r, "device"))

	coord, err := decodeCoordinate(r)
	var reading *device.Reading
	switch {
	case errors.Is(err, io.EOF):
		reading, err = h.refresher.RefreshDevice(r.Context(), deviceID)
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	default:
		h.refresher.Report(deviceID, coord)
		reading, err = h.refresher.Refresh(r.Context(), deviceID, coord)
	}
	if err != nil {
		h.writeResolveError(w, deviceID, err)
		return
	}

	writeJSON(w, http.StatusOK, reading)
}

// GetDeviceWeather handles GET /api/v1/devices/{device}/weather.
// Cache hit → return. DB hit → cache + return. Neither → 404.
func (h *Handlers) GetDeviceWeather(w http.ResponseWriter, r *http.Request) {
	deviceID := device.NormalizeID(chi.URLParam(r, "device"))

	cached, err := h.cache.Get(r.Context(), deviceID)
	if err != nil {
		h.log.Error("cache get failed", "device", deviceID, "err", err)
	}
	if cached != nil {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	reading, err := h.repo.GetReading(r.Context(), deviceID)
	if err != nil {
		h.log.Error("db get failed", "device", deviceID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if reading == nil {
		writeError(w, http.StatusNotFound, "no reading published for device, POST /refresh first")
		return
	}

	if err := h.cache.Set(r.Context(), deviceID, reading); err != nil {
		h.log.Warn("cache set failed after db hit", "device", deviceID, "err", err)
	}

	writeJSON(w, http.StatusOK, reading)
}

// ListReadings handles GET /api/v1/readings?condition_code=.
func (h *Handlers) ListReadings(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(r.URL.Query().Get("condition_code"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "condition_code must be an integer")
		return
	}

	readings, err := h.repo.ListReadingsByConditionCode(r.Context(), code)
	if err != nil {
		h.log.Error("listing readings failed", "condition_code", code, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if readings == nil {
		readings = []*device.Reading{}
	}

	writeJSON(w, http.StatusOK, readings)
}

// GetPreferences handles GET /api/v1/devices/{device}/preferences.
// Devices without stored preferences get the defaults.
func (h *Handlers) GetPreferences(w http.ResponseWriter, r *http.Request) {
	deviceID := device.NormalizeID(chi.URLParam(r, "device"))

	prefs, err := h.repo.GetPreferences(r.Context(), deviceID)
	if err != nil {
		h.log.Error("preferences get failed", "device", deviceID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if prefs == nil {
		p := device.DefaultPreferences(deviceID)
		prefs = &p
	}

	writeJSON(w, http.StatusOK, prefs.WithDefaults())
}

// PutPreferences handles PUT /api/v1/devices/{device}/preferences.
func (h *Handlers) PutPreferences(w http.ResponseWriter, r *http.Request) {
	deviceID := device.NormalizeID(chi.URLParam(r, "device"))

	var prefs device.Preferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validate.Struct(prefs); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	prefs.DeviceID = deviceID
	prefs.UpdatedAt = time.Now().UTC()
	prefs = prefs.WithDefaults()
	if err := h.repo.UpsertPreferences(r.Context(), prefs); err != nil {
		h.log.Error("preferences upsert failed", "device", deviceID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to store preferences")
		return
	}

	writeJSON(w, http.StatusOK, prefs)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlerFunc returns an http.HandlerFunc that pings db and redis
// concurrently. Returns 200 if both are ok, 503 otherwise.
func HealthHandlerFunc(db, redis pinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		dbStatus, redisStatus := "ok", "ok"

		var g errgroup.Group
		g.Go(func() error {
			if err := db.Ping(ctx); err != nil {
				log.Error("health check: db ping failed", "err", err)
				dbStatus = "error"
				return err
			}
			return nil
		})
		g.Go(func() error {
			if err := redis.Ping(ctx); err != nil {
				log.Error("health check: redis ping failed", "err", err)
				redisStatus = "error"
				return err
			}
			return nil
		})

		status, overall := http.StatusOK, "ok"
		if err := g.Wait(); err != nil {
			status, overall = http.StatusServiceUnavailable, "degraded"
		}

		writeJSON(w, status, map[string]string{
			"status": overall,
			"db":     dbStatus,
			"redis":  redisStatus,
		})
	}
}

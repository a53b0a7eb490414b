// Package http serves the panel API and the health, readiness and metrics
// endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/weather-fx-panel/internal/configsync"
	"github.com/couchcryptid/weather-fx-panel/internal/domain"
	"github.com/couchcryptid/weather-fx-panel/internal/observability"
	"github.com/couchcryptid/weather-fx-panel/internal/panel"
	"github.com/couchcryptid/weather-fx-panel/internal/picker"
	"github.com/couchcryptid/weather-fx-panel/internal/scene"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SelectionSetter lets the API drive the selection of an in-process host.
type SelectionSetter interface {
	SetSelection(ids []string)
}

// Options configures the optional parts of the server.
type Options struct {
	// Selection enables PUT /scene/selection when set.
	Selection SelectionSetter
	CacheSize int
	Metrics   *observability.Metrics
}

// Server exposes the panel API plus health, readiness, and metrics routes.
type Server struct {
	httpServer *http.Server
	panel      *panel.Panel
	selection  SelectionSetter
	images     *imageCache
	logger     *slog.Logger
}

// NewServer creates the HTTP server and registers its routes.
func NewServer(addr string, p *panel.Panel, ready sharedobs.ReadinessChecker, opts Options, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		panel:     p,
		selection: opts.Selection,
		images:    newImageCache(opts.CacheSize, opts.Metrics),
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /panel/mount", s.handleMount)
	mux.HandleFunc("DELETE /panel/mount", s.handleUnmount)
	mux.HandleFunc("GET /panel", s.handleView)
	mux.HandleFunc("PUT /panel/condition", s.handleCondition)
	mux.HandleFunc("PUT /panel/direction", s.handleDirection)
	mux.HandleFunc("PUT /panel/wind", s.handleWind)
	mux.HandleFunc("PUT /panel/cover", s.handleCover)
	mux.HandleFunc("DELETE /panel/weather", s.handleRemoveWeather)

	mux.HandleFunc("POST /panel/picker/toggle", s.handleToggle)
	mux.HandleFunc("POST /panel/picker/field", s.handlePickField)
	mux.HandleFunc("POST /panel/picker/hue", s.handlePickHue)
	mux.HandleFunc("PUT /panel/picker/hex", s.handleHex)
	mux.HandleFunc("DELETE /panel/picker/tint", s.handleClearTint)
	mux.HandleFunc("GET /panel/picker/field.png", s.handleFieldImage)
	mux.HandleFunc("GET /panel/picker/hue.png", s.handleHueImage)

	if s.selection != nil {
		mux.HandleFunc("PUT /scene/selection", s.handleSetSelection)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type valueRequest[T any] struct {
	Value T `json:"value"`
}

type pointerRequest struct {
	picker.Pointer
	Bounds picker.Bounds `json:"bounds"`
}

type selectionRequest struct {
	Selection []string `json:"selection"`
}

func (s *Server) handleMount(w http.ResponseWriter, r *http.Request) {
	s.panel.Mount(r.Context())
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "mounting"})
}

func (s *Server) handleUnmount(w http.ResponseWriter, _ *http.Request) {
	s.panel.Unmount()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleView(w http.ResponseWriter, _ *http.Request) {
	v, err := s.panel.View()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleCondition(w http.ResponseWriter, r *http.Request) {
	var req valueRequest[string]
	if !s.decode(w, r, &req) {
		return
	}
	s.respond(w, s.panel.SetCondition(r.Context(), req.Value))
}

func (s *Server) handleDirection(w http.ResponseWriter, r *http.Request) {
	var req valueRequest[string]
	if !s.decode(w, r, &req) {
		return
	}
	s.respond(w, s.panel.SetDirection(r.Context(), req.Value))
}

func (s *Server) handleWind(w http.ResponseWriter, r *http.Request) {
	var req valueRequest[int]
	if !s.decode(w, r, &req) {
		return
	}
	s.respond(w, s.panel.SetWind(r.Context(), req.Value))
}

func (s *Server) handleCover(w http.ResponseWriter, r *http.Request) {
	var req valueRequest[int]
	if !s.decode(w, r, &req) {
		return
	}
	s.respond(w, s.panel.SetCover(r.Context(), req.Value))
}

func (s *Server) handleRemoveWeather(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.panel.RemoveWeather(r.Context()))
}

func (s *Server) handleToggle(w http.ResponseWriter, _ *http.Request) {
	open, err := s.panel.TogglePicker()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"open": open})
}

func (s *Server) handlePickField(w http.ResponseWriter, r *http.Request) {
	var req pointerRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.respond(w, s.panel.PickField(r.Context(), req.Pointer, req.Bounds))
}

func (s *Server) handlePickHue(w http.ResponseWriter, r *http.Request) {
	var req pointerRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.respond(w, s.panel.PickHue(r.Context(), req.Pointer, req.Bounds))
}

func (s *Server) handleHex(w http.ResponseWriter, r *http.Request) {
	var req valueRequest[string]
	if !s.decode(w, r, &req) {
		return
	}
	s.respond(w, s.panel.TypeHex(r.Context(), req.Value))
}

func (s *Server) handleClearTint(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.panel.ClearTint(r.Context()))
}

func (s *Server) handleFieldImage(w http.ResponseWriter, _ *http.Request) {
	img, hue := s.panel.Picker().Field()
	s.writePNG(w, fieldKey(hue, img.Bounds()), img)
}

func (s *Server) handleHueImage(w http.ResponseWriter, _ *http.Request) {
	img := s.panel.Picker().HueStrip()
	s.writePNG(w, stripKey(img.Bounds()), img)
}

func (s *Server) handleSetSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.selection.SetSelection(req.Selection)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writePNG(w http.ResponseWriter, key string, img image.Image) {
	data, err := s.images.encode(key, img)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid request body: %v", err)})
		return false
	}
	return true
}

func (s *Server) respond(w http.ResponseWriter, err error) {
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("panel request failed", "error", err, "status", status)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidLevel),
		errors.Is(err, domain.ErrUnknownCondition),
		errors.Is(err, domain.ErrUnknownDirection):
		return http.StatusBadRequest
	case errors.Is(err, configsync.ErrEmptySelection),
		errors.Is(err, scene.ErrConflict),
		errors.Is(err, panel.ErrNotMounted):
		return http.StatusConflict
	case errors.Is(err, configsync.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}

package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"time"

	"piclock/internal/canvas"
	"piclock/internal/config"
	"piclock/internal/device"
	appLog "piclock/internal/log"
)

// Source is what the server reports on; device.Device satisfies it.
type Source interface {
	Snapshot() *canvas.Canvas
	Status() device.Status
}

// RefreshFunc redraws the display on demand. full forces a full refresh.
type RefreshFunc func(ctx context.Context, full bool) error

// Server provides the preview and status endpoints.
type Server struct {
	cfg     *config.Config
	src     Source
	refresh RefreshFunc
	mux     *http.ServeMux
}

// NewServer constructs a new Server. refresh may be nil, which disables
// /api/refresh.
func NewServer(cfg *config.Config, src Source, refresh RefreshFunc) *Server {
	s := &Server{
		cfg:     cfg,
		src:     src,
		refresh: refresh,
		mux:     http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password counts as disabled.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="piclock", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Serve runs the server on cfg.Listen until ctx is cancelled, then shuts it
// down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/refresh", s.handleRefresh)
	s.mux.HandleFunc("/preview.png", s.handlePreview)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// statusResponse is the JSON response shape for /api/status.
type statusResponse struct {
	device.Status
	Rotation int    `json:"rotation"`
	Timezone string `json:"timezone"`
	Refresh  string `json:"refresh"`
	Waveform string `json:"partial_waveform"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Status:   s.src.Status(),
		Rotation: s.cfg.Rotation,
		Timezone: s.cfg.Timezone,
		Refresh:  s.cfg.RefreshCron,
		Waveform: s.cfg.Panel.PartialWaveform,
	})
}

// handleRefresh redraws the display.
//
// POST /api/refresh?full=1
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.refresh == nil {
		writeError(w, http.StatusNotImplemented, "refresh unavailable")
		return
	}
	full := r.URL.Query().Get("full") == "1"
	if err := s.refresh(r.Context(), full); err != nil {
		appLog.Error("api refresh failed", err, "full", full)
		writeError(w, http.StatusInternalServerError, "refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true, "full": full})
}

// handlePreview encodes the last rendered frame in its logical orientation.
func (s *Server) handlePreview(w http.ResponseWriter, _ *http.Request) {
	c := s.src.Snapshot()
	if c == nil {
		http.Error(w, "no frame rendered yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := png.Encode(w, c); err != nil {
		appLog.Error("failed to encode preview", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

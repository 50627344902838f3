// Package server exposes the dashboard and the allowance request over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/matrixise/guild-dashboard/internal/allowance"
	"github.com/matrixise/guild-dashboard/internal/dashboard"
	"github.com/matrixise/guild-dashboard/internal/storage"
	"github.com/matrixise/guild-dashboard/internal/units"
)

// DashboardView is the live dashboard state.
type DashboardView interface {
	Current() dashboard.ViewState
	UpdatedAt() time.Time
}

// HistoryReader lists recorded treasury snapshots, newest first.
type HistoryReader interface {
	RecentSnapshots(ctx context.Context, limit int) ([]storage.TreasurySnapshot, error)
}

// AllowanceRequests is the allowance request of the session user.
type AllowanceRequests interface {
	Request() allowance.Request
	SetInput(raw string) allowance.Request
	Submit(ctx context.Context) (allowance.Request, error)
	Reset() allowance.Request
}

// Config wires the handlers. History, Allowance and Health are optional.
type Config struct {
	Dashboard DashboardView
	Decimals  uint8
	Symbol    string
	Locale    units.Locale
	History   HistoryReader
	Allowance AllowanceRequests
	Health    http.Handler
	Logger    *slog.Logger
}

// Handler serves the JSON API.
type Handler struct {
	cfg    Config
	logger *slog.Logger
}

// NewRouter builds the chi router for cfg.
func NewRouter(cfg Config) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	h := &Handler{cfg: cfg, logger: cfg.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)

	if cfg.Health != nil {
		r.Method(http.MethodGet, "/health", cfg.Health)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", h.getDashboard)
		r.Get("/treasury/history", h.getHistory)

		r.Route("/allowance", func(r chi.Router) {
			r.Use(h.requireAllowance)
			r.Get("/", h.getAllowance)
			r.Put("/input", h.putAllowanceInput)
			r.Post("/", h.submitAllowance)
			r.Delete("/", h.resetAllowance)
		})
	})
	return r
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (h *Handler) requireAllowance(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.cfg.Allowance == nil {
			writeError(w, http.StatusNotFound, "ALLOWANCE_DISABLED", "allowance requests are not configured")
			return
		}
		next.ServeHTTP(w, r)
	})
}

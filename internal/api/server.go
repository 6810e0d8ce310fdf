// SPDX-License-Identifier: MIT

// Package api exposes the thermostat over HTTP and serves the web UI.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/homanchou/heatercontrol/internal/api/middleware"
	"github.com/homanchou/heatercontrol/internal/config"
	"github.com/homanchou/heatercontrol/internal/controller"
	"github.com/homanchou/heatercontrol/internal/health"
	"github.com/homanchou/heatercontrol/internal/history"
	"github.com/homanchou/heatercontrol/internal/webui"
)

// TracingService names the server spans when telemetry is enabled.
const TracingService = "heaterd"

// Heater is the controller surface the API drives. *controller.Controller implements it.
type Heater interface {
	Refresh(ctx context.Context) error
	Status() controller.Status
	SetMaxTemp(ctx context.Context, temp float64) error
	SetMinTemp(ctx context.Context, temp float64) error
	Disable(ctx context.Context) error
	Enable(ctx context.Context) error
	ClearOverride(ctx context.Context) error
}

// HistoryReader lists recent thermostat events.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Event, error)
}

var (
	// ErrMissingHeater is returned by New when Deps.Heater is nil.
	ErrMissingHeater = errors.New("api: heater dependency is required")
	// ErrMissingHealth is returned by New when Deps.Health is nil.
	ErrMissingHealth = errors.New("api: health manager is required")
)

// Deps are the collaborators of the API server. History, Bundle and Assets
// are optional; their routes answer 404 when unset.
type Deps struct {
	Heater  Heater
	History HistoryReader
	Health  *health.Manager
	Bundle  *webui.Bundle
	Assets  http.Handler
}

// Server owns the router.
type Server struct {
	cfg    config.AppConfig
	deps   Deps
	router chi.Router
}

// New builds the router for cfg.
func New(cfg config.AppConfig, deps Deps) (*Server, error) {
	if deps.Heater == nil {
		return nil, ErrMissingHeater
	}
	if deps.Health == nil {
		return nil, ErrMissingHealth
	}
	s := &Server{cfg: cfg, deps: deps}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	stack := middleware.StackConfig{
		EnableCORS:            true,
		AllowedOrigins:        s.cfg.Server.CORSOrigins,
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		EnableLogging:         true,
	}
	if s.cfg.Telemetry.Enabled {
		stack.TracingService = TracingService
	}
	r := middleware.NewRouter(stack)

	r.Get("/healthz", s.deps.Health.ServeHealth)
	r.Get("/readyz", s.deps.Health.ServeReady)

	r.Get("/status", s.handleStatus)

	r.Group(func(r chi.Router) {
		if rl := s.cfg.Server.RateLimit; rl.Enabled {
			r.Use(middleware.RateLimit(middleware.RateLimitConfig{
				RequestLimit: rl.Requests,
				WindowSize:   rl.Window,
			}))
		}
		r.Post("/disable", s.handleDisable)
		r.Post("/enable", s.handleEnable)
		r.Post("/set_max_temp/{max_temp}", s.handleSetMaxTemp)
		r.Post("/set_min_temp/{min_temp}", s.handleSetMinTemp)
		r.Delete("/override", s.handleClearOverride)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/history", s.handleHistory)
		r.Get("/bundle", s.handleBundle)
	})

	if s.deps.Assets != nil {
		r.Handle("/*", s.deps.Assets)
	} else {
		r.NotFound(func(w http.ResponseWriter, _ *http.Request) { writeNotFound(w) })
	}
	return r
}

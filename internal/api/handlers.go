// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/homanchou/heatercontrol/internal/controller"
	"github.com/homanchou/heatercontrol/internal/heater"
	"github.com/homanchou/heatercontrol/internal/history"
	"github.com/homanchou/heatercontrol/internal/log"
)

// GET /status refreshes before answering so the reading is current.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, "refresh", s.deps.Heater.Refresh(r.Context()))
}

func (s *Server) handleDisable(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, "disable", s.deps.Heater.Disable(r.Context()))
}

func (s *Server) handleEnable(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, "enable", s.deps.Heater.Enable(r.Context()))
}

func (s *Server) handleClearOverride(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, "clear_override", s.deps.Heater.ClearOverride(r.Context()))
}

func (s *Server) handleSetMaxTemp(w http.ResponseWriter, r *http.Request) {
	s.setLimit(w, r, "max_temp", s.deps.Heater.SetMaxTemp)
}

func (s *Server) handleSetMinTemp(w http.ResponseWriter, r *http.Request) {
	s.setLimit(w, r, "min_temp", s.deps.Heater.SetMinTemp)
}

func (s *Server) setLimit(w http.ResponseWriter, r *http.Request, param string, set func(context.Context, float64) error) {
	raw := chi.URLParam(r, param)
	temp, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		writeNotAcceptable(w, fmt.Errorf("%w: %q is not a number", heater.ErrInvalidTemperature, raw))
		return
	}
	s.respond(w, r, "set_"+param, set(r.Context(), temp))
}

// respond maps an operation's error to a status and writes the thermostat
// status. Sensor and relay failures still answer 200: the controller has
// already failed safe and the status carries last_error.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, heater.ErrInvalidTemperature):
		writeNotAcceptable(w, err)
		return
	case errors.Is(err, controller.ErrNotInitialized):
		writeServiceUnavailable(w, err)
		return
	case errors.Is(err, context.Canceled):
		return
	default:
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Warn().Err(err).Str("event", "api.op_failed").Str("op", op).Msg("operation completed with error")
	}
	writeJSON(w, http.StatusOK, s.deps.Heater.Status())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeNotFound(w)
		return
	}
	limit := history.DefaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeBadRequest(w, fmt.Errorf("limit must be a positive integer, got %q", raw))
			return
		}
		limit = min(n, history.MaxRecentLimit)
	}

	events, err := s.deps.History.Recent(r.Context(), limit)
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Str("event", "api.history_failed").Msg("could not read history")
		writeInternal(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}

func (s *Server) handleBundle(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Bundle == nil {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Bundle)
}

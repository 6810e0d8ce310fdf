// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/homanchou/heatercontrol/internal/api"
	"github.com/homanchou/heatercontrol/internal/config"
	"github.com/homanchou/heatercontrol/internal/controller"
	"github.com/homanchou/heatercontrol/internal/gpio"
	"github.com/homanchou/heatercontrol/internal/health"
	"github.com/homanchou/heatercontrol/internal/history"
	xglog "github.com/homanchou/heatercontrol/internal/log"
	"github.com/homanchou/heatercontrol/internal/sensor"
	"github.com/homanchou/heatercontrol/internal/webui"
)

// runtime is everything main wires together before starting servers.
type runtime struct {
	ctrl    *controller.Controller
	store   *history.Store
	health  *health.Manager
	handler http.Handler
	bundle  *webui.Bundle
}

// Close releases the relay and the history store.
func (rt *runtime) Close() error {
	var errs []error
	if rt.ctrl != nil {
		errs = append(errs, rt.ctrl.Close())
	}
	if rt.store != nil {
		errs = append(errs, rt.store.Close())
	}
	return errors.Join(errs...)
}

// maskURL removes user info from a URL string for safe logging.
func maskURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	parsedURL.User = nil
	return parsedURL.String()
}

func newPin(cfg config.AppConfig) gpio.Pin {
	if cfg.GPIO.Mock {
		return gpio.NewMock()
	}
	return gpio.NewRaspberryPi(cfg.GPIO.Pin)
}

// newReader returns the sensor reader and, for the HTTP reader, a health
// checker over its circuit breaker.
func newReader(cfg config.AppConfig) (sensor.Reader, health.Checker) {
	if cfg.Sensor.Mock {
		return sensor.NewStatic(cfg.Sensor.MockTemp), nil
	}
	r := sensor.NewHTTPReader(cfg.SensorHTTP())
	return sensor.Coalesce(r, cfg.Sensor.MinInterval), health.NewBreakerChecker("sensor", r.BreakerState)
}

// loadBundle returns the web UI bundle description: the bundle file when
// configured, otherwise the built-in one rooted at the project directory.
func loadBundle(cfg config.WebUIConfig) (webui.Bundle, error) {
	if cfg.BundleFile != "" {
		return webui.LoadBundle(cfg.BundleFile)
	}
	return webui.NewBundle(cfg.ProjectDir)
}

func buildRuntime(ctx context.Context, cfg config.AppConfig) (rt *runtime, err error) {
	logger := xglog.WithComponent("daemon")
	rt = &runtime{health: health.NewManager(cfg.Version)}
	defer func() {
		if err != nil {
			_ = rt.Close()
		}
	}()

	var opts []controller.Option
	if cfg.History.Enabled {
		rt.store, err = history.Open(ctx, cfg.History.Path)
		if err != nil {
			return nil, err
		}
		opts = append(opts, controller.WithStore(rt.store))
		rt.health.RegisterChecker(health.NewSQLiteChecker("history", rt.store.DB()))
	}

	reader, breaker := newReader(cfg)
	if breaker != nil {
		rt.health.RegisterChecker(breaker)
	}
	logger.Info().
		Bool("mock", cfg.Sensor.Mock).
		Str(xglog.FieldSensorURL, maskURL(cfg.Sensor.URL)).
		Msg("sensor configured")

	settings := cfg.ControllerSettings()
	rt.ctrl = controller.New(settings, newPin(cfg), reader, opts...)
	if err := rt.ctrl.Init(ctx); err != nil {
		return nil, err
	}
	logger.Info().
		Bool("mock", cfg.GPIO.Mock).
		Int(xglog.FieldPin, cfg.GPIO.Pin).
		Msg("relay initialized")

	rt.health.RegisterChecker(health.NewRefreshChecker(func() health.RefreshInfo {
		st := rt.ctrl.Status()
		return health.RefreshInfo{LastUpdatedAt: st.LastUpdatedAt, LastError: st.LastError}
	}, 3*settings.PollInterval))

	deps := api.Deps{Heater: rt.ctrl, Health: rt.health}
	if rt.store != nil {
		deps.History = rt.store
	}

	if cfg.WebUI.Enabled {
		bundle, err := loadBundle(cfg.WebUI)
		if err != nil {
			return nil, fmt.Errorf("load web UI bundle: %w", err)
		}
		if cfg.WebUI.CopyOnStart {
			if _, err := webui.CopyFiles(ctx, bundle, ""); err != nil {
				logger.Warn().Err(err).Str("event", "webui.copy_failed").Msg("could not copy static assets")
			}
		}
		assets, err := webui.NewHandler(bundle, webui.HandlerOptions{SPAFallback: true})
		if err != nil {
			return nil, fmt.Errorf("web UI handler: %w", err)
		}
		rt.bundle = &bundle
		deps.Bundle = rt.bundle
		deps.Assets = assets
		rt.health.RegisterChecker(health.NewFileChecker("webui", filepath.Join(assets.Root(), "index.html")))
		logger.Info().
			Str("mode", string(bundle.Mode())).
			Str(xglog.FieldPath, assets.Root()).
			Msg("serving web UI")
	}

	srv, err := api.New(cfg, deps)
	if err != nil {
		return nil, err
	}
	rt.handler = srv.Handler()
	return rt, nil
}

// SPDX-License-Identifier: MIT

package controller

import (
	"context"
	"time"

	"github.com/homanchou/heatercontrol/internal/metrics"
)

const pruneInterval = time.Hour

// Run refreshes immediately and then every PollInterval until ctx is done.
// The relay is switched off on return.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info().
		Str("event", "controller.loop_started").
		Dur("poll_interval", c.pollInterval()).
		Msg("starting refresh loop")

	_ = c.Refresh(ctx)
	c.prune(ctx)

	ticker := time.NewTicker(c.pollInterval())
	defer ticker.Stop()
	pruneTicker := time.NewTicker(pruneInterval)
	defer pruneTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.stopRelay()
			c.logger.Info().Str("event", "controller.loop_stopped").Msg("refresh loop stopped")
			return nil
		case <-c.reconfigure:
			ticker.Reset(c.pollInterval())
		case <-ticker.C:
			// Errors are logged, recorded and fail safe inside Refresh.
			_ = c.Refresh(ctx)
		case <-pruneTicker.C:
			c.prune(ctx)
		}
	}
}

// Reconfigure applies new timing and schedule settings. The current band is
// kept; the new schedule takes effect at the next transition or expiry.
func (c *Controller) Reconfigure(cfg Config) {
	c.mu.Lock()
	c.cfg = cfg.withDefaults()
	if c.state != nil {
		c.state.SetSchedule(c.cfg.Schedule)
	}
	c.mu.Unlock()

	select {
	case c.reconfigure <- struct{}{}:
	default:
	}
	c.logger.Info().
		Str("event", "controller.reconfigured").
		Dur("poll_interval", cfg.PollInterval).
		Dur("override_duration", cfg.OverrideDuration).
		Msg("controller reconfigured")
}

func (c *Controller) pollInterval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.PollInterval
}

func (c *Controller) stopRelay() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.inited {
		return
	}
	if err := c.pin.Off(); err != nil {
		c.logger.Error().Err(err).Str("event", "relay.switch_failed").Msg("could not switch heater off on shutdown")
		return
	}
	metrics.SetHeaterOn(false)
}

func (c *Controller) prune(ctx context.Context) {
	c.mu.Lock()
	store, retention := c.store, c.cfg.Retention
	c.mu.Unlock()
	if store == nil || retention <= 0 {
		return
	}
	n, err := store.Prune(ctx, c.now().Add(-retention))
	if err != nil {
		c.logger.Warn().Err(err).Str("event", "history.prune_failed").Msg("could not prune history")
		return
	}
	if n > 0 {
		c.logger.Debug().Int64("removed", n).Str("event", "history.pruned").Msg("pruned history")
	}
}

// SPDX-License-Identifier: MIT

package sensor

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Coalescing serves the last good reading to callers arriving within
// minInterval of the previous sensor read.
type Coalescing struct {
	next    Reader
	limiter *rate.Limiter

	mu     sync.Mutex
	last   float64
	cached bool
}

// Coalesce wraps r. A non-positive minInterval returns r unchanged.
func Coalesce(r Reader, minInterval time.Duration) Reader {
	if minInterval <= 0 {
		return r
	}
	return &Coalescing{
		next:    r,
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

func (c *Coalescing) ReadTemperature(ctx context.Context) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.limiter.Allow() && c.cached {
		return c.last, nil
	}
	v, err := c.next.ReadTemperature(ctx)
	if err != nil {
		c.cached = false
		return 0, err
	}
	c.last, c.cached = v, true
	return v, nil
}

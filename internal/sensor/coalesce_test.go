// SPDX-License-Identifier: MIT

package sensor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingReader struct {
	*Static
	calls atomic.Int32
}

func (c *countingReader) ReadTemperature(ctx context.Context) (float64, error) {
	c.calls.Add(1)
	return c.Static.ReadTemperature(ctx)
}

func TestCoalesce_SharesRecentReading(t *testing.T) {
	ctx := context.Background()
	src := &countingReader{Static: NewStatic(70)}
	r := Coalesce(src, time.Hour)

	for range 5 {
		v, err := r.ReadTemperature(ctx)
		require.NoError(t, err)
		assert.Equal(t, 70.0, v)
	}
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestCoalesce_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	src := &countingReader{Static: NewStatic(70)}
	src.SetError(errors.New("boom"))
	r := Coalesce(src, time.Hour)

	_, err := r.ReadTemperature(ctx)
	require.Error(t, err)

	src.Set(68)
	v, err := r.ReadTemperature(ctx)
	require.NoError(t, err)
	assert.Equal(t, 68.0, v)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestCoalesce_Disabled(t *testing.T) {
	src := NewStatic(70)
	assert.Same(t, Reader(src), Coalesce(src, 0))
}

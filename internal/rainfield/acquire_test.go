package rainfield

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/rainfield/internal/geo"
)

func testAcquireConfig(workers int) AcquireConfig {
	return AcquireConfig{Workers: workers, Timeout: time.Second, Backoff: time.Millisecond}
}

// coordValue is a deterministic function of its input coordinate.
func coordValue(c geo.Coordinate) float64 {
	return math.Abs(c.Lat)*1000 + math.Abs(c.Lon)
}

func TestAcquirePreservesLatticeOrder(t *testing.T) {
	lattice, err := geo.Lattice(geo.DefaultBoundingBox(), 6)
	require.NoError(t, err)

	// Later coordinates finish first to scramble completion order.
	sampler := SamplerFunc(func(ctx context.Context, c geo.Coordinate) (float64, error) {
		idx := 0
		for i, p := range lattice {
			if p == c {
				idx = i
				break
			}
		}
		time.Sleep(time.Duration(len(lattice)-idx) * 100 * time.Microsecond)
		return coordValue(c), nil
	})

	a := NewAcquirer(sampler, testAcquireConfig(4), zerolog.Nop())
	observations := a.Acquire(context.Background(), lattice)

	require.Len(t, observations, len(lattice))
	for i, p := range lattice {
		assert.Equal(t, p, observations[i].Coordinate, "slot %d", i)
		assert.Equal(t, coordValue(p), observations[i].Value, "slot %d", i)
	}
}

func TestAcquireWorkerCountDoesNotChangeResult(t *testing.T) {
	lattice, err := geo.Lattice(geo.DefaultBoundingBox(), 5)
	require.NoError(t, err)

	sampler := SamplerFunc(func(ctx context.Context, c geo.Coordinate) (float64, error) {
		return coordValue(c), nil
	})

	base := NewAcquirer(sampler, testAcquireConfig(1), zerolog.Nop()).Acquire(context.Background(), lattice)
	for _, workers := range []int{2, 4, 16} {
		got := NewAcquirer(sampler, testAcquireConfig(workers), zerolog.Nop()).Acquire(context.Background(), lattice)
		assert.Equal(t, base, got, "workers=%d", workers)
	}
}

func TestAcquireBoundsConcurrency(t *testing.T) {
	lattice, err := geo.Lattice(geo.DefaultBoundingBox(), 5)
	require.NoError(t, err)

	var inFlight, peak int32
	sampler := SamplerFunc(func(ctx context.Context, c geo.Coordinate) (float64, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return 1, nil
	})

	NewAcquirer(sampler, testAcquireConfig(4), zerolog.Nop()).Acquire(context.Background(), lattice)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(4))
}

func TestAcquireFailingSamplerFallsBackToZero(t *testing.T) {
	lattice, err := geo.Lattice(geo.DefaultBoundingBox(), 3)
	require.NoError(t, err)

	sampler := SamplerFunc(func(ctx context.Context, c geo.Coordinate) (float64, error) {
		return 0, errors.New("connection refused")
	})

	observations := NewAcquirer(sampler, testAcquireConfig(4), zerolog.Nop()).Acquire(context.Background(), lattice)
	require.Len(t, observations, len(lattice))
	for i, o := range observations {
		assert.Equal(t, lattice[i], o.Coordinate)
		assert.Zero(t, o.Value)
	}
}

func TestAcquireFallbackWaitsBackoff(t *testing.T) {
	sampler := SamplerFunc(func(ctx context.Context, c geo.Coordinate) (float64, error) {
		return 0, errors.New("boom")
	})
	a := NewAcquirer(sampler, AcquireConfig{Workers: 1, Timeout: time.Second, Backoff: 20 * time.Millisecond}, zerolog.Nop())

	start := time.Now()
	a.Acquire(context.Background(), []geo.Coordinate{{Lat: 1, Lon: 1}})
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestAcquireMissingReadingSkipsBackoff(t *testing.T) {
	sampler := SamplerFunc(func(ctx context.Context, c geo.Coordinate) (float64, error) {
		return 0, ErrMissingReading
	})
	a := NewAcquirer(sampler, AcquireConfig{Workers: 1, Timeout: time.Second, Backoff: time.Hour}, zerolog.Nop())

	done := make(chan []Observation, 1)
	go func() { done <- a.Acquire(context.Background(), []geo.Coordinate{{Lat: 1, Lon: 2}}) }()

	select {
	case got := <-done:
		require.Len(t, got, 1)
		assert.Zero(t, got[0].Value)
	case <-time.After(2 * time.Second):
		t.Fatal("missing reading should not wait for back-off")
	}
}

func TestAcquireRecoversSamplerPanic(t *testing.T) {
	sampler := SamplerFunc(func(ctx context.Context, c geo.Coordinate) (float64, error) {
		if c.Lat > 0 {
			panic("bad payload")
		}
		return 2.5, nil
	})
	lattice := []geo.Coordinate{{Lat: -1, Lon: 0}, {Lat: 1, Lon: 0}}

	observations := NewAcquirer(sampler, testAcquireConfig(2), zerolog.Nop()).Acquire(context.Background(), lattice)
	assert.Equal(t, 2.5, observations[0].Value)
	assert.Zero(t, observations[1].Value)
	assert.Equal(t, lattice[1], observations[1].Coordinate)
}

func TestAcquireTreatsUnusableValuesAsMissing(t *testing.T) {
	lattice := []geo.Coordinate{{Lat: -1, Lon: 0}, {Lat: 3, Lon: 0}, {Lat: 7, Lon: 0}}
	sampler := SamplerFunc(func(ctx context.Context, c geo.Coordinate) (float64, error) {
		if c.Lat == 7 {
			return math.NaN(), nil
		}
		return c.Lat, nil
	})

	observations := NewAcquirer(sampler, testAcquireConfig(2), zerolog.Nop()).Acquire(context.Background(), lattice)
	assert.Zero(t, observations[0].Value)
	assert.Equal(t, 3.0, observations[1].Value)
	assert.Zero(t, observations[2].Value)
}

func TestAcquireAppliesPerSampleTimeout(t *testing.T) {
	sampler := SamplerFunc(func(ctx context.Context, c geo.Coordinate) (float64, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	a := NewAcquirer(sampler, AcquireConfig{Workers: 2, Timeout: 10 * time.Millisecond}, zerolog.Nop())

	observations := a.Acquire(context.Background(), []geo.Coordinate{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}})
	for _, o := range observations {
		assert.Zero(t, o.Value)
	}
}

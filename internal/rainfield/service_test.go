package rainfield

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/rainfield/internal/geo"
)

type fakeStore struct {
	mu      sync.Mutex
	reports map[string][]Report
}

func newFakeStore() *fakeStore {
	return &fakeStore{reports: make(map[string][]Report)}
}

func (f *fakeStore) SaveReport(params FieldParams, report Report) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports[params.Key()] = append(f.reports[params.Key()], report)
}

func (f *fakeStore) GetLatest(params FieldParams) (Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rs := f.reports[params.Key()]
	if len(rs) == 0 {
		return Report{}, errors.New("not found")
	}
	return rs[len(rs)-1], nil
}

func (f *fakeStore) GetRange(params FieldParams, from, to time.Time) ([]Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reports[params.Key()], nil
}

func newTestService(sampler Sampler, store Store) *Service {
	acq := NewAcquirer(sampler, AcquireConfig{Workers: 4, Timeout: time.Second, Backoff: time.Millisecond}, zerolog.Nop())
	svc := NewService(geo.DefaultBoundingBox(), acq, NewInterpolator(), store, zerolog.Nop())
	svc.now = func() time.Time {
		return time.Date(2025, 11, 3, 11, 41, 43, 0, time.FixedZone("CST", -6*3600))
	}
	return svc
}

func constantSampler(v float64) Sampler {
	return SamplerFunc(func(ctx context.Context, c geo.Coordinate) (float64, error) {
		return v, nil
	})
}

func TestGetInterpolatedFieldCornersConstant(t *testing.T) {
	svc := newTestService(constantSampler(1), newFakeStore())

	report, err := svc.GetInterpolatedField(context.Background(), 2, 2)
	require.NoError(t, err)

	assert.Equal(t, 4, report.OriginalPoints)
	assert.Equal(t, 4, report.InterpolatedPoints)
	require.Len(t, report.Data, 4)
	for _, c := range report.Data {
		assert.InDelta(t, 1.0, c.Value, 1e-9)
	}

	box := geo.DefaultBoundingBox()
	assert.Equal(t, box.MinLat, report.Data[0].Lat)
	assert.Equal(t, box.MinLon, report.Data[0].Lon)
	assert.Equal(t, box.MaxLat, report.Data[3].Lat)
	assert.Equal(t, box.MaxLon, report.Data[3].Lon)
}

func TestGetInterpolatedFieldMetadata(t *testing.T) {
	svc := newTestService(constantSampler(0.4), newFakeStore())

	for _, tc := range []struct{ grid, density int }{{2, 3}, {4, 2}, {5, 10}} {
		report, err := svc.GetInterpolatedField(context.Background(), tc.grid, tc.density)
		require.NoError(t, err)
		assert.Equal(t, tc.grid*tc.grid, report.OriginalPoints)
		assert.Equal(t, tc.density*tc.density, report.InterpolatedPoints)
		assert.Len(t, report.Data, tc.density*tc.density)
	}
}

func TestGetInterpolatedFieldTimestampIsUTC(t *testing.T) {
	svc := newTestService(constantSampler(0), newFakeStore())

	report, err := svc.GetInterpolatedField(context.Background(), 2, 2)
	require.NoError(t, err)
	assert.Equal(t, "2025-11-03T17:41:43", report.Timestamp)
	assert.Equal(t, time.UTC, report.GeneratedAt.Location())
}

func TestGetInterpolatedFieldAllFailuresStillSucceeds(t *testing.T) {
	failing := SamplerFunc(func(ctx context.Context, c geo.Coordinate) (float64, error) {
		return 0, errors.New("upstream 503")
	})
	svc := newTestService(failing, newFakeStore())

	report, err := svc.GetInterpolatedField(context.Background(), 3, 4)
	require.NoError(t, err)
	assert.Equal(t, 9, report.OriginalPoints)
	for _, c := range report.Data {
		assert.Zero(t, c.Value)
	}
}

func TestGetInterpolatedFieldRejectsConfig(t *testing.T) {
	calls := 0
	sampler := SamplerFunc(func(ctx context.Context, c geo.Coordinate) (float64, error) {
		calls++
		return 1, nil
	})
	svc := newTestService(sampler, newFakeStore())

	for _, tc := range []struct{ grid, density int }{{1, 50}, {0, 50}, {15, 1}, {15, -3}} {
		_, err := svc.GetInterpolatedField(context.Background(), tc.grid, tc.density)
		var se *ServiceError
		require.True(t, errors.As(err, &se), "grid=%d density=%d: %v", tc.grid, tc.density, err)
		assert.Equal(t, KindConfig, se.Kind)
		assert.NotEmpty(t, se.Detail)
	}
	assert.Zero(t, calls, "no sampling may happen for rejected requests")
}

func TestGetInterpolatedFieldRejectsResolutionAboveLimits(t *testing.T) {
	var calls atomic.Int64
	sampler := SamplerFunc(func(ctx context.Context, c geo.Coordinate) (float64, error) {
		calls.Add(1)
		return 1, nil
	})
	svc := newTestService(sampler, newFakeStore())

	for _, tc := range []struct{ grid, density int }{{2, 40000}, {101, 50}, {100000, 100000}} {
		_, err := svc.GetInterpolatedField(context.Background(), tc.grid, tc.density)
		var se *ServiceError
		require.ErrorAs(t, err, &se, "grid=%d density=%d", tc.grid, tc.density)
		assert.Equal(t, KindConfig, se.Kind)
		assert.Contains(t, se.Detail, "exceeds the maximum")
	}
	assert.Zero(t, calls.Load())

	svc.WithLimits(FieldLimits{MaxGridSize: 3, MaxDensity: 4})
	_, err := svc.GetInterpolatedField(context.Background(), 4, 4)
	require.Error(t, err)
	report, err := svc.GetInterpolatedField(context.Background(), 3, 4)
	require.NoError(t, err)
	assert.Len(t, report.Data, 16)
}

func TestWithLimitsKeepsDefaultsForZero(t *testing.T) {
	svc := newTestService(constantSampler(0), nil)
	svc.WithLimits(FieldLimits{MaxDensity: 20})
	assert.Equal(t, FieldLimits{MaxGridSize: DefaultFieldLimits().MaxGridSize, MaxDensity: 20}, svc.Limits())
}

func TestGetInterpolatedFieldInvalidBoxIsInternal(t *testing.T) {
	acq := NewAcquirer(constantSampler(1), AcquireConfig{}, zerolog.Nop())
	svc := NewService(geo.BoundingBox{MinLon: 5, MaxLon: 1}, acq, nil, nil, zerolog.Nop())

	_, err := svc.GetInterpolatedField(context.Background(), 3, 3)
	var se *ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindInternal, se.Kind)
}

func TestGetInterpolatedFieldCancelledContext(t *testing.T) {
	svc := newTestService(constantSampler(1), newFakeStore())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.GetInterpolatedField(ctx, 2, 2)
	var se *ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindInternal, se.Kind)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRefreshStoresReport(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(constantSampler(2), store)
	params := FieldParams{GridSize: 3, Density: 4}

	require.NoError(t, svc.Refresh(context.Background(), params))

	latest, err := svc.GetLatest(params)
	require.NoError(t, err)
	assert.Equal(t, 16, latest.InterpolatedPoints)
	assert.Equal(t, params, latest.Params)

	_, err = svc.GetLatest(FieldParams{GridSize: 9, Density: 9})
	assert.Error(t, err)
}

func TestRefreshWithoutStore(t *testing.T) {
	svc := newTestService(constantSampler(2), nil)
	assert.Error(t, svc.Refresh(context.Background(), FieldParams{GridSize: 2, Density: 2}))
}

package rainfield

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/rainfield/internal/geo"
)

func TestInterpolateConstantField(t *testing.T) {
	lattice, err := geo.Lattice(geo.DefaultBoundingBox(), 2)
	require.NoError(t, err)

	observations := make([]Observation, len(lattice))
	for i, c := range lattice {
		observations[i] = Observation{Coordinate: c, Value: 1}
	}

	cells, err := NewInterpolator().Interpolate(observations, 2)
	require.NoError(t, err)
	require.Len(t, cells, 4)
	for _, c := range cells {
		assert.InDelta(t, 1.0, c.Value, 1e-9)
	}
}

func TestInterpolateSingleObservationCollapses(t *testing.T) {
	observations := []Observation{{Coordinate: geo.Coordinate{Lat: 10, Lon: 10}, Value: 5}}

	for _, density := range []int{2, 5, 17} {
		cells, err := NewInterpolator().Interpolate(observations, density)
		require.NoError(t, err)
		require.Len(t, cells, density*density)
		for _, c := range cells {
			assert.Equal(t, 10.0, c.Lat)
			assert.Equal(t, 10.0, c.Lon)
			assert.Equal(t, 5.0, c.Value)
		}
	}
}

func TestInterpolateDuplicatePointsCollapse(t *testing.T) {
	at := geo.Coordinate{Lat: -3, Lon: 44}
	observations := []Observation{{at, 0}, {at, 0}, {at, 0}}

	cells, err := NewInterpolator().Interpolate(observations, 3)
	require.NoError(t, err)
	for _, c := range cells {
		assert.Equal(t, at.Lat, c.Lat)
		assert.Equal(t, at.Lon, c.Lon)
		assert.Zero(t, c.Value)
	}
}

func TestInterpolateStaysWithinObservedRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	box := geo.DefaultBoundingBox()

	for trial := 0; trial < 10; trial++ {
		n := 1 + rng.Intn(30)
		observations := make([]Observation, n)
		minV, maxV := 1e18, -1e18
		for i := range observations {
			v := rng.Float64() * 20
			observations[i] = Observation{
				Coordinate: geo.Coordinate{
					Lat: box.MinLat + rng.Float64()*(box.MaxLat-box.MinLat),
					Lon: box.MinLon + rng.Float64()*(box.MaxLon-box.MinLon),
				},
				Value: v,
			}
			minV = min(minV, v)
			maxV = max(maxV, v)
		}

		cells, err := NewInterpolator().Interpolate(observations, 12)
		require.NoError(t, err)
		for _, c := range cells {
			assert.GreaterOrEqual(t, c.Value, minV)
			assert.LessOrEqual(t, c.Value, maxV)
		}
	}
}

func TestInterpolateSpansObservedExtentLongitudeMajor(t *testing.T) {
	observations := []Observation{
		{geo.Coordinate{Lat: 0, Lon: 10}, 1},
		{geo.Coordinate{Lat: 4, Lon: 20}, 2},
		{geo.Coordinate{Lat: 2, Lon: 15}, 3},
	}

	cells, err := NewInterpolator().Interpolate(observations, 3)
	require.NoError(t, err)
	require.Len(t, cells, 9)

	wantLons := []float64{10, 10, 10, 15, 15, 15, 20, 20, 20}
	wantLats := []float64{0, 2, 4, 0, 2, 4, 0, 2, 4}
	for i, c := range cells {
		assert.Equal(t, wantLons[i], c.Lon, "cell %d", i)
		assert.Equal(t, wantLats[i], c.Lat, "cell %d", i)
	}
}

func TestInterpolateExactHitDominates(t *testing.T) {
	observations := []Observation{
		{geo.Coordinate{Lat: 0, Lon: 0}, 10},
		{geo.Coordinate{Lat: 1, Lon: 1}, 0},
	}

	cells, err := NewInterpolator().Interpolate(observations, 2)
	require.NoError(t, err)
	// First cell is the (0,0) corner, last is (1,1).
	assert.InDelta(t, 10, cells[0].Value, 1e-6)
	assert.InDelta(t, 0, cells[3].Value, 1e-6)
}

func TestInterpolateRejectsBadInput(t *testing.T) {
	_, err := NewInterpolator().Interpolate(nil, 5)
	assert.ErrorIs(t, err, errNoObservations)

	_, err = NewInterpolator().Interpolate([]Observation{{Value: 1}}, 1)
	assert.ErrorIs(t, err, errInvalidDensity)
}

func TestEstimateWeightsCloserPointsMore(t *testing.T) {
	observations := []Observation{
		{geo.Coordinate{Lat: 0, Lon: 0}, 0},
		{geo.Coordinate{Lat: 0, Lon: 10}, 10},
	}

	near, err := NewInterpolator().Estimate(geo.Coordinate{Lat: 0, Lon: 2}, observations)
	require.NoError(t, err)
	mid, err := NewInterpolator().Estimate(geo.Coordinate{Lat: 0, Lon: 5}, observations)
	require.NoError(t, err)

	// Inverse-square: d=2 vs d=8 gives weights 1/4 and 1/64.
	assert.InDelta(t, 10.0/17.0, near, 1e-3)
	assert.InDelta(t, 5, mid, 1e-6)

	_, err = NewInterpolator().Estimate(geo.Coordinate{}, nil)
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	s := Summarize([]Cell{{Value: 0}, {Value: 0.05}, {Value: 0.5}, {Value: 3.45}})
	assert.Equal(t, 0.0, s.Min)
	assert.Equal(t, 3.45, s.Max)
	assert.InDelta(t, 1.0, s.Mean, 1e-12)
	assert.Equal(t, 2, s.WetCells)

	assert.Equal(t, Summary{}, Summarize(nil))
}

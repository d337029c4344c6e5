package rainfield

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/i474232898/rainfield/internal/common"
	"github.com/i474232898/rainfield/internal/geo"
)

const (
	// DefaultPower is the inverse-distance exponent.
	DefaultPower = 2.0
	// DefaultEpsilon replaces zero distances, in kilometers.
	DefaultEpsilon = 1e-6
)

var (
	errNoObservations = errors.New("no observations to interpolate")
	errInvalidDensity = errors.New("density must be at least 2")
)

// Interpolator reconstructs a dense grid from sparse observations by inverse
// distance weighting over great-circle distances.
type Interpolator struct {
	Power   float64
	Epsilon float64
	// Workers bounds how many grid rows are estimated at once.
	Workers int
}

// NewInterpolator returns an Interpolator with the fixed defaults.
func NewInterpolator() *Interpolator {
	return &Interpolator{
		Power:   DefaultPower,
		Epsilon: DefaultEpsilon,
		Workers: runtime.GOMAXPROCS(0),
	}
}

// Estimate returns the weighted value at target.
func (ip *Interpolator) Estimate(target geo.Coordinate, observations []Observation) (float64, error) {
	if len(observations) == 0 {
		return 0, errNoObservations
	}
	k := newKnown(observations)
	return ip.estimate(target, k, make([]float64, len(observations))), nil
}

// Interpolate evaluates density x density cells spanning the extent of the observed
// coordinates. Cells are ordered longitude-major: the first density cells share the
// smallest longitude and walk latitude upwards.
func (ip *Interpolator) Interpolate(observations []Observation, density int) ([]Cell, error) {
	if len(observations) == 0 {
		return nil, errNoObservations
	}
	if density < 2 {
		return nil, fmt.Errorf("%w: got %d", errInvalidDensity, density)
	}

	k := newKnown(observations)

	latMin, latMax, _ := common.MinMax(k.lats)
	lonMin, lonMax, _ := common.MinMax(k.lons)
	lats := common.Linspace(latMin, latMax, density)
	lons := common.Linspace(lonMin, lonMax, density)

	cells := make([]Cell, density*density)

	workers := ip.Workers
	if workers <= 0 {
		workers = 1
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for i, lon := range lons {
		g.Go(func() error {
			dist := make([]float64, len(k.points))
			row := cells[i*density : (i+1)*density]
			for j, lat := range lats {
				target := geo.Coordinate{Lat: lat, Lon: lon}
				row[j] = Cell{Lat: lat, Lon: lon, Value: ip.estimate(target, k, dist)}
			}
			return nil
		})
	}
	_ = g.Wait()

	return cells, nil
}

func (ip *Interpolator) estimate(target geo.Coordinate, k known, dist []float64) float64 {
	power := ip.Power
	if power <= 0 {
		power = DefaultPower
	}
	eps := ip.Epsilon
	if eps <= 0 {
		eps = DefaultEpsilon
	}

	geo.HaversineInto(dist, target, k.points)

	var num, den float64
	for i, d := range dist {
		if d == 0 {
			d = eps
		}
		var w float64
		if power == 2 {
			w = 1 / (d * d)
		} else {
			w = 1 / math.Pow(d, power)
		}
		num += w * k.values[i]
		den += w
	}
	v := num / den

	// Keep rounding drift inside the observed range.
	if v < k.minValue {
		v = k.minValue
	}
	if v > k.maxValue {
		v = k.maxValue
	}
	return v
}

// known is the read-only view of the observations shared by every cell estimate.
type known struct {
	points   []geo.Coordinate
	lats     []float64
	lons     []float64
	values   []float64
	minValue float64
	maxValue float64
}

func newKnown(observations []Observation) known {
	k := known{
		points: make([]geo.Coordinate, len(observations)),
		lats:   make([]float64, len(observations)),
		lons:   make([]float64, len(observations)),
		values: make([]float64, len(observations)),
	}
	for i, o := range observations {
		k.points[i] = o.Coordinate
		k.lats[i] = o.Lat
		k.lons[i] = o.Lon
		k.values[i] = o.Value
	}
	k.minValue, k.maxValue, _ = common.MinMax(k.values)
	return k
}

package rainfield

import (
	"context"
	"errors"
	"time"

	"github.com/i474232898/rainfield/internal/geo"
)

// ErrMissingReading means the source answered but carried no usable numeric reading.
var ErrMissingReading = errors.New("reading missing from response")

// Sampler abstracts a source of point rain readings (e.g. Open-Meteo, WeatherAPI).
type Sampler interface {
	Sample(ctx context.Context, c geo.Coordinate) (float64, error)
}

// SamplerFunc adapts a plain function to the Sampler interface.
type SamplerFunc func(ctx context.Context, c geo.Coordinate) (float64, error)

func (f SamplerFunc) Sample(ctx context.Context, c geo.Coordinate) (float64, error) {
	return f(ctx, c)
}

// Store is the contract the warm report cache must satisfy.
type Store interface {
	SaveReport(params FieldParams, report Report)
	GetLatest(params FieldParams) (Report, error)
	GetRange(params FieldParams, from, to time.Time) ([]Report, error)
}

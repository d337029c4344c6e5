package rainfield

import (
	"fmt"
	"time"

	"github.com/i474232898/rainfield/internal/geo"
)

// Observation is a lattice coordinate paired with its acquired (or fallback) value.
type Observation struct {
	geo.Coordinate
	Value float64 `json:"value"`
}

// Cell is one estimate of the dense output grid.
type Cell struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Value float64 `json:"value"`
}

// FieldParams selects the resolution of a field.
type FieldParams struct {
	GridSize int `json:"grid_size" validate:"gte=2"`
	Density  int `json:"density" validate:"gte=2"`
}

// Key returns a canonical string key for indexing this field in stores.
func (p FieldParams) Key() string {
	return fmt.Sprintf("%dx%d", p.GridSize, p.Density)
}

// FieldLimits caps the resolution a caller may request. Every lattice point is an
// outbound request and the dense grid holds density² cells, so both are bounded.
type FieldLimits struct {
	MaxGridSize int `json:"max_grid_size"`
	MaxDensity  int `json:"max_density"`
}

// DefaultFieldLimits returns the production caps.
func DefaultFieldLimits() FieldLimits {
	return FieldLimits{MaxGridSize: 100, MaxDensity: 1000}
}

// orDefault replaces non-positive caps with the defaults.
func (l FieldLimits) orDefault() FieldLimits {
	def := DefaultFieldLimits()
	if l.MaxGridSize <= 0 {
		l.MaxGridSize = def.MaxGridSize
	}
	if l.MaxDensity <= 0 {
		l.MaxDensity = def.MaxDensity
	}
	return l
}

// TimestampLayout is the report timestamp format. Timestamps are always UTC.
const TimestampLayout = "2006-01-02T15:04:05"

// Report is the interpolated field handed back to callers. It is rebuilt on every request.
type Report struct {
	Timestamp          string `json:"timestamp"`
	OriginalPoints     int    `json:"original_points"`
	InterpolatedPoints int    `json:"interpolated_points"`
	Data               []Cell `json:"data"`

	GeneratedAt time.Time   `json:"-"`
	Params      FieldParams `json:"-"`
}

// AssembleReport packages the dense grid with its provenance.
func AssembleReport(now time.Time, params FieldParams, observations []Observation, cells []Cell) Report {
	now = now.UTC()
	return Report{
		Timestamp:          now.Format(TimestampLayout),
		OriginalPoints:     len(observations),
		InterpolatedPoints: params.Density * params.Density,
		Data:               cells,
		GeneratedAt:        now,
		Params:             params,
	}
}

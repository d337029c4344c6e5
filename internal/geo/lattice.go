package geo

import (
	"errors"
	"fmt"

	"github.com/i474232898/rainfield/internal/common"
)

// ErrInvalidGridSize is returned when the lattice would have fewer than two points per axis.
var ErrInvalidGridSize = errors.New("grid size must be at least 2")

// Lattice lays gridSize x gridSize evenly spaced coordinates over box, both edges included.
// Coordinates are ordered latitude-major: all longitudes of the first latitude row come first.
func Lattice(box BoundingBox, gridSize int) ([]Coordinate, error) {
	if gridSize < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidGridSize, gridSize)
	}
	if err := box.Validate(); err != nil {
		return nil, err
	}

	lats := common.Linspace(box.MinLat, box.MaxLat, gridSize)
	lons := common.Linspace(box.MinLon, box.MaxLon, gridSize)

	points := make([]Coordinate, 0, gridSize*gridSize)
	for _, lat := range lats {
		for _, lon := range lons {
			points = append(points, Coordinate{Lat: lat, Lon: lon})
		}
	}
	return points, nil
}

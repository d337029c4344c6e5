package geo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Coordinate is a point on the globe in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate lies within [-90,90] x [-180,180].
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// BoundingBox is the geographic region the lattice is laid over.
type BoundingBox struct {
	MinLon float64 `json:"minLon"`
	MaxLon float64 `json:"maxLon"`
	MinLat float64 `json:"minLat"`
	MaxLat float64 `json:"maxLat"`
}

// DefaultBoundingBox covers Mexico and the surrounding Pacific and Gulf waters.
func DefaultBoundingBox() BoundingBox {
	return BoundingBox{MinLon: -118, MaxLon: -86.5, MinLat: 14.5, MaxLat: 32.75}
}

var errInvalidBoundingBox = errors.New("invalid bounding box")

// Validate checks ranges and ordering of the box edges.
func (b BoundingBox) Validate() error {
	if !(Coordinate{Lat: b.MinLat, Lon: b.MinLon}).Valid() || !(Coordinate{Lat: b.MaxLat, Lon: b.MaxLon}).Valid() {
		return fmt.Errorf("%w: corners out of range", errInvalidBoundingBox)
	}
	if b.MinLon > b.MaxLon || b.MinLat > b.MaxLat {
		return fmt.Errorf("%w: min exceeds max", errInvalidBoundingBox)
	}
	return nil
}

// Contains reports whether c lies inside the box, edges included.
func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat && c.Lon >= b.MinLon && c.Lon <= b.MaxLon
}

// ParseBoundingBox parses "minLon,maxLon,minLat,maxLat".
func ParseBoundingBox(s string) (BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BoundingBox{}, fmt.Errorf("%w: expected minLon,maxLon,minLat,maxLat", errInvalidBoundingBox)
	}
	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("%w: %v", errInvalidBoundingBox, err)
		}
		vals[i] = v
	}
	box := BoundingBox{MinLon: vals[0], MaxLon: vals[1], MinLat: vals[2], MaxLat: vals[3]}
	if err := box.Validate(); err != nil {
		return BoundingBox{}, err
	}
	return box, nil
}

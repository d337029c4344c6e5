package geo

import "math"

// EarthRadiusKm is the mean earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Haversine returns the great-circle distance between a and b in kilometers.
func Haversine(a, b Coordinate) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := lat2 - lat1
	dLon := toRadians(b.Lon - a.Lon)
	return haversine(lat1, lat2, math.Cos(lat1), dLat, dLon)
}

// HaversineMany returns the distances from ref to every target, aligned with targets.
func HaversineMany(ref Coordinate, targets []Coordinate) []float64 {
	out := make([]float64, len(targets))
	HaversineInto(out, ref, targets)
	return out
}

// HaversineInto writes the distances from ref to targets into dst, which must be at
// least len(targets) long. It lets hot loops reuse one buffer.
func HaversineInto(dst []float64, ref Coordinate, targets []Coordinate) {
	lat1 := toRadians(ref.Lat)
	cosLat1 := math.Cos(lat1)
	for i, t := range targets {
		lat2 := toRadians(t.Lat)
		dst[i] = haversine(lat1, lat2, cosLat1, lat2-lat1, toRadians(t.Lon-ref.Lon))
	}
}

func haversine(lat1, lat2, cosLat1, dLat, dLon float64) float64 {
	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + cosLat1*math.Cos(lat2)*sinLon*sinLon
	// Rounding can push h marginally above 1 for antipodal points.
	if h > 1 {
		h = 1
	}
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

package common

// Linspace returns n evenly spaced values over [start, stop], endpoints included.
// For n == 1 the single value is start; n <= 0 yields nil.
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(n-1)
	for i := 0; i < n; i++ {
		out[i] = start + float64(i)*step
	}
	// Pin the last value so rounding never pushes it past stop.
	out[n-1] = stop
	return out
}

// MinMax returns the smallest and largest value. ok is false for an empty slice.
func MinMax(values []float64) (minV, maxV float64, ok bool) {
	if len(values) == 0 {
		return 0, 0, false
	}
	minV, maxV = values[0], values[0]
	for _, v := range values[1:] {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	return minV, maxV, true
}

package rainfield

// WetThresholdMm is the smallest value counted as measurable rain.
const WetThresholdMm = 0.1

// Summary condenses a field for logs, metrics and the CLI.
type Summary struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Mean     float64 `json:"mean"`
	WetCells int     `json:"wetCells"`
}

// Summarize computes the range, mean and wet-cell count of cells.
func Summarize(cells []Cell) Summary {
	if len(cells) == 0 {
		return Summary{}
	}

	s := Summary{Min: cells[0].Value, Max: cells[0].Value}
	var sum float64
	for _, c := range cells {
		sum += c.Value
		if c.Value < s.Min {
			s.Min = c.Value
		}
		if c.Value > s.Max {
			s.Max = c.Value
		}
		if c.Value >= WetThresholdMm {
			s.WetCells++
		}
	}
	s.Mean = sum / float64(len(cells))
	return s
}

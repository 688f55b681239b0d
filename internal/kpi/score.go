package kpi

import "math"

// Metric is one benchmarked ratio. For a normal metric Min scores 0 and Max
// scores 100. For an Inverse metric (lower is better) Max scores 100 and
// Min scores 0.
type Metric struct {
	Value   float64
	Weight  float64
	Min     float64
	Max     float64
	Inverse bool
}

// Score maps the value linearly onto 0-100 between its bounds.
func (m Metric) Score() float64 {
	if m.Inverse {
		switch {
		case m.Value <= m.Max:
			return 100
		case m.Value >= m.Min:
			return 0
		}
		return 100 * (m.Min - m.Value) / (m.Min - m.Max)
	}
	switch {
	case m.Value >= m.Max:
		return 100
	case m.Value <= m.Min:
		return 0
	}
	return 100 * (m.Value - m.Min) / (m.Max - m.Min)
}

// WeightedScore is the weight-averaged Score of the metrics whose values are
// finite. With nothing to score it returns the neutral 50.
func WeightedScore(metrics []Metric) float64 {
	var total, weight float64
	for _, m := range metrics {
		if math.IsNaN(m.Value) || math.IsInf(m.Value, 0) {
			continue
		}
		total += m.Score() * m.Weight
		weight += m.Weight
	}
	if weight == 0 {
		return 50
	}
	return total / weight
}

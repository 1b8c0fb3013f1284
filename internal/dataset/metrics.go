package dataset

import (
	"gonum.org/v1/gonum/mat"
)

// Metrics are the dataset-level quality measures logged with every trial.
type Metrics struct {
	Uniqueness  float64
	Overlap     float64
	Correlation float64
}

// ComputeMetrics returns uniqueness, overlap and correlation for m.
func ComputeMetrics(m *Matrix) Metrics {
	return Metrics{
		Uniqueness:  Uniqueness(m),
		Overlap:     Overlap(m),
		Correlation: 1 - Distance(m),
	}
}

// Uniqueness is the fraction of rows that are distinct.
func Uniqueness(m *Matrix) float64 {
	if m.rows == 0 {
		return 0
	}
	seen := make(map[string]struct{}, m.rows)
	for i := 0; i < m.rows; i++ {
		seen[string(m.Row(i))] = struct{}{}
	}
	return float64(len(seen)) / float64(m.rows)
}

// Overlap is the mean shared active bit count over all row pairs,
// normalized by the row width.
func Overlap(m *Matrix) float64 {
	g, ok := gram(m)
	if !ok {
		return 0
	}
	var sum float64
	for i := 0; i < m.rows; i++ {
		for j := i + 1; j < m.rows; j++ {
			sum += g.At(i, j)
		}
	}
	return sum / pairs(m.rows) / float64(m.cols)
}

// Distance is the mean normalized Hamming distance over all row pairs.
func Distance(m *Matrix) float64 {
	g, ok := gram(m)
	if !ok {
		return 0
	}
	var sum float64
	for i := 0; i < m.rows; i++ {
		for j := i + 1; j < m.rows; j++ {
			sum += g.At(i, i) + g.At(j, j) - 2*g.At(i, j)
		}
	}
	return sum / pairs(m.rows) / float64(m.cols)
}

// gram returns m*m^T, whose entries are the pairwise active bit overlaps.
func gram(m *Matrix) (*mat.Dense, bool) {
	if m.rows < 2 || m.cols == 0 {
		return nil, false
	}
	data := make([]float64, len(m.bits))
	for i, b := range m.bits {
		data[i] = float64(b)
	}
	d := mat.NewDense(m.rows, m.cols, data)
	var g mat.Dense
	g.Mul(d, d.T())
	return &g, true
}

func pairs(n int) float64 {
	return float64(n) * float64(n-1) / 2
}

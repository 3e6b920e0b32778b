package series

// DefaultMaxPoints is the rendering budget used when none is configured.
const DefaultMaxPoints = 1000

// Downsample decimates s to at most maxPoints rows for plotting by keeping
// every step-th row starting at the first, step = ceil(n/maxPoints).
// A non-positive maxPoints returns s unchanged. The result is for rendering
// only; metrics must be computed on the full series.
func Downsample(s *Aligned, maxPoints int) *Aligned {
	n := s.Len()
	if maxPoints <= 0 || n <= maxPoints {
		return s
	}
	step := Stride(n, maxPoints)
	rows := make([]Row, 0, (n+step-1)/step)
	for i := 0; i < n; i += step {
		rows = append(rows, s.rows[i])
	}
	return &Aligned{rows: rows}
}

// Stride returns the decimation step for n rows under a maxPoints budget.
func Stride(n, maxPoints int) int {
	if maxPoints <= 0 || n <= maxPoints {
		return 1
	}
	return (n + maxPoints - 1) / maxPoints
}

package timerjitter

import "math"

// Summary describes a sample of latencies in milliseconds.
type Summary struct {
	N      int
	Mean   float64
	Min    float64
	Max    float64
	StdDev float64 // population standard deviation
}

// Summarize computes a Summary of data in one pass using Welford's update.
// An empty sample yields the zero Summary.
func Summarize(data []float64) Summary {
	var s Summary
	var m2 float64
	for i, v := range data {
		if i == 0 {
			s.Min, s.Max = v, v
		}
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
		s.N++
		delta := v - s.Mean
		s.Mean += delta / float64(s.N)
		m2 += delta * (v - s.Mean)
	}
	if s.N > 0 {
		s.StdDev = math.Sqrt(m2 / float64(s.N))
	}
	return s
}

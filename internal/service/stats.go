package service

import (
	"math"
	"sort"
)

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStdDev uses the n-1 denominator. It is 0 for fewer than two values.
func sampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var sq float64
	for _, v := range values {
		d := v - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)-1))
}

// midpointPercentile ranks x among values, counting ties as half below.
func midpointPercentile(x float64, values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var below, equal int
	for _, v := range values {
		switch {
		case v < x:
			below++
		case v == x:
			equal++
		}
	}
	return (float64(below) + 0.5*float64(equal)) / float64(len(values)) * 100
}

func roundCents(v float64) int64 {
	return int64(math.RoundToEven(v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

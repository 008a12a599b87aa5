package ml

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// percentile uses linear interpolation between closest ranks, p in [0, 100].
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo < 0 {
		lo = 0
	}
	if hi >= len(sorted) {
		hi = len(sorted) - 1
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// column copies the j-th column out of a row-major matrix.
func column(matrix [][]float64, j int) []float64 {
	values := make([]float64, len(matrix))
	for i, row := range matrix {
		values[i] = row[j]
	}
	return values
}

func meanStd(values []float64) (float64, float64) {
	return stat.PopMeanStdDev(values, nil)
}

func rmse(predicted, actual []float64) float64 {
	if len(predicted) == 0 || len(predicted) != len(actual) {
		return 0
	}
	sum := 0.0
	for i := range predicted {
		diff := predicted[i] - actual[i]
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(predicted)))
}

func rSquared(predicted, actual []float64) float64 {
	if len(predicted) == 0 || len(predicted) != len(actual) {
		return 0
	}
	mean := stat.Mean(actual, nil)
	var residual, total float64
	for i := range actual {
		residual += (actual[i] - predicted[i]) * (actual[i] - predicted[i])
		total += (actual[i] - mean) * (actual[i] - mean)
	}
	if total == 0 {
		return 0
	}
	return 1 - residual/total
}

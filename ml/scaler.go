package ml

import (
	"errors"
	"fmt"
)

// ScalerStats are per-column training statistics. Columns listed in
// ZeroVariance had a standard deviation of zero and use 1.0 instead.
type ScalerStats struct {
	Means        []float64 `json:"means"`
	Stds         []float64 `json:"stds"`
	ZeroVariance []int     `json:"zero_variance,omitempty"`
}

type StandardScaler struct {
	stats ScalerStats
}

func NewStandardScaler(stats ScalerStats) (*StandardScaler, error) {
	if len(stats.Means) == 0 {
		return nil, errors.New("scaler has no columns")
	}
	if len(stats.Means) != len(stats.Stds) {
		return nil, fmt.Errorf("scaler means/stds length mismatch: %d != %d", len(stats.Means), len(stats.Stds))
	}
	for i, std := range stats.Stds {
		if std <= 0 {
			return nil, fmt.Errorf("scaler column %d has non-positive std %v", i, std)
		}
	}
	return &StandardScaler{stats: stats}, nil
}

// Fit computes population mean and standard deviation for every column.
func (s *StandardScaler) Fit(matrix [][]float64) error {
	if len(matrix) == 0 {
		return errors.New("matrix is empty")
	}
	width := len(matrix[0])
	if width == 0 {
		return errors.New("matrix has no columns")
	}
	for i, row := range matrix {
		if len(row) != width {
			return fmt.Errorf("row %d has %d columns, want %d", i, len(row), width)
		}
	}

	stats := ScalerStats{
		Means: make([]float64, width),
		Stds:  make([]float64, width),
	}
	for j := 0; j < width; j++ {
		mean, std := meanStd(column(matrix, j))
		if std == 0 {
			std = 1
			stats.ZeroVariance = append(stats.ZeroVariance, j)
		}
		stats.Means[j] = mean
		stats.Stds[j] = std
	}
	s.stats = stats
	return nil
}

func (s *StandardScaler) Transform(vector []float64) ([]float64, error) {
	if len(s.stats.Means) == 0 {
		return nil, ErrNotFitted
	}
	if len(vector) != len(s.stats.Means) {
		return nil, fmt.Errorf("%w: got %d values, scaler has %d", ErrFeatureMismatch, len(vector), len(s.stats.Means))
	}
	scaled := make([]float64, len(vector))
	for i, v := range vector {
		scaled[i] = (v - s.stats.Means[i]) / s.stats.Stds[i]
	}
	return scaled, nil
}

func (s *StandardScaler) TransformAll(matrix [][]float64) ([][]float64, error) {
	scaled := make([][]float64, len(matrix))
	for i, row := range matrix {
		v, err := s.Transform(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		scaled[i] = v
	}
	return scaled, nil
}

func (s *StandardScaler) Stats() ScalerStats {
	return ScalerStats{
		Means:        append([]float64(nil), s.stats.Means...),
		Stds:         append([]float64(nil), s.stats.Stds...),
		ZeroVariance: append([]int(nil), s.stats.ZeroVariance...),
	}
}

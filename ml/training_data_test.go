package ml

import (
	"math"
	"testing"
)

func TestPercentile(t *testing.T) {
	values := []float64{40, 10, 30, 20}
	tests := []struct {
		p    float64
		want float64
	}{
		{0, 10},
		{100, 40},
		{50, 25},
		{33, 19.9},
		{66, 29.8},
	}
	for _, tt := range tests {
		if got := percentile(values, tt.p); math.Abs(got-tt.want) > 1e-9 {
			t.Fatalf("percentile(%v): expected %v, got %v", tt.p, tt.want, got)
		}
	}
	if got := percentile([]float64{5}, 66); got != 5 {
		t.Fatalf("single value percentile: got %v", got)
	}
}

func TestMedian(t *testing.T) {
	if got := median([]float64{3, 1, 2}); got != 2 {
		t.Fatalf("expected 2, got %v", got)
	}
	if got := median([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Fatalf("expected 2.5, got %v", got)
	}
}

func TestGenerateTierLabels(t *testing.T) {
	prices := []float64{100, 200, 300, 400, 500, 600, 700, 800, 900}
	labels, thresholds, err := GenerateTierLabels(prices)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(thresholds.P33-364) > 1e-9 || math.Abs(thresholds.P66-628) > 1e-9 {
		t.Fatalf("unexpected thresholds: %+v", thresholds)
	}
	want := []string{
		TierLow, TierLow, TierLow,
		TierMid, TierMid, TierMid,
		TierHigh, TierHigh, TierHigh,
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("price %v: expected %s, got %s", prices[i], want[i], labels[i])
		}
	}

	// A price equal to a threshold falls into the lower tier.
	if got := thresholds.Tier(thresholds.P33); got != TierLow {
		t.Fatalf("expected Low at p33, got %s", got)
	}
	if got := thresholds.Tier(thresholds.P66); got != TierMid {
		t.Fatalf("expected Mid at p66, got %s", got)
	}

	if _, _, err := GenerateTierLabels(nil); err == nil {
		t.Fatal("expected error for empty prices")
	}
}

func TestBuildTrainingSet(t *testing.T) {
	rows := []LabeledRecord{
		labeled("East", floatPtr(100), 500),
		labeled("West", nil, 700),
	}
	rows[1].Lattitude = -38.5
	stats := ImputationStats{BuildingAreaMedian: 100}
	regions, err := NewCategoryTable(FeatureRegionname, []string{"East", "West"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clusters := ClusterModel{Centroids: [][2]float64{{-37.8, 144.9}, {-38.5, 144.9}}}

	matrix, prices, err := BuildTrainingSet(rows, stats, regions, clusters, FeatureNames())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matrix) != 2 || len(matrix[0]) != len(FeatureNames()) {
		t.Fatalf("unexpected matrix shape")
	}
	if prices[0] != 500 || prices[1] != 700 {
		t.Fatalf("unexpected prices: %v", prices)
	}
	last := len(FeatureNames()) - 1
	if matrix[0][last] != 0 || matrix[1][last] != 1 {
		t.Fatalf("unexpected cluster column: %v %v", matrix[0][last], matrix[1][last])
	}
	if matrix[1][10] != 1 {
		t.Fatalf("expected West to encode as 1, got %v", matrix[1][10])
	}

	rows = append(rows, labeled("North", nil, 1))
	if _, _, err := BuildTrainingSet(rows, stats, regions, clusters, FeatureNames()); err == nil {
		t.Fatal("expected unseen region error")
	}
}

func TestRegressionMetrics(t *testing.T) {
	actual := []float64{1, 2, 3, 4}
	if got := rmse(actual, actual); got != 0 {
		t.Fatalf("expected rmse 0, got %v", got)
	}
	if got := rSquared(actual, actual); got != 1 {
		t.Fatalf("expected r2 1, got %v", got)
	}
	predicted := []float64{2, 3, 4, 5}
	if got := rmse(predicted, actual); got != 1 {
		t.Fatalf("expected rmse 1, got %v", got)
	}
}

package ml

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/stat"
)

func smallBoostingParams() BoostingParams {
	params := DefaultBoostingParams()
	params.Rounds = 20
	params.Tree.MaxDepth = 3
	return params
}

func TestGradientBoostedRegressorFit(t *testing.T) {
	var features [][]float64
	var targets []float64
	for i := 0; i < 40; i++ {
		x := float64(i)
		features = append(features, []float64{x, float64(i % 3)})
		targets = append(targets, 3*x+10)
	}

	model := NewGradientBoostedRegressor(smallBoostingParams())
	if err := model.Fit(features, targets); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(model.BaseScore-stat.Mean(targets, nil)) > 1e-9 {
		t.Fatalf("expected base score to be the target mean, got %v", model.BaseScore)
	}
	if len(model.Trees) != 20 {
		t.Fatalf("expected 20 trees, got %d", len(model.Trees))
	}

	predicted := make([]float64, len(features))
	for i, row := range features {
		v, err := model.PredictValue(row)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		predicted[i] = v
	}
	if r2 := rSquared(predicted, targets); r2 < 0.95 {
		t.Fatalf("expected r2 >= 0.95 on training data, got %v", r2)
	}
}

func TestGradientBoostedClassifierFit(t *testing.T) {
	var features [][]float64
	var labels []int
	for i := 0; i < 60; i++ {
		label := i % 3
		features = append(features, []float64{float64(label)*10 + float64(i%5)*0.1, 1})
		labels = append(labels, label)
	}

	model := NewGradientBoostedClassifier(smallBoostingParams())
	if err := model.Fit(features, labels, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(model.Rounds) != 20 || len(model.Rounds[0]) != 3 {
		t.Fatalf("expected 20 rounds of 3 trees, got %d", len(model.Rounds))
	}

	for i, row := range features {
		probs, err := model.PredictProba(row)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		sum := 0.0
		for _, p := range probs {
			sum += p
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Fatalf("probabilities sum to %v", sum)
		}
		class, err := model.PredictClass(row)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if class != labels[i] {
			t.Fatalf("row %d: expected class %d, got %d", i, labels[i], class)
		}
	}
	if err := model.validate(2); err != nil {
		t.Fatalf("fitted classifier failed validation: %v", err)
	}
}

func TestGradientBoostedClassifierTieBreak(t *testing.T) {
	leaf := RegressionTree{Nodes: []TreeNode{{IsLeaf: true, FeatureIdx: -1}}}
	model := &GradientBoostedClassifier{
		Params:     DefaultBoostingParams(),
		NumClass:   3,
		BaseScores: []float64{0, 0.5, 0.5},
		Rounds:     [][]RegressionTree{{leaf, leaf, leaf}},
	}
	class, err := model.PredictClass([]float64{1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if class != 1 {
		t.Fatalf("expected tie to resolve to class 1, got %d", class)
	}
}

func TestGradientBoostingErrors(t *testing.T) {
	regressor := NewGradientBoostedRegressor(DefaultBoostingParams())
	if _, err := regressor.PredictValue([]float64{1}); !errors.Is(err, ErrNotFitted) {
		t.Fatalf("expected ErrNotFitted, got %v", err)
	}
	if err := regressor.Fit([][]float64{{1}}, []float64{1, 2}); err == nil {
		t.Fatal("expected size mismatch error")
	}

	classifier := NewGradientBoostedClassifier(DefaultBoostingParams())
	if _, err := classifier.PredictClass([]float64{1}); !errors.Is(err, ErrNotFitted) {
		t.Fatalf("expected ErrNotFitted, got %v", err)
	}
	if err := classifier.Fit([][]float64{{1}, {2}}, []int{0, 3}, 3); err == nil {
		t.Fatal("expected out of range label error")
	}
	if err := classifier.Fit([][]float64{{1}}, []int{0}, 1); err == nil {
		t.Fatal("expected error for a single class")
	}

	bad := DefaultBoostingParams()
	bad.Rounds = 0
	if err := NewGradientBoostedRegressor(bad).Fit([][]float64{{1}}, []float64{1}); err == nil {
		t.Fatal("expected error for zero rounds")
	}
}

func TestSoftmax(t *testing.T) {
	probs := softmax([]float64{1000, 1000, 1000})
	for _, p := range probs {
		if math.Abs(p-1.0/3) > 1e-12 {
			t.Fatalf("expected uniform probabilities, got %v", probs)
		}
	}
}

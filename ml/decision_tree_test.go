package ml

import (
	"errors"
	"math"
	"testing"
)

func TestRegressionTreeFitPredict(t *testing.T) {
	features := [][]float64{
		{0.1, 5},
		{0.2, 5},
		{0.3, 5},
		{0.8, 5},
		{0.9, 5},
		{1.0, 5},
	}
	// Squared error gradients at a zero prediction: grad = -target.
	targets := []float64{-1, -1, -1, 1, 1, 1}
	grad := make([]float64, len(targets))
	hess := make([]float64, len(targets))
	for i, y := range targets {
		grad[i] = -y
		hess[i] = 1
	}

	var tree RegressionTree
	if err := tree.Fit(features, grad, hess, TreeParams{MaxDepth: 2, Lambda: 0, MinChildWeight: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	root := tree.Nodes[0]
	if root.IsLeaf || root.FeatureIdx != 0 {
		t.Fatalf("expected root split on feature 0, got %+v", root)
	}
	if math.Abs(root.Threshold-0.55) > 1e-9 {
		t.Fatalf("expected threshold 0.55, got %v", root.Threshold)
	}

	low, err := tree.Predict([]float64{0.15, 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	high, err := tree.Predict([]float64{0.95, 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(low+1) > 1e-9 || math.Abs(high-1) > 1e-9 {
		t.Fatalf("expected leaves -1 and 1, got %v and %v", low, high)
	}
	if err := tree.validate(2); err != nil {
		t.Fatalf("fitted tree failed validation: %v", err)
	}
}

func TestRegressionTreeLambdaShrinksLeaves(t *testing.T) {
	features := [][]float64{{1}, {2}}
	grad := []float64{-2, -2}
	hess := []float64{1, 1}

	var tree RegressionTree
	if err := tree.Fit(features, grad, hess, TreeParams{MaxDepth: 1, Lambda: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// No split improves on a constant gradient, so the root is a leaf.
	if len(tree.Nodes) != 1 || !tree.Nodes[0].IsLeaf {
		t.Fatalf("expected a single leaf, got %d nodes", len(tree.Nodes))
	}
	if got := tree.Nodes[0].Value; math.Abs(got-1) > 1e-9 {
		t.Fatalf("expected leaf value 4/(2+2)=1, got %v", got)
	}
}

func TestRegressionTreeMinChildWeight(t *testing.T) {
	features := [][]float64{{1}, {2}, {3}}
	grad := []float64{-1, 1, 1}
	hess := []float64{1, 1, 1}

	var tree RegressionTree
	if err := tree.Fit(features, grad, hess, TreeParams{MaxDepth: 3, MinChildWeight: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tree.Nodes) != 1 {
		t.Fatalf("expected no split with min child weight 2, got %d nodes", len(tree.Nodes))
	}
}

func TestRegressionTreeErrors(t *testing.T) {
	var tree RegressionTree
	if _, err := tree.Predict([]float64{1}); !errors.Is(err, ErrNotFitted) {
		t.Fatalf("expected ErrNotFitted, got %v", err)
	}
	if err := tree.Fit(nil, nil, nil, TreeParams{}); err == nil {
		t.Fatal("expected error for empty input")
	}
	if err := tree.Fit([][]float64{{1}}, []float64{1, 2}, []float64{1}, TreeParams{}); err == nil {
		t.Fatal("expected error for size mismatch")
	}

	broken := RegressionTree{Nodes: []TreeNode{
		{FeatureIdx: 0, Threshold: 1, LeftChild: 0, RightChild: 2},
		{IsLeaf: true},
		{IsLeaf: true},
	}}
	if err := broken.validate(1); err == nil {
		t.Fatal("expected validation error for a self-referencing node")
	}
	outOfRange := RegressionTree{Nodes: []TreeNode{
		{FeatureIdx: 3, Threshold: 1, LeftChild: 1, RightChild: 2},
		{IsLeaf: true},
		{IsLeaf: true},
	}}
	if err := outOfRange.validate(2); err == nil {
		t.Fatal("expected validation error for feature index out of range")
	}
}

package ml

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// BoostingParams are shared by the classifier and the regressor.
type BoostingParams struct {
	Rounds       int        `json:"rounds"`
	LearningRate float64    `json:"learning_rate"`
	Tree         TreeParams `json:"tree"`
}

func DefaultBoostingParams() BoostingParams {
	return BoostingParams{
		Rounds:       100,
		LearningRate: 0.3,
		Tree: TreeParams{
			MaxDepth:       6,
			Lambda:         1,
			MinChildWeight: 1,
		},
	}
}

func (p BoostingParams) validate() error {
	if p.Rounds <= 0 {
		return errors.New("rounds must be positive")
	}
	if p.LearningRate <= 0 {
		return errors.New("learning rate must be positive")
	}
	if p.Tree.Lambda < 0 {
		return errors.New("lambda must not be negative")
	}
	return nil
}

// GradientBoostedRegressor fits squared error with additive trees.
type GradientBoostedRegressor struct {
	Params    BoostingParams   `json:"params"`
	BaseScore float64          `json:"base_score"`
	Trees     []RegressionTree `json:"trees"`
}

func NewGradientBoostedRegressor(params BoostingParams) *GradientBoostedRegressor {
	return &GradientBoostedRegressor{Params: params}
}

func (m *GradientBoostedRegressor) Fit(features [][]float64, targets []float64) error {
	if len(features) == 0 || len(targets) == 0 {
		return errors.New("features or targets empty")
	}
	if len(features) != len(targets) {
		return errors.New("features and targets size mismatch")
	}
	if err := m.Params.validate(); err != nil {
		return err
	}

	base := stat.Mean(targets, nil)

	predictions := make([]float64, len(targets))
	for i := range predictions {
		predictions[i] = base
	}
	grad := make([]float64, len(targets))
	hess := make([]float64, len(targets))
	for i := range hess {
		hess[i] = 1
	}

	trees := make([]RegressionTree, 0, m.Params.Rounds)
	for round := 0; round < m.Params.Rounds; round++ {
		for i := range grad {
			grad[i] = predictions[i] - targets[i]
		}
		var tree RegressionTree
		if err := tree.Fit(features, grad, hess, m.Params.Tree); err != nil {
			return fmt.Errorf("round %d: %w", round, err)
		}
		for i, row := range features {
			v, err := tree.Predict(row)
			if err != nil {
				return fmt.Errorf("round %d: %w", round, err)
			}
			predictions[i] += m.Params.LearningRate * v
		}
		trees = append(trees, tree)
	}

	m.BaseScore = base
	m.Trees = trees
	return nil
}

func (m *GradientBoostedRegressor) PredictValue(features []float64) (float64, error) {
	if len(m.Trees) == 0 {
		return 0, ErrNotFitted
	}
	score := m.BaseScore
	for i := range m.Trees {
		v, err := m.Trees[i].Predict(features)
		if err != nil {
			return 0, err
		}
		score += m.Params.LearningRate * v
	}
	return score, nil
}

func (m *GradientBoostedRegressor) validate(width int) error {
	if len(m.Trees) == 0 {
		return ErrNotFitted
	}
	if m.Params.LearningRate <= 0 {
		return errors.New("regressor learning rate must be positive")
	}
	for i := range m.Trees {
		if err := m.Trees[i].validate(width); err != nil {
			return fmt.Errorf("regressor tree %d: %w", i, err)
		}
	}
	return nil
}

// GradientBoostedClassifier is a softmax multi-class booster. Rounds[r][k] is
// the tree for class k added in round r.
type GradientBoostedClassifier struct {
	Params     BoostingParams     `json:"params"`
	NumClass   int                `json:"num_class"`
	BaseScores []float64          `json:"base_scores"`
	Rounds     [][]RegressionTree `json:"rounds"`
}

func NewGradientBoostedClassifier(params BoostingParams) *GradientBoostedClassifier {
	return &GradientBoostedClassifier{Params: params}
}

func (m *GradientBoostedClassifier) Fit(features [][]float64, labels []int, numClass int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	if numClass < 2 {
		return errors.New("need at least two classes")
	}
	if err := m.Params.validate(); err != nil {
		return err
	}

	counts := make([]float64, numClass)
	for _, label := range labels {
		if label < 0 || label >= numClass {
			return fmt.Errorf("label %d out of range", label)
		}
		counts[label]++
	}
	base := make([]float64, numClass)
	for k := range base {
		// Unseen classes get a large negative prior instead of -Inf.
		prior := (counts[k] + 1e-6) / float64(len(labels))
		base[k] = math.Log(prior)
	}

	n := len(labels)
	scores := make([][]float64, n)
	for i := range scores {
		scores[i] = append([]float64(nil), base...)
	}
	grad := make([]float64, n)
	hess := make([]float64, n)
	probs := make([][]float64, n)

	rounds := make([][]RegressionTree, 0, m.Params.Rounds)
	for round := 0; round < m.Params.Rounds; round++ {
		for i := range scores {
			probs[i] = softmax(scores[i])
		}
		trees := make([]RegressionTree, numClass)
		for k := 0; k < numClass; k++ {
			for i := range grad {
				p := probs[i][k]
				target := 0.0
				if labels[i] == k {
					target = 1
				}
				grad[i] = p - target
				hess[i] = math.Max(2*p*(1-p), 1e-16)
			}
			if err := trees[k].Fit(features, grad, hess, m.Params.Tree); err != nil {
				return fmt.Errorf("round %d class %d: %w", round, k, err)
			}
		}
		for i, row := range features {
			for k := range trees {
				v, err := trees[k].Predict(row)
				if err != nil {
					return fmt.Errorf("round %d class %d: %w", round, k, err)
				}
				scores[i][k] += m.Params.LearningRate * v
			}
		}
		rounds = append(rounds, trees)
	}

	m.NumClass = numClass
	m.BaseScores = base
	m.Rounds = rounds
	return nil
}

// PredictProba returns the softmax class probabilities.
func (m *GradientBoostedClassifier) PredictProba(features []float64) ([]float64, error) {
	if len(m.Rounds) == 0 {
		return nil, ErrNotFitted
	}
	scores := append([]float64(nil), m.BaseScores...)
	for _, trees := range m.Rounds {
		for k := range trees {
			v, err := trees[k].Predict(features)
			if err != nil {
				return nil, err
			}
			scores[k] += m.Params.LearningRate * v
		}
	}
	return softmax(scores), nil
}

// PredictClass returns the most probable class; ties go to the lower index.
func (m *GradientBoostedClassifier) PredictClass(features []float64) (int, error) {
	probs, err := m.PredictProba(features)
	if err != nil {
		return 0, err
	}
	best := 0
	for k := 1; k < len(probs); k++ {
		if probs[k] > probs[best] {
			best = k
		}
	}
	return best, nil
}

func (m *GradientBoostedClassifier) validate(width int) error {
	if len(m.Rounds) == 0 {
		return ErrNotFitted
	}
	if m.NumClass < 2 || len(m.BaseScores) != m.NumClass {
		return fmt.Errorf("classifier has %d base scores for %d classes", len(m.BaseScores), m.NumClass)
	}
	if m.Params.LearningRate <= 0 {
		return errors.New("classifier learning rate must be positive")
	}
	for r, trees := range m.Rounds {
		if len(trees) != m.NumClass {
			return fmt.Errorf("classifier round %d has %d trees, want %d", r, len(trees), m.NumClass)
		}
		for k := range trees {
			if err := trees[k].validate(width); err != nil {
				return fmt.Errorf("classifier round %d class %d: %w", r, k, err)
			}
		}
	}
	return nil
}

func softmax(scores []float64) []float64 {
	max := math.Inf(-1)
	for _, s := range scores {
		if s > max {
			max = s
		}
	}
	out := make([]float64, len(scores))
	sum := 0.0
	for i, s := range scores {
		out[i] = math.Exp(s - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

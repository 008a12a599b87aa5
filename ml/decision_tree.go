package ml

import (
    "errors"
    "sort"
)

// RegressionTree is a single boosting tree stored as a flat node array. Node
// 0 is the root; child indices are absolute.
type RegressionTree struct {
    Nodes []TreeNode `json:"nodes"`
}

type TreeNode struct {
    FeatureIdx int     `json:"feature_idx"`
    Threshold  float64 `json:"threshold"`
    LeftChild  int     `json:"left_child"`
    RightChild int     `json:"right_child"`
    Value      float64 `json:"value"`
    IsLeaf     bool    `json:"is_leaf"`
}

// TreeParams control the growth of one tree.
type TreeParams struct {
    MaxDepth       int     `json:"max_depth"`
    Lambda         float64 `json:"lambda"`
    MinChildWeight float64 `json:"min_child_weight"`
}

type treeBuilder struct {
    features [][]float64
    grad     []float64
    hess     []float64
    params   TreeParams
}

// Fit grows a tree against first and second order gradients of the loss.
// Leaf values are the Newton step -G/(H+lambda).
func (t *RegressionTree) Fit(features [][]float64, grad, hess []float64, params TreeParams) error {
    if len(features) == 0 || len(grad) == 0 {
        return errors.New("features or gradients empty")
    }
    if len(features) != len(grad) || len(grad) != len(hess) {
        return errors.New("features and gradients size mismatch")
    }
    if params.MaxDepth <= 0 {
        params.MaxDepth = 6
    }

    b := &treeBuilder{features: features, grad: grad, hess: hess, params: params}
    rows := make([]int, len(features))
    for i := range rows {
        rows[i] = i
    }
    t.Nodes = b.buildNode(rows, 0, 0)
    return nil
}

func (t *RegressionTree) Predict(features []float64) (float64, error) {
    if len(t.Nodes) == 0 {
        return 0, ErrNotFitted
    }
    idx := 0
    for steps := 0; steps <= len(t.Nodes); steps++ {
        node := t.Nodes[idx]
        if node.IsLeaf {
            return node.Value, nil
        }
        if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
            return 0, errors.New("feature index out of range")
        }
        if features[node.FeatureIdx] <= node.Threshold {
            idx = node.LeftChild
        } else {
            idx = node.RightChild
        }
        if idx <= 0 || idx >= len(t.Nodes) {
            return 0, errors.New("invalid tree state")
        }
    }
    return 0, errors.New("invalid tree state")
}

// validate checks the node links without evaluating anything.
func (t *RegressionTree) validate(width int) error {
    if len(t.Nodes) == 0 {
        return ErrNotFitted
    }
    for i, node := range t.Nodes {
        if node.IsLeaf {
            continue
        }
        if node.FeatureIdx < 0 || node.FeatureIdx >= width {
            return errors.New("feature index out of range")
        }
        if node.LeftChild <= i || node.LeftChild >= len(t.Nodes) || node.RightChild <= i || node.RightChild >= len(t.Nodes) {
            return errors.New("invalid tree state")
        }
    }
    return nil
}

func (b *treeBuilder) buildNode(rows []int, depth int, offset int) []TreeNode {
    var gSum, hSum float64
    for _, r := range rows {
        gSum += b.grad[r]
        hSum += b.hess[r]
    }
    leaf := []TreeNode{{
        FeatureIdx: -1,
        LeftChild:  -1,
        RightChild: -1,
        Value:      -gSum / (hSum + b.params.Lambda),
        IsLeaf:     true,
    }}
    if depth >= b.params.MaxDepth || len(rows) < 2 {
        return leaf
    }

    bestFeature, threshold, ok := b.findBestSplit(rows, gSum, hSum)
    if !ok {
        return leaf
    }

    leftRows, rightRows := b.splitRows(rows, bestFeature, threshold)
    if len(leftRows) == 0 || len(rightRows) == 0 {
        return leaf
    }

    leftNodes := b.buildNode(leftRows, depth+1, offset+1)
    rightNodes := b.buildNode(rightRows, depth+1, offset+1+len(leftNodes))

    root := TreeNode{
        FeatureIdx: bestFeature,
        Threshold:  threshold,
        LeftChild:  offset + 1,
        RightChild: offset + 1 + len(leftNodes),
        Value:      leaf[0].Value,
        IsLeaf:     false,
    }

    nodes := make([]TreeNode, 0, 1+len(leftNodes)+len(rightNodes))
    nodes = append(nodes, root)
    nodes = append(nodes, leftNodes...)
    nodes = append(nodes, rightNodes...)
    return nodes
}

// findBestSplit scans every feature in sorted order and keeps the split with
// the largest gain. Ties keep the earlier feature and threshold.
func (b *treeBuilder) findBestSplit(rows []int, gSum, hSum float64) (int, float64, bool) {
    lambda := b.params.Lambda
    parentScore := gSum * gSum / (hSum + lambda)
    featureCount := len(b.features[rows[0]])
    bestFeature := -1
    bestThreshold := 0.0
    bestGain := 0.0

    order := make([]int, len(rows))
    for featureIdx := 0; featureIdx < featureCount; featureIdx++ {
        copy(order, rows)
        sort.SliceStable(order, func(i, j int) bool {
            return b.features[order[i]][featureIdx] < b.features[order[j]][featureIdx]
        })

        var gLeft, hLeft float64
        for i := 0; i < len(order)-1; i++ {
            r := order[i]
            gLeft += b.grad[r]
            hLeft += b.hess[r]
            current := b.features[r][featureIdx]
            next := b.features[order[i+1]][featureIdx]
            if current == next {
                continue
            }
            hRight := hSum - hLeft
            if hLeft < b.params.MinChildWeight || hRight < b.params.MinChildWeight {
                continue
            }
            gRight := gSum - gLeft
            gain := gLeft*gLeft/(hLeft+lambda) + gRight*gRight/(hRight+lambda) - parentScore
            if gain > bestGain {
                bestGain = gain
                bestFeature = featureIdx
                bestThreshold = (current + next) / 2
            }
        }
    }
    if bestFeature == -1 {
        return -1, 0, false
    }
    return bestFeature, bestThreshold, true
}

func (b *treeBuilder) splitRows(rows []int, featureIdx int, threshold float64) ([]int, []int) {
    left := make([]int, 0)
    right := make([]int, 0)
    for _, r := range rows {
        if b.features[r][featureIdx] <= threshold {
            left = append(left, r)
        } else {
            right = append(right, r)
        }
    }
    return left, right
}

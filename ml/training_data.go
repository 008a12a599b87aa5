package ml

import (
	"errors"
)

const (
	TierLow  = "Low"
	TierMid  = "Mid"
	TierHigh = "High"
)

// TierThresholds are the 33rd and 66th percentile of training prices.
type TierThresholds struct {
	P33 float64 `json:"p33"`
	P66 float64 `json:"p66"`
}

func (t TierThresholds) Tier(price float64) string {
	switch {
	case price > t.P66:
		return TierHigh
	case price > t.P33:
		return TierMid
	default:
		return TierLow
	}
}

// GenerateTierLabels splits prices into terciles and returns one tier name
// per price.
func GenerateTierLabels(prices []float64) ([]string, TierThresholds, error) {
	if len(prices) == 0 {
		return nil, TierThresholds{}, errors.New("prices is empty")
	}
	thresholds := TierThresholds{
		P33: percentile(prices, 33),
		P66: percentile(prices, 66),
	}
	labels := make([]string, len(prices))
	for i, price := range prices {
		labels[i] = thresholds.Tier(price)
	}
	return labels, thresholds, nil
}

// BuildTrainingSet runs the fitted encoder and clusterer over rows and returns
// the unscaled matrix in names order together with the prices.
func BuildTrainingSet(rows []LabeledRecord, stats ImputationStats, regions CategoryTable, clusters ClusterModel, names []string) ([][]float64, []float64, error) {
	if len(rows) == 0 {
		return nil, nil, errors.New("rows is empty")
	}
	encoder := FeatureEncoder{}
	matrix := make([][]float64, len(rows))
	prices := make([]float64, len(rows))
	for i, row := range rows {
		encoded, err := encoder.Transform(row.RawRecord, stats, regions)
		if err != nil {
			return nil, nil, err
		}
		augmented := AugmentedRecord{
			EncodedRecord: encoded,
			ClusterID:     clusters.Assign(encoded.Lattitude, encoded.Longtitude),
		}
		vector, err := FeatureVector(augmented, names)
		if err != nil {
			return nil, nil, err
		}
		matrix[i] = vector
		prices[i] = row.Price
	}
	return matrix, prices, nil
}

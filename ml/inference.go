package ml

import (
	"errors"
	"fmt"
)

// Predictor applies one bundle to raw records. It holds no mutable state and
// is safe for concurrent use.
type Predictor struct {
	bundle  *ModelBundle
	scaler  *StandardScaler
	encoder FeatureEncoder
	id      string
}

func NewPredictor(bundle *ModelBundle) (*Predictor, error) {
	if bundle == nil {
		return nil, errors.New("bundle is nil")
	}
	if err := bundle.Validate(); err != nil {
		return nil, err
	}
	scaler, err := NewStandardScaler(bundle.Scaler)
	if err != nil {
		return nil, err
	}
	id, err := bundleID(bundle)
	if err != nil {
		return nil, err
	}
	return &Predictor{bundle: bundle, scaler: scaler, id: id}, nil
}

// Predict runs encode, cluster, project, scale, classify and regress in that
// fixed order.
func (p *Predictor) Predict(record RawRecord) (PredictionResult, error) {
	vector, clusterID, err := p.featureVector(record)
	if err != nil {
		return PredictionResult{}, err
	}

	class, err := p.bundle.Classifier.PredictClass(vector)
	if err != nil {
		return PredictionResult{}, fmt.Errorf("classify: %w", err)
	}
	price, err := p.bundle.Regressor.PredictValue(vector)
	if err != nil {
		return PredictionResult{}, fmt.Errorf("regress: %w", err)
	}
	tier, err := p.bundle.Tiers.Decode(class)
	if err != nil {
		return PredictionResult{}, fmt.Errorf("decode tier: %w", err)
	}

	return PredictionResult{
		PredictedPrice: price,
		Tier:           tier,
		ClusterID:      clusterID,
	}, nil
}

// FeatureVector returns the standardized vector the models see for record.
func (p *Predictor) FeatureVector(record RawRecord) ([]float64, error) {
	vector, _, err := p.featureVector(record)
	return vector, err
}

func (p *Predictor) featureVector(record RawRecord) ([]float64, int, error) {
	encoded, err := p.encoder.Transform(record, p.bundle.Imputation, p.bundle.Regions)
	if err != nil {
		return nil, 0, err
	}
	augmented := AugmentedRecord{
		EncodedRecord: encoded,
		ClusterID:     p.bundle.Clusters.Assign(encoded.Lattitude, encoded.Longtitude),
	}
	raw, err := FeatureVector(augmented, p.bundle.FeatureNames)
	if err != nil {
		return nil, 0, err
	}
	scaled, err := p.scaler.Transform(raw)
	if err != nil {
		return nil, 0, err
	}
	return scaled, augmented.ClusterID, nil
}

// Bundle exposes the loaded bundle. Callers must treat it as read-only.
func (p *Predictor) Bundle() *ModelBundle { return p.bundle }

// ID identifies the bundle contents; it changes whenever a different bundle
// file is loaded.
func (p *Predictor) ID() string { return p.id }

func (p *Predictor) Clusters() int { return p.bundle.Clusters.K() }

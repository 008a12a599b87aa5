package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"
)

const BundleSchemaVersion = 1

// TrainingMetrics are measured on the rows the bundle was fitted on.
type TrainingMetrics struct {
	Rows               int     `json:"rows"`
	ClassifierAccuracy float64 `json:"classifier_accuracy"`
	RegressorRMSE      float64 `json:"regressor_rmse"`
	RegressorR2        float64 `json:"regressor_r2"`
}

// ModelBundle is every fitted stage of the pipeline plus the column order
// they were fitted with. It is written once by the trainer and never mutated
// after it has been loaded.
type ModelBundle struct {
	SchemaVersion  int                       `json:"schema_version"`
	TrainedAt      time.Time                 `json:"trained_at"`
	Imputation     ImputationStats           `json:"imputation"`
	Regions        CategoryTable             `json:"region_encoding"`
	Tiers          CategoryTable             `json:"tier_labels"`
	TierThresholds TierThresholds            `json:"tier_thresholds"`
	Clusters       ClusterModel              `json:"clusters"`
	Scaler         ScalerStats               `json:"scaler"`
	Classifier     GradientBoostedClassifier `json:"classifier"`
	Regressor      GradientBoostedRegressor  `json:"regressor"`
	FeatureNames   []string                  `json:"feature_names"`
	Metrics        TrainingMetrics           `json:"metrics"`
}

// Validate checks that every stage is present and that the stages agree on
// the feature layout.
func (b *ModelBundle) Validate() error {
	if b.SchemaVersion != BundleSchemaVersion {
		return fmt.Errorf("schema version %d, want %d", b.SchemaVersion, BundleSchemaVersion)
	}
	if b.Regions.Len() == 0 {
		return errors.New("region encoding is missing")
	}
	if b.Tiers.Len() == 0 {
		return errors.New("tier labels are missing")
	}
	if len(b.Clusters.Centroids) == 0 {
		return errors.New("cluster centroids are missing")
	}
	if err := checkFeatureNames(b.FeatureNames); err != nil {
		return err
	}
	if !slices.Equal(b.FeatureNames, FeatureNames()) {
		return fmt.Errorf("%w: feature order %v differs from %v", ErrFeatureMismatch, b.FeatureNames, FeatureNames())
	}
	width := len(b.FeatureNames)
	if len(b.Scaler.Means) != width || len(b.Scaler.Stds) != width {
		return fmt.Errorf("%w: scaler has %d columns, feature names have %d", ErrFeatureMismatch, len(b.Scaler.Means), width)
	}
	if _, err := NewStandardScaler(b.Scaler); err != nil {
		return err
	}
	if err := b.Classifier.validate(width); err != nil {
		return err
	}
	if b.Classifier.NumClass != b.Tiers.Len() {
		return fmt.Errorf("classifier has %d classes, tier table has %d", b.Classifier.NumClass, b.Tiers.Len())
	}
	if err := b.Regressor.validate(width); err != nil {
		return err
	}
	return nil
}

// Save writes the bundle as JSON. The file is replaced atomically so a
// watcher never observes a half-written bundle.
func (b *ModelBundle) Save(path string) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid bundle: %w", err)
	}
	payload, err := json.Marshal(b)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".bundle-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadBundle reads and validates a bundle. Every failure is an
// *ArtifactLoadError.
func LoadBundle(path string) (*ModelBundle, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, &ArtifactLoadError{Path: path, Err: err}
	}
	bundle, err := DecodeBundle(payload)
	if err != nil {
		return nil, &ArtifactLoadError{Path: path, Err: err}
	}
	return bundle, nil
}

func DecodeBundle(payload []byte) (*ModelBundle, error) {
	var bundle ModelBundle
	if err := json.Unmarshal(payload, &bundle); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	if err := bundle.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bundle: %w", err)
	}
	return &bundle, nil
}

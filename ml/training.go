package ml

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type TrainConfig struct {
	Clusters   int
	Seed       int64
	Classifier BoostingParams
	Regressor  BoostingParams
}

func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Clusters:   DefaultClusterCount,
		Seed:       42,
		Classifier: DefaultBoostingParams(),
		Regressor:  DefaultBoostingParams(),
	}
}

// Trainer fits every stage in order and produces a bundle.
type Trainer struct {
	config TrainConfig
	logger *zap.Logger
	now    func() time.Time
}

func NewTrainer(config TrainConfig, logger *zap.Logger) *Trainer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trainer{config: config, logger: logger, now: time.Now}
}

func (t *Trainer) Train(rows []LabeledRecord) (*ModelBundle, error) {
	k := t.config.Clusters
	if k <= 0 {
		k = DefaultClusterCount
	}
	if len(rows) < k {
		return nil, fmt.Errorf("need at least %d rows, got %d", k, len(rows))
	}
	start := t.now()

	encoder := FeatureEncoder{}
	stats, regions, err := encoder.Fit(rows)
	if err != nil {
		return nil, fmt.Errorf("fit encoder: %w", err)
	}
	t.logger.Info("encoder fitted",
		zap.Float64("building_area_median", stats.BuildingAreaMedian),
		zap.Strings("regions", regions.Values()))

	coords := make([][2]float64, len(rows))
	for i, row := range rows {
		coords[i] = [2]float64{row.Lattitude, row.Longtitude}
	}
	clusters, err := NewSpatialClusterer(k, t.config.Seed).Fit(coords)
	if err != nil {
		return nil, fmt.Errorf("fit clusters: %w", err)
	}
	t.logger.Info("clusters fitted", zap.Int("k", clusters.K()))

	names := FeatureNames()
	matrix, prices, err := BuildTrainingSet(rows, stats, regions, clusters, names)
	if err != nil {
		return nil, fmt.Errorf("build training set: %w", err)
	}

	scaler := &StandardScaler{}
	if err := scaler.Fit(matrix); err != nil {
		return nil, fmt.Errorf("fit scaler: %w", err)
	}
	scalerStats := scaler.Stats()
	for _, j := range scalerStats.ZeroVariance {
		t.logger.Warn("zero variance feature, std set to 1", zap.String("feature", names[j]))
	}
	scaled, err := scaler.TransformAll(matrix)
	if err != nil {
		return nil, fmt.Errorf("scale features: %w", err)
	}

	tierNames, thresholds, err := GenerateTierLabels(prices)
	if err != nil {
		return nil, err
	}
	tiers, err := NewCategoryTable("tier", []string{TierLow, TierMid, TierHigh})
	if err != nil {
		return nil, err
	}
	labels := make([]int, len(tierNames))
	for i, name := range tierNames {
		if labels[i], err = tiers.Encode(name); err != nil {
			return nil, err
		}
	}

	classifier := NewGradientBoostedClassifier(t.config.Classifier)
	if err := classifier.Fit(scaled, labels, tiers.Len()); err != nil {
		return nil, fmt.Errorf("fit classifier: %w", err)
	}
	regressor := NewGradientBoostedRegressor(t.config.Regressor)
	if err := regressor.Fit(scaled, prices); err != nil {
		return nil, fmt.Errorf("fit regressor: %w", err)
	}

	metrics, err := evaluate(classifier, regressor, scaled, labels, prices)
	if err != nil {
		return nil, err
	}

	bundle := &ModelBundle{
		SchemaVersion:  BundleSchemaVersion,
		TrainedAt:      start.UTC(),
		Imputation:     stats,
		Regions:        regions,
		Tiers:          tiers,
		TierThresholds: thresholds,
		Clusters:       clusters,
		Scaler:         scalerStats,
		Classifier:     *classifier,
		Regressor:      *regressor,
		FeatureNames:   names,
		Metrics:        metrics,
	}
	if err := bundle.Validate(); err != nil {
		return nil, fmt.Errorf("trained bundle is inconsistent: %w", err)
	}

	t.logger.Info("training finished",
		zap.Int("rows", metrics.Rows),
		zap.Float64("classifier_accuracy", metrics.ClassifierAccuracy),
		zap.Float64("regressor_rmse", metrics.RegressorRMSE),
		zap.Float64("regressor_r2", metrics.RegressorR2),
		zap.Duration("elapsed", t.now().Sub(start)))
	return bundle, nil
}

func evaluate(classifier Classifier, regressor Regressor, features [][]float64, labels []int, prices []float64) (TrainingMetrics, error) {
	if len(features) == 0 {
		return TrainingMetrics{}, errors.New("features is empty")
	}
	correct := 0
	predicted := make([]float64, len(features))
	for i, row := range features {
		class, err := classifier.PredictClass(row)
		if err != nil {
			return TrainingMetrics{}, err
		}
		if class == labels[i] {
			correct++
		}
		if predicted[i], err = regressor.PredictValue(row); err != nil {
			return TrainingMetrics{}, err
		}
	}
	return TrainingMetrics{
		Rows:               len(features),
		ClassifierAccuracy: float64(correct) / float64(len(features)),
		RegressorRMSE:      rmse(predicted, prices),
		RegressorR2:        rSquared(predicted, prices),
	}, nil
}

// EvaluatePredictor scores a predictor on held-out rows. Rows whose region
// the bundle has never seen are counted in skipped rather than failing the
// whole evaluation.
func EvaluatePredictor(p *Predictor, rows []LabeledRecord) (metrics TrainingMetrics, skipped int, err error) {
	if len(rows) == 0 {
		return TrainingMetrics{}, 0, errors.New("rows is empty")
	}
	thresholds := p.Bundle().TierThresholds
	correct := 0
	predicted := make([]float64, 0, len(rows))
	actual := make([]float64, 0, len(rows))
	for _, row := range rows {
		result, err := p.Predict(row.RawRecord)
		if errors.Is(err, ErrUnseenCategory) {
			skipped++
			continue
		}
		if err != nil {
			return TrainingMetrics{}, skipped, err
		}
		if result.Tier == thresholds.Tier(row.Price) {
			correct++
		}
		predicted = append(predicted, result.PredictedPrice)
		actual = append(actual, row.Price)
	}
	if len(predicted) == 0 {
		return TrainingMetrics{}, skipped, errors.New("no row could be scored")
	}
	return TrainingMetrics{
		Rows:               len(predicted),
		ClassifierAccuracy: float64(correct) / float64(len(predicted)),
		RegressorRMSE:      rmse(predicted, actual),
		RegressorR2:        rSquared(predicted, actual),
	}, skipped, nil
}

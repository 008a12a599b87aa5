package ml

type Classifier interface {
	PredictClass(features []float64) (int, error)
	PredictProba(features []float64) ([]float64, error)
}

type Regressor interface {
	PredictValue(features []float64) (float64, error)
}

// PricePredictor maps one raw record to a priced, tiered prediction.
type PricePredictor interface {
	Predict(record RawRecord) (PredictionResult, error)
}

var (
	_ Classifier     = (*GradientBoostedClassifier)(nil)
	_ Regressor      = (*GradientBoostedRegressor)(nil)
	_ PricePredictor = (*Predictor)(nil)
)

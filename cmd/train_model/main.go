package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"housevalue/config"
	"housevalue/dataset"
	"housevalue/db"
	"housevalue/logging"
	"housevalue/ml"
	"housevalue/pipeline"
)

func main() {
	configPath := flag.String("config", "config.yaml", "config file")
	dataPath := flag.String("data", "", "training CSV; synthetic data is generated when empty")
	rows := flag.Int("rows", 2000, "synthetic rows when -data is empty")
	seed := flag.Int64("seed", 0, "random seed, overrides training.seed when non-zero")
	out := flag.String("out", "", "bundle output path, defaults to model.bundle_path")
	testRatio := flag.Float64("test_ratio", -1, "holdout ratio, overrides training.test_ratio when set")
	dbPath := flag.String("db", "", "SQLite training log, defaults to database.path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *seed != 0 {
		cfg.Training.Seed = *seed
	}
	if *out != "" {
		cfg.Model.BundlePath = *out
	}
	if *testRatio >= 0 {
		cfg.Training.TestRatio = *testRatio
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	logger, err := logging.New(logging.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	records, err := loadRecords(*dataPath, *rows, cfg.Training.Seed)
	if err != nil {
		logger.Fatal("failed to load training data", zap.Error(err))
	}

	cleaned, issues := cleanRecords(records, *dataPath == "")
	for _, issue := range issues {
		logger.Warn("row rejected", zap.Int("row", issue.Row), zap.String("rule", issue.Rule), zap.String("message", issue.Message))
	}
	logger.Info("training data cleaned", zap.Int("rows", len(records)), zap.Int("kept", len(cleaned)))

	train, holdout := splitDataset(cleaned, cfg.Training.TestRatio, cfg.Training.Seed)

	trainer := ml.NewTrainer(trainConfig(cfg), logger)
	bundle, err := trainer.Train(train)
	if err != nil {
		logger.Fatal("failed to train bundle", zap.Error(err))
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Model.BundlePath), 0o755); err != nil {
		logger.Fatal("failed to create model dir", zap.Error(err))
	}
	if err := bundle.Save(cfg.Model.BundlePath); err != nil {
		logger.Fatal("failed to save bundle", zap.Error(err))
	}

	predictor, err := ml.NewPredictor(bundle)
	if err != nil {
		logger.Fatal("trained bundle is unusable", zap.Error(err))
	}

	var holdoutMetrics ml.TrainingMetrics
	if len(holdout) > 0 {
		var skipped int
		holdoutMetrics, skipped, err = ml.EvaluatePredictor(predictor, holdout)
		if err != nil {
			logger.Fatal("failed to evaluate holdout", zap.Error(err))
		}
		if skipped > 0 {
			logger.Warn("holdout rows skipped", zap.Int("skipped", skipped))
		}
	}

	if cfg.Database.Path != "" {
		source := *dataPath
		if source == "" {
			source = "synthetic"
		}
		if err := recordRun(cfg.Database.Path, source, issues, db.TrainingLog{
			BundlePath: cfg.Model.BundlePath,
			BundleID:   predictor.ID(),
			Training:   bundle.Metrics,
			Holdout:    holdoutMetrics,
			Thresholds: bundle.TierThresholds,
			TrainedAt:  bundle.TrainedAt,
		}); err != nil {
			logger.Error("failed to record training run", zap.Error(err))
		}
	}

	printSummary(cfg.Model.BundlePath, predictor.ID(), bundle, holdoutMetrics)
}

func loadRecords(path string, rows int, seed int64) ([]ml.LabeledRecord, error) {
	if path != "" {
		return dataset.ReadCSV(path)
	}
	synthetic := dataset.DefaultSyntheticConfig()
	synthetic.Rows = rows
	synthetic.Seed = seed
	return dataset.Synthetic(synthetic)
}

// cleanRecords applies the cleaning rules to CSV input. Synthetic rows are
// used as generated, including the occasional negative BuildingArea.
func cleanRecords(records []ml.LabeledRecord, synthetic bool) ([]ml.LabeledRecord, []pipeline.QualityIssue) {
	if synthetic {
		return records, nil
	}
	return pipeline.NewDataCleaner().Clean(records)
}

func trainConfig(cfg *config.Config) ml.TrainConfig {
	train := ml.DefaultTrainConfig()
	train.Clusters = cfg.Training.Clusters
	train.Seed = cfg.Training.Seed
	for _, params := range []*ml.BoostingParams{&train.Classifier, &train.Regressor} {
		if cfg.Training.Rounds > 0 {
			params.Rounds = cfg.Training.Rounds
		}
		if cfg.Training.LearningRate > 0 {
			params.LearningRate = cfg.Training.LearningRate
		}
		if cfg.Training.MaxTreeDepth > 0 {
			params.Tree.MaxDepth = cfg.Training.MaxTreeDepth
		}
	}
	return train
}

// splitDataset shuffles with seed and holds out testRatio of the rows.
func splitDataset(rows []ml.LabeledRecord, testRatio float64, seed int64) (train, holdout []ml.LabeledRecord) {
	if testRatio <= 0 || testRatio >= 1 {
		return rows, nil
	}
	shuffled := append([]ml.LabeledRecord(nil), rows...)
	rnd := rand.New(rand.NewSource(seed))
	rnd.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	split := int(float64(len(shuffled)) * (1 - testRatio))
	return shuffled[:split], shuffled[split:]
}

func recordRun(path, source string, issues []pipeline.QualityIssue, entry db.TrainingLog) error {
	store, err := db.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.SaveQualityIssues(ctx, source, issues); err != nil {
		return err
	}
	return store.SaveTrainingLog(ctx, entry)
}

func printSummary(path, id string, bundle *ml.ModelBundle, holdout ml.TrainingMetrics) {
	p := message.NewPrinter(language.English)
	p.Printf("bundle %s saved to %s\n", id, path)
	p.Printf("training rows: %d\n", bundle.Metrics.Rows)
	p.Printf("tier thresholds: p33=%.0f p66=%.0f\n", bundle.TierThresholds.P33, bundle.TierThresholds.P66)
	p.Printf("train: accuracy=%.3f rmse=%.0f r2=%.3f\n",
		bundle.Metrics.ClassifierAccuracy, bundle.Metrics.RegressorRMSE, bundle.Metrics.RegressorR2)
	if holdout.Rows > 0 {
		p.Printf("holdout (%d rows): accuracy=%.3f rmse=%.0f r2=%.3f\n",
			holdout.Rows, holdout.ClassifierAccuracy, holdout.RegressorRMSE, holdout.RegressorR2)
	}
}

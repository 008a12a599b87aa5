package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"housevalue/ml"
	"housevalue/pipeline"
)

// Store records training runs and served predictions.
type Store struct {
	database *sql.DB
}

// Open initializes the SQLite database at path
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	database, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	query := `
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        bundle_path TEXT NOT NULL,
        bundle_id TEXT NOT NULL,
        rows INTEGER,
        accuracy REAL,
        rmse REAL,
        r2 REAL,
        holdout_accuracy REAL,
        holdout_rmse REAL,
        holdout_r2 REAL,
        tier_p33 REAL,
        tier_p66 REAL,
        trained_at DATETIME
    );
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        request_id TEXT,
        bundle_id TEXT NOT NULL,
        request TEXT NOT NULL,
        predicted_price REAL,
        tier TEXT,
        cluster_id INTEGER,
        created_at DATETIME
    );
    CREATE TABLE IF NOT EXISTS data_quality (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        source TEXT NOT NULL,
        row_index INTEGER NOT NULL,
        rule TEXT NOT NULL,
        message TEXT,
        created_at DATETIME
    );
    CREATE INDEX IF NOT EXISTS idx_predictions_bundle ON predictions(bundle_id);
    CREATE INDEX IF NOT EXISTS idx_quality_source ON data_quality(source);
    `

	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, err
	}
	return &Store{database: database}, nil
}

func (s *Store) Close() error {
	return s.database.Close()
}

type TrainingLog struct {
	BundlePath string             `json:"bundle_path"`
	BundleID   string             `json:"bundle_id"`
	Training   ml.TrainingMetrics `json:"training"`
	Holdout    ml.TrainingMetrics `json:"holdout"`
	Thresholds ml.TierThresholds  `json:"tier_thresholds"`
	TrainedAt  time.Time          `json:"trained_at"`
}

func (s *Store) SaveTrainingLog(ctx context.Context, entry TrainingLog) error {
	_, err := s.database.ExecContext(ctx, `
        INSERT INTO training_log (
            bundle_path, bundle_id, rows, accuracy, rmse, r2,
            holdout_accuracy, holdout_rmse, holdout_r2, tier_p33, tier_p66, trained_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.BundlePath,
		entry.BundleID,
		entry.Training.Rows,
		entry.Training.ClassifierAccuracy,
		entry.Training.RegressorRMSE,
		entry.Training.RegressorR2,
		entry.Holdout.ClassifierAccuracy,
		entry.Holdout.RegressorRMSE,
		entry.Holdout.RegressorR2,
		entry.Thresholds.P33,
		entry.Thresholds.P66,
		entry.TrainedAt.UTC(),
	)
	return err
}

// LoadTrainingLog returns the most recent runs first.
func (s *Store) LoadTrainingLog(ctx context.Context, limit int) ([]TrainingLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.database.QueryContext(ctx, `
        SELECT bundle_path, bundle_id, rows, accuracy, rmse, r2,
               holdout_accuracy, holdout_rmse, holdout_r2, tier_p33, tier_p66, trained_at
        FROM training_log
        ORDER BY trained_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]TrainingLog, 0)
	for rows.Next() {
		var l TrainingLog
		if err := rows.Scan(
			&l.BundlePath, &l.BundleID, &l.Training.Rows,
			&l.Training.ClassifierAccuracy, &l.Training.RegressorRMSE, &l.Training.RegressorR2,
			&l.Holdout.ClassifierAccuracy, &l.Holdout.RegressorRMSE, &l.Holdout.RegressorR2,
			&l.Thresholds.P33, &l.Thresholds.P66, &l.TrainedAt,
		); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

type PredictionLog struct {
	RequestID string
	BundleID  string
	Request   ml.RawRecord
	Result    ml.PredictionResult
	CreatedAt time.Time
}

func (s *Store) SavePrediction(ctx context.Context, entry PredictionLog) error {
	request, err := json.Marshal(entry.Request)
	if err != nil {
		return err
	}
	_, err = s.database.ExecContext(ctx, `
        INSERT INTO predictions (
            request_id, bundle_id, request, predicted_price, tier, cluster_id, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.RequestID,
		entry.BundleID,
		string(request),
		entry.Result.PredictedPrice,
		entry.Result.Tier,
		entry.Result.ClusterID,
		entry.CreatedAt.UTC(),
	)
	return err
}

func (s *Store) CountPredictions(ctx context.Context, bundleID string) (int, error) {
	var n int
	err := s.database.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM predictions WHERE bundle_id = ?`, bundleID).Scan(&n)
	return n, err
}

// SaveQualityIssues 批量保存训练数据的质量问题, source 通常是数据文件路径
func (s *Store) SaveQualityIssues(ctx context.Context, source string, issues []pipeline.QualityIssue) error {
	if len(issues) == 0 {
		return nil
	}

	// 开始事务
	tx, err := s.database.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO data_quality (source, row_index, rule, message, created_at)
        VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, issue := range issues {
		if _, err := stmt.ExecContext(ctx, source, issue.Row, issue.Rule, issue.Message, issue.Timestamp.UTC()); err != nil {
			return fmt.Errorf("insert failed: %w", err)
		}
	}

	// 提交事务
	return tx.Commit()
}

// CountQualityIssues returns issue counts per rule for source.
func (s *Store) CountQualityIssues(ctx context.Context, source string) (map[string]int, error) {
	rows, err := s.database.QueryContext(ctx,
		`SELECT rule, COUNT(*) FROM data_quality WHERE source = ? GROUP BY rule`, source)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var rule string
		var n int
		if err := rows.Scan(&rule, &n); err != nil {
			return nil, err
		}
		counts[rule] = n
	}
	return counts, rows.Err()
}

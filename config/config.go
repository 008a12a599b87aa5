package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Http struct {
		Port           int           `yaml:"port" env:"HTTP_PORT"`
		Timeout        time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT"`
		AllowedOrigins []string      `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" envSeparator:","`
	} `yaml:"http"`
	Model struct {
		BundlePath string `yaml:"bundle_path" env:"MODEL_BUNDLE_PATH"`
		Watch      bool   `yaml:"watch" env:"MODEL_WATCH"`
	} `yaml:"model"`
	Database struct {
		Path string `yaml:"path" env:"DATABASE_PATH"`
	} `yaml:"database"`
	Log struct {
		Level      string `yaml:"level" env:"LOG_LEVEL"`
		File       string `yaml:"file" env:"LOG_FILE"`
		MaxSizeMB  int    `yaml:"max_size_mb" env:"LOG_MAX_SIZE_MB"`
		MaxBackups int    `yaml:"max_backups" env:"LOG_MAX_BACKUPS"`
		MaxAgeDays int    `yaml:"max_age_days" env:"LOG_MAX_AGE_DAYS"`
	} `yaml:"log"`
	Cache struct {
		Size int `yaml:"size" env:"CACHE_SIZE"`
	} `yaml:"cache"`
	Training struct {
		Clusters     int     `yaml:"clusters" env:"TRAIN_CLUSTERS"`
		Seed         int64   `yaml:"seed" env:"TRAIN_SEED"`
		Rounds       int     `yaml:"rounds" env:"TRAIN_ROUNDS"`
		LearningRate float64 `yaml:"learning_rate" env:"TRAIN_LEARNING_RATE"`
		MaxTreeDepth int     `yaml:"max_tree_depth" env:"TRAIN_MAX_TREE_DEPTH"`
		TestRatio    float64 `yaml:"test_ratio" env:"TRAIN_TEST_RATIO"`
	} `yaml:"training"`
}

func Default() *Config {
	var c Config
	c.Http.Port = 8000
	c.Http.Timeout = 30 * time.Second
	c.Http.AllowedOrigins = []string{"*"}
	c.Model.BundlePath = "models/bundle.json"
	c.Log.Level = "info"
	c.Log.MaxSizeMB = 100
	c.Log.MaxBackups = 3
	c.Log.MaxAgeDays = 28
	c.Cache.Size = 1024
	c.Training.Clusters = 10
	c.Training.Seed = 42
	c.Training.Rounds = 100
	c.Training.LearningRate = 0.3
	c.Training.MaxTreeDepth = 6
	return &c
}

// Load layers configuration: defaults, then the YAML file at path (skipped if
// it does not exist), then a .env file, then process environment variables.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		file, err := os.Open(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			defer file.Close()
			if err := yaml.NewDecoder(file).Decode(config); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	// A missing .env is normal outside development.
	_ = godotenv.Load()

	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.Http.Port)
	}
	if c.Http.Timeout <= 0 {
		return errors.New("http.timeout must be positive")
	}
	if c.Model.BundlePath == "" {
		return errors.New("model.bundle_path is required")
	}
	if c.Cache.Size < 0 {
		return errors.New("cache.size must not be negative")
	}
	if c.Training.TestRatio < 0 || c.Training.TestRatio >= 1 {
		return fmt.Errorf("training.test_ratio %v out of range [0, 1)", c.Training.TestRatio)
	}
	return nil
}

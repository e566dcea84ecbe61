package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"perceptron/preprocessing"
	"perceptron/training"
)

// Config is the full run configuration. Values are layered: defaults, then
// the YAML file, then environment variables.
type Config struct {
	Training  training.Config `yaml:"training"`
	Data      DataConfig      `yaml:"data"`
	Visualize VisualizeConfig `yaml:"visualize"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type DataConfig struct {
	Dir             string `yaml:"dir"`
	TrainExamples   int    `yaml:"train_examples"`
	TestExamples    int    `yaml:"test_examples"`
	VerifyChecksums bool   `yaml:"verify_checksums"`
	Shuffle         bool   `yaml:"shuffle"`
	Seed            int64  `yaml:"seed"`
}

// VisualizeConfig controls the PNG strip of test predictions. An empty
// Output disables it.
type VisualizeConfig struct {
	Output  string `yaml:"output"`
	Samples int    `yaml:"samples"`
	Scale   int    `yaml:"scale"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

func Default() *Config {
	return &Config{
		Training: training.DefaultConfig(),
		Data: DataConfig{
			Dir:           "./MNIST_data",
			TrainExamples: preprocessing.TrainExamples,
			TestExamples:  preprocessing.TestExamples,
			Seed:          42,
		},
		Visualize: VisualizeConfig{
			Samples: 10,
			Scale:   4,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds a Config from path (may be empty) and the environment,
// picking up the nearest .env file above the working directory.
func Load(path string) (*Config, error) {
	if wd, err := os.Getwd(); err == nil {
		_ = loadEnvFile(wd)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config '%s': %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("MNIST_DATA_DIR"); v != "" {
		c.Data.Dir = v
	}
	if v := os.Getenv("MNIST_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MNIST_BATCH_SIZE: %w", err)
		}
		c.Training.BatchSize = n
	}
	if v := os.Getenv("MNIST_LEARNING_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("MNIST_LEARNING_RATE: %w", err)
		}
		c.Training.Eta = f
	}
	if v := os.Getenv("MNIST_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

func (c *Config) Validate() error {
	if err := c.Training.Validate(); err != nil {
		return fmt.Errorf("training: %w", err)
	}
	if c.Data.Dir == "" {
		return fmt.Errorf("data: dir is required")
	}
	if c.Visualize.Output != "" {
		if c.Visualize.Samples <= 0 {
			return fmt.Errorf("visualize: samples must be positive, got %d", c.Visualize.Samples)
		}
		if c.Visualize.Scale <= 0 {
			return fmt.Errorf("visualize: scale must be positive, got %d", c.Visualize.Scale)
		}
	}
	return nil
}

// loadEnvFile walks up from dir looking for a .env file.
func loadEnvFile(dir string) error {
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			return godotenv.Load(envPath)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return nil
}

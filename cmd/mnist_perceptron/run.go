package main

import (
	"fmt"

	"go.uber.org/zap"

	"perceptron/config"
	"perceptron/preprocessing"
	"perceptron/training"
	"perceptron/visualization"
)

// run trains on the train set, tests on the t10k set and optionally writes
// the first few test predictions as an image strip.
func run(cfg *config.Config, logger *zap.Logger) (float64, error) {
	train, err := preprocessing.Load(cfg.Data.Dir, true, cfg.Data.TrainExamples, cfg.Data.VerifyChecksums)
	if err != nil {
		return 0, fmt.Errorf("load train set: %w", err)
	}
	test, err := preprocessing.Load(cfg.Data.Dir, false, cfg.Data.TestExamples, cfg.Data.VerifyChecksums)
	if err != nil {
		return 0, fmt.Errorf("load test set: %w", err)
	}
	if cfg.Data.Shuffle {
		train = train.Shuffle(cfg.Data.Seed)
	}
	logger.Info("Loaded MNIST",
		zap.String("dir", cfg.Data.Dir),
		zap.Int("train", train.Len()),
		zap.Int("test", test.Len()))

	n, accuracy, err := training.StartTraining(cfg.Training, train.Dense(), train.Labels, test.Dense(), test.Labels, logger)
	if err != nil {
		return 0, err
	}

	if cfg.Visualize.Output != "" {
		head := test.Head(cfg.Visualize.Samples)
		for _, s := range visualization.Results(n.Call(head.Dense()), head.Labels) {
			logger.Info("Sample",
				zap.Int("index", s.Index),
				zap.Int("PL", s.Predicted),
				zap.Int("AL", s.Actual))
		}
		err := visualization.WriteStripFile(cfg.Visualize.Output, head.Images, head.Rows, head.Cols, cfg.Visualize.Scale)
		if err != nil {
			return 0, fmt.Errorf("visualize: %w", err)
		}
		logger.Info("Wrote predictions", zap.String("path", cfg.Visualize.Output))
	}

	return accuracy, nil
}

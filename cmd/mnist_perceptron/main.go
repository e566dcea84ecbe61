package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"perceptron/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		verbose    bool
		configPath string
		dataDir    string
		visualize  string
		samples    int
		epochs     int

		cfg    *config.Config
		logger *zap.Logger
	)

	rootCmd := &cobra.Command{
		Use:   "mnist_perceptron",
		Short: "Train a single-layer perceptron on MNIST and report test accuracy",
		Long: `Loads the MNIST train and t10k sets, trains a single linear layer with the
batch-averaged perceptron rule, and reports accuracy on the test set.

Example:
  mnist_perceptron --data ./MNIST_data --visualize results.png`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("data") {
				cfg.Data.Dir = dataDir
			}
			if cmd.Flags().Changed("visualize") {
				cfg.Visualize.Output = visualize
			}
			if cmd.Flags().Changed("samples") {
				cfg.Visualize.Samples = samples
			}
			if cmd.Flags().Changed("epochs") {
				cfg.Training.Epochs = epochs
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err = newLogger(cfg.Logging, verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			accuracy, err := run(cfg, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Accuracy: %g\n", accuracy)
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	flags := rootCmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "YAML config file")
	flags.StringVar(&dataDir, "data", "", "directory holding the MNIST .gz files")
	flags.StringVar(&visualize, "visualize", "", "write the first test predictions to this PNG")
	flags.IntVar(&samples, "samples", 10, "number of test images to visualize")
	flags.IntVar(&epochs, "epochs", 1, "passes over the training set")

	return rootCmd
}

func newLogger(c config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if c.Level != "" {
		level, err := zapcore.ParseLevel(c.Level)
		if err != nil {
			return nil, err
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zc.Build()
}

package training

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrShapeMismatch = errors.New("shape mismatch")
	ErrLabelRange    = errors.New("label out of range")
	ErrBatchSize     = errors.New("batch size must be positive")
)

type Config struct {
	InputSize  int     `yaml:"input_size"`
	NumClasses int     `yaml:"num_classes"`
	BatchSize  int     `yaml:"batch_size"`
	Epochs     int     `yaml:"epochs"`
	Eta        float64 `yaml:"learning_rate"`
}

// DefaultConfig is one epoch over 28x28 digits in batches of 100.
func DefaultConfig() Config {
	return Config{
		InputSize:  784,
		NumClasses: 10,
		BatchSize:  100,
		Epochs:     1,
		Eta:        0.5,
	}
}

func (c Config) Validate() error {
	if c.InputSize <= 0 {
		return fmt.Errorf("input size %d: %w", c.InputSize, ErrShapeMismatch)
	}
	if c.NumClasses < 2 {
		return fmt.Errorf("need at least 2 classes, got %d", c.NumClasses)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: got %d", ErrBatchSize, c.BatchSize)
	}
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be positive, got %d", c.Epochs)
	}
	if c.Eta <= 0 {
		return fmt.Errorf("learning rate must be positive, got %g", c.Eta)
	}
	return nil
}

// Perceptron is a single affine layer: scores = x·Wᵀ + bᵀ.
type Perceptron struct {
	// W is NumClasses x InputSize.
	W *mat.Dense
	// B is NumClasses x 1.
	B *mat.Dense

	config Config
	logger *zap.Logger
}

// New returns a zero-initialised perceptron.
func New(con Config) *Perceptron {
	return &Perceptron{
		W:      mat.NewDense(con.NumClasses, con.InputSize, nil),
		B:      mat.NewDense(con.NumClasses, 1, nil),
		config: con,
		logger: zap.NewNop(),
	}
}

func (n *Perceptron) WithLogger(logger *zap.Logger) *Perceptron {
	if logger == nil {
		logger = zap.NewNop()
	}
	n.logger = logger
	return n
}

func (n *Perceptron) Config() Config {
	return n.config
}

// check validates a dataset against the model before it reaches gonum,
// which panics on dimension errors.
func (n *Perceptron) check(x mat.Matrix, labels []int) error {
	r, c := x.Dims()
	if r != len(labels) {
		return fmt.Errorf("%w: %d rows but %d labels", ErrShapeMismatch, r, len(labels))
	}
	if c != n.config.InputSize {
		return fmt.Errorf("%w: %d columns, model expects %d", ErrShapeMismatch, c, n.config.InputSize)
	}
	for i, l := range labels {
		if l < 0 || l >= n.config.NumClasses {
			return fmt.Errorf("%w: label %d at row %d", ErrLabelRange, l, i)
		}
	}
	return nil
}

package training

import (
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Train runs Epochs passes over x in BatchSize increments. The trailing
// batch is used even when it is shorter than BatchSize.
func (n *Perceptron) Train(x *mat.Dense, labels []int) error {
	if n.config.BatchSize <= 0 {
		return fmt.Errorf("%w: got %d", ErrBatchSize, n.config.BatchSize)
	}
	if err := n.check(x, labels); err != nil {
		return err
	}

	r, cx := x.Dims()

	b := n.config.BatchSize

	for e := 1; e < n.config.Epochs+1; e++ {
		var batches int
		for i := 0; i < r; i += b {
			k := i + b
			if k > r {
				k = r
			}
			_x := x.Slice(i, k, 0, cx)
			_y := labels[i:k]

			scores := n.Call(_x)
			gradW, gradB := n.BackPropagation(_x, scores, _y)
			n.GradientDescent(gradW, gradB)
			batches++
		}
		n.logger.Debug("epoch finished",
			zap.Int("epoch", e),
			zap.Int("batches", batches),
			zap.Int("examples", r))
	}
	return nil
}

// StartTraining builds a perceptron from con, trains it on X and reports
// its accuracy on Xv.
func StartTraining(con Config, X *mat.Dense, Y []int, Xv *mat.Dense, Yv []int, logger *zap.Logger) (*Perceptron, float64, error) {
	if err := con.Validate(); err != nil {
		return nil, 0, fmt.Errorf("invalid training config: %w", err)
	}
	n := New(con).WithLogger(logger)
	if err := n.Train(X, Y); err != nil {
		return nil, 0, fmt.Errorf("train: %w", err)
	}
	accuracy, err := n.Test(Xv, Yv)
	if err != nil {
		return nil, 0, fmt.Errorf("test: %w", err)
	}
	return n, accuracy, nil
}

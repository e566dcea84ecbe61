package training

import (
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Accuracy is the fraction of rows of scores whose argmax matches the label.
func Accuracy(scores mat.Matrix, labels []int) float64 {
	if len(labels) == 0 {
		return 0
	}
	var correct int
	for i, p := range Argmax(scores) {
		if p == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(labels))
}

// Test scores the whole of x in a single forward pass.
func (n *Perceptron) Test(x mat.Matrix, labels []int) (float64, error) {
	if err := n.check(x, labels); err != nil {
		return 0, err
	}
	accuracy := Accuracy(n.Call(x), labels)
	n.logger.Info("Accuracy", zap.Float64("accuracy", accuracy), zap.Int("examples", len(labels)))
	return accuracy, nil
}

package training

import "gonum.org/v1/gonum/mat"

// Call runs the forward pass and returns the unscaled class scores,
// one row per input row. x must have InputSize columns; like gonum, Call
// panics otherwise. Train and Test check shapes and return an error instead.
func (n *Perceptron) Call(x mat.Matrix) *mat.Dense {
	out := new(mat.Dense)
	out.Mul(x, n.W.T())
	out.Apply(func(_, j int, v float64) float64 {
		return v + n.B.At(j, 0)
	}, out)
	return out
}

// Predict returns the most likely class for every row of x.
func (n *Perceptron) Predict(x mat.Matrix) []int {
	return Argmax(n.Call(x))
}

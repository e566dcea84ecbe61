package training

import "gonum.org/v1/gonum/mat"

// GradientDescent moves W and B in place by Eta times the given gradients.
// The perceptron gradient already points toward the correct class, so it is
// added rather than subtracted.
func (n *Perceptron) GradientDescent(gradW, gradB mat.Matrix) {
	scalednw := new(mat.Dense)
	scalednw.Scale(n.config.Eta, gradW)

	scalednb := new(mat.Dense)
	scalednb.Scale(n.config.Eta, gradB)

	n.W.Add(n.W, scalednw)
	n.B.Add(n.B, scalednb)
}

package training

import "gonum.org/v1/gonum/mat"

// BackPropagation computes the perceptron update for one batch, averaged over
// its rows. err = onehot(labels) - onehot(argmax(scores)); the weight
// gradient is errᵀ·x / n and the bias gradient is the column sums of err / n.
func (n *Perceptron) BackPropagation(x, scores mat.Matrix, labels []int) (*mat.Dense, *mat.Dense) {
	rows, _ := x.Dims()
	alpha := 1 / float64(rows)

	expected := OneHot(labels, n.config.NumClasses)
	predicted := OneHot(Argmax(scores), n.config.NumClasses)

	err := new(mat.Dense)
	err.Sub(expected, predicted)

	nw := new(mat.Dense)
	nw.Mul(err.T(), x)
	nw.Scale(alpha, nw)

	nb := mat.DenseCopyOf(SumCols(err).T())
	nb.Scale(alpha, nb)

	return nw, nb
}

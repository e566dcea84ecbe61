package training

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SumCols returns a 1 x c matrix holding the sum of every column of m.
func SumCols(m mat.Matrix) *mat.Dense {

	_, c := m.Dims()

	data := make([]float64, c)
	for i := 0; i < c; i++ {
		col := mat.Col(nil, i, m)
		data[i] = floats.Sum(col)
	}

	return mat.NewDense(1, c, data)
}

// OneHot encodes indices as rows of a len(indices) x classes matrix.
// Every index must be in [0, classes).
func OneHot(indices []int, classes int) *mat.Dense {
	m := mat.NewDense(len(indices), classes, nil)
	for i, idx := range indices {
		m.Set(i, idx, 1)
	}
	return m
}

// Argmax returns the column of the largest value in each row of m.
// Ties resolve to the lowest column.
func Argmax(m mat.Matrix) []int {
	r, c := m.Dims()
	out := make([]int, r)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, m)
		out[i] = floats.MaxIdx(row)
	}
	return out
}

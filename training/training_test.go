package training

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/mat"
)

func smallConfig() Config {
	return Config{
		InputSize:  2,
		NumClasses: 3,
		BatchSize:  2,
		Epochs:     1,
		Eta:        0.5,
	}
}

func TestNewIsZeroInitialised(t *testing.T) {
	n := New(DefaultConfig())

	wr, wc := n.W.Dims()
	br, bc := n.B.Dims()
	assert.Equal(t, 10, wr)
	assert.Equal(t, 784, wc)
	assert.Equal(t, 10, br)
	assert.Equal(t, 1, bc)
	assert.Zero(t, mat.Sum(n.W))
	assert.Zero(t, mat.Sum(n.B))
}

func TestCallAddsBiasToEveryRow(t *testing.T) {
	n := New(smallConfig())
	n.W = mat.NewDense(3, 2, []float64{
		1, 0,
		0, 1,
		1, 1,
	})
	n.B = mat.NewDense(3, 1, []float64{0.5, -0.5, 0})

	x := mat.NewDense(2, 2, []float64{
		1, 2,
		0, 0,
	})
	got := n.Call(x)

	want := mat.NewDense(2, 3, []float64{
		1.5, 1.5, 3,
		0.5, -0.5, 0,
	})
	assert.True(t, mat.EqualApprox(want, got, 1e-12), "got\n%v", mat.Formatted(got))
	assert.Equal(t, []int{2, 0}, n.Predict(x))
}

func TestCallPanicsOnColumnMismatch(t *testing.T) {
	n := New(smallConfig())
	x := mat.NewDense(1, 3, []float64{1, 2, 3})
	assert.Panics(t, func() { n.Call(x) })

	_, err := n.Test(x, []int{0})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestZeroModelPredictsFirstClass(t *testing.T) {
	n := New(smallConfig())
	x := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	assert.Equal(t, []int{0, 0, 0}, n.Predict(x))
}

func TestBackPropagationAveragesPerceptronRule(t *testing.T) {
	n := New(smallConfig())
	x := mat.NewDense(2, 2, []float64{
		1, 2,
		3, 4,
	})
	// both rows predict class 1
	scores := mat.NewDense(2, 3, []float64{
		0, 1, 0,
		0, 1, 0,
	})

	gradW, gradB := n.BackPropagation(x, scores, []int{2, 0})

	wantW := mat.NewDense(3, 2, []float64{
		1.5, 2,
		-2, -3,
		0.5, 1,
	})
	wantB := mat.NewDense(3, 1, []float64{0.5, -1, 0.5})
	assert.True(t, mat.EqualApprox(wantW, gradW, 1e-12), "gradW\n%v", mat.Formatted(gradW))
	assert.True(t, mat.EqualApprox(wantB, gradB, 1e-12), "gradB\n%v", mat.Formatted(gradB))
}

func TestBackPropagationCorrectBatchHasZeroGradient(t *testing.T) {
	n := New(smallConfig())
	x := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	scores := mat.NewDense(2, 3, []float64{
		0, 0, 1,
		1, 0, 0,
	})

	gradW, gradB := n.BackPropagation(x, scores, []int{2, 0})

	assert.Zero(t, mat.Norm(gradW, 1))
	assert.Zero(t, mat.Norm(gradB, 1))
}

func TestGradientDescentUpdatesInPlace(t *testing.T) {
	n := New(smallConfig())
	w, b := n.W, n.B

	gradW := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	gradB := mat.NewDense(3, 1, []float64{1, -1, 2})
	n.GradientDescent(gradW, gradB)
	n.GradientDescent(gradW, gradB)

	assert.Same(t, w, n.W)
	assert.Same(t, b, n.B)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, n.W.RawMatrix().Data)
	assert.Equal(t, []float64{1, -1, 2}, n.B.RawMatrix().Data)
}

func TestAccuracy(t *testing.T) {
	scores := mat.NewDense(4, 2, []float64{
		1, 0,
		0, 1,
		1, 0,
		0, 1,
	})
	assert.Equal(t, 0.75, Accuracy(scores, []int{0, 1, 1, 1}))
	assert.Equal(t, 0.0, Accuracy(scores, nil))
}

// separable is two one-hot classes; with a zero start the perceptron rule
// needs exactly two full-batch epochs to separate them.
func separable() (*mat.Dense, []int) {
	x := mat.NewDense(4, 2, []float64{
		1, 0,
		0, 1,
		1, 0,
		0, 1,
	})
	return x, []int{0, 1, 0, 1}
}

func TestTrainSeparatesTwoClasses(t *testing.T) {
	x, y := separable()
	con := Config{InputSize: 2, NumClasses: 2, BatchSize: 4, Epochs: 1, Eta: 0.5}

	n := New(con)
	require.NoError(t, n.Train(x, y))
	// after one epoch every row predicts class 1
	acc, err := n.Test(x, y)
	require.NoError(t, err)
	assert.Equal(t, 0.5, acc)

	require.NoError(t, n.Train(x, y))
	acc, err = n.Test(x, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, acc)

	wantW := mat.NewDense(2, 2, []float64{
		0.25, -0.25,
		-0.25, 0.25,
	})
	assert.True(t, mat.EqualApprox(wantW, n.W, 1e-12), "W\n%v", mat.Formatted(n.W))
	assert.InDelta(t, 0, mat.Norm(n.B, 1), 1e-12)
}

func TestTrainMatchesManualBatchLoop(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const rows = 7
	x := mat.NewDense(rows, 2, nil)
	y := make([]int, rows)
	for i := 0; i < rows; i++ {
		x.Set(i, 0, rng.Float64())
		x.Set(i, 1, rng.Float64())
		y[i] = rng.Intn(3)
	}
	con := smallConfig()
	con.BatchSize = 3
	con.Epochs = 2

	trained := New(con)
	require.NoError(t, trained.Train(x, y))

	// batches [0,3) [3,6) [6,7), twice
	manual := New(con)
	for e := 0; e < con.Epochs; e++ {
		for _, span := range [][2]int{{0, 3}, {3, 6}, {6, 7}} {
			bx := x.Slice(span[0], span[1], 0, 2)
			gw, gb := manual.BackPropagation(bx, manual.Call(bx), y[span[0]:span[1]])
			manual.GradientDescent(gw, gb)
		}
	}

	assert.True(t, mat.Equal(manual.W, trained.W))
	assert.True(t, mat.Equal(manual.B, trained.B))
}

func TestTrainAveragesTrailingBatchOverItsOwnRows(t *testing.T) {
	// the first batch is already classified correctly by the zero model,
	// so only the single-row trailing batch moves the weights
	x := mat.NewDense(3, 2, []float64{
		1, 0,
		0, 1,
		2, 3,
	})
	y := []int{0, 0, 1}
	con := Config{InputSize: 2, NumClasses: 2, BatchSize: 2, Epochs: 1, Eta: 0.5}

	n := New(con)
	require.NoError(t, n.Train(x, y))

	// err = [-1, 1], gradW = errᵀ·[2 3] / 1, gradB = errᵀ / 1
	wantW := mat.NewDense(2, 2, []float64{
		-1, -1.5,
		1, 1.5,
	})
	wantB := mat.NewDense(2, 1, []float64{-0.5, 0.5})
	assert.True(t, mat.EqualApprox(wantW, n.W, 1e-12), "W\n%v", mat.Formatted(n.W))
	assert.True(t, mat.EqualApprox(wantB, n.B, 1e-12), "B\n%v", mat.Formatted(n.B))
}

func TestTrainRejectsBadInput(t *testing.T) {
	x, y := separable()
	con := Config{InputSize: 2, NumClasses: 2, BatchSize: 2, Epochs: 1, Eta: 0.5}

	t.Run("row count", func(t *testing.T) {
		err := New(con).Train(x, y[:3])
		assert.ErrorIs(t, err, ErrShapeMismatch)
	})

	t.Run("column count", func(t *testing.T) {
		bad := con
		bad.InputSize = 3
		err := New(bad).Train(x, y)
		assert.ErrorIs(t, err, ErrShapeMismatch)
	})

	t.Run("label range", func(t *testing.T) {
		err := New(con).Train(x, []int{0, 1, 2, 0})
		assert.ErrorIs(t, err, ErrLabelRange)
		_, err = New(con).Test(x, []int{0, -1, 0, 0})
		assert.ErrorIs(t, err, ErrLabelRange)
	})

	t.Run("batch size", func(t *testing.T) {
		bad := con
		bad.BatchSize = 0
		err := New(bad).Train(x, y)
		assert.ErrorIs(t, err, ErrBatchSize)
	})
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	for name, mutate := range map[string]func(*Config){
		"input size":    func(c *Config) { c.InputSize = 0 },
		"classes":       func(c *Config) { c.NumClasses = 1 },
		"batch size":    func(c *Config) { c.BatchSize = -1 },
		"epochs":        func(c *Config) { c.Epochs = 0 },
		"learning rate": func(c *Config) { c.Eta = 0 },
	} {
		t.Run(name, func(t *testing.T) {
			c := DefaultConfig()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestStartTrainingLogsAccuracy(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	x, y := separable()
	con := Config{InputSize: 2, NumClasses: 2, BatchSize: 4, Epochs: 2, Eta: 0.5}

	n, acc, err := StartTraining(con, x, y, x, y, zap.New(core))
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, 1.0, acc)

	assert.Equal(t, 2, logs.FilterMessage("epoch finished").Len())
	entries := logs.FilterMessage("Accuracy").All()
	require.Len(t, entries, 1)
	assert.Equal(t, 1.0, entries[0].ContextMap()["accuracy"])
}

func TestStartTrainingRejectsInvalidConfig(t *testing.T) {
	x, y := separable()
	con := Config{InputSize: 2, NumClasses: 2, BatchSize: 4, Epochs: 0, Eta: 0.5}

	_, _, err := StartTraining(con, x, y, x, y, nil)
	assert.Error(t, err)
}

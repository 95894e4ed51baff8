package core

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

type Split struct {
	XTrain   *mat.Dense
	XTest    *mat.Dense
	YTrain   []float64
	YTest    []float64
	TrainIdx []int
	TestIdx  []int
}

// TrainTestSplit shuffles the rows with the seed and holds out ceil(testSize * n) of them for testing
func TrainTestSplit(x mat.Matrix, y []float64, testSize float64, seed uint64) (*Split, error) {
	n, cols := x.Dims()
	if n != len(y) {
		return nil, fmt.Errorf("feature rows %d do not match labels %d", n, len(y))
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, fmt.Errorf("test size %v must be between 0 and 1", testSize)
	}

	nTest := int(math.Ceil(testSize*float64(n) - 1e-9))
	nTrain := n - nTest
	if nTrain < 1 || nTest < 2 {
		return nil, fmt.Errorf("%d labelled rows give %d train and %d test: %w", n, nTrain, nTest, ErrInsufficientRows)
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	perm := rng.Perm(n)

	res := &Split{
		XTrain:   mat.NewDense(nTrain, cols, nil),
		XTest:    mat.NewDense(nTest, cols, nil),
		YTrain:   make([]float64, nTrain),
		YTest:    make([]float64, nTest),
		TestIdx:  perm[:nTest],
		TrainIdx: perm[nTest:],
	}

	row := make([]float64, cols)
	for i, idx := range res.TestIdx {
		mat.Row(row, idx, x)
		res.XTest.SetRow(i, row)
		res.YTest[i] = y[idx]
	}
	for i, idx := range res.TrainIdx {
		mat.Row(row, idx, x)
		res.XTrain.SetRow(i, row)
		res.YTrain[i] = y[idx]
	}

	return res, nil
}

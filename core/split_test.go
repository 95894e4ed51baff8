package core

import (
	"errors"
	"slices"
	"testing"

	"gonum.org/v1/gonum/mat"

	ex "stockforecast/extensions"
)

func indexedData(n int) (*mat.Dense, []float64) {
	x := mat.NewDense(n, 2, nil)
	y := make([]float64, n)
	for i := range n {
		x.SetRow(i, []float64{float64(i), float64(i * 10)})
		y[i] = float64(i)
	}
	return x, y
}

func mustSplit(t *testing.T, x mat.Matrix, y []float64, testSize float64, seed uint64) *Split {
	t.Helper()
	split, err := TrainTestSplit(x, y, testSize, seed)
	if err != nil {
		t.Fatalf("error splitting: %v", err)
	}
	return split
}

func Test_TrainTestSplit_Sizes(t *testing.T) {
	x, y := indexedData(99)
	split := mustSplit(t, x, y, 0.2, 7)

	ex.AssertAreEqual(t, "test idx", 20, len(split.TestIdx))
	ex.AssertAreEqual(t, "train idx", 79, len(split.TrainIdx))
	ex.AssertAreEqual(t, "test labels", 20, len(split.YTest))
	r, _ := split.XTrain.Dims()
	ex.AssertAreEqual(t, "train rows", 79, r)
}

func Test_TrainTestSplit_IsDisjointAndExhaustive(t *testing.T) {
	x, y := indexedData(50)
	split := mustSplit(t, x, y, 0.3, 11)

	all := slices.Concat(split.TrainIdx, split.TestIdx)
	slices.Sort(all)
	for i, idx := range all {
		ex.AssertAreEqual(t, "index", i, idx)
	}

	for i, idx := range split.TestIdx {
		ex.AssertAreEqual(t, "test label", float64(idx), split.YTest[i])
		ex.AssertAreEqual(t, "test feature", float64(idx*10), split.XTest.At(i, 1))
	}
	for i, idx := range split.TrainIdx {
		ex.AssertAreEqual(t, "train label", float64(idx), split.YTrain[i])
		ex.AssertAreEqual(t, "train feature", float64(idx), split.XTrain.At(i, 0))
	}
}

func Test_TrainTestSplit_IsDeterministicPerSeed(t *testing.T) {
	x, y := indexedData(40)

	a := mustSplit(t, x, y, 0.2, 42)
	b := mustSplit(t, x, y, 0.2, 42)
	c := mustSplit(t, x, y, 0.2, 43)

	ex.AssertAreEqual(t, "same seed", true, slices.Equal(a.TestIdx, b.TestIdx))
	ex.AssertAreEqual(t, "same seed labels", true, slices.Equal(a.YTrain, b.YTrain))
	ex.AssertAreEqual(t, "different seed", false, slices.Equal(a.TestIdx, c.TestIdx))
}

func Test_TrainTestSplit_RejectsTinyInputs(t *testing.T) {
	x, y := indexedData(2)
	_, err := TrainTestSplit(x, y, 0.2, 1)
	ex.AssertAreEqual(t, "two rows", true, errors.Is(err, ErrInsufficientRows))

	x, y = indexedData(3)
	_, err = TrainTestSplit(x, y, 0.9, 1)
	ex.AssertAreEqual(t, "empty train", true, errors.Is(err, ErrInsufficientRows))

	if _, err := TrainTestSplit(x, y[:2], 0.2, 1); err == nil {
		t.Fatalf("expected an error for mismatched labels")
	}
	if _, err := TrainTestSplit(x, y, 1, 1); err == nil {
		t.Fatalf("expected an error for a test size of 1")
	}
}

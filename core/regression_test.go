package core

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	ex "stockforecast/extensions"
)

func linearData(n int) (*mat.Dense, []float64) {
	x := mat.NewDense(n, 3, nil)
	y := make([]float64, n)
	for i := range n {
		a := float64(i)
		b := math.Sin(a)
		c := float64(i%4) * 1.5
		x.SetRow(i, []float64{a, b, c})
		y[i] = 3 + 2*a - b + 0.5*c
	}
	return x, y
}

func Test_FitLinearRegression_RecoversExactCoefficients(t *testing.T) {
	x, y := linearData(40)

	model, err := FitLinearRegression(x, y)
	if err != nil {
		t.Fatalf("error fitting: %v", err)
	}

	expected := []float64{2, -1, 0.5}
	for i, e := range expected {
		ex.AssertIsClose(t, "coefficient", e, model.Coefficients[i], 1e-9)
	}
	ex.AssertIsClose(t, "intercept", 3, model.Intercept, 1e-8)

	score, err := model.Score(x, y)
	if err != nil {
		t.Fatalf("error scoring: %v", err)
	}
	ex.AssertIsClose(t, "score", 1, score, 1e-12)
}

func Test_FitLinearRegression_RankDeficientStillFits(t *testing.T) {
	x := mat.NewDense(6, 2, nil)
	y := make([]float64, 6)
	for i := range 6 {
		x.SetRow(i, []float64{float64(i), float64(i)})
		y[i] = 1 + 4*float64(i)
	}

	model, err := FitLinearRegression(x, y)
	if err != nil {
		t.Fatalf("error fitting: %v", err)
	}

	ex.AssertIsClose(t, "min norm split", model.Coefficients[0], model.Coefficients[1], 1e-9)
	pred, err := model.Predict(x)
	if err != nil {
		t.Fatalf("error predicting: %v", err)
	}
	for i := range y {
		ex.AssertIsClose(t, "prediction", y[i], pred[i], 1e-9)
	}
}

func Test_FitLinearRegression_ConstantDesignPredictsMean(t *testing.T) {
	x := mat.NewDense(3, 1, []float64{2, 2, 2})
	y := []float64{1, 2, 6}

	model, err := FitLinearRegression(x, y)
	if err != nil {
		t.Fatalf("error fitting: %v", err)
	}
	ex.AssertAreEqual(t, "coefficient", 0.0, model.Coefficients[0])
	ex.AssertIsClose(t, "intercept", 3, model.Intercept, 1e-12)
}

func Test_LinearRegression_PredictRejectsWrongWidth(t *testing.T) {
	model := &LinearRegression{Coefficients: []float64{1, 2}}
	if _, err := model.Predict(mat.NewDense(1, 3, nil)); err == nil {
		t.Fatalf("expected width error")
	}
}

func Test_RSquared(t *testing.T) {
	actual := []float64{3, -0.5, 2, 7}
	pred := []float64{2.5, 0, 2, 8}

	var ssRes, ssTot float64
	mean := stat.Mean(actual, nil)
	for i := range actual {
		ssRes += (actual[i] - pred[i]) * (actual[i] - pred[i])
		ssTot += (actual[i] - mean) * (actual[i] - mean)
	}

	got := RSquared(pred, actual)
	ex.AssertIsClose(t, "formula", 1-ssRes/ssTot, got, 1e-12)
	ex.AssertIsClose(t, "known value", 0.9486081370449679, got, 1e-12)

	bad := RSquared([]float64{10, 10, -10, -10}, actual)
	if bad >= 0 {
		t.Fatalf("expected a negative score, got %v", bad)
	}

	ex.AssertAreEqual(t, "constant exact", 1.0, RSquared([]float64{4, 4}, []float64{4, 4}))
	ex.AssertAreEqual(t, "constant miss", 0.0, RSquared([]float64{4, 5}, []float64{4, 4}))
}

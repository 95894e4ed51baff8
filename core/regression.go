package core

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// LinearRegression is an ordinary least squares model with an intercept
type LinearRegression struct {
	Coefficients []float64
	Intercept    float64
}

// FitLinearRegression solves the centred least squares problem with an SVD.
// Rank deficient designs get the minimum norm solution.
func FitLinearRegression(x mat.Matrix, y []float64) (*LinearRegression, error) {
	rows, cols := x.Dims()
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("cannot fit an empty design: %w", ErrInsufficientRows)
	}
	if rows != len(y) {
		return nil, fmt.Errorf("design rows %d do not match labels %d", rows, len(y))
	}

	means := make([]float64, cols)
	col := make([]float64, rows)
	xc := mat.NewDense(rows, cols, nil)
	for j := range cols {
		mat.Col(col, j, x)
		means[j] = stat.Mean(col, nil)
		for i, v := range col {
			xc.Set(i, j, v-means[j])
		}
	}

	yMean := stat.Mean(y, nil)
	yc := mat.NewVecDense(rows, nil)
	for i, v := range y {
		yc.SetVec(i, v-yMean)
	}

	coefs := make([]float64, cols)

	var svd mat.SVD
	if !svd.Factorize(xc, mat.SVDThin) {
		return nil, errors.New("svd factorization failed")
	}

	rank := svd.Rank(2.220446049250313e-16 * float64(max(rows, cols)))
	if rank > 0 {
		var beta mat.VecDense
		svd.SolveVecTo(&beta, yc, rank)
		for j := range cols {
			coefs[j] = beta.AtVec(j)
		}
	}

	intercept := yMean
	for j, b := range coefs {
		intercept -= b * means[j]
	}

	return &LinearRegression{Coefficients: coefs, Intercept: intercept}, nil
}

func (lr *LinearRegression) Predict(x mat.Matrix) ([]float64, error) {
	rows, cols := x.Dims()
	if cols != len(lr.Coefficients) {
		return nil, fmt.Errorf("model has %d coefficients, got %d columns", len(lr.Coefficients), cols)
	}

	res := make([]float64, rows)
	for i := range rows {
		v := lr.Intercept
		for j, b := range lr.Coefficients {
			v += b * x.At(i, j)
		}
		res[i] = v
	}
	return res, nil
}

// Score is the coefficient of determination of the model's predictions on x against y
func (lr *LinearRegression) Score(x mat.Matrix, y []float64) (float64, error) {
	pred, err := lr.Predict(x)
	if err != nil {
		return 0, err
	}
	if len(pred) != len(y) {
		return 0, fmt.Errorf("predictions %d do not match labels %d", len(pred), len(y))
	}
	return RSquared(pred, y), nil
}

// RSquared is 1 - SSres/SStot. Constant actuals score 1 when predicted exactly, otherwise 0.
func RSquared(pred, actual []float64) float64 {
	mean := stat.Mean(actual, nil)
	var ssRes, ssTot float64
	for i, a := range actual {
		ssRes += math.Pow(a-pred[i], 2)
		ssTot += math.Pow(a-mean, 2)
	}

	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return stat.RSquaredFrom(pred, actual, nil)
}

package core

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// zeroStd is the std below which a column is treated as constant and only centred
const zeroStd = 1e-12

// Scale returns a copy of x with every column at zero mean and unit population variance
func Scale(x mat.Matrix) *mat.Dense {
	rows, cols := x.Dims()
	res := mat.NewDense(rows, cols, nil)
	if rows == 0 {
		return res
	}

	col := make([]float64, rows)
	for j := range cols {
		mat.Col(col, j, x)
		mean, std := stat.PopMeanStdDev(col, nil)
		for i, v := range col {
			v -= mean
			if std > zeroStd {
				v /= std
			}
			res.Set(i, j, v)
		}
	}

	return res
}

package model

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"
)

var ErrScalerNotFitted = errors.New("scaler not fitted")

// Scaler standardizes each column to zero mean and unit population variance.
// Constant columns keep a unit scale so they map to zero.
type Scaler struct {
	Mean  []float64 `json:"mean" yaml:"mean"`
	Scale []float64 `json:"scale" yaml:"scale"`
}

// FitScaler learns column statistics from rows.
func FitScaler(rows [][]float64) (*Scaler, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyFrame
	}

	width := len(rows[0])
	s := &Scaler{
		Mean:  make([]float64, width),
		Scale: make([]float64, width),
	}

	col := make([]float64, len(rows))
	for j := 0; j < width; j++ {
		for i, r := range rows {
			if len(r) != width {
				return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrFeatureMismatch, i, len(r), width)
			}
			col[i] = r[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		s.Mean[j] = mean
		s.Scale[j] = std
	}
	return s, nil
}

// Transform returns standardized copies of rows using the fitted statistics.
func (s *Scaler) Transform(rows [][]float64) ([][]float64, error) {
	if s == nil || len(s.Mean) == 0 {
		return nil, ErrScalerNotFitted
	}

	out := make([][]float64, len(rows))
	for i, r := range rows {
		if len(r) != len(s.Mean) {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrFeatureMismatch, i, len(r), len(s.Mean))
		}
		z := make([]float64, len(r))
		for j, v := range r {
			z[j] = (v - s.Mean[j]) / s.Scale[j]
		}
		out[i] = z
	}
	return out, nil
}

package model

import (
	"errors"
	"fmt"
	"slices"

	"github.com/mchmarny/riskpulse/pkg/loan"
)

var (
	ErrEmptyFrame      = errors.New("no rows to process")
	ErrFeatureMismatch = errors.New("feature columns do not match the fitted model")
)

// Frame is a named feature table. Columns must line up with each row.
type Frame struct {
	Columns []string    `json:"columns" yaml:"columns"`
	Rows    [][]float64 `json:"rows" yaml:"rows"`
}

// FrameOf returns the feature frame of a loan dataset.
func FrameOf(ds *loan.Dataset) Frame {
	return Frame{
		Columns: slices.Clone(loan.FeatureNames),
		Rows:    ds.Features(),
	}
}

// RecordFrame returns a single-row frame for one borrower.
func RecordFrame(r loan.Record) Frame {
	return Frame{
		Columns: slices.Clone(loan.FeatureNames),
		Rows:    [][]float64{r.Features()},
	}
}

// Len returns the number of rows.
func (f Frame) Len() int {
	return len(f.Rows)
}

func (f Frame) subset(idx []int) Frame {
	rows := make([][]float64, len(idx))
	for i, j := range idx {
		rows[i] = f.Rows[j]
	}
	return Frame{Columns: f.Columns, Rows: rows}
}

func checkColumns(want, got []string) error {
	if !slices.Equal(want, got) {
		return fmt.Errorf("%w: fitted on %v, got %v", ErrFeatureMismatch, want, got)
	}
	return nil
}

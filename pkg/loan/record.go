// Package loan holds the loan book: records, feature layout, CSV I/O and a
// deterministic synthetic dataset generator.
package loan

import (
	"errors"
)

const (
	ColumnIncome        = "income"
	ColumnLoanAmount    = "loan_amount"
	ColumnCreditScore   = "credit_score"
	ColumnAge           = "age"
	ColumnExistingLoans = "existing_loans"

	// LabelColumn is the binary default flag present in training data.
	LabelColumn = "default"
)

var (
	// FeatureNames is the fixed column order used for fitting and scoring.
	FeatureNames = []string{
		ColumnIncome,
		ColumnLoanAmount,
		ColumnCreditScore,
		ColumnAge,
		ColumnExistingLoans,
	}

	ErrMissingLabel = errors.New("dataset has no label column")
	ErrEmptyDataset = errors.New("dataset has no records")
)

// Record is a single loan. Values are never mutated once loaded.
type Record struct {
	Income        float64 `json:"income" yaml:"income"`
	LoanAmount    float64 `json:"loan_amount" yaml:"loan_amount"`
	CreditScore   int     `json:"credit_score" yaml:"credit_score"`
	Age           int     `json:"age" yaml:"age"`
	ExistingLoans int     `json:"existing_loans" yaml:"existing_loans"`
	Default       int     `json:"default,omitempty" yaml:"default,omitempty"`
}

// Features returns the record's feature vector in FeatureNames order.
func (r Record) Features() []float64 {
	return []float64{
		r.Income,
		r.LoanAmount,
		float64(r.CreditScore),
		float64(r.Age),
		float64(r.ExistingLoans),
	}
}

// Dataset is an ordered collection of records. Labeled is false when the
// source had no default column.
type Dataset struct {
	Records []Record `json:"records" yaml:"records"`
	Labeled bool     `json:"labeled" yaml:"labeled"`
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Clone returns a deep copy of the dataset.
func (d *Dataset) Clone() *Dataset {
	if d == nil {
		return nil
	}
	c := &Dataset{
		Records: make([]Record, len(d.Records)),
		Labeled: d.Labeled,
	}
	copy(c.Records, d.Records)
	return c
}

// Features returns one feature vector per record.
func (d *Dataset) Features() [][]float64 {
	rows := make([][]float64, d.Len())
	for i, r := range d.Records {
		rows[i] = r.Features()
	}
	return rows
}

// Labels returns the default flags as floats.
func (d *Dataset) Labels() ([]float64, error) {
	if d == nil || !d.Labeled {
		return nil, ErrMissingLabel
	}
	y := make([]float64, len(d.Records))
	for i, r := range d.Records {
		y[i] = float64(r.Default)
	}
	return y, nil
}

// Column returns the values of the named column, the label included.
func (d *Dataset) Column(name string) ([]float64, bool) {
	idx := -1
	for i, n := range FeatureNames {
		if n == name {
			idx = i
			break
		}
	}
	if idx < 0 && (name != LabelColumn || !d.Labeled) {
		return nil, false
	}

	vals := make([]float64, d.Len())
	for i, r := range d.Records {
		if idx < 0 {
			vals[i] = float64(r.Default)
			continue
		}
		vals[i] = r.Features()[idx]
	}
	return vals, true
}

package loan

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordFeatures_Order(t *testing.T) {
	r := Record{Income: 60000, LoanAmount: 200000, CreditScore: 700, Age: 35, ExistingLoans: 1}
	assert.Equal(t, []float64{60000, 200000, 700, 35, 1}, r.Features())
	assert.Len(t, r.Features(), len(FeatureNames))
}

func TestDataset_Labels(t *testing.T) {
	ds := &Dataset{Records: []Record{{Default: 1}, {Default: 0}}, Labeled: true}
	y, err := ds.Labels()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, y)

	ds.Labeled = false
	_, err = ds.Labels()
	assert.ErrorIs(t, err, ErrMissingLabel)
}

func TestDataset_CloneIsIndependent(t *testing.T) {
	ds := &Dataset{Records: []Record{{Income: 1}}, Labeled: true}
	c := ds.Clone()
	c.Records[0].Income = 2
	assert.Equal(t, 1.0, ds.Records[0].Income)
	assert.Nil(t, (*Dataset)(nil).Clone())
}

func TestDataset_Column(t *testing.T) {
	ds := &Dataset{Records: []Record{{CreditScore: 700, Default: 1}}, Labeled: true}

	v, ok := ds.Column(ColumnCreditScore)
	require.True(t, ok)
	assert.Equal(t, []float64{700}, v)

	v, ok = ds.Column(LabelColumn)
	require.True(t, ok)
	assert.Equal(t, []float64{1}, v)

	_, ok = ds.Column("salary")
	assert.False(t, ok)

	ds.Labeled = false
	_, ok = ds.Column(LabelColumn)
	assert.False(t, ok)
}

func TestReadCSV(t *testing.T) {
	in := `credit_score,income,loan_amount,age,existing_loans,default
700,60000,200000,35,1,0
610.0,40000,300000,52,3,1
`
	ds, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())
	assert.True(t, ds.Labeled)
	assert.Equal(t, Record{Income: 60000, LoanAmount: 200000, CreditScore: 700, Age: 35, ExistingLoans: 1}, ds.Records[0])
	assert.Equal(t, 610, ds.Records[1].CreditScore)
	assert.Equal(t, 1, ds.Records[1].Default)
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		err  error
	}{
		{"empty", "", ErrEmptyDataset},
		{"header only", "income,loan_amount,credit_score,age,existing_loans\n", ErrEmptyDataset},
		{"unknown column", "income,loan_amount,credit_score,age,existing_loans,salary\n1,2,3,4,5,6\n", ErrUnknownColumn},
		{"missing column", "income,loan_amount,credit_score,age\n1,2,3,4\n", ErrMissingColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.err), "got %v", err)
		})
	}
}

func TestReadCSV_BadValues(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("income,loan_amount,credit_score,age,existing_loans,default\n1,2,3,4,5,2\n"))
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader("income,loan_amount,credit_score,age,existing_loans\nabc,2,3,4,5\n"))
	assert.Error(t, err)
}

func TestWriteReadRoundTrip(t *testing.T) {
	ds := Generate(25, 7)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, ds))

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, ds, got)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loans.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, WriteCSV(f, Generate(10, 1)))
	require.NoError(t, f.Close())

	ds, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 10, ds.Len())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)

	_, err = LoadFile("")
	assert.Error(t, err)
}

func TestGenerate(t *testing.T) {
	a := Generate(300, 42)
	b := Generate(300, 42)
	assert.Equal(t, a, b)
	assert.Equal(t, 300, a.Len())

	var defaults int
	for _, r := range a.Records {
		assert.GreaterOrEqual(t, r.CreditScore, minCreditScore)
		assert.LessOrEqual(t, r.CreditScore, maxCreditScore)
		assert.Positive(t, r.Income)
		assert.Positive(t, r.LoanAmount)
		defaults += r.Default
	}
	assert.Positive(t, defaults)
	assert.Less(t, defaults, a.Len())

	assert.NotEqual(t, a, Generate(300, 43))
	assert.Equal(t, 0, Generate(0, 1).Len())
}

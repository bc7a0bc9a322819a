package stress

import (
	"testing"

	"github.com/mchmarny/riskpulse/pkg/loan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identicalBook(n int) *loan.Dataset {
	ds := &loan.Dataset{Labeled: true}
	for i := 0; i < n; i++ {
		ds.Records = append(ds.Records, loan.Record{
			Income:        100000,
			LoanAmount:    200000,
			CreditScore:   700,
			Age:           40,
			ExistingLoans: 1,
			Default:       i % 2,
		})
	}
	return ds
}

func TestApply_Mild(t *testing.T) {
	ds := identicalBook(100)
	before := ds.Clone()

	out, err := Apply(ds, Mild)
	require.NoError(t, err)
	require.Equal(t, ds.Len(), out.Len())

	for i, r := range out.Records {
		assert.Equal(t, 95000.0, r.Income)
		assert.Equal(t, 680, r.CreditScore)
		assert.Equal(t, ds.Records[i].LoanAmount, r.LoanAmount)
		assert.Equal(t, ds.Records[i].Default, r.Default)
	}
	assert.Equal(t, before, ds, "source must not change")
}

func TestApply_Levels(t *testing.T) {
	tests := []struct {
		level  Level
		income float64
		score  int
	}{
		{None, 100000, 700},
		{Mild, 95000, 680},
		{Severe, 85000, 650},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			out, err := Apply(identicalBook(3), tt.level)
			require.NoError(t, err)
			for _, r := range out.Records {
				assert.Equal(t, tt.income, r.Income)
				assert.Equal(t, tt.score, r.CreditScore)
			}
		})
	}
}

func TestApply_NoneIsCopy(t *testing.T) {
	ds := identicalBook(2)
	out, err := Apply(ds, None)
	require.NoError(t, err)
	assert.Equal(t, ds, out)

	out.Records[0].Income = 1
	assert.Equal(t, 100000.0, ds.Records[0].Income)
}

func TestApply_Deterministic(t *testing.T) {
	ds := loan.Generate(50, 3)
	a, err := Apply(ds, Severe)
	require.NoError(t, err)
	b, err := Apply(ds, Severe)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestApplyShock_NoFloor(t *testing.T) {
	ds := &loan.Dataset{Records: []loan.Record{{Income: 1000, CreditScore: 310}}}
	out := ApplyShock(ds, Shock{IncomeFactor: 0.5, ScoreDelta: -50})
	assert.Equal(t, 260, out.Records[0].CreditScore)
	assert.Equal(t, 500.0, out.Records[0].Income)
	assert.Nil(t, ApplyShock(nil, Shock{}))
}

func TestApply_FractionalIncomeIsScaledExactly(t *testing.T) {
	ds := &loan.Dataset{Records: []loan.Record{
		{Income: 33333.337, CreditScore: 700},
		{Income: 0.004, CreditScore: 700},
	}}

	out, err := Apply(ds, Mild)
	require.NoError(t, err)
	assert.Equal(t, 33333.337*0.95, out.Records[0].Income)
	assert.Equal(t, 0.004*0.95, out.Records[1].Income)
	assert.Positive(t, out.Records[1].Income)
}

func TestApply_UnknownLevel(t *testing.T) {
	_, err := Apply(identicalBook(1), Level("Extreme"))
	assert.ErrorIs(t, err, ErrUnknownLevel)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		err  bool
	}{
		{"", None, false},
		{"none", None, false},
		{"MILD", Mild, false},
		{" Severe ", Severe, false},
		{"extreme", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.err {
				assert.ErrorIs(t, err, ErrUnknownLevel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

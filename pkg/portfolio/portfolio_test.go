package portfolio

import (
	"testing"

	"github.com/mchmarny/riskpulse/pkg/loan"
	"github.com/mchmarny/riskpulse/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	records := []loan.Record{
		{LoanAmount: 100000},
		{LoanAmount: 200000},
		{LoanAmount: 50000},
		{LoanAmount: 400000},
	}
	pds := []float64{0.01, 0.05, 0.08, 0.2}

	res, err := Evaluate(records, pds, 0.45)
	require.NoError(t, err)
	require.Len(t, res.Records, 4)

	assert.Equal(t, metrics.Low, res.Records[0].RiskBucket)
	assert.Equal(t, metrics.Medium, res.Records[1].RiskBucket)
	assert.Equal(t, metrics.High, res.Records[2].RiskBucket)
	assert.Equal(t, metrics.High, res.Records[3].RiskBucket)

	s := res.Summary
	assert.Equal(t, 4, s.Records)
	assert.Equal(t, 750000.0, s.TotalExposure)
	assert.InDelta(t, 0.085, s.AveragePD, 1e-12)
	assert.Equal(t, 2, s.HighRiskCount)
	assert.Equal(t, map[metrics.Bucket]int{metrics.Low: 1, metrics.Medium: 1, metrics.High: 2}, s.Distribution)

	for i, r := range res.Records {
		assert.Equal(t, records[i].LoanAmount, r.EAD)
		assert.Equal(t, pds[i]*0.45*records[i].LoanAmount, r.ExpectedLoss)
	}
}

func TestEvaluate_NoAggregationDrift(t *testing.T) {
	ds := loan.Generate(500, 11)
	pds := make([]float64, ds.Len())
	for i := range pds {
		pds[i] = float64(i%97) / 97
	}
	lgd := 0.45

	res, err := Evaluate(ds.Records, pds, lgd)
	require.NoError(t, err)

	var want float64
	var high int
	for i, r := range ds.Records {
		want += pds[i] * lgd * r.LoanAmount
		if res.Records[i].RiskBucket == metrics.High {
			high++
		}
	}
	assert.Equal(t, want, res.Summary.TotalExpectedLoss)
	assert.Equal(t, high, res.Summary.HighRiskCount)
	assert.Equal(t, high, res.Summary.Distribution[metrics.High])

	var total int
	for _, n := range res.Summary.Distribution {
		total += n
	}
	assert.Equal(t, ds.Len(), total)
}

func TestEvaluate_ZeroFilledDistribution(t *testing.T) {
	res, err := Evaluate([]loan.Record{{LoanAmount: 1}}, []float64{0.01}, 0.5)
	require.NoError(t, err)
	assert.Len(t, res.Summary.Distribution, len(metrics.Buckets))
	assert.Equal(t, 0, res.Summary.Distribution[metrics.High])
	assert.Equal(t, 0, res.Summary.HighRiskCount)
}

func TestEvaluate_Errors(t *testing.T) {
	records := []loan.Record{{LoanAmount: 1}, {LoanAmount: 2}}

	_, err := Evaluate(records, []float64{0.1}, 0.45)
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = Evaluate(records, []float64{0.1, 0.2}, 1.2)
	assert.ErrorIs(t, err, ErrInvalidLGD)

	_, err = Evaluate(records, []float64{0.1, 0.2}, -0.1)
	assert.ErrorIs(t, err, ErrInvalidLGD)

	_, err = Evaluate(nil, nil, 0.45)
	assert.ErrorIs(t, err, ErrEmptyPortfolio)
}

func TestExpectedLoss(t *testing.T) {
	assert.Equal(t, 0.05*0.45*200000, ExpectedLoss(0.05, 0.45, 200000))
	assert.Equal(t, 0.0, ExpectedLoss(0.05, 0, 200000))
}

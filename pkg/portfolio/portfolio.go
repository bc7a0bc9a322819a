// Package portfolio turns per-record PDs into portfolio exposure, expected
// loss and risk-bucket figures.
package portfolio

import (
	"errors"
	"fmt"

	"github.com/mchmarny/riskpulse/pkg/loan"
	"github.com/mchmarny/riskpulse/pkg/metrics"
)

var (
	ErrLengthMismatch = errors.New("PD count does not match record count")
	ErrInvalidLGD     = errors.New("LGD must be within [0,1]")
	ErrEmptyPortfolio = errors.New("portfolio has no records")
)

// ScoredRecord is a loan with its PD, bucket, exposure and expected loss.
type ScoredRecord struct {
	loan.Record  `yaml:",inline"`
	PD           float64        `json:"pd" yaml:"pd"`
	RiskBucket   metrics.Bucket `json:"risk_bucket" yaml:"risk_bucket"`
	EAD          float64        `json:"ead" yaml:"ead"`
	ExpectedLoss float64        `json:"expected_loss" yaml:"expected_loss"`
}

// Summary aggregates a scored portfolio.
type Summary struct {
	Records           int                    `json:"records" yaml:"records"`
	TotalExposure     float64                `json:"total_exposure" yaml:"total_exposure"`
	AveragePD         float64                `json:"average_pd" yaml:"average_pd"`
	TotalExpectedLoss float64                `json:"total_expected_loss" yaml:"total_expected_loss"`
	HighRiskCount     int                    `json:"high_risk_count" yaml:"high_risk_count"`
	Distribution      map[metrics.Bucket]int `json:"distribution" yaml:"distribution"`
}

// Result is the scored table with its summary.
type Result struct {
	Records []*ScoredRecord `json:"records" yaml:"records"`
	Summary *Summary        `json:"summary" yaml:"summary"`
}

// Evaluate scores each record with the PD at the same position. EAD is the
// loan amount and expected loss is PD * lgd * EAD. The distribution always
// carries every bucket.
func Evaluate(records []loan.Record, pds []float64, lgd float64) (*Result, error) {
	if len(records) == 0 {
		return nil, ErrEmptyPortfolio
	}
	if len(records) != len(pds) {
		return nil, fmt.Errorf("%w: %d records, %d PDs", ErrLengthMismatch, len(records), len(pds))
	}
	if !(lgd >= 0 && lgd <= 1) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLGD, lgd)
	}

	sum := &Summary{
		Records:      len(records),
		Distribution: make(map[metrics.Bucket]int, len(metrics.Buckets)),
	}
	for _, b := range metrics.Buckets {
		sum.Distribution[b] = 0
	}

	list := make([]*ScoredRecord, len(records))
	var pdTotal float64
	for i, r := range records {
		s := &ScoredRecord{
			Record:     r,
			PD:         pds[i],
			RiskBucket: metrics.RiskBucket(pds[i]),
			EAD:        r.LoanAmount,
		}
		s.ExpectedLoss = ExpectedLoss(s.PD, lgd, s.EAD)

		sum.TotalExposure += s.EAD
		sum.TotalExpectedLoss += s.ExpectedLoss
		sum.Distribution[s.RiskBucket]++
		if s.RiskBucket == metrics.High {
			sum.HighRiskCount++
		}
		pdTotal += s.PD
		list[i] = s
	}
	sum.AveragePD = pdTotal / float64(len(records))

	return &Result{Records: list, Summary: sum}, nil
}

// ExpectedLoss is PD * LGD * EAD.
func ExpectedLoss(pd, lgd, ead float64) float64 {
	return pd * lgd * ead
}

// Package report renders evaluation and assessment results into
// presentation-ready values: currency amounts, percentages and ordered
// bucket tables.
package report

import (
	"strings"

	"github.com/mchmarny/riskpulse/pkg/metrics"
	"github.com/mchmarny/riskpulse/pkg/model"
	"github.com/mchmarny/riskpulse/pkg/policy"
	"github.com/mchmarny/riskpulse/pkg/portfolio"
	"github.com/mchmarny/riskpulse/pkg/risk"
	"github.com/shopspring/decimal"
)

const (
	// DefaultCurrency prefixes money amounts.
	DefaultCurrency = "₹"

	percentPlaces = 2
	metricPlaces  = 3
	groupSize     = 3
)

var hundred = decimal.NewFromInt(100)

// Formatter renders values with a currency symbol.
type Formatter struct {
	Currency string
}

// New returns a formatter for the currency symbol. Empty uses the default.
func New(currency string) *Formatter {
	if strings.TrimSpace(currency) == "" {
		currency = DefaultCurrency
	}
	return &Formatter{Currency: currency}
}

// Money rounds v to whole units and groups thousands: "₹ 1,234,568".
func (f *Formatter) Money(v float64) string {
	s := groupThousands(decimal.NewFromFloat(v).Round(0).String())
	if f.Currency == "" {
		return s
	}
	return f.Currency + " " + s
}

// Percent renders a [0,1] ratio with two decimals: 0.04567 is "4.57%".
func Percent(v float64) string {
	return decimal.NewFromFloat(v).Mul(hundred).StringFixed(percentPlaces) + "%"
}

// Metric renders a score with three decimals.
func Metric(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(metricPlaces)
}

func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	if len(s) <= groupSize {
		return sign + s
	}

	var b strings.Builder
	lead := len(s) % groupSize
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += groupSize {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+groupSize])
	}
	return sign + b.String()
}

// DetailRow is one formatted portfolio line.
type DetailRow struct {
	Income       string         `json:"income" yaml:"income"`
	LoanAmount   string         `json:"loan_amount" yaml:"loan_amount"`
	CreditScore  int            `json:"credit_score" yaml:"credit_score"`
	PD           string         `json:"pd" yaml:"pd"`
	RiskBucket   metrics.Bucket `json:"risk_bucket" yaml:"risk_bucket"`
	ExpectedLoss string         `json:"expected_loss" yaml:"expected_loss"`
}

// BucketCount is one row of the risk distribution.
type BucketCount struct {
	Bucket metrics.Bucket `json:"bucket" yaml:"bucket"`
	Count  int            `json:"count" yaml:"count"`
}

// Summary is the headline view of an evaluation.
type Summary struct {
	AUC               string         `json:"auc" yaml:"auc"`
	KS                string         `json:"ks" yaml:"ks"`
	Gini              string         `json:"gini" yaml:"gini"`
	PSI               string         `json:"psi" yaml:"psi"`
	Stability         metrics.Band   `json:"stability" yaml:"stability"`
	TotalExposure     string         `json:"total_exposure" yaml:"total_exposure"`
	AveragePD         string         `json:"average_pd" yaml:"average_pd"`
	TotalExpectedLoss string         `json:"total_expected_loss" yaml:"total_expected_loss"`
	HighRiskCount     int            `json:"high_risk_count" yaml:"high_risk_count"`
	Distribution      []*BucketCount `json:"distribution" yaml:"distribution"`
}

// Evaluation pairs the options of a run with its formatted results.
type Evaluation struct {
	Options risk.Options `json:"options" yaml:"options"`
	Summary *Summary     `json:"summary" yaml:"summary"`
	Details []*DetailRow `json:"details,omitempty" yaml:"details,omitempty"`
}

// Card is the formatted view of a single borrower assessment.
type Card struct {
	PD           string          `json:"pd" yaml:"pd"`
	RiskBucket   metrics.Bucket  `json:"risk_bucket" yaml:"risk_bucket"`
	Decision     policy.Decision `json:"decision" yaml:"decision"`
	ExpectedLoss string          `json:"expected_loss" yaml:"expected_loss"`
	RWA          string          `json:"rwa" yaml:"rwa"`
	Drivers      []*model.Impact `json:"drivers,omitempty" yaml:"drivers,omitempty"`
}

// Details formats every scored record in portfolio order.
func (f *Formatter) Details(res *portfolio.Result) []*DetailRow {
	if res == nil {
		return nil
	}
	list := make([]*DetailRow, len(res.Records))
	for i, r := range res.Records {
		list[i] = &DetailRow{
			Income:       f.Money(r.Income),
			LoanAmount:   f.Money(r.LoanAmount),
			CreditScore:  r.CreditScore,
			PD:           Percent(r.PD),
			RiskBucket:   r.RiskBucket,
			ExpectedLoss: f.Money(r.ExpectedLoss),
		}
	}
	return list
}

// Distribution orders bucket counts from Low to High.
func Distribution(s *portfolio.Summary) []*BucketCount {
	list := make([]*BucketCount, len(metrics.Buckets))
	for i, b := range metrics.Buckets {
		list[i] = &BucketCount{Bucket: b, Count: s.Distribution[b]}
	}
	return list
}

// Summarize formats the headline figures of ev.
func (f *Formatter) Summarize(ev *risk.Evaluation) *Summary {
	s := ev.Portfolio.Summary
	return &Summary{
		AUC:               Metric(ev.Discrimination.AUC),
		KS:                Metric(ev.Discrimination.KS),
		Gini:              Metric(ev.Discrimination.Gini),
		PSI:               Metric(ev.Stability.PSI),
		Stability:         ev.Stability.Band,
		TotalExposure:     f.Money(s.TotalExposure),
		AveragePD:         Percent(s.AveragePD),
		TotalExpectedLoss: f.Money(s.TotalExpectedLoss),
		HighRiskCount:     s.HighRiskCount,
		Distribution:      Distribution(s),
	}
}

// Evaluation builds the formatted view of ev, with per-record rows when
// detail is set.
func (f *Formatter) Evaluation(ev *risk.Evaluation, detail bool) *Evaluation {
	v := &Evaluation{
		Options: ev.Options,
		Summary: f.Summarize(ev),
	}
	if detail {
		v.Details = f.Details(ev.Portfolio)
	}
	return v
}

// Card formats a borrower assessment.
func (f *Formatter) Card(a *risk.Assessment) *Card {
	return &Card{
		PD:           Percent(a.PD),
		RiskBucket:   a.RiskBucket,
		Decision:     a.Decision,
		ExpectedLoss: f.Money(a.ExpectedLoss),
		RWA:          f.Money(a.RWA),
		Drivers:      a.Drivers,
	}
}

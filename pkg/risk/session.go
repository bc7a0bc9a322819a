// Package risk runs the credit-risk pipeline: stress, split, fit, score,
// measure and aggregate. Each Session owns its model; nothing is shared.
package risk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mchmarny/riskpulse/pkg/loan"
	"github.com/mchmarny/riskpulse/pkg/metrics"
	"github.com/mchmarny/riskpulse/pkg/model"
	"github.com/mchmarny/riskpulse/pkg/policy"
	"github.com/mchmarny/riskpulse/pkg/portfolio"
	"github.com/mchmarny/riskpulse/pkg/stress"
)

var ErrInvalidBorrower = errors.New("invalid borrower")

// Evaluation is the full output of one pipeline run.
type Evaluation struct {
	Options        Options                 `json:"options" yaml:"options"`
	TrainSize      int                     `json:"train_size" yaml:"train_size"`
	TestSize       int                     `json:"test_size" yaml:"test_size"`
	Discrimination *metrics.Discrimination `json:"discrimination" yaml:"discrimination"`
	Stability      *metrics.Stability      `json:"stability" yaml:"stability"`
	Portfolio      *portfolio.Result       `json:"portfolio" yaml:"portfolio"`
	Duration       time.Duration           `json:"duration" yaml:"duration"`
}

// Assessment scores a single borrower against the fitted model.
type Assessment struct {
	Borrower     loan.Record     `json:"borrower" yaml:"borrower"`
	PD           float64         `json:"pd" yaml:"pd"`
	RiskBucket   metrics.Bucket  `json:"risk_bucket" yaml:"risk_bucket"`
	Decision     policy.Decision `json:"decision" yaml:"decision"`
	ExpectedLoss float64         `json:"expected_loss" yaml:"expected_loss"`
	RWA          float64         `json:"rwa" yaml:"rwa"`
	Drivers      []*model.Impact `json:"drivers,omitempty" yaml:"drivers,omitempty"`
}

// Session holds one fitted model and the options it was built with.
type Session struct {
	opts  Options
	state *model.State
}

// NewSession validates opts and prepares an untrained model.
func NewSession(opts Options) (*Session, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	state, err := model.NewState(opts.Family)
	if err != nil {
		return nil, err
	}
	return &Session{opts: opts, state: state}, nil
}

// Options returns the validated options.
func (s *Session) Options() Options {
	return s.opts
}

// Evaluate stresses ds, fits the model on the training split and reports
// held-out discrimination, train/test PD stability and the portfolio view
// over every stressed record.
func (s *Session) Evaluate(ctx context.Context, ds *loan.Dataset) (*Evaluation, error) {
	if ds == nil || ds.Len() == 0 {
		return nil, loan.ErrEmptyDataset
	}
	start := time.Now()

	stressed, err := stress.Apply(ds, s.opts.Stress)
	if err != nil {
		return nil, err
	}

	p, err := s.state.Split(stressed, loan.LabelColumn, s.opts.TestFraction, s.opts.Seed)
	if err != nil {
		return nil, fmt.Errorf("splitting dataset: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.state.Fit(p.TrainX, p.TrainY); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	trainPD, err := s.state.PredictPD(p.Train)
	if err != nil {
		return nil, fmt.Errorf("scoring training split: %w", err)
	}
	testPD, err := s.state.PredictPD(p.Test)
	if err != nil {
		return nil, fmt.Errorf("scoring test split: %w", err)
	}

	disc, err := metrics.Discriminate(p.TestY, testPD)
	if err != nil {
		return nil, fmt.Errorf("measuring discrimination: %w", err)
	}
	stab, err := metrics.Compare(trainPD, testPD, s.opts.Bins)
	if err != nil {
		return nil, fmt.Errorf("measuring stability: %w", err)
	}

	allPD, err := s.state.PredictPD(model.FrameOf(stressed))
	if err != nil {
		return nil, fmt.Errorf("scoring portfolio: %w", err)
	}
	book, err := portfolio.Evaluate(stressed.Records, allPD, s.opts.LGD)
	if err != nil {
		return nil, err
	}

	ev := &Evaluation{
		Options:        s.opts,
		TrainSize:      p.Train.Len(),
		TestSize:       p.Test.Len(),
		Discrimination: disc,
		Stability:      stab,
		Portfolio:      book,
		Duration:       time.Since(start),
	}

	slog.Debug("evaluation complete",
		"family", s.opts.Family,
		"stress", s.opts.Stress,
		"auc", disc.AUC,
		"psi", stab.PSI,
		"expected_loss", book.Summary.TotalExpectedLoss,
		"duration", ev.Duration)

	return ev, nil
}

// Assess scores one borrower with the model fitted by Evaluate. The borrower
// is taken as entered; the stress scenario only shapes the training data.
func (s *Session) Assess(r loan.Record) (*Assessment, error) {
	if err := ValidateBorrower(r); err != nil {
		return nil, err
	}

	pds, err := s.state.PredictPD(model.RecordFrame(r))
	if err != nil {
		return nil, err
	}
	pd := pds[0]

	a := &Assessment{
		Borrower:     r,
		PD:           pd,
		RiskBucket:   metrics.RiskBucket(pd),
		Decision:     s.opts.Policy.Decide(pd),
		ExpectedLoss: portfolio.ExpectedLoss(pd, s.opts.LGD, r.LoanAmount),
		RWA:          policy.ApproximateRWA(pd, r.LoanAmount),
	}

	if s.opts.Family == model.FamilyLogistic {
		if a.Drivers, err = s.state.Explain(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// ValidateBorrower requires positive income, loan amount and age and a
// non-negative loan count.
func ValidateBorrower(r loan.Record) error {
	switch {
	case r.Income <= 0:
		return fmt.Errorf("%w: income must be positive", ErrInvalidBorrower)
	case r.LoanAmount <= 0:
		return fmt.Errorf("%w: loan amount must be positive", ErrInvalidBorrower)
	case r.Age <= 0:
		return fmt.Errorf("%w: age must be positive", ErrInvalidBorrower)
	case r.ExistingLoans < 0:
		return fmt.Errorf("%w: existing loans must not be negative", ErrInvalidBorrower)
	}
	return nil
}

// Evaluate runs a single evaluation in a fresh session.
func Evaluate(ctx context.Context, ds *loan.Dataset, opts Options) (*Evaluation, error) {
	s, err := NewSession(opts)
	if err != nil {
		return nil, err
	}
	return s.Evaluate(ctx, ds)
}

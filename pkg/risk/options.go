package risk

import (
	"errors"
	"fmt"

	"github.com/mchmarny/riskpulse/pkg/loan"
	"github.com/mchmarny/riskpulse/pkg/metrics"
	"github.com/mchmarny/riskpulse/pkg/model"
	"github.com/mchmarny/riskpulse/pkg/policy"
	"github.com/mchmarny/riskpulse/pkg/portfolio"
	"github.com/mchmarny/riskpulse/pkg/stress"
)

// DefaultLGD is the loss given default used when none is configured.
const DefaultLGD = 0.45

// Options configures one evaluation.
type Options struct {
	Family       model.Family  `json:"family" yaml:"family"`
	LGD          float64       `json:"lgd" yaml:"lgd"`
	Stress       stress.Level  `json:"stress" yaml:"stress"`
	TestFraction float64       `json:"test_fraction" yaml:"test_fraction"`
	Seed         uint64        `json:"seed" yaml:"seed"`
	Bins         int           `json:"bins" yaml:"bins"`
	Policy       policy.Policy `json:"policy" yaml:"policy"`
}

// DefaultOptions returns logistic, LGD 0.45, no stress, a 70/30 split with
// seed 42, 10 PSI bins and the default credit policy.
func DefaultOptions() Options {
	return Options{
		Family:       model.FamilyLogistic,
		LGD:          DefaultLGD,
		Stress:       stress.None,
		TestFraction: model.DefaultTestFraction,
		Seed:         model.DefaultSeed,
		Bins:         metrics.DefaultBins,
		Policy:       policy.Default(),
	}
}

// Validate normalizes family and stress names and checks the numeric ranges.
func (o *Options) Validate() error {
	family, err := model.ParseFamily(string(o.Family))
	if err != nil {
		return err
	}
	level, err := stress.ParseLevel(string(o.Stress))
	if err != nil {
		return err
	}
	o.Family = family
	o.Stress = level

	if !(o.LGD >= 0 && o.LGD <= 1) {
		return fmt.Errorf("%w: %v", portfolio.ErrInvalidLGD, o.LGD)
	}
	if !(o.TestFraction > 0 && o.TestFraction < 1) {
		return fmt.Errorf("%w: %v", model.ErrInvalidFraction, o.TestFraction)
	}
	if o.Bins < 1 {
		return fmt.Errorf("%w: %d", metrics.ErrInvalidBins, o.Bins)
	}
	return o.Policy.Validate()
}

// IsPrecondition reports whether err is a caller input problem rather than
// an internal failure.
func IsPrecondition(err error) bool {
	for _, target := range preconditions {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

var preconditions = []error{
	model.ErrUnknownFamily,
	model.ErrNotFitted,
	model.ErrFeatureMismatch,
	model.ErrSingleClass,
	model.ErrNonBinary,
	model.ErrLabelColumn,
	model.ErrInvalidFraction,
	model.ErrTooFewRecords,
	model.ErrNotExplainable,
	stress.ErrUnknownLevel,
	portfolio.ErrInvalidLGD,
	portfolio.ErrLengthMismatch,
	portfolio.ErrEmptyPortfolio,
	metrics.ErrInvalidBins,
	metrics.ErrSingleClass,
	metrics.ErrNonBinaryLabel,
	metrics.ErrLengthMismatch,
	metrics.ErrEmptySample,
	policy.ErrInvalidPolicy,
	loan.ErrMissingLabel,
	loan.ErrEmptyDataset,
	ErrInvalidBorrower,
}

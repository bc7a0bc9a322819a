// Package policy maps a probability of default to a credit decision and a
// rough capital figure.
package policy

import (
	"errors"
	"fmt"
)

// Decision is the outcome of a credit policy for a single PD.
type Decision string

const (
	Approve Decision = "Approve"
	Refer   Decision = "Refer"
	Decline Decision = "Decline"

	DefaultApproveBelow = 0.03
	DefaultDeclineAt    = 0.08

	riskWeightMultiplier = 12.0
	maxRiskWeight        = 1.0
)

var ErrInvalidPolicy = errors.New("invalid policy thresholds")

// Policy approves below ApproveBelow, declines at or above DeclineAt and
// refers anything in between.
type Policy struct {
	ApproveBelow float64 `json:"approve_below" yaml:"approve_below"`
	DeclineAt    float64 `json:"decline_at" yaml:"decline_at"`
}

// Default returns the standard 3% / 8% policy.
func Default() Policy {
	return Policy{
		ApproveBelow: DefaultApproveBelow,
		DeclineAt:    DefaultDeclineAt,
	}
}

// Validate requires 0 <= ApproveBelow <= DeclineAt <= 1.
func (p Policy) Validate() error {
	if !(p.ApproveBelow >= 0 && p.ApproveBelow <= p.DeclineAt && p.DeclineAt <= 1) {
		return fmt.Errorf("%w: approve below %v, decline at %v", ErrInvalidPolicy, p.ApproveBelow, p.DeclineAt)
	}
	return nil
}

// Decide applies the policy to pd.
func (p Policy) Decide(pd float64) Decision {
	switch {
	case pd < p.ApproveBelow:
		return Approve
	case pd < p.DeclineAt:
		return Refer
	default:
		return Decline
	}
}

// Decide applies the default policy.
func Decide(pd float64) Decision {
	return Default().Decide(pd)
}

// ApproximateRWA scales ead by min(1, pd*12). It is a teaching heuristic,
// not a regulatory formula.
func ApproximateRWA(pd, ead float64) float64 {
	return ead * RiskWeight(pd)
}

// RiskWeight is min(1, pd*12).
func RiskWeight(pd float64) float64 {
	return min(maxRiskWeight, pd*riskWeightMultiplier)
}

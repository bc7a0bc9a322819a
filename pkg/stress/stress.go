// Package stress derives pessimistic counterfactual loan books that model a
// macro shock. Inputs are never mutated.
package stress

import (
	"fmt"
	"strings"

	"github.com/mchmarny/riskpulse/pkg/loan"
)

// Level names a predefined stress scenario.
type Level string

const (
	None   Level = "None"
	Mild   Level = "Mild"
	Severe Level = "Severe"
)

// Levels lists the predefined scenarios from least to most severe.
var Levels = []Level{None, Mild, Severe}

// Shock scales income and shifts the credit score. The score is not floored,
// so heavily stressed records may fall below realistic minimums.
type Shock struct {
	IncomeFactor float64 `json:"income_factor" yaml:"income_factor"`
	ScoreDelta   int     `json:"score_delta" yaml:"score_delta"`
}

var shocks = map[Level]Shock{
	None:   {IncomeFactor: 1, ScoreDelta: 0},
	Mild:   {IncomeFactor: 0.95, ScoreDelta: -20},
	Severe: {IncomeFactor: 0.85, ScoreDelta: -50},
}

// ErrUnknownLevel is returned for a level outside Levels.
var ErrUnknownLevel = fmt.Errorf("unknown stress level, expected one of %v", Levels)

// ParseLevel resolves a case-insensitive level name. Empty means None.
func ParseLevel(s string) (Level, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return None, nil
	}
	for _, l := range Levels {
		if strings.EqualFold(string(l), s) {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLevel, s)
}

// ShockFor returns the shock behind a predefined level.
func ShockFor(level Level) (Shock, error) {
	s, ok := shocks[level]
	if !ok {
		return Shock{}, fmt.Errorf("%w: %q", ErrUnknownLevel, level)
	}
	return s, nil
}

// Apply returns a stressed copy of ds for the given level.
func Apply(ds *loan.Dataset, level Level) (*loan.Dataset, error) {
	s, err := ShockFor(level)
	if err != nil {
		return nil, err
	}
	return ApplyShock(ds, s), nil
}

// ApplyShock returns a copy of ds with the shock applied to every record.
// Shape and labels are preserved.
func ApplyShock(ds *loan.Dataset, s Shock) *loan.Dataset {
	out := ds.Clone()
	if out == nil {
		return nil
	}
	for i := range out.Records {
		r := &out.Records[i]
		r.Income *= s.IncomeFactor
		r.CreditScore += s.ScoreDelta
	}
	return out
}

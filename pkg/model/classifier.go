// Package model wraps feature scaling and probability-of-default estimation
// behind one contract, regardless of the classifier family.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// Family names a classifier implementation.
type Family string

const (
	FamilyLogistic     Family = "logistic"
	FamilyRandomForest Family = "random_forest"
)

// Families lists the supported classifier families.
var Families = []Family{FamilyLogistic, FamilyRandomForest}

var (
	ErrUnknownFamily = errors.New("unknown model family")
	ErrNotFitted     = errors.New("model not fitted")
	ErrSingleClass   = errors.New("training labels contain a single class")
	ErrNonBinary     = errors.New("labels must be 0 or 1")
)

// Classifier estimates the positive-class probability of scaled feature rows.
// The set of implementations is closed: Logistic and Forest.
type Classifier interface {
	Fit(x [][]float64, y []float64) error
	Predict(x [][]float64) ([]float64, error)
	family() Family
}

// ParseFamily resolves a family name. Empty means logistic.
func ParseFamily(s string) (Family, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FamilyLogistic, nil
	}
	for _, f := range Families {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q, expected one of %v", ErrUnknownFamily, s, Families)
}

// NewClassifier returns an untrained classifier with the family's defaults.
func NewClassifier(f Family) (Classifier, error) {
	switch f {
	case FamilyLogistic:
		return NewLogistic(), nil
	case FamilyRandomForest:
		return NewForest(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFamily, f)
	}
}

func checkTraining(x [][]float64, y []float64) error {
	if len(x) == 0 {
		return ErrEmptyFrame
	}
	if len(x) != len(y) {
		return fmt.Errorf("%w: %d rows, %d labels", ErrFeatureMismatch, len(x), len(y))
	}

	width := len(x[0])
	var pos int
	for i := range x {
		if len(x[i]) != width {
			return fmt.Errorf("%w: row %d has %d values, want %d", ErrFeatureMismatch, i, len(x[i]), width)
		}
		switch y[i] {
		case 1:
			pos++
		case 0:
		default:
			return fmt.Errorf("%w: label[%d] = %v", ErrNonBinary, i, y[i])
		}
	}
	if pos == 0 || pos == len(y) {
		return ErrSingleClass
	}
	return nil
}

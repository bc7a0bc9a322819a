// Package metrics measures how well predicted PDs separate outcomes, how far
// a PD distribution has drifted, and maps PDs onto risk buckets.
package metrics

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrLengthMismatch = errors.New("labels and scores differ in length")
	ErrEmptySample    = errors.New("sample is empty")
	ErrNonBinaryLabel = errors.New("labels must be 0 or 1")
	ErrSingleClass    = errors.New("labels contain a single class")
)

// Curve is a receiver operating characteristic ordered by descending
// threshold, so FPR and TPR are both non-decreasing.
type Curve struct {
	FPR       []float64 `json:"fpr" yaml:"fpr"`
	TPR       []float64 `json:"tpr" yaml:"tpr"`
	Threshold []float64 `json:"threshold" yaml:"threshold"`
}

// ROC computes the curve over every distinct score.
func ROC(labels, scores []float64) (*Curve, error) {
	if err := checkLabeled(labels, scores); err != nil {
		return nil, err
	}

	y := make([]float64, len(scores))
	copy(y, scores)
	classes := make([]bool, len(labels))
	for i, l := range labels {
		classes[i] = l == 1
	}
	stat.SortWeightedLabeled(y, classes, nil)

	tpr, fpr, thresh := stat.ROC(nil, y, classes, nil)
	return &Curve{FPR: fpr, TPR: tpr, Threshold: thresh}, nil
}

// AUC is the trapezoidal area under the curve.
func (c *Curve) AUC() float64 {
	return integrate.Trapezoidal(c.FPR, c.TPR)
}

// KS is the largest gap between TPR and FPR across thresholds.
func (c *Curve) KS() float64 {
	diff := make([]float64, len(c.TPR))
	floats.SubTo(diff, c.TPR, c.FPR)
	return floats.Max(diff)
}

// AUC returns the area under the ROC curve.
func AUC(labels, scores []float64) (float64, error) {
	c, err := ROC(labels, scores)
	if err != nil {
		return 0, err
	}
	return c.AUC(), nil
}

// KS returns the Kolmogorov-Smirnov statistic, in [0,1].
func KS(labels, scores []float64) (float64, error) {
	c, err := ROC(labels, scores)
	if err != nil {
		return 0, err
	}
	return c.KS(), nil
}

// Gini returns 2*AUC - 1, in [-1,1].
func Gini(labels, scores []float64) (float64, error) {
	auc, err := AUC(labels, scores)
	if err != nil {
		return 0, err
	}
	return 2*auc - 1, nil
}

// Discrimination bundles the held-out quality measures of a PD model.
type Discrimination struct {
	AUC  float64 `json:"auc" yaml:"auc"`
	KS   float64 `json:"ks" yaml:"ks"`
	Gini float64 `json:"gini" yaml:"gini"`
}

// Discriminate computes AUC, KS and Gini from one curve.
func Discriminate(labels, scores []float64) (*Discrimination, error) {
	c, err := ROC(labels, scores)
	if err != nil {
		return nil, err
	}
	auc := c.AUC()
	return &Discrimination{AUC: auc, KS: c.KS(), Gini: 2*auc - 1}, nil
}

func checkLabeled(labels, scores []float64) error {
	if len(labels) != len(scores) {
		return fmt.Errorf("%w: %d labels, %d scores", ErrLengthMismatch, len(labels), len(scores))
	}
	if len(labels) == 0 {
		return ErrEmptySample
	}

	var pos int
	for i, l := range labels {
		switch l {
		case 1:
			pos++
		case 0:
		default:
			return fmt.Errorf("%w: label[%d] = %v", ErrNonBinaryLabel, i, l)
		}
	}
	if pos == 0 || pos == len(labels) {
		return ErrSingleClass
	}
	return nil
}

package model

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/mchmarny/riskpulse/pkg/loan"
)

const (
	DefaultTestFraction = 0.3
	DefaultSeed         = 42
)

var (
	ErrNotSplit        = errors.New("training split required before fit")
	ErrLabelColumn     = errors.New("label column not found")
	ErrInvalidFraction = errors.New("test fraction must be within (0,1)")
	ErrTooFewRecords   = errors.New("too few records to split")
	ErrNotExplainable  = errors.New("model family does not expose coefficients")
)

// State owns one fitted scaler and classifier. A session creates its own
// State; nothing is shared between sessions.
type State struct {
	family  Family
	clf     Classifier
	scaler  *Scaler
	columns []string
	fitted  bool
}

// Partition is a train/test split. TrainX and TestX are scaled with the
// statistics of the training rows only; Train and Test keep the raw frames
// for scoring through PredictPD.
type Partition struct {
	TrainX [][]float64
	TestX  [][]float64
	TrainY []float64
	TestY  []float64
	Train  Frame
	Test   Frame
}

// Impact is one feature's logistic coefficient.
type Impact struct {
	Feature string  `json:"feature" yaml:"feature"`
	Impact  float64 `json:"impact" yaml:"impact"`
}

// NewState configures an untrained scaler and classifier for the family.
func NewState(family Family) (*State, error) {
	clf, err := NewClassifier(family)
	if err != nil {
		return nil, err
	}
	return &State{family: family, clf: clf}, nil
}

// Family returns the configured classifier family.
func (s *State) Family() Family {
	return s.family
}

// Fitted reports whether Fit has completed.
func (s *State) Fitted() bool {
	return s.fitted
}

// Split shuffles ds deterministically into train and test partitions of
// size n-ceil(n*testFraction) and ceil(n*testFraction), then fits the scaler
// on the training rows.
func (s *State) Split(ds *loan.Dataset, label string, testFraction float64, seed uint64) (*Partition, error) {
	if label != loan.LabelColumn {
		return nil, fmt.Errorf("%w: %q", ErrLabelColumn, label)
	}
	if _, ok := ds.Column(label); !ok {
		return nil, fmt.Errorf("%w: %q", ErrLabelColumn, label)
	}
	if !(testFraction > 0 && testFraction < 1) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFraction, testFraction)
	}

	y, err := ds.Labels()
	if err != nil {
		return nil, err
	}
	for i, v := range y {
		if v != 0 && v != 1 {
			return nil, fmt.Errorf("%w: label[%d] = %v", ErrNonBinary, i, v)
		}
	}

	n := ds.Len()
	nTest := int(math.Ceil(float64(n) * testFraction))
	if n < 2 || nTest >= n {
		return nil, fmt.Errorf("%w: %d records, %d for test", ErrTooFewRecords, n, nTest)
	}

	perm := rand.New(rand.NewPCG(seed, seed)).Perm(n)
	testIdx, trainIdx := perm[:nTest], perm[nTest:]

	frame := FrameOf(ds)
	p := &Partition{
		Train:  frame.subset(trainIdx),
		Test:   frame.subset(testIdx),
		TrainY: pick(y, trainIdx),
		TestY:  pick(y, testIdx),
	}

	scaler, err := FitScaler(p.Train.Rows)
	if err != nil {
		return nil, fmt.Errorf("fitting scaler: %w", err)
	}
	if p.TrainX, err = scaler.Transform(p.Train.Rows); err != nil {
		return nil, err
	}
	if p.TestX, err = scaler.Transform(p.Test.Rows); err != nil {
		return nil, err
	}

	s.scaler = scaler
	s.columns = slices.Clone(frame.Columns)
	s.fitted = false

	slog.Debug("data split", "train", len(trainIdx), "test", len(testIdx), "seed", seed)
	return p, nil
}

// Fit trains the classifier on already-scaled features. Calling it again
// replaces the previous fit.
func (s *State) Fit(x [][]float64, y []float64) error {
	if s.scaler == nil {
		return ErrNotSplit
	}
	if len(x) > 0 && len(x[0]) != len(s.columns) {
		return fmt.Errorf("%w: %d values per row, want %d", ErrFeatureMismatch, len(x[0]), len(s.columns))
	}

	s.fitted = false
	if err := s.clf.Fit(x, y); err != nil {
		return fmt.Errorf("fitting %s: %w", s.family, err)
	}
	s.fitted = true
	return nil
}

// PredictPD scales raw features with the stored training statistics and
// returns one probability of default per row.
func (s *State) PredictPD(f Frame) ([]float64, error) {
	if !s.fitted {
		return nil, ErrNotFitted
	}
	if err := checkColumns(s.columns, f.Columns); err != nil {
		return nil, err
	}

	z, err := s.scaler.Transform(f.Rows)
	if err != nil {
		return nil, err
	}
	return s.clf.Predict(z)
}

// Explain ranks logistic coefficients from the most to the least
// default-increasing feature.
func (s *State) Explain() ([]*Impact, error) {
	if !s.fitted {
		return nil, ErrNotFitted
	}
	lr, ok := s.clf.(*Logistic)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotExplainable, s.family)
	}

	coef := lr.Coefficients()
	list := make([]*Impact, len(coef))
	for i, c := range coef {
		list[i] = &Impact{Feature: s.columns[i], Impact: c}
	}
	slices.SortStableFunc(list, func(a, b *Impact) int {
		return cmp.Compare(b.Impact, a.Impact)
	})
	return list, nil
}

func pick(v []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = v[j]
	}
	return out
}

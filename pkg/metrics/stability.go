package metrics

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultBins is the quantile bin count used for PSI.
	DefaultBins = 10

	stableBelow   = 0.10
	unstableAbove = 0.25
)

// Band interprets a PSI value.
type Band string

const (
	Stable   Band = "Stable"
	Moderate Band = "Moderate Shift"
	Unstable Band = "Unstable"
)

var ErrInvalidBins = errors.New("bins must be at least 1")

// StabilityBin is one matched quantile bucket of a PSI computation.
type StabilityBin struct {
	Lower        float64 `json:"lower" yaml:"lower"`
	Upper        float64 `json:"upper" yaml:"upper"`
	Expected     float64 `json:"expected" yaml:"expected"`
	Actual       float64 `json:"actual" yaml:"actual"`
	Contribution float64 `json:"contribution" yaml:"contribution"`
}

// Stability is a PSI value with its per-bin breakdown.
type Stability struct {
	PSI  float64         `json:"psi" yaml:"psi"`
	Band Band            `json:"band" yaml:"band"`
	Bins []*StabilityBin `json:"bins" yaml:"bins"`
}

// PSI returns the population stability index of actual against expected.
func PSI(expected, actual []float64, bins int) (float64, error) {
	s, err := Compare(expected, actual, bins)
	if err != nil {
		return 0, err
	}
	return s.PSI, nil
}

// Compare bins both samples by the equal-frequency quantile edges of the
// expected sample. Duplicate edges are dropped, so fewer than bins buckets
// may result. The outer buckets are open-ended, which keeps the two samples
// matched one-to-one. Buckets with a zero proportion on either side add 0.
func Compare(expected, actual []float64, bins int) (*Stability, error) {
	if bins < 1 {
		return nil, ErrInvalidBins
	}
	if len(expected) == 0 || len(actual) == 0 {
		return nil, ErrEmptySample
	}

	edges := QuantileEdges(expected, bins)
	ep := proportions(expected, edges)
	ap := proportions(actual, edges)

	s := &Stability{Bins: make([]*StabilityBin, len(ep))}
	for i := range ep {
		b := &StabilityBin{
			Lower:    math.Inf(-1),
			Upper:    math.Inf(1),
			Expected: ep[i],
			Actual:   ap[i],
		}
		if i > 0 {
			b.Lower = edges[i]
		}
		if i < len(ep)-1 {
			b.Upper = edges[i+1]
		}
		if ep[i] > 0 && ap[i] > 0 {
			b.Contribution = (ep[i] - ap[i]) * math.Log(ep[i]/ap[i])
		}
		s.PSI += b.Contribution
		s.Bins[i] = b
	}
	s.Band = StabilityBand(s.PSI)
	return s, nil
}

// QuantileEdges returns the distinct quantile cut points of x at 0, 1/bins,
// ..., 1, linearly interpolated between order statistics (Hyndman-Fan type
// 7). A constant sample yields a single edge.
func QuantileEdges(x []float64, bins int) []float64 {
	sorted := make([]float64, len(x))
	copy(sorted, x)
	sort.Float64s(sorted)

	edges := make([]float64, 0, bins+1)
	for i := 0; i <= bins; i++ {
		q := quantile(float64(i)/float64(bins), sorted)
		if len(edges) > 0 && q <= edges[len(edges)-1] {
			continue
		}
		edges = append(edges, q)
	}
	return edges
}

// quantile interpolates at h = (n-1)p over an ascending sample.
func quantile(p float64, sorted []float64) float64 {
	h := float64(len(sorted)-1) * p
	lo := int(math.Floor(h))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// proportions assigns values to right-closed buckets between the interior
// edges, with the first and last buckets unbounded.
func proportions(x, edges []float64) []float64 {
	n := max(len(edges)-1, 1)
	var interior []float64
	if n > 1 {
		interior = edges[1 : len(edges)-1]
	}

	counts := make([]float64, n)
	for _, v := range x {
		counts[sort.SearchFloat64s(interior, v)]++
	}
	floats.Scale(1/float64(len(x)), counts)
	return counts
}

// StabilityBand classifies a PSI value.
func StabilityBand(psi float64) Band {
	switch {
	case psi < stableBelow:
		return Stable
	case psi <= unstableAbove:
		return Moderate
	default:
		return Unstable
	}
}

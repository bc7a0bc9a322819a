package model

import (
	"cmp"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
)

const (
	forestTrees    = 400
	forestMaxDepth = 8
	forestSeed     = 42
	minSplitSize   = 2
	minGain        = 1e-12
)

// Forest is a bagged ensemble of CART trees split on Gini impurity. Each tree
// draws a bootstrap sample and considers sqrt(features) candidates per split.
// Tree i is seeded from (Seed, i), so results do not depend on scheduling.
type Forest struct {
	Trees    int
	MaxDepth int
	Seed     uint64

	width int
	trees []*node
}

// NewForest returns an untrained forest with a bounded size and depth.
func NewForest() *Forest {
	return &Forest{
		Trees:    forestTrees,
		MaxDepth: forestMaxDepth,
		Seed:     forestSeed,
	}
}

func (f *Forest) family() Family {
	return FamilyRandomForest
}

type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node
	prob      float64
}

func (n *node) leaf() bool {
	return n.left == nil
}

// Fit replaces any previously grown trees.
func (f *Forest) Fit(x [][]float64, y []float64) error {
	if err := checkTraining(x, y); err != nil {
		return err
	}
	if f.Trees < 1 || f.MaxDepth < 1 {
		return fmt.Errorf("forest needs at least one tree and depth, got %d trees depth %d", f.Trees, f.MaxDepth)
	}

	width := len(x[0])
	mtry := max(1, int(math.Sqrt(float64(width))))
	trees := make([]*node, f.Trees)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range trees {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(f.Seed, uint64(i)))
			sample := make([]int, len(x))
			for k := range sample {
				sample[k] = rng.IntN(len(x))
			}
			gr := &grower{x: x, y: y, mtry: mtry, maxDepth: f.MaxDepth, rng: rng}
			trees[i] = gr.grow(sample, 0)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	f.width = width
	f.trees = trees
	slog.Debug("forest fitted", "trees", len(trees), "max_depth", f.MaxDepth, "mtry", mtry)
	return nil
}

// Predict averages the leaf default rates of every tree.
func (f *Forest) Predict(x [][]float64) ([]float64, error) {
	if f.trees == nil {
		return nil, ErrNotFitted
	}

	out := make([]float64, len(x))
	for i, row := range x {
		if len(row) != f.width {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrFeatureMismatch, i, len(row), f.width)
		}
		var sum float64
		for _, t := range f.trees {
			sum += t.predict(row)
		}
		out[i] = sum / float64(len(f.trees))
	}
	return out, nil
}

func (n *node) predict(row []float64) float64 {
	for !n.leaf() {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.prob
}

type grower struct {
	x        [][]float64
	y        []float64
	mtry     int
	maxDepth int
	rng      *rand.Rand
}

func (g *grower) grow(idx []int, depth int) *node {
	var pos float64
	for _, i := range idx {
		pos += g.y[i]
	}
	n := &node{prob: pos / float64(len(idx))}

	if depth >= g.maxDepth || len(idx) < minSplitSize || pos == 0 || pos == float64(len(idx)) {
		return n
	}

	feature, threshold, ok := g.bestSplit(idx, pos)
	if !ok {
		return n
	}

	var left, right []int
	for _, i := range idx {
		if g.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	if len(left) == 0 || len(right) == 0 {
		return n
	}

	n.feature = feature
	n.threshold = threshold
	n.left = g.grow(left, depth+1)
	n.right = g.grow(right, depth+1)
	return n
}

// bestSplit scans midpoints between distinct sorted values of a random
// subset of features and keeps the largest Gini decrease.
func (g *grower) bestSplit(idx []int, pos float64) (feature int, threshold float64, ok bool) {
	total := float64(len(idx))
	parent := gini(pos, total)
	best := minGain

	candidates := g.rng.Perm(len(g.x[0]))[:g.mtry]
	sorted := slices.Clone(idx)

	for _, fi := range candidates {
		slices.SortFunc(sorted, func(a, b int) int {
			return cmp.Compare(g.x[a][fi], g.x[b][fi])
		})

		var leftPos float64
		for k := 0; k < len(sorted)-1; k++ {
			leftPos += g.y[sorted[k]]
			lo, hi := g.x[sorted[k]][fi], g.x[sorted[k+1]][fi]
			if lo == hi {
				continue
			}

			nl := float64(k + 1)
			nr := total - nl
			child := (nl*gini(leftPos, nl) + nr*gini(pos-leftPos, nr)) / total
			if gain := parent - child; gain > best {
				best = gain
				feature = fi
				threshold = midpoint(lo, hi)
				ok = true
			}
		}
	}
	return feature, threshold, ok
}

// midpoint falls back to lo when adjacent floats round the mean up to hi,
// which would send every row left.
func midpoint(lo, hi float64) float64 {
	if m := lo + (hi-lo)/2; m < hi {
		return m
	}
	return lo
}

func gini(pos, n float64) float64 {
	p := pos / n
	return 2 * p * (1 - p)
}

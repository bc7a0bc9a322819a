package metrics

// Bucket is a coarse risk grade derived from a PD.
type Bucket string

const (
	Low    Bucket = "Low"
	Medium Bucket = "Medium"
	High   Bucket = "High"

	// MediumFrom and HighFrom are inclusive lower bounds.
	MediumFrom = 0.03
	HighFrom   = 0.08
)

// Buckets lists grades from least to most risky.
var Buckets = []Bucket{Low, Medium, High}

// RiskBucket grades a PD. Boundaries are inclusive on the lower bound. The
// mapping is total over the reals but only meaningful over [0,1]; NaN grades High.
func RiskBucket(pd float64) Bucket {
	switch {
	case pd < MediumFrom:
		return Low
	case pd < HighFrom:
		return Medium
	default:
		return High
	}
}

// Rank orders buckets by risk, starting at 0 for Low. Unknown buckets rank -1.
func (b Bucket) Rank() int {
	for i, v := range Buckets {
		if v == b {
			return i
		}
	}
	return -1
}

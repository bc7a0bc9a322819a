package loan

import (
	"math"
	"math/rand/v2"
)

const (
	minCreditScore = 300
	maxCreditScore = 850
)

// Generate builds a deterministic synthetic loan book of n labeled records.
// Default probability rises with a lower credit score, a higher
// loan-to-income ratio and more existing loans.
func Generate(n int, seed uint64) *Dataset {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	ds := &Dataset{
		Records: make([]Record, 0, max(n, 0)),
		Labeled: true,
	}

	for i := 0; i < n; i++ {
		income := math.Round(math.Min(20000+rng.ExpFloat64()*45000, 500000))
		amount := math.Round(50000 + rng.Float64()*450000)
		score := int(math.Round(680 + rng.NormFloat64()*70))
		score = min(max(score, minCreditScore), maxCreditScore)
		age := 21 + rng.IntN(50)
		existing := rng.IntN(6)

		ratio := amount / income
		logit := -3.0 -
			0.015*float64(score-680) +
			0.35*(ratio-3) +
			0.3*float64(existing) -
			0.01*float64(age-40)
		p := 1 / (1 + math.Exp(-logit))

		rec := Record{
			Income:        income,
			LoanAmount:    amount,
			CreditScore:   score,
			Age:           age,
			ExistingLoans: existing,
		}
		if rng.Float64() < p {
			rec.Default = 1
		}
		ds.Records = append(ds.Records, rec)
	}

	return ds
}

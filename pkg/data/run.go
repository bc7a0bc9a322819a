package data

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/mchmarny/riskpulse/pkg/metrics"
	"github.com/mchmarny/riskpulse/pkg/risk"
	"github.com/pkg/errors"
)

const (
	timeLayout = "2006-01-02T15:04:05.000000Z"

	RunListLimitDefault = 20

	runColumns = `id, batch_id, created_at, family, stress, lgd, test_fraction, seed, bins,
		approve_below, decline_at, records, train_size, test_size, auc, ks, gini, psi, band,
		total_exposure, average_pd, total_expected_loss, high_risk_count,
		low_count, medium_count, high_count, duration_ms`

	insertRunSQL = `INSERT INTO run (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectRunSQL = `SELECT ` + runColumns + ` FROM run`
)

// Run is the recorded outcome of one evaluation. Runs saved together, such
// as the levels of a scenario comparison, share a BatchID.
type Run struct {
	ID                string                 `json:"id" yaml:"id"`
	BatchID           string                 `json:"batch_id" yaml:"batch_id"`
	CreatedAt         time.Time              `json:"created_at" yaml:"created_at"`
	Family            string                 `json:"family" yaml:"family"`
	Stress            string                 `json:"stress" yaml:"stress"`
	LGD               float64                `json:"lgd" yaml:"lgd"`
	TestFraction      float64                `json:"test_fraction" yaml:"test_fraction"`
	Seed              int64                  `json:"seed" yaml:"seed"`
	Bins              int                    `json:"bins" yaml:"bins"`
	ApproveBelow      float64                `json:"approve_below" yaml:"approve_below"`
	DeclineAt         float64                `json:"decline_at" yaml:"decline_at"`
	Records           int                    `json:"records" yaml:"records"`
	TrainSize         int                    `json:"train_size" yaml:"train_size"`
	TestSize          int                    `json:"test_size" yaml:"test_size"`
	AUC               float64                `json:"auc" yaml:"auc"`
	KS                float64                `json:"ks" yaml:"ks"`
	Gini              float64                `json:"gini" yaml:"gini"`
	PSI               float64                `json:"psi" yaml:"psi"`
	Band              string                 `json:"band" yaml:"band"`
	TotalExposure     float64                `json:"total_exposure" yaml:"total_exposure"`
	AveragePD         float64                `json:"average_pd" yaml:"average_pd"`
	TotalExpectedLoss float64                `json:"total_expected_loss" yaml:"total_expected_loss"`
	HighRiskCount     int                    `json:"high_risk_count" yaml:"high_risk_count"`
	Distribution      map[metrics.Bucket]int `json:"distribution" yaml:"distribution"`
	DurationMS        int64                  `json:"duration_ms" yaml:"duration_ms"`
}

// NewRun captures ev under a fresh run id.
func NewRun(ev *risk.Evaluation, batchID string) *Run {
	o := ev.Options
	s := ev.Portfolio.Summary
	return &Run{
		ID:                uuid.NewString(),
		BatchID:           batchID,
		CreatedAt:         time.Now().UTC(),
		Family:            string(o.Family),
		Stress:            string(o.Stress),
		LGD:               o.LGD,
		TestFraction:      o.TestFraction,
		Seed:              int64(o.Seed),
		Bins:              o.Bins,
		ApproveBelow:      o.Policy.ApproveBelow,
		DeclineAt:         o.Policy.DeclineAt,
		Records:           s.Records,
		TrainSize:         ev.TrainSize,
		TestSize:          ev.TestSize,
		AUC:               ev.Discrimination.AUC,
		KS:                ev.Discrimination.KS,
		Gini:              ev.Discrimination.Gini,
		PSI:               ev.Stability.PSI,
		Band:              string(ev.Stability.Band),
		TotalExposure:     s.TotalExposure,
		AveragePD:         s.AveragePD,
		TotalExpectedLoss: s.TotalExpectedLoss,
		HighRiskCount:     s.HighRiskCount,
		Distribution: map[metrics.Bucket]int{
			metrics.Low:    s.Distribution[metrics.Low],
			metrics.Medium: s.Distribution[metrics.Medium],
			metrics.High:   s.Distribution[metrics.High],
		},
		DurationMS: ev.Duration.Milliseconds(),
	}
}

// NewBatch converts evaluations into runs sharing one batch id.
func NewBatch(list []*risk.Evaluation) []*Run {
	batch := uuid.NewString()
	runs := make([]*Run, len(list))
	for i, ev := range list {
		runs[i] = NewRun(ev, batch)
	}
	return runs
}

// SaveRuns inserts runs in a single transaction.
func (s *Store) SaveRuns(ctx context.Context, runs ...*Run) error {
	if len(runs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(insertRunSQL))
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "failed to prepare run insert statement")
	}
	defer stmt.Close()

	for _, r := range runs {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if r.BatchID == "" {
			r.BatchID = r.ID
		}
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.BatchID, formatTime(r.CreatedAt), r.Family, r.Stress, r.LGD, r.TestFraction,
			r.Seed, r.Bins, r.ApproveBelow, r.DeclineAt, r.Records, r.TrainSize, r.TestSize,
			r.AUC, r.KS, r.Gini, r.PSI, r.Band, r.TotalExposure, r.AveragePD, r.TotalExpectedLoss,
			r.HighRiskCount, r.Distribution[metrics.Low], r.Distribution[metrics.Medium],
			r.Distribution[metrics.High], r.DurationMS,
		); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return errors.Wrapf(rbErr, "failed to rollback transaction after: %v", err)
			}
			return errors.Wrapf(err, "failed to insert run: %s", r.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// ListRuns returns up to limit runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = RunListLimitDefault
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(selectRunSQL+" ORDER BY created_at DESC, id LIMIT ?"), limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query runs")
	}
	defer rows.Close()

	list := make([]*Run, 0)
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate runs")
	}
	return list, nil
}

// GetRun returns the run with id or ErrNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(selectRunSQL+" WHERE id = ?"), id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "run: %s", id)
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	r := &Run{}
	var created string
	var low, medium, high int
	if err := sc.Scan(
		&r.ID, &r.BatchID, &created, &r.Family, &r.Stress, &r.LGD, &r.TestFraction,
		&r.Seed, &r.Bins, &r.ApproveBelow, &r.DeclineAt, &r.Records, &r.TrainSize, &r.TestSize,
		&r.AUC, &r.KS, &r.Gini, &r.PSI, &r.Band, &r.TotalExposure, &r.AveragePD, &r.TotalExpectedLoss,
		&r.HighRiskCount, &low, &medium, &high, &r.DurationMS,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to scan run")
	}

	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid run timestamp: %s", created)
	}
	r.CreatedAt = t
	r.Distribution = map[metrics.Bucket]int{
		metrics.Low:    low,
		metrics.Medium: medium,
		metrics.High:   high,
	}
	return r, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

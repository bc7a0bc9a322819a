package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mchmarny/riskpulse/pkg/config"
	"github.com/mchmarny/riskpulse/pkg/data"
	"github.com/mchmarny/riskpulse/pkg/loan"
	"github.com/mchmarny/riskpulse/pkg/model"
	"github.com/mchmarny/riskpulse/pkg/report"
	"github.com/mchmarny/riskpulse/pkg/risk"
	"github.com/mchmarny/riskpulse/pkg/stress"
	urfave "github.com/urfave/cli/v3"
)

const (
	flagData     = "data"
	flagFamily   = "family"
	flagStress   = "stress"
	flagLGD      = "lgd"
	flagDetail   = "detail"
	flagNoRecord = "no-record"

	flagRecords = "records"
	flagSeed    = "seed"
	flagOut     = "out"

	flagIncome        = "income"
	flagLoanAmount    = "loan-amount"
	flagCreditScore   = "credit-score"
	flagAge           = "age"
	flagExistingLoans = "existing-loans"
)

func modelFlags() []urfave.Flag {
	return []urfave.Flag{
		&urfave.StringFlag{
			Name:  flagData,
			Usage: "Path to the loan CSV (optional, defaults to config or a synthetic book)",
		},
		&urfave.StringFlag{
			Name:  flagFamily,
			Usage: fmt.Sprintf("Model family %v (optional, overrides config)", model.Families),
		},
		&urfave.StringFlag{
			Name:  flagStress,
			Usage: fmt.Sprintf("Stress scenario %v (optional, overrides config)", stress.Levels),
		},
		&urfave.FloatFlag{
			Name:  flagLGD,
			Usage: "Loss given default within [0,1] (optional, overrides config)",
		},
	}
}

// resolve applies command flag overrides to the configured options and
// loads the dataset.
func resolve(ctx context.Context, cmd *urfave.Command) (risk.Options, *loan.Dataset, error) {
	cfg := getConfig(cmd).Config
	dc := cfg.Data
	if p := cmd.String(flagData); p != "" {
		dc.Path = p
	}

	o := cfg.Options()
	if cmd.IsSet(flagFamily) {
		o.Family = model.Family(cmd.String(flagFamily))
	}
	if cmd.IsSet(flagStress) {
		o.Stress = stress.Level(cmd.String(flagStress))
	}
	if cmd.IsSet(flagLGD) {
		o.LGD = cmd.Float(flagLGD)
	}
	if err := o.Validate(); err != nil {
		return o, nil, err
	}

	ds, err := (&config.Config{Data: dc}).Dataset(ctx)
	if err != nil {
		return o, nil, fmt.Errorf("loading dataset: %w", err)
	}
	return o, ds, nil
}

// record saves runs when history is enabled. Failures are logged, not
// returned, so a broken store never hides a result.
func record(ctx context.Context, cmd *urfave.Command, runs ...*data.Run) string {
	app := getConfig(cmd)
	if !app.Config.Store.Record || cmd.Bool(flagNoRecord) || len(runs) == 0 {
		return ""
	}
	s, err := app.Store()
	if err != nil {
		slog.Warn("run history unavailable", "error", err)
		return ""
	}
	if err := s.SaveRuns(ctx, runs...); err != nil {
		slog.Warn("failed to record run", "error", err)
		return ""
	}
	slog.Debug("runs recorded", "batch", runs[0].BatchID, "count", len(runs))
	return runs[0].BatchID
}

func newGenerateCmd() *urfave.Command {
	return &urfave.Command{
		Name:  "generate",
		Usage: "Write a synthetic labeled loan book as CSV",
		Flags: []urfave.Flag{
			&urfave.IntFlag{
				Name:  flagRecords,
				Usage: "Number of records",
				Value: config.SyntheticRecordsDefault,
			},
			&urfave.Uint64Flag{
				Name:  flagSeed,
				Usage: "Random seed",
				Value: model.DefaultSeed,
			},
			&urfave.StringFlag{
				Name:  flagOut,
				Usage: "Output file (optional, defaults to stdout)",
			},
		},
		Action: cmdGenerate,
	}
}

func cmdGenerate(_ context.Context, cmd *urfave.Command) error {
	n := cmd.Int(flagRecords)
	if n < 1 {
		return fmt.Errorf("records must be positive, got %d", n)
	}
	ds := loan.Generate(n, cmd.Uint64(flagSeed))

	out := getConfig(cmd).Out
	if p := cmd.String(flagOut); p != "" {
		f, err := os.Create(p)
		if err != nil {
			return fmt.Errorf("creating %s: %w", p, err)
		}
		defer f.Close()
		out = f
	}
	if err := loan.WriteCSV(out, ds); err != nil {
		return fmt.Errorf("writing dataset: %w", err)
	}
	slog.Debug("dataset generated", "records", n)
	return nil
}

type evaluateResult struct {
	RunID      string             `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Evaluation *report.Evaluation `json:"evaluation" yaml:"evaluation"`
}

func newEvaluateCmd() *urfave.Command {
	return &urfave.Command{
		Name:  "evaluate",
		Usage: "Fit the PD model and report discrimination, stability and portfolio loss",
		Flags: append(modelFlags(),
			&urfave.BoolFlag{
				Name:  flagDetail,
				Usage: "Include per-record rows",
			},
			&urfave.BoolFlag{
				Name:  flagNoRecord,
				Usage: "Do not save the run to history",
			},
		),
		Action: cmdEvaluate,
	}
}

func cmdEvaluate(ctx context.Context, cmd *urfave.Command) error {
	opts, ds, err := resolve(ctx, cmd)
	if err != nil {
		return err
	}

	ev, err := risk.Evaluate(ctx, ds, opts)
	if err != nil {
		return fmt.Errorf("evaluating portfolio: %w", err)
	}

	app := getConfig(cmd)
	res := &evaluateResult{
		Evaluation: report.New(app.Config.Output.Currency).Evaluation(ev, cmd.Bool(flagDetail)),
	}
	if batch := record(ctx, cmd, data.NewRun(ev, "")); batch != "" {
		res.RunID = batch
	}
	return app.encode(res)
}

type assessResult struct {
	Options  risk.Options `json:"options" yaml:"options"`
	Borrower loan.Record  `json:"borrower" yaml:"borrower"`
	Result   *report.Card `json:"result" yaml:"result"`
}

func newAssessCmd() *urfave.Command {
	return &urfave.Command{
		Name:  "assess",
		Usage: "Score one borrower: PD, risk bucket, decision, expected loss and RWA",
		Flags: append(modelFlags(),
			&urfave.FloatFlag{Name: flagIncome, Usage: "Annual income", Value: 60000},
			&urfave.FloatFlag{Name: flagLoanAmount, Usage: "Loan amount (exposure at default)", Value: 200000},
			&urfave.IntFlag{Name: flagCreditScore, Usage: "Credit score", Value: 700},
			&urfave.IntFlag{Name: flagAge, Usage: "Age in years", Value: 35},
			&urfave.IntFlag{Name: flagExistingLoans, Usage: "Number of existing loans", Value: 1},
		),
		Action: cmdAssess,
	}
}

func cmdAssess(ctx context.Context, cmd *urfave.Command) error {
	opts, ds, err := resolve(ctx, cmd)
	if err != nil {
		return err
	}

	b := loan.Record{
		Income:        cmd.Float(flagIncome),
		LoanAmount:    cmd.Float(flagLoanAmount),
		CreditScore:   cmd.Int(flagCreditScore),
		Age:           cmd.Int(flagAge),
		ExistingLoans: cmd.Int(flagExistingLoans),
	}
	if err := risk.ValidateBorrower(b); err != nil {
		return err
	}

	s, err := risk.NewSession(opts)
	if err != nil {
		return err
	}
	if _, err := s.Evaluate(ctx, ds); err != nil {
		return fmt.Errorf("fitting model: %w", err)
	}
	a, err := s.Assess(b)
	if err != nil {
		return fmt.Errorf("assessing borrower: %w", err)
	}

	app := getConfig(cmd)
	return app.encode(&assessResult{
		Options:  s.Options(),
		Borrower: b,
		Result:   report.New(app.Config.Output.Currency).Card(a),
	})
}

type scenario struct {
	Stress  stress.Level    `json:"stress" yaml:"stress"`
	Summary *report.Summary `json:"summary" yaml:"summary"`
}

type compareResult struct {
	BatchID   string      `json:"batch_id,omitempty" yaml:"batch_id,omitempty"`
	Scenarios []*scenario `json:"scenarios" yaml:"scenarios"`
}

func newCompareCmd() *urfave.Command {
	flags := make([]urfave.Flag, 0)
	for _, f := range modelFlags() {
		if f.Names()[0] != flagStress {
			flags = append(flags, f)
		}
	}
	return &urfave.Command{
		Name:  "compare",
		Usage: "Evaluate every stress scenario side by side",
		Flags: append(flags, &urfave.BoolFlag{
			Name:  flagNoRecord,
			Usage: "Do not save the runs to history",
		}),
		Action: cmdCompare,
	}
}

func cmdCompare(ctx context.Context, cmd *urfave.Command) error {
	opts, ds, err := resolve(ctx, cmd)
	if err != nil {
		return err
	}

	list, err := risk.Compare(ctx, ds, opts, stress.Levels)
	if err != nil {
		return fmt.Errorf("comparing scenarios: %w", err)
	}

	app := getConfig(cmd)
	res := &compareResult{
		Scenarios: scenarios(report.New(app.Config.Output.Currency), list),
		BatchID:   record(ctx, cmd, data.NewBatch(list)...),
	}
	return app.encode(res)
}

func scenarios(f *report.Formatter, list []*risk.Evaluation) []*scenario {
	out := make([]*scenario, len(list))
	for i, ev := range list {
		out[i] = &scenario{Stress: ev.Options.Stress, Summary: f.Summarize(ev)}
	}
	return out
}


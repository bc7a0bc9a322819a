package cli

import (
	"context"
	"fmt"

	"github.com/mchmarny/riskpulse/pkg/data"
	urfave "github.com/urfave/cli/v3"
)

const (
	flagLimit = "limit"
	flagID    = "id"
)

func newHistoryCmd() *urfave.Command {
	return &urfave.Command{
		Name:  "history",
		Usage: "List and inspect recorded evaluation runs",
		Commands: []*urfave.Command{
			{
				Name:  "list",
				Usage: "List recent runs, newest first",
				Flags: []urfave.Flag{
					&urfave.IntFlag{
						Name:  flagLimit,
						Usage: "Maximum number of runs",
						Value: data.RunListLimitDefault,
					},
				},
				Action: cmdHistoryList,
			},
			{
				Name:  "get",
				Usage: "Show a single run",
				Flags: []urfave.Flag{
					&urfave.StringFlag{
						Name:     flagID,
						Usage:    "Run id",
						Required: true,
					},
				},
				Action: cmdHistoryGet,
			},
		},
	}
}

func cmdHistoryList(ctx context.Context, cmd *urfave.Command) error {
	app := getConfig(cmd)
	s, err := app.Store()
	if err != nil {
		return err
	}
	list, err := s.ListRuns(ctx, cmd.Int(flagLimit))
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}
	return app.encode(list)
}

func cmdHistoryGet(ctx context.Context, cmd *urfave.Command) error {
	app := getConfig(cmd)
	s, err := app.Store()
	if err != nil {
		return err
	}
	r, err := s.GetRun(ctx, cmd.String(flagID))
	if err != nil {
		return fmt.Errorf("getting run: %w", err)
	}
	return app.encode(r)
}

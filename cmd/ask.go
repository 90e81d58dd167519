package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/urfave/cli/v3"

	"github.com/nlquery/analyst/internal/config"
	"github.com/nlquery/analyst/internal/errors"
	"github.com/nlquery/analyst/internal/history"
	"github.com/nlquery/analyst/internal/logging"
	"github.com/nlquery/analyst/internal/workflow"
)

func AskCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Answer a natural-language question with data from the warehouse",
		ArgsUsage: "\"<question>\"",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "show-sql",
				Usage: "print the generated SQL before the answer",
			},
			&cli.BoolFlag{
				Name:  "show-rows",
				Usage: "print the raw result rows",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			question := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
			if question == "" {
				return errors.New(errors.ErrTypeConfig, "no question provided").
					WithSuggestion("Usage: analyst ask \"How many customers signed up last month?\"")
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			return runAsk(ctx, cfg, question, cmd.Bool("show-sql"), cmd.Bool("show-rows"))
		},
	}
}

func runAsk(ctx context.Context, cfg *config.Config, question string, showSQL, showRows bool) error {
	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	spin.Suffix = " Analyzing question..."
	spin.Start()

	state := a.workflow.Execute(ctx, question)

	spin.Stop()

	recordHistory(ctx, cfg, state)

	if state.FriendlyError != "" {
		fmt.Println(state.FriendlyError)

		return state.Err
	}

	if showSQL || state.Analysis == "" {
		fmt.Printf("SQL: %s\n\n", state.GeneratedSQL)
	}

	if state.Analysis != "" {
		fmt.Println(state.Analysis)
	}

	if showRows || state.Analysis == "" {
		printRows(state.ColumnNames, state.QueryResults)
	}

	return nil
}

// recordHistory saves the answered question; history is best-effort and
// never fails the command.
func recordHistory(ctx context.Context, cfg *config.Config, state *workflow.State) {
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		logging.GetLogger().WithError(err).Warn("Failed to open history store")

		return
	}
	defer store.Close()

	if err := store.Save(ctx, history.FromState(state)); err != nil {
		logging.GetLogger().WithError(err).Warn("Failed to record history")
	}
}

func printRows(columns []string, rows [][]any) {
	if len(rows) == 0 {
		return
	}

	fmt.Println()

	if len(columns) > 0 {
		fmt.Println(strings.Join(columns, " | "))
		fmt.Println(strings.Repeat("-", len(strings.Join(columns, " | "))))
	}

	const maxPrinted = 20

	shown := rows
	if len(shown) > maxPrinted {
		shown = shown[:maxPrinted]
	}

	for _, row := range shown {
		parts := make([]string, len(row))
		for i, v := range row {
			parts[i] = fmt.Sprintf("%v", v)
		}

		fmt.Println(strings.Join(parts, " | "))
	}

	if len(rows) > maxPrinted {
		fmt.Printf("... and %d more rows\n", len(rows)-maxPrinted)
	}
}

package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/nlquery/analyst/internal/errors"
	"github.com/nlquery/analyst/internal/history"
)

func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Review previously answered questions",
		Commands: []*cli.Command{
			historyListCommand(),
			historyDeleteCommand(),
		},
	}
}

func historyListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List recent questions, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "maximum entries to show",
				Value:   20,
			},
			&cli.BoolFlag{
				Name:  "show-sql",
				Usage: "include the generated SQL",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			cfg.ExpandAllPaths()

			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(ctx, int(cmd.Int("limit")))
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Println("No history yet")

				return nil
			}

			for _, entry := range entries {
				fmt.Printf("%s  %s  %s\n", entry.CreatedAt.Format("2006-01-02 15:04"), entry.ID, entry.Question)

				if cmd.Bool("show-sql") && entry.SQL != "" {
					fmt.Printf("    %s\n", entry.SQL)
				}

				if entry.Error != "" {
					fmt.Printf("    failed: %s\n", entry.Error)
				}
			}

			return nil
		},
	}
}

func historyDeleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a history entry by id",
		ArgsUsage: "<id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return errors.New(errors.ErrTypeConfig, "no entry id provided").
					WithSuggestion("Find ids with 'analyst history list'")
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			cfg.ExpandAllPaths()

			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Delete(ctx, id); err != nil {
				return err
			}

			fmt.Printf("Deleted %s\n", id)

			return nil
		},
	}
}

// Package cmd implements the analyst command-line interface.
package cmd

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/nlquery/analyst/internal/config"
	"github.com/nlquery/analyst/internal/errors"
	"github.com/nlquery/analyst/internal/logging"
)

// Execute runs the root command.
func Execute() error {
	root := &cli.Command{
		Name:  "analyst",
		Usage: "Ask natural-language questions of your data warehouse",
		Description: `analyst turns a business question into validated SQL, runs it against
your warehouse, and narrates the result. Schema knowledge is retrieved
from live catalog metadata, so answers stay grounded in tables and
columns that actually exist.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the JSON config file",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:    "schema",
				Aliases: []string{"s"},
				Usage:   "warehouse schema to query",
			},
		},
		Commands: []*cli.Command{
			AskCommand(),
			IndexCommand(),
			RelationshipsCommand(),
			HistoryCommand(),
		},
	}

	return root.Run(context.Background(), os.Args)
}

// loadConfig reads configuration honoring the --config and --verbose
// flags, and initializes logging from it.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	overrides := make(map[string]interface{})

	if path := cmd.String("config"); path != "" {
		os.Setenv("ANALYST_CONFIG", path)
	}

	if cmd.Bool("verbose") {
		overrides["log-level"] = "debug"
	}

	if schemaName := cmd.String("schema"); schemaName != "" {
		overrides["schema"] = schemaName
	}

	cfg, err := config.LoadConfigWithOverrides(overrides)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConfig, "failed to load configuration")
	}

	if err := logging.InitializeLogger(cfg.Logging); err != nil {
		logging.SetupFallbackLogger()
	}

	return cfg, nil
}

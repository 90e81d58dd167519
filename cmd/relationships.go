package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/nlquery/analyst/internal/errors"
	"github.com/nlquery/analyst/internal/relationship"
)

func RelationshipsCommand() *cli.Command {
	return &cli.Command{
		Name:    "relationships",
		Aliases: []string{"rel"},
		Usage:   "Manage the manual relationship overlay",
		Commands: []*cli.Command{
			relationshipsListCommand(),
			relationshipsAddCommand(),
			relationshipsDeleteCommand(),
		},
	}
}

func relationshipsListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List overlay relationships for the configured schema",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			cfg.ExpandAllPaths()
			store := relationship.NewStore(cfg.Retrieval.RelationshipsFile)

			rels, err := store.List(cfg.Warehouse.Schema)
			if err != nil {
				return err
			}

			if len(rels) == 0 {
				fmt.Printf("No overlay relationships for schema %s\n", cfg.Warehouse.Schema)

				return nil
			}

			for _, rel := range rels {
				fmt.Printf("%s.%s -> %s.%s", rel.SourceTable, rel.SourceColumn, rel.TargetTable, rel.TargetColumn)

				if rel.Description != "" {
					fmt.Printf("  (%s)", rel.Description)
				}

				fmt.Println()
			}

			return nil
		},
	}
}

func relationshipsAddCommand() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Add or update an overlay relationship",
		ArgsUsage: "<source_table.column> <target_table.column>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "description",
				Aliases: []string{"d"},
				Usage:   "free-text note about the join",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return errors.New(errors.ErrTypeConfig, "expected source and target column references").
					WithSuggestion("Usage: analyst relationships add orders.customer_id customers.customer_id")
			}

			sourceTable, sourceColumn, err := splitColumnRef(cmd.Args().Get(0))
			if err != nil {
				return err
			}

			targetTable, targetColumn, err := splitColumnRef(cmd.Args().Get(1))
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			cfg.ExpandAllPaths()
			store := relationship.NewStore(cfg.Retrieval.RelationshipsFile)

			rel := relationship.Relationship{
				SourceTable:  sourceTable,
				SourceColumn: sourceColumn,
				TargetTable:  targetTable,
				TargetColumn: targetColumn,
				Description:  cmd.String("description"),
			}
			if err := store.Add(cfg.Warehouse.Schema, rel); err != nil {
				return err
			}

			fmt.Printf("Added %s.%s -> %s.%s\n", sourceTable, sourceColumn, targetTable, targetColumn)

			return nil
		},
	}
}

func relationshipsDeleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete an overlay relationship",
		ArgsUsage: "<source_table.column> <target_table.column>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return errors.New(errors.ErrTypeConfig, "expected source and target column references").
					WithSuggestion("Usage: analyst relationships delete orders.customer_id customers.customer_id")
			}

			sourceTable, sourceColumn, err := splitColumnRef(cmd.Args().Get(0))
			if err != nil {
				return err
			}

			targetTable, targetColumn, err := splitColumnRef(cmd.Args().Get(1))
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			cfg.ExpandAllPaths()
			store := relationship.NewStore(cfg.Retrieval.RelationshipsFile)

			rel := relationship.Relationship{
				SourceTable:  sourceTable,
				SourceColumn: sourceColumn,
				TargetTable:  targetTable,
				TargetColumn: targetColumn,
			}
			if err := store.Delete(cfg.Warehouse.Schema, rel); err != nil {
				return err
			}

			fmt.Printf("Deleted %s.%s -> %s.%s\n", sourceTable, sourceColumn, targetTable, targetColumn)

			return nil
		},
	}
}

// splitColumnRef parses "table.column" references.
func splitColumnRef(ref string) (string, string, error) {
	parts := strings.Split(ref, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.Newf(errors.ErrTypeConfig, "invalid column reference %q", ref).
			WithSuggestion("Use the form table.column, e.g. orders.customer_id")
	}

	return parts[0], parts[1], nil
}

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/urfave/cli/v3"

	"github.com/nlquery/analyst/internal/schema"
)

func IndexCommand() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Build the schema index and report what would be retrievable",
		Description: `Loads the schema catalog, reconciles relationships, and embeds one
document per table plus the overview. Useful for verifying warehouse
connectivity and inspecting what schema knowledge the pipeline sees.`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			a, err := buildApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
			spin.Suffix = fmt.Sprintf(" Indexing schema %s...", cfg.Warehouse.Schema)
			spin.Start()

			err = a.indexer.Reindex(ctx)

			spin.Stop()

			if err != nil {
				return err
			}

			catalog := a.indexer.Catalog()

			fmt.Printf("Indexed schema %s: %d tables, %d documents, %d relationships\n",
				catalog.Schema, len(catalog.TableOrder), a.indexer.Index().Len(), len(catalog.Relationships))
			fmt.Printf("Column naming: %s\n\n", schema.DetectGlossaryStatus(catalog))

			for _, table := range catalog.TableOrder {
				fmt.Printf("  %s.%s (%d columns", catalog.Schema, table, len(catalog.Tables[table]))

				if hints := catalog.Hints[table]; len(hints) > 0 {
					fmt.Printf(", %d join hints", len(hints))
				}

				fmt.Println(")")
			}

			return nil
		},
	}
}

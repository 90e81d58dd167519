package cmd

import (
	"context"

	"github.com/nlquery/analyst/internal/config"
	"github.com/nlquery/analyst/internal/examples"
	"github.com/nlquery/analyst/internal/llm"
	"github.com/nlquery/analyst/internal/relationship"
	"github.com/nlquery/analyst/internal/schema"
	"github.com/nlquery/analyst/internal/warehouse"
	"github.com/nlquery/analyst/internal/workflow"
)

// app bundles the wired pipeline collaborators for one CLI invocation.
type app struct {
	cfg       *config.Config
	provider  llm.Provider
	warehouse *warehouse.Client
	overlay   *relationship.Store
	examples  *examples.Store
	indexer   *schema.Indexer
	workflow  *workflow.Workflow
}

// buildApp connects the warehouse and assembles the pipeline.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	cfg.ExpandAllPaths()

	provider, err := llm.NewProvider(llm.Config{
		Provider:   cfg.LLM.Provider,
		Model:      cfg.LLM.Model,
		EmbedModel: cfg.LLM.EmbedModel,
		APIKey:     cfg.LLM.APIKey,
		BaseURL:    cfg.LLM.BaseURL,
	})
	if err != nil {
		return nil, err
	}

	provider = llm.WrapEmbedCache(provider, cfg.LLM.EmbedCacheSize, cfg.LLM.EmbedCacheTTLDuration())

	client, err := warehouse.Connect(ctx, cfg.Warehouse)
	if err != nil {
		return nil, err
	}

	overlay := relationship.NewStore(cfg.Retrieval.RelationshipsFile)
	exampleStore := examples.NewStore(cfg.Retrieval.ExamplesFile)
	indexer := schema.NewIndexer(client, overlay, provider, cfg.Warehouse.Schema)

	return &app{
		cfg:       cfg,
		provider:  provider,
		warehouse: client,
		overlay:   overlay,
		examples:  exampleStore,
		indexer:   indexer,
		workflow:  workflow.New(cfg, provider, indexer, client, exampleStore),
	}, nil
}

func (a *app) Close() {
	if a.warehouse != nil {
		_ = a.warehouse.Close()
	}
}

package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/scentlab/accord/internal/chat"
	"github.com/scentlab/accord/internal/knowledge"
	"github.com/scentlab/accord/internal/llm"
	"github.com/scentlab/accord/internal/pipeline"
	"github.com/scentlab/accord/internal/store"
)

// pipelineEnv holds the initialized store, pipeline, and chat service
// shared by the analyze/batch/serve/chat commands.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	Chat     *chat.Service
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "accord.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func loadKnowledge() (*knowledge.Base, error) {
	if cfg.Knowledge.Path != "" {
		zap.L().Info("loading ingredient table", zap.String("path", cfg.Knowledge.Path))
		return knowledge.LoadFile(cfg.Knowledge.Path)
	}
	return knowledge.Load()
}

// initPipeline sets up the store, knowledge base, model client, and the
// pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	base, err := loadKnowledge()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	client, err := llm.NewClient(cfg.LLM)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	if client == nil {
		zap.L().Warn("no API key configured, analyses will return advisory-only results")
	}

	return &pipelineEnv{
		Store:    st,
		Pipeline: pipeline.New(base, client, cfg.LLM, cfg.Pipeline),
		Chat:     chat.New(client, cfg.LLM.Model, cfg.LLM.MaxTokens),
	}, nil
}

package main

import (
	"fmt"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ShayCichocki/anvil/internal/config"
	"github.com/ShayCichocki/anvil/internal/generate"
	"github.com/ShayCichocki/anvil/internal/knowledge"
	"github.com/ShayCichocki/anvil/internal/orchestrator"
	"github.com/ShayCichocki/anvil/internal/state"
	"github.com/ShayCichocki/anvil/internal/validate"
	"github.com/ShayCichocki/anvil/pkg/models"
)

// runtime bundles everything a command needs to run jobs in-process.
type runtime struct {
	cfg      *config.Config
	engine   *orchestrator.Engine
	stateDB  *state.DB
	registry *prometheus.Registry
	logger   *zap.Logger

	closers []func() error
}

// close releases stores in reverse construction order.
func (r *runtime) close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// buildRuntime wires config, provider clients, stores, and the engine.
// persist controls whether job state lands in the SQLite database;
// one-shot runs skip it unless asked.
func buildRuntime(cfg *config.Config, logger *zap.Logger, persist bool) (*runtime, error) {
	rt := &runtime{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}

	tiers, err := config.LoadTierConfigs(filepath.Dir(config.GetUserConfigPath()))
	if err != nil {
		logger.Debug("tier configs not found, using defaults", zap.Error(err))
		tiers = config.DefaultTierConfigs()
	}

	router := generate.NewRouter(tiers, buildAnthropic(cfg, logger), buildOpenAI(cfg), logger)
	scorer := validate.NewCriticScorer(router, models.TierStandard, logger)

	opts := []orchestrator.Option{
		orchestrator.WithDetector(orchestrator.NewKeywordDetector()),
		orchestrator.WithMetrics(rt.registry),
	}

	searcher, closeSearcher, err := buildSearcher(cfg)
	if err != nil {
		return nil, err
	}
	if searcher != nil {
		opts = append(opts, orchestrator.WithSearcher(searcher))
		if closeSearcher != nil {
			rt.closers = append(rt.closers, closeSearcher)
		}
	}

	if persist {
		db, err := openStateDB(cfg)
		if err != nil {
			rt.close()
			return nil, err
		}
		rt.stateDB = db
		rt.closers = append(rt.closers, db.Close)

		recovered, err := db.RecoverInterrupted()
		if err != nil {
			rt.close()
			return nil, fmt.Errorf("recover interrupted jobs: %w", err)
		}
		if recovered > 0 {
			logger.Info("marked interrupted jobs as failed", zap.Int64("count", recovered))
		}
		opts = append(opts, orchestrator.WithStateStore(db))
	}

	engine, err := orchestrator.NewEngine(orchestrator.RequiredConfig{
		Config:    cfg,
		Generator: router,
		Scorer:    scorer,
		Logger:    logger,
	}, opts...)
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("build engine: %w", err)
	}
	rt.engine = engine
	return rt, nil
}

// buildAnthropic returns nil when no credentials are configured; the
// cloud tiers then fail per-attempt and the policy keeps looping on
// the local tier.
func buildAnthropic(cfg *config.Config, logger *zap.Logger) *generate.AnthropicClient {
	client, err := generate.NewAnthropicClient(generate.AnthropicConfig{
		APIKey:     cfg.Anthropic.APIKey,
		UseBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:  cfg.Anthropic.AWSRegion,
		AWSProfile: cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		logger.Warn("anthropic client unavailable, cloud tiers will fail",
			zap.Error(err))
		return nil
	}
	return client
}

func buildOpenAI(cfg *config.Config) *generate.OpenAIClient {
	return generate.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
}

// buildSearcher picks the knowledge backend from config. The sqlite
// store is created on first use; weaviate requires a reachable server.
func buildSearcher(cfg *config.Config) (orchestrator.Searcher, func() error, error) {
	switch cfg.Knowledge.Backend {
	case "weaviate":
		searcher, err := knowledge.NewWeaviateSearcher(cfg.Knowledge.WeaviateURL, cfg.Knowledge.WeaviateClass)
		if err != nil {
			return nil, nil, fmt.Errorf("weaviate searcher: %w", err)
		}
		return searcher, nil, nil
	case "sqlite", "":
		store, err := openKnowledgeStore(cfg)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown knowledge backend %q", cfg.Knowledge.Backend)
	}
}

func openStateDB(cfg *config.Config) (*state.DB, error) {
	db, err := state.Open(state.DBPath(cfg.DataDir()))
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate state database: %w", err)
	}
	return db, nil
}

func openKnowledgeStore(cfg *config.Config) (*knowledge.Store, error) {
	store, err := knowledge.NewStore(knowledge.DBPath(cfg.DataDir()))
	if err != nil {
		return nil, fmt.Errorf("open knowledge store: %w", err)
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate knowledge store: %w", err)
	}
	return store, nil
}

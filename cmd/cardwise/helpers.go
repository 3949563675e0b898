package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/Veraticus/cardwise/internal/config"
	"github.com/Veraticus/cardwise/internal/hybrid"
	"github.com/Veraticus/cardwise/internal/llm"
	"github.com/Veraticus/cardwise/internal/smsparse"
	"github.com/Veraticus/cardwise/internal/storage"
)

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// initStorage opens the configured database and applies migrations.
func initStorage(ctx context.Context, cfg config.Config) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

type parsers struct {
	regex  *smsparse.Parser
	llm    *llm.Parser
	hybrid *hybrid.Parser
}

// buildParsers wires the regex, LLM and hybrid parsers from cfg. With
// regexOnly no Ollama client is created and the LLM path is disabled.
func buildParsers(cfg config.Config, regexOnly bool) (*parsers, error) {
	logger := slog.Default()
	out := &parsers{regex: smsparse.NewParser(nil, logger)}

	hybridCfg := cfg.HybridConfig()
	var llmParser hybrid.LLMParser
	if regexOnly {
		hybridCfg.UseLLM = false
	} else {
		p, err := llm.NewParser(cfg.LLMParserConfig(), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM parser: %w", err)
		}
		out.llm = p
		llmParser = p
	}

	h, err := hybrid.NewParser(hybridCfg, out.regex, llmParser, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create hybrid parser: %w", err)
	}
	out.hybrid = h
	return out, nil
}

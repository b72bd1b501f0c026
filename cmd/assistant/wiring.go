package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/israelwong/promediamx-sub009/pkg/assistant"
	"github.com/israelwong/promediamx-sub009/pkg/capability"
	"github.com/israelwong/promediamx-sub009/pkg/config"
	"github.com/israelwong/promediamx-sub009/pkg/debug"
	"github.com/israelwong/promediamx-sub009/pkg/llm"
	"github.com/israelwong/promediamx-sub009/pkg/models"
	"github.com/israelwong/promediamx-sub009/pkg/prompt"
	"github.com/israelwong/promediamx-sub009/pkg/response"
	"github.com/israelwong/promediamx-sub009/pkg/s3storage"
	"github.com/israelwong/promediamx-sub009/pkg/store"
	"github.com/israelwong/promediamx-sub009/pkg/utils"
)

// components - собранный граф зависимостей команды.
type components struct {
	Service *assistant.Service
	Model   string

	// Registry - реестр метрик для /metrics
	Registry *prometheus.Registry

	closers []func() error
}

// Close освобождает хранилище.
func (c *components) Close() {
	for _, fn := range c.closers {
		if err := fn(); err != nil {
			utils.Warn("Close failed", "error", err)
		}
	}
}

// openSource выбирает хранилище возможностей по store.driver.
func openSource(c *config.AppConfig) (capability.Source, func() error, error) {
	switch c.Store.Driver {
	case "s3":
		client, err := s3storage.New(c.S3)
		if err != nil {
			return nil, nil, err
		}
		utils.Info("Capability catalog on S3", "bucket", c.S3.Bucket, "prefix", c.S3.Prefix)
		return s3storage.NewCatalogSource(client, c.S3.Prefix), func() error { return nil }, nil
	default:
		st, err := store.Open(c.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		utils.Info("Capability store opened", "path", st.Path())
		return st, st.Close, nil
	}
}

// wrappers - обёртки провайдеров: метрики, лимит запросов, запись обменов.
func wrappers(c *config.AppConfig, reg prometheus.Registerer) ([]models.Wrapper, error) {
	ws := []models.Wrapper{
		func(name string, def config.ModelDef, p llm.Provider) (llm.Provider, error) {
			return llm.Instrumented(p, name, reg)
		},
	}

	if c.Server.RateLimit > 0 {
		ws = append(ws, func(name string, def config.ModelDef, p llm.Provider) (llm.Provider, error) {
			return llm.RateLimited(p, rate.Limit(c.Server.RateLimit), c.Server.Burst), nil
		})
	}

	if c.App.DebugLogsDir != "" {
		recorder, err := debug.NewRecorder(c.App.DebugLogsDir)
		if err != nil {
			return nil, err
		}
		ws = append(ws, func(name string, def config.ModelDef, p llm.Provider) (llm.Provider, error) {
			return recorder.Wrap(p, def.ModelName), nil
		})
	}
	return ws, nil
}

// build собирает Service для выбранной модели.
func build(ctx context.Context, c *config.AppConfig, model string) (*components, error) {
	reg := prometheus.NewRegistry()

	ws, err := wrappers(c, reg)
	if err != nil {
		return nil, err
	}

	registry, err := models.NewRegistryFromConfig(ctx, c, ws...)
	if err != nil {
		return nil, err
	}
	provider, _, actual, err := registry.GetWithFallback(model, c.Models.Default)
	if err != nil {
		return nil, err
	}

	var template *prompt.Template
	if c.Assistant.PromptFile != "" {
		if template, err = prompt.LoadTemplate(c.Assistant.PromptFile); err != nil {
			return nil, fmt.Errorf("load prompt template: %w", err)
		}
	}

	var opts []response.Option
	if c.Assistant.DisableRecovery {
		opts = append(opts, response.WithoutRecovery())
	}

	orchestrator, err := assistant.New(assistant.Config{
		Provider:      provider,
		Template:      template,
		Disambiguator: response.New(opts...),
		Timeout:       c.Assistant.Timeout,
	})
	if err != nil {
		return nil, err
	}

	source, closeSource, err := openSource(c)
	if err != nil {
		return nil, err
	}

	utils.Info("Assistant ready", "model", actual, "models", registry.ListNames())

	return &components{
		Service:  assistant.NewService(capability.NewResolver(source), orchestrator),
		Model:    actual,
		Registry: reg,
		closers:  []func() error{closeSource},
	}, nil
}

func assistantContext() assistant.Context {
	return assistant.Context{
		AssistantName: assistantName,
		BusinessName:  businessName,
	}
}

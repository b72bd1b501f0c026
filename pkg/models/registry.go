// Package models предоставляет централизованный реестр генеративных бэкендов.
//
// Реестр регистрирует модели из config.yaml при старте и позволяет выбрать
// бэкенд для хода по имени (флаг --model или поле запроса).
package models

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/israelwong/promediamx-sub009/pkg/config"
	"github.com/israelwong/promediamx-sub009/pkg/factory"
	"github.com/israelwong/promediamx-sub009/pkg/llm"
	"github.com/israelwong/promediamx-sub009/pkg/utils"
)

// Registry - потокобезопасное хранилище провайдеров.
type Registry struct {
	mu     sync.RWMutex
	models map[string]ModelEntry
}

// ModelEntry - кешированный провайдер с конфигурацией.
type ModelEntry struct {
	Provider llm.Provider
	Config   config.ModelDef
}

// Wrapper оборачивает созданный провайдер (метрики, rate limit, запись обменов).
type Wrapper func(name string, def config.ModelDef, p llm.Provider) (llm.Provider, error)

// NewRegistry создаёт новый пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		models: make(map[string]ModelEntry),
	}
}

// Register добавляет модель в реестр.
//
// Возвращает ошибку если модель с таким именем уже зарегистрирована.
func (r *Registry) Register(name string, modelDef config.ModelDef, provider llm.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.models[name]; exists {
		return fmt.Errorf("model '%s' already registered", name)
	}

	r.models[name] = ModelEntry{
		Provider: provider,
		Config:   modelDef,
	}
	return nil
}

// Get извлекает провайдер по имени модели.
func (r *Registry) Get(name string) (llm.Provider, config.ModelDef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.models[name]
	if !ok {
		return nil, config.ModelDef{}, fmt.Errorf("model '%s' not found in registry", name)
	}
	return entry.Provider, entry.Config, nil
}

// GetWithFallback извлекает провайдер с fallback на дефолтную модель.
//
// Возвращает (provider, modelDef, actualModelName, error).
func (r *Registry) GetWithFallback(requested, defaultModel string) (llm.Provider, config.ModelDef, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if entry, ok := r.models[requested]; ok {
		return entry.Provider, entry.Config, requested, nil
	}

	if entry, ok := r.models[defaultModel]; ok {
		return entry.Provider, entry.Config, defaultModel, nil
	}

	return nil, config.ModelDef{}, "", fmt.Errorf("neither requested model '%s' nor default '%s' found in registry", requested, defaultModel)
}

// ListNames возвращает отсортированный список зарегистрированных имён моделей.
func (r *Registry) ListNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewRegistryFromConfig создаёт и заполняет реестр из конфигурации.
//
// Модели без API ключа пропускаются, кроме модели по умолчанию: без неё
// ассистент не работает, поэтому её ошибка возвращается.
func NewRegistryFromConfig(ctx context.Context, cfg *config.AppConfig, wrappers ...Wrapper) (*Registry, error) {
	registry := NewRegistry()

	for name := range cfg.Models.Definitions {
		modelDef, err := cfg.GetModel(name)
		if err != nil {
			if name == cfg.Models.Default {
				return nil, err
			}
			utils.Warn("Model skipped", "model", name, "error", err)
			continue
		}

		provider, err := factory.NewLLMProvider(ctx, modelDef)
		if err != nil {
			return nil, fmt.Errorf("failed to create provider for model '%s': %w", name, err)
		}

		for _, wrap := range wrappers {
			if provider, err = wrap(name, modelDef, provider); err != nil {
				return nil, fmt.Errorf("failed to wrap provider for model '%s': %w", name, err)
			}
		}

		if err := registry.Register(name, modelDef, provider); err != nil {
			return nil, fmt.Errorf("failed to register model '%s': %w", name, err)
		}
	}

	return registry, nil
}

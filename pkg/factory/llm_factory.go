package factory

import (
	"context"
	"fmt"

	"github.com/israelwong/promediamx-sub009/pkg/config"
	"github.com/israelwong/promediamx-sub009/pkg/errs"
	"github.com/israelwong/promediamx-sub009/pkg/llm"
	"github.com/israelwong/promediamx-sub009/pkg/llm/gemini"
	"github.com/israelwong/promediamx-sub009/pkg/llm/openai"
)

// NewLLMProvider создает провайдера на основе конфигурации модели
func NewLLMProvider(ctx context.Context, modelDef config.ModelDef) (llm.Provider, error) {
	switch modelDef.Provider {
	case "gemini":
		client, err := gemini.NewClient(ctx, modelDef)
		if err != nil {
			return nil, err
		}
		return client, nil

	case "zai", "openai", "deepseek":
		client, err := openai.NewClient(modelDef)
		if err != nil {
			return nil, err
		}
		return client, nil

	default:
		return nil, &errs.ConfigurationError{
			Field:  "provider",
			Reason: fmt.Sprintf("unknown provider type: %s", modelDef.Provider),
		}
	}
}

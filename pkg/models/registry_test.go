package models

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/israelwong/promediamx-sub009/pkg/config"
	"github.com/israelwong/promediamx-sub009/pkg/errs"
	"github.com/israelwong/promediamx-sub009/pkg/llm"
)

func stubProvider() llm.Provider {
	return llm.ProviderFunc(func(ctx context.Context, req llm.Request) (llm.ModelTurn, error) {
		return llm.ModelTurn{FinishReason: llm.FinishNormal, Text: "ok"}, nil
	})
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("b", config.ModelDef{Provider: "openai"}, stubProvider()))
	require.NoError(t, r.Register("a", config.ModelDef{Provider: "gemini"}, stubProvider()))
	assert.Error(t, r.Register("a", config.ModelDef{}, stubProvider()))

	_, def, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "gemini", def.Provider)

	_, _, err = r.Get("missing")
	assert.Error(t, err)

	_, _, actual, err := r.GetWithFallback("missing", "b")
	require.NoError(t, err)
	assert.Equal(t, "b", actual)

	_, _, _, err = r.GetWithFallback("x", "y")
	assert.Error(t, err)

	assert.Equal(t, []string{"a", "b"}, r.ListNames())
}

func TestNewRegistryFromConfig(t *testing.T) {
	cfg, err := config.Parse([]byte(`
models:
  default: flash
  definitions:
    flash:
      provider: gemini
      api_key: test-key
    glm:
      provider: zai
      model_name: glm-4.6
      api_key: ""
    deepseek:
      provider: deepseek
      model_name: deepseek-chat
      api_key: test-key
`))
	require.NoError(t, err)

	var wrapped []string
	wrap := func(name string, def config.ModelDef, p llm.Provider) (llm.Provider, error) {
		wrapped = append(wrapped, name)
		return p, nil
	}

	r, err := NewRegistryFromConfig(context.Background(), cfg, wrap)
	require.NoError(t, err)
	assert.Equal(t, []string{"deepseek", "flash"}, r.ListNames())
	assert.ElementsMatch(t, []string{"deepseek", "flash"}, wrapped)
}

func TestNewRegistryFromConfig_DefaultWithoutKey(t *testing.T) {
	cfg, err := config.Parse([]byte(`
models:
  default: flash
  definitions:
    flash:
      provider: gemini
`))
	require.NoError(t, err)

	_, err = NewRegistryFromConfig(context.Background(), cfg)
	assert.ErrorIs(t, err, errs.ErrConfiguration)
}

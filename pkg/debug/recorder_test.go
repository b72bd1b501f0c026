package debug

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/israelwong/promediamx-sub009/pkg/llm"
)

func readExchanges(t *testing.T, dir string) []Exchange {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "exchange_*.json"))
	require.NoError(t, err)

	out := make([]Exchange, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		require.NoError(t, err)
		var ex Exchange
		require.NoError(t, json.Unmarshal(data, &ex))
		out = append(out, ex)
	}
	return out
}

func TestRecorder_RecordsSuccess(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	rec, err := NewRecorder(dir)
	require.NoError(t, err)

	provider := rec.Wrap(llm.ProviderFunc(func(ctx context.Context, req llm.Request) (llm.ModelTurn, error) {
		return llm.ModelTurn{
			FinishReason: llm.FinishNormal,
			FunctionCall: &llm.FunctionCall{Name: "agendarCita", Args: map[string]any{"fecha": "martes"}},
		}, nil
	}), "gemini-flash")

	turn, err := provider.Generate(context.Background(), llm.Request{
		SystemInstruction: "Eres Sofía",
		History:           []llm.Turn{llm.UserTurn("hola")},
		Message:           "quiero una cita",
	})
	require.NoError(t, err)
	assert.Equal(t, "agendarCita", turn.FunctionCall.Name)

	exchanges := readExchanges(t, dir)
	require.Len(t, exchanges, 1)
	ex := exchanges[0]
	assert.NotEmpty(t, ex.ID)
	assert.Equal(t, "gemini-flash", ex.Model)
	assert.Equal(t, "quiero una cita", ex.Request.Message)
	assert.Len(t, ex.Request.History, 1)
	require.NotNil(t, ex.Response)
	assert.Equal(t, llm.FinishNormal, ex.Response.FinishReason)
	assert.Equal(t, "agendarCita", ex.Response.FunctionCall.Name)
	assert.Empty(t, ex.Error)
}

func TestRecorder_RecordsError(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewRecorder(dir)
	require.NoError(t, err)

	boom := errors.New("backend down")
	provider := rec.Wrap(llm.ProviderFunc(func(ctx context.Context, req llm.Request) (llm.ModelTurn, error) {
		return llm.ModelTurn{}, boom
	}), "glm")

	_, err = provider.Generate(context.Background(), llm.Request{Message: "hola"})
	assert.ErrorIs(t, err, boom)

	exchanges := readExchanges(t, dir)
	require.Len(t, exchanges, 1)
	assert.Equal(t, "backend down", exchanges[0].Error)
	assert.Nil(t, exchanges[0].Response)
}

func TestRecorder_UniqueFiles(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewRecorder(dir)
	require.NoError(t, err)

	provider := rec.Wrap(llm.ProviderFunc(func(ctx context.Context, req llm.Request) (llm.ModelTurn, error) {
		return llm.ModelTurn{FinishReason: llm.FinishNormal, Text: "ok"}, nil
	}), "m")

	for i := 0; i < 3; i++ {
		_, err := provider.Generate(context.Background(), llm.Request{Message: "hola"})
		require.NoError(t, err)
	}
	assert.Len(t, readExchanges(t, dir), 3)
}

func TestNewRecorder_EmptyDir(t *testing.T) {
	_, err := NewRecorder("")
	assert.Error(t, err)
}

package assistant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"github.com/israelwong/promediamx-sub009/pkg/capability"
	"github.com/israelwong/promediamx-sub009/pkg/dialogue"
	"github.com/israelwong/promediamx-sub009/pkg/errs"
	"github.com/israelwong/promediamx-sub009/pkg/llm"
	"github.com/israelwong/promediamx-sub009/pkg/prompt"
	"github.com/israelwong/promediamx-sub009/pkg/response"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// MockLLMProvider - мок генеративного бэкенда для тестирования.
// Реализует интерфейс llm.Provider для детерминированного тестирования.
type MockLLMProvider struct {
	mu sync.Mutex

	// Turn - ответ, возвращаемый на каждый вызов
	Turn llm.ModelTurn
	// Err - ошибка, возвращаемая на каждый вызов
	Err error
	// Delay - задержка перед ответом (учитывает отмену контекста)
	Delay time.Duration

	// CallCount - количество вызовов Generate
	CallCount int
	// Requests - все полученные запросы
	Requests []llm.Request
}

// Generate реализует llm.Provider интерфейс.
func (m *MockLLMProvider) Generate(ctx context.Context, req llm.Request) (llm.ModelTurn, error) {
	m.mu.Lock()
	m.CallCount++
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return llm.ModelTurn{}, ctx.Err()
		}
	}
	return m.Turn, m.Err
}

func (m *MockLLMProvider) lastRequest(t *testing.T) llm.Request {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.Requests)
	return m.Requests[len(m.Requests)-1]
}

func agendarCaps() []capability.TaskCapability {
	return []capability.TaskCapability{{
		ID:   "t1",
		Name: "Agendar",
		ToolFunction: &capability.ToolFunction{
			Name: "agendarCita",
			Parameters: []capability.ParameterSpec{
				{Name: "fecha", Type: capability.TypeString, Required: true},
			},
		},
	}}
}

func clinic() Context {
	return Context{AssistantName: "Sofía", BusinessName: "Clínica Sonrisas"}
}

func newOrchestrator(t *testing.T, p llm.Provider) *Orchestrator {
	t.Helper()
	o, err := New(Config{Provider: p})
	require.NoError(t, err)
	return o
}

func TestGenerate_PromptConfigOverridesModelOptions(t *testing.T) {
	text := "Hola"
	tests := []struct {
		name     string
		config   prompt.PromptConfig
		expected llm.GenerateOptions
	}{
		{
			name:     "zero values keep model options",
			expected: llm.GenerateOptions{Model: "m", Temperature: 0.7, MaxTokens: 1024, SafetyThreshold: llm.DefaultSafetyThreshold},
		},
		{
			name:     "temperature only",
			config:   prompt.PromptConfig{Temperature: 0.3},
			expected: llm.GenerateOptions{Model: "m", Temperature: 0.3, MaxTokens: 1024, SafetyThreshold: llm.DefaultSafetyThreshold},
		},
		{
			name:     "temperature and max tokens",
			config:   prompt.PromptConfig{Temperature: 0.3, MaxTokens: 512},
			expected: llm.GenerateOptions{Model: "m", Temperature: 0.3, MaxTokens: 512, SafetyThreshold: llm.DefaultSafetyThreshold},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := prompt.NewTemplate(&prompt.PromptFile{
				Config:   tt.config,
				Messages: []prompt.Message{{Role: "system", Content: "Eres {{.AssistantName}}."}},
			})
			require.NoError(t, err)

			p := &MockLLMProvider{Turn: llm.ModelTurn{FinishReason: llm.FinishNormal, Text: text}}
			o, err := New(Config{Provider: p, Template: tmpl})
			require.NoError(t, err)

			_, err = o.Generate(context.Background(), Request{Assistant: clinic(), Message: "hola"})
			require.NoError(t, err)

			base := llm.NewGenerateOptions(
				llm.WithModel("m"),
				llm.WithTemperature(0.7),
				llm.WithMaxTokens(1024),
			)
			assert.Equal(t, tt.expected, base.Apply(p.lastRequest(t).Options...))
		})
	}
}

func TestNew_RequiresProvider(t *testing.T) {
	o, err := New(Config{})
	assert.Nil(t, o)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrConfiguration)
}

func TestGenerate_EndToEndScenario(t *testing.T) {
	mock := &MockLLMProvider{Turn: llm.ModelTurn{
		FinishReason:    llm.FinishNormal,
		RawFinishReason: "STOP",
		FunctionCall:    &llm.FunctionCall{Name: "agendarCita", Args: map[string]any{"fecha": "martes"}},
	}}
	o := newOrchestrator(t, mock)

	resp, err := o.Generate(context.Background(), Request{
		Assistant:    clinic(),
		Capabilities: agendarCaps(),
		History:      []llm.Turn{},
		Message:      "quiero una cita el martes",
	})
	require.NoError(t, err)

	// Ровно один запрос, и в нём ровно одна функция agendarCita
	assert.Equal(t, 1, mock.CallCount)
	req := mock.lastRequest(t)
	require.NotNil(t, req.Tools)
	assert.Equal(t, []string{"agendarCita"}, req.Tools.Names())
	assert.Equal(t, "quiero una cita el martes", req.Message)
	assert.Contains(t, req.SystemInstruction, "Eres Sofía")

	require.NotNil(t, resp.FunctionCall)
	assert.Equal(t, "agendarCita", resp.FunctionCall.Name)
	assert.Equal(t, map[string]any{"fecha": "martes"}, resp.FunctionCall.Arguments)
	assert.Nil(t, resp.TextReply)
}

func TestGenerate_NoToolsWithoutFunctions(t *testing.T) {
	mock := &MockLLMProvider{Turn: llm.ModelTurn{FinishReason: llm.FinishNormal, Text: "¡Hola!"}}
	o := newOrchestrator(t, mock)

	resp, err := o.Generate(context.Background(), Request{
		Assistant:    clinic(),
		Capabilities: []capability.TaskCapability{{Name: "Informar"}},
		Message:      "hola",
	})
	require.NoError(t, err)
	assert.Equal(t, "¡Hola!", resp.Text())
	assert.Nil(t, mock.lastRequest(t).Tools)
}

func TestGenerate_InjectsFollowUp(t *testing.T) {
	caps := agendarCaps()
	caps[0].FollowUpInstruction = "Ofrece enviar un recordatorio."

	history := []llm.Turn{
		llm.UserTurn("quiero una cita el martes"),
		llm.ModelCall("agendarCita", map[string]any{"fecha": "martes"}),
		llm.FunctionResult("agendarCita", map[string]any{"ok": true}),
		llm.ModelText("Tu cita quedó agendada."),
	}

	tests := []struct {
		name  string
		state *dialogue.State
		want  bool
	}{
		{name: "history scan", state: nil, want: true},
		{name: "explicit awaiting user", state: &dialogue.State{Phase: dialogue.PhaseAwaitingUser, Function: "agendarCita"}, want: true},
		{name: "explicit idle", state: &dialogue.State{Phase: dialogue.PhaseIdle}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockLLMProvider{Turn: llm.ModelTurn{FinishReason: llm.FinishNormal, Text: "De nada"}}
			o := newOrchestrator(t, mock)

			_, err := o.Generate(context.Background(), Request{
				Assistant:    clinic(),
				Capabilities: caps,
				History:      history,
				Message:      "gracias",
				State:        tt.state,
			})
			require.NoError(t, err)

			system := mock.lastRequest(t).SystemInstruction
			if tt.want {
				assert.Contains(t, system, "Ofrece enviar un recordatorio.")
			} else {
				assert.NotContains(t, system, "Ofrece enviar un recordatorio.")
			}
		})
	}
}

func TestGenerate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		mock    *MockLLMProvider
		wantErr error
	}{
		{
			name:    "transport error",
			mock:    &MockLLMProvider{Err: errors.New("connection reset")},
			wantErr: errs.ErrBackendUnavailable,
		},
		{
			name:    "safety block",
			mock:    &MockLLMProvider{Turn: llm.ModelTurn{FinishReason: llm.FinishSafetyBlocked, RawFinishReason: "SAFETY"}},
			wantErr: errs.ErrSafetyBlocked,
		},
		{
			name:    "empty response",
			mock:    &MockLLMProvider{Turn: llm.ModelTurn{FinishReason: llm.FinishNormal, RawFinishReason: "STOP"}},
			wantErr: errs.ErrEmptyResponse,
		},
		{
			name:    "typed provider error kept",
			mock:    &MockLLMProvider{Err: &errs.BackendUnavailableError{Provider: "gemini", Retryable: false, Err: errors.New("400")}},
			wantErr: errs.ErrBackendUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOrchestrator(t, tt.mock)
			_, err := o.Generate(context.Background(), Request{Assistant: clinic(), Message: "hola"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 1, tt.mock.CallCount)
		})
	}
}

func TestGenerate_TypedProviderErrorNotRewrapped(t *testing.T) {
	original := &errs.BackendUnavailableError{Provider: "gemini", Retryable: false, Err: errors.New("400")}
	o := newOrchestrator(t, &MockLLMProvider{Err: original})

	_, err := o.Generate(context.Background(), Request{Assistant: clinic(), Message: "hola"})
	assert.Same(t, original, err)
	assert.False(t, errs.IsRetryable(err))
}

func TestGenerate_Timeout(t *testing.T) {
	mock := &MockLLMProvider{Delay: time.Second}
	o, err := New(Config{Provider: mock, Timeout: 20 * time.Millisecond})
	require.NoError(t, err)

	_, err = o.Generate(context.Background(), Request{Assistant: clinic(), Message: "hola"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrBackendUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, errs.IsRetryable(err))
}

func TestGenerate_EmptyMessage(t *testing.T) {
	mock := &MockLLMProvider{}
	o := newOrchestrator(t, mock)

	_, err := o.Generate(context.Background(), Request{Assistant: clinic(), Message: "  "})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Equal(t, 0, mock.CallCount)
}

func TestGenerate_RecoveryDisabled(t *testing.T) {
	leaked := "```json\n{\"functionCall\":{\"name\":\"agendarCita\",\"args\":{}}}\n```"
	mock := &MockLLMProvider{Turn: llm.ModelTurn{FinishReason: llm.FinishNormal, Text: leaked}}

	o, err := New(Config{Provider: mock, Disambiguator: response.New(response.WithoutRecovery())})
	require.NoError(t, err)

	resp, err := o.Generate(context.Background(), Request{Assistant: clinic(), Message: "hola"})
	require.NoError(t, err)
	assert.Nil(t, resp.FunctionCall)
	assert.Equal(t, leaked, resp.Text())
}

func TestGenerate_Stateless(t *testing.T) {
	mock := &MockLLMProvider{Turn: llm.ModelTurn{
		FinishReason: llm.FinishNormal,
		FunctionCall: &llm.FunctionCall{Name: "agendarCita", Args: map[string]any{"fecha": "martes"}},
	}}
	o := newOrchestrator(t, mock)

	history := []llm.Turn{llm.UserTurn("hola"), llm.ModelText("¿En qué te ayudo?")}
	snapshot := append([]llm.Turn(nil), history...)
	req := Request{Assistant: clinic(), Capabilities: agendarCaps(), History: history, Message: "una cita"}

	first, err := o.Generate(context.Background(), req)
	require.NoError(t, err)
	second, err := o.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, mock.CallCount)
	assert.Equal(t, snapshot, history)
	assert.Equal(t, mock.Requests[0], mock.Requests[1])
}

func TestGenerate_Concurrent(t *testing.T) {
	mock := &MockLLMProvider{Turn: llm.ModelTurn{FinishReason: llm.FinishNormal, Text: "ok"}}
	o := newOrchestrator(t, mock)

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			resp, err := o.Generate(ctx, Request{
				Assistant:    clinic(),
				Capabilities: agendarCaps(),
				Message:      fmt.Sprintf("mensaje %d", i),
			})
			if err != nil {
				return err
			}
			if resp.Text() != "ok" {
				return fmt.Errorf("unexpected reply %q", resp.Text())
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 16, mock.CallCount)
}

package ui

import (
	"context"
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/israelwong/promediamx-sub009/internal/app"
	"github.com/israelwong/promediamx-sub009/internal/session"
	"github.com/israelwong/promediamx-sub009/pkg/assistant"
	"github.com/israelwong/promediamx-sub009/pkg/capability"
	"github.com/israelwong/promediamx-sub009/pkg/response"
)

type echoResponder struct{}

func (echoResponder) Respond(ctx context.Context, assistantID string, req assistant.Request) (response.AssistantResponse, error) {
	text := "Hola, soy Sofía"
	return response.AssistantResponse{TextReply: &text}, nil
}

type noCaps struct{}

func (noCaps) Capabilities(ctx context.Context, assistantID string) ([]capability.TaskCapability, error) {
	return nil, nil
}

func newModel(t *testing.T) MainModel {
	t.Helper()
	sess := session.New(echoResponder{}, "demo-clinica", assistant.Context{AssistantName: "Sofía", BusinessName: "Clínica"})
	m := InitialModel(app.NewAppState(sess, noCaps{}, "gemini-flash"))
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	return updated.(MainModel)
}

func TestFormatReply(t *testing.T) {
	text := "¿Qué día te acomoda?"
	tests := []struct {
		name     string
		resp     response.AssistantResponse
		contains []string
	}{
		{
			name:     "text reply",
			resp:     response.AssistantResponse{TextReply: &text},
			contains: []string{"¿Qué día te acomoda?"},
		},
		{
			name: "function call",
			resp: response.AssistantResponse{FunctionCall: &response.FunctionCall{
				Name:      "agendarCita",
				Arguments: map[string]any{"fecha": "martes"},
			}},
			contains: []string{`agendarCita {"fecha":"martes"}`, "/result agendarCita <json>"},
		},
		{
			name: "recovered call without arguments",
			resp: response.AssistantResponse{
				FunctionCall: &response.FunctionCall{Name: "listarPromociones"},
				Recovered:    true,
			},
			contains: []string{"listarPromociones {}", "восстановлено"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out := FormatReply(tt.resp)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
		})
	}
}

func TestUpdate_AskRoundTrip(t *testing.T) {
	m := newModel(t)
	assert.Contains(t, m.View(), "demo-clinica")
	assert.Contains(t, m.View(), "gemini-flash")

	m.textarea.SetValue("hola")
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m = updated.(MainModel)
	assert.Empty(t, m.textarea.Value())

	reply, ok := cmd().(app.AssistantReplyMsg)
	require.True(t, ok)
	require.NoError(t, reply.Err)

	updated, _ = m.Update(reply)
	m = updated.(MainModel)
	assert.Contains(t, m.View(), "Hola, soy Sofía")
}

func TestUpdate_CommandsAndErrors(t *testing.T) {
	m := newModel(t)

	m.textarea.SetValue("/state")
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	updated, _ = updated.(MainModel).Update(cmd())
	assert.Contains(t, updated.View(), "idle")

	updated, _ = updated.Update(app.AssistantReplyMsg{Err: fmt.Errorf("ask: %w", session.ErrHandedOff)})
	assert.Contains(t, updated.View(), "оператор")

	m = updated.(MainModel)
	m.textarea.SetValue("   ")
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)

	m.textarea.SetValue("/quit")
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/israelwong/promediamx-sub009/internal/session"
	"github.com/israelwong/promediamx-sub009/pkg/assistant"
	"github.com/israelwong/promediamx-sub009/pkg/capability"
	"github.com/israelwong/promediamx-sub009/pkg/dialogue"
	"github.com/israelwong/promediamx-sub009/pkg/response"
)

type stubResponder struct {
	resp response.AssistantResponse
}

func (s stubResponder) Respond(ctx context.Context, assistantID string, req assistant.Request) (response.AssistantResponse, error) {
	return s.resp, nil
}

type stubCaps struct {
	caps []capability.TaskCapability
	err  error
}

func (s stubCaps) Capabilities(ctx context.Context, assistantID string) ([]capability.TaskCapability, error) {
	return s.caps, s.err
}

func newState(resp response.AssistantResponse, caps stubCaps) *AppState {
	sess := session.New(stubResponder{resp: resp}, "asst-1", assistant.Context{AssistantName: "Sofía", BusinessName: "Clínica"})
	return NewAppState(sess, caps, "gemini-flash")
}

func run(t *testing.T, state *AppState, input string) CommandResultMsg {
	t.Helper()
	cmd := state.GetCommandRegistry().Execute(input, state)
	require.NotNil(t, cmd)
	msg, ok := cmd().(CommandResultMsg)
	require.True(t, ok)
	return msg
}

func TestCommandRegistry_Unknown(t *testing.T) {
	state := newState(response.AssistantResponse{}, stubCaps{})
	msg := run(t, state, "/nope")
	assert.Error(t, msg.Err)

	assert.Nil(t, state.GetCommandRegistry().Execute("   ", state))
	assert.Equal(t, []string{"/handoff", "/help", "/reset", "/result", "/state", "/tools"}, state.GetCommandRegistry().GetCommands())
}

func TestAskAndResult(t *testing.T) {
	call := response.AssistantResponse{FunctionCall: &response.FunctionCall{Name: "agendarCita", Arguments: map[string]any{}}}
	state := newState(call, stubCaps{})

	reply, ok := AskCmd(state, "quiero una cita")().(AssistantReplyMsg)
	require.True(t, ok)
	require.NoError(t, reply.Err)
	assert.Equal(t, "agendarCita", reply.Response.FunctionCall.Name)
	assert.False(t, state.GetProcessing())

	msg := run(t, state, "/result")
	assert.ErrorContains(t, msg.Err, "/result agendarCita")

	msg = run(t, state, `/result agendarCita {"ok": true`)
	assert.Error(t, msg.Err)

	msg = run(t, state, `/result agendarCita {"ok": true, "fecha": "martes"}`)
	require.NoError(t, msg.Err)
	assert.Equal(t, dialogue.PhaseAwaitingUser, state.Session.State().Phase)

	msg = run(t, state, "/state")
	assert.Contains(t, msg.Output, "awaiting_user")
	assert.Contains(t, msg.Output, "agendarCita")

	msg = run(t, state, "/result agendarCita")
	assert.ErrorIs(t, msg.Err, session.ErrNoPendingCall)
}

func TestHandoffAndReset(t *testing.T) {
	state := newState(response.AssistantResponse{}, stubCaps{})

	assert.Error(t, run(t, state, "/handoff").Err)
	assert.Error(t, run(t, state, "/handoff offline").Err)

	require.NoError(t, run(t, state, "/handoff hitl_active").Err)
	assert.Equal(t, session.StatusHITLActive, state.Session.Status())

	require.NoError(t, run(t, state, "/reset").Err)
	assert.Equal(t, session.StatusActive, state.Session.Status())
}

func TestToolsCommand(t *testing.T) {
	caps := stubCaps{caps: []capability.TaskCapability{{
		Name: "Agendar",
		ToolFunction: &capability.ToolFunction{
			Name:       "agendarCita",
			Parameters: []capability.ParameterSpec{{Name: "fecha", Type: capability.TypeString, Description: "Fecha"}},
		},
	}}}
	msg := run(t, newState(response.AssistantResponse{}, caps), "/tools")
	require.NoError(t, msg.Err)
	assert.Contains(t, msg.Output, "agendarCita")
	assert.Contains(t, msg.Output, "fecha (string): Fecha")

	msg = run(t, newState(response.AssistantResponse{}, stubCaps{}), "/tools")
	assert.Equal(t, "У ассистента нет функций", msg.Output)

	msg = run(t, newState(response.AssistantResponse{}, stubCaps{err: errors.New("db down")}), "/tools")
	assert.Error(t, msg.Err)
}

package response

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/israelwong/promediamx-sub009/pkg/errs"
	"github.com/israelwong/promediamx-sub009/pkg/llm"
)

const leakedCall = "```json\n{\"functionCall\":{\"name\":\"bookSlot\",\"args\":{\"day\":\"mon\"}}}\n```"

func TestDisambiguate_StructuredCall(t *testing.T) {
	d := New()

	resp, err := d.Disambiguate(llm.ModelTurn{
		FinishReason: llm.FinishNormal,
		FunctionCall: &llm.FunctionCall{Name: "agendarCita", Args: map[string]any{"fecha": "martes"}},
	})
	require.NoError(t, err)
	require.NotNil(t, resp.FunctionCall)
	assert.Equal(t, "agendarCita", resp.FunctionCall.Name)
	assert.Equal(t, map[string]any{"fecha": "martes"}, resp.FunctionCall.Arguments)
	// Заглушка не подставляется
	assert.Nil(t, resp.TextReply)
	assert.False(t, resp.Recovered)
}

func TestDisambiguate_StructuredCallWithText(t *testing.T) {
	resp, err := New().Disambiguate(llm.ModelTurn{
		FinishReason: llm.FinishNormal,
		Text:         "  Claro, lo agendo.  ",
		FunctionCall: &llm.FunctionCall{Name: "agendarCita"},
	})
	require.NoError(t, err)
	require.NotNil(t, resp.TextReply)
	assert.Equal(t, "Claro, lo agendo.", *resp.TextReply)
	assert.Equal(t, map[string]any{}, resp.FunctionCall.Arguments)
}

func TestDisambiguate_StructuredWinsOverRecovery(t *testing.T) {
	resp, err := New().Disambiguate(llm.ModelTurn{
		FinishReason: llm.FinishNormal,
		Text:         leakedCall,
		FunctionCall: &llm.FunctionCall{Name: "agendarCita", Args: map[string]any{"fecha": "martes"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "agendarCita", resp.FunctionCall.Name)
	assert.False(t, resp.Recovered)
}

func TestDisambiguate_RecoveryPath(t *testing.T) {
	resp, err := New().Disambiguate(llm.ModelTurn{
		FinishReason: llm.FinishNormal,
		Text:         leakedCall,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.FunctionCall)
	assert.Equal(t, "bookSlot", resp.FunctionCall.Name)
	assert.Equal(t, map[string]any{"day": "mon"}, resp.FunctionCall.Arguments)
	assert.True(t, resp.Recovered)

	require.NotNil(t, resp.TextReply)
	assert.NotEmpty(t, *resp.TextReply)
	assert.NotContains(t, *resp.TextReply, "```")
	assert.NotContains(t, *resp.TextReply, "functionCall")
}

func TestDisambiguate_RecoveryDisabled(t *testing.T) {
	resp, err := New(WithoutRecovery()).Disambiguate(llm.ModelTurn{
		FinishReason: llm.FinishNormal,
		Text:         leakedCall,
	})
	require.NoError(t, err)
	assert.Nil(t, resp.FunctionCall)
	assert.Equal(t, leakedCall, resp.Text())
}

func TestDisambiguate_TerminalVsDegrade(t *testing.T) {
	tests := []struct {
		name     string
		turn     llm.ModelTurn
		wantText string
		wantErr  error
	}{
		{
			name:     "plain text degrades to reply",
			turn:     llm.ModelTurn{FinishReason: llm.FinishNormal, RawFinishReason: "STOP", Text: "not json at all"},
			wantText: "not json at all",
		},
		{
			name:     "malformed fenced json degrades to reply",
			turn:     llm.ModelTurn{FinishReason: llm.FinishNormal, Text: "```json\n{\"functionCall\": \n```"},
			wantText: "```json\n{\"functionCall\": \n```",
		},
		{
			name:     "length cut with text",
			turn:     llm.ModelTurn{FinishReason: llm.FinishLengthCut, RawFinishReason: "MAX_TOKENS", Text: "texto cortado"},
			wantText: "texto cortado",
		},
		{
			name:    "empty text normal completion",
			turn:    llm.ModelTurn{FinishReason: llm.FinishNormal, RawFinishReason: "STOP", Text: "   "},
			wantErr: errs.ErrEmptyResponse,
		},
		{
			name:    "empty text length cut",
			turn:    llm.ModelTurn{FinishReason: llm.FinishLengthCut, RawFinishReason: "MAX_TOKENS"},
			wantErr: errs.ErrEmptyResponse,
		},
		{
			name:    "safety block without text",
			turn:    llm.ModelTurn{FinishReason: llm.FinishSafetyBlocked, RawFinishReason: "SAFETY"},
			wantErr: errs.ErrSafetyBlocked,
		},
		{
			name:    "safety block with partial text",
			turn:    llm.ModelTurn{FinishReason: llm.FinishSafetyBlocked, RawFinishReason: "SAFETY", Text: "parcial"},
			wantErr: errs.ErrSafetyBlocked,
		},
		{
			name:     "other reason with text",
			turn:     llm.ModelTurn{FinishReason: llm.FinishOther, RawFinishReason: "RECITATION", Text: "hola"},
			wantText: "hola",
		},
		{
			name:    "other reason without text",
			turn:    llm.ModelTurn{FinishReason: llm.FinishOther, RawFinishReason: "RECITATION"},
			wantErr: errs.ErrUnrecognizedCompletion,
		},
	}

	d := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := d.Disambiguate(tt.turn)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, errs.IsTerminal(err))
				return
			}
			require.NoError(t, err)
			assert.Nil(t, resp.FunctionCall)
			assert.Equal(t, tt.wantText, resp.Text())
		})
	}
}

func TestDisambiguate_UnrecognizedCarriesReason(t *testing.T) {
	_, err := New().Disambiguate(llm.ModelTurn{FinishReason: llm.FinishOther, RawFinishReason: "RECITATION"})

	var ue *errs.UnrecognizedCompletionError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "RECITATION", ue.Reason)
}

// stubRecoverer - адаптер, распознающий любой текст.
type stubRecoverer struct{}

func (stubRecoverer) Recover(text string) (*FunctionCall, string, bool) {
	return &FunctionCall{Name: "stub", Arguments: map[string]any{}}, "ok", true
}

func TestDisambiguate_CustomRecoverer(t *testing.T) {
	resp, err := New(WithRecovery(stubRecoverer{})).Disambiguate(llm.ModelTurn{
		FinishReason: llm.FinishNormal,
		Text:         "cualquier cosa",
	})
	require.NoError(t, err)
	assert.Equal(t, "stub", resp.FunctionCall.Name)
	assert.True(t, resp.Recovered)
}

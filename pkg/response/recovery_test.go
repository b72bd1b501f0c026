package response

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFencedJSON_Recover(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantName string
		wantArgs map[string]any
		wantOK   bool
	}{
		{
			name:     "canonical block",
			text:     "```json\n{\"functionCall\":{\"name\":\"bookSlot\",\"args\":{\"day\":\"mon\"}}}\n```",
			wantName: "bookSlot",
			wantArgs: map[string]any{"day": "mon"},
			wantOK:   true,
		},
		{
			name:     "surrounding prose",
			text:     "Voy a agendar:\n```json {\"functionCall\":{\"name\":\"agendarCita\",\"args\":{}}} ```\nGracias",
			wantName: "agendarCita",
			wantArgs: map[string]any{},
			wantOK:   true,
		},
		{name: "no block", text: "{\"functionCall\":{\"name\":\"x\",\"args\":{}}}"},
		{name: "malformed json", text: "```json\n{\"functionCall\":\n```"},
		{name: "missing functionCall", text: "```json\n{\"name\":\"x\",\"args\":{}}\n```"},
		{name: "name not a string", text: "```json\n{\"functionCall\":{\"name\":7,\"args\":{}}}\n```"},
		{name: "empty name", text: "```json\n{\"functionCall\":{\"name\":\"\",\"args\":{}}}\n```"},
		{name: "args null", text: "```json\n{\"functionCall\":{\"name\":\"x\",\"args\":null}}\n```"},
		{name: "args missing", text: "```json\n{\"functionCall\":{\"name\":\"x\"}}\n```"},
		{name: "args array", text: "```json\n{\"functionCall\":{\"name\":\"x\",\"args\":[1]}}\n```"},
		{name: "top level array", text: "```json\n[1,2]\n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call, ack, ok := FencedJSON{}.Recover(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				assert.Nil(t, call)
				return
			}
			require.NotNil(t, call)
			assert.Equal(t, tt.wantName, call.Name)
			assert.Equal(t, tt.wantArgs, call.Arguments)
			assert.Contains(t, ack, tt.wantName)
		})
	}
}

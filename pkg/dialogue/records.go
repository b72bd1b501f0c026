package dialogue

import (
	"strings"

	"github.com/israelwong/promediamx-sub009/pkg/llm"
	"github.com/israelwong/promediamx-sub009/pkg/response"
)

// Роли записей взаимодействия в хранилище диалогов.
const (
	RecordRoleUser      = "user"
	RecordRoleAssistant = "assistant"
	RecordRoleFunction  = "function"
)

// Типы частей записи.
const (
	PartText             = "TEXT"
	PartFunctionCall     = "FUNCTION_CALL"
	PartFunctionResponse = "FUNCTION_RESPONSE"
)

// unknownFunction - имя для результата функции без сохранённого имени.
const unknownFunction = "unknownFunctionExecuted"

// Record - сохранённая запись взаимодействия.
//
// Хранилище диалогов внешнее; Record описывает только форму данных,
// которую вызывающий читает и пишет.
type Record struct {
	Role             string         `json:"role"`
	PartType         string         `json:"partType,omitempty"`
	Text             string         `json:"text,omitempty"`
	FunctionName     string         `json:"functionName,omitempty"`
	FunctionArgs     map[string]any `json:"functionArgs,omitempty"`
	FunctionResponse map[string]any `json:"functionResponse,omitempty"`
}

// TurnsFromRecords превращает записи в историю для модели.
//
// Записи без пригодного содержимого отбрасываются. Результат функции без
// данных ответа, но с текстом, оборачивается в {"content": text}.
func TurnsFromRecords(records []Record) []llm.Turn {
	turns := make([]llm.Turn, 0, len(records))
	for _, r := range records {
		if t, ok := turnFromRecord(r); ok {
			turns = append(turns, t)
		}
	}
	return turns
}

func turnFromRecord(r Record) (llm.Turn, bool) {
	switch r.Role {
	case RecordRoleUser:
		if r.Text == "" {
			return llm.Turn{}, false
		}
		return llm.UserTurn(r.Text), true

	case RecordRoleAssistant:
		if r.PartType == PartFunctionCall && r.FunctionName != "" && r.FunctionArgs != nil {
			return llm.ModelCall(r.FunctionName, r.FunctionArgs), true
		}
		if r.Text == "" {
			return llm.Turn{}, false
		}
		return llm.ModelText(r.Text), true

	case RecordRoleFunction:
		if r.PartType == PartFunctionResponse && r.FunctionName != "" && r.FunctionResponse != nil {
			return llm.FunctionResult(r.FunctionName, r.FunctionResponse), true
		}
		if r.Text == "" {
			return llm.Turn{}, false
		}
		name := r.FunctionName
		if name == "" {
			name = unknownFunction
		}
		return llm.FunctionResult(name, map[string]any{"content": r.Text}), true
	}
	return llm.Turn{}, false
}

// RecordFromTurn - обратное преобразование для сохранения хода.
func RecordFromTurn(t llm.Turn) Record {
	switch t.Role {
	case llm.RoleModel:
		if t.FunctionCall != nil {
			return Record{
				Role:         RecordRoleAssistant,
				PartType:     PartFunctionCall,
				Text:         t.Text,
				FunctionName: t.FunctionCall.Name,
				FunctionArgs: t.FunctionCall.Args,
			}
		}
		return Record{Role: RecordRoleAssistant, PartType: PartText, Text: t.Text}

	case llm.RoleFunction:
		r := Record{Role: RecordRoleFunction, PartType: PartFunctionResponse, Text: t.Text}
		if t.FunctionResponse != nil {
			r.FunctionName = t.FunctionResponse.Name
			r.FunctionResponse = t.FunctionResponse.Response
		}
		return r
	}
	return Record{Role: RecordRoleUser, PartType: PartText, Text: t.Text}
}

// ModelTurnFromResponse собирает ход модели из ответа ассистента для истории.
//
// Если есть и вызов функции, и текст, текст сохраняется вместе с вызовом.
func ModelTurnFromResponse(resp response.AssistantResponse) llm.Turn {
	t := llm.Turn{Role: llm.RoleModel, Text: strings.TrimSpace(resp.Text())}
	if resp.FunctionCall != nil {
		args := resp.FunctionCall.Arguments
		if args == nil {
			args = map[string]any{}
		}
		t.FunctionCall = &llm.FunctionCall{Name: resp.FunctionCall.Name, Args: args}
	}
	return t
}

// RecordFromResponse - запись, которую вызывающий сохраняет для ответа ассистента.
func RecordFromResponse(resp response.AssistantResponse) Record {
	return RecordFromTurn(ModelTurnFromResponse(resp))
}

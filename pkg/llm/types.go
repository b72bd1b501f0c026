// Базовые типы - универсальный язык общения с генеративными бэкендами.
package llm

import (
	"github.com/israelwong/promediamx-sub009/pkg/tools"
)

// Role - автор хода диалога.
type Role string

// Константы для удобства
const (
	RoleUser     Role = "user"
	RoleModel    Role = "model"
	RoleFunction Role = "function"
)

// FunctionCall - запрос модели на вызов функции.
type FunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// FunctionResponse - результат выполнения функции, переданный обратно модели.
type FunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// Turn - одно сообщение диалога.
//
// Порядок в истории - единственный порядок; временных меток нет.
type Turn struct {
	Role             Role              `json:"role"`
	Text             string            `json:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

// UserTurn создаёт ход пользователя.
func UserTurn(text string) Turn {
	return Turn{Role: RoleUser, Text: text}
}

// ModelText создаёт текстовый ход модели.
func ModelText(text string) Turn {
	return Turn{Role: RoleModel, Text: text}
}

// ModelCall создаёт ход модели с вызовом функции.
func ModelCall(name string, args map[string]any) Turn {
	return Turn{Role: RoleModel, FunctionCall: &FunctionCall{Name: name, Args: args}}
}

// FunctionResult создаёт ход с результатом функции.
func FunctionResult(name string, response map[string]any) Turn {
	return Turn{Role: RoleFunction, FunctionResponse: &FunctionResponse{Name: name, Response: response}}
}

// FinishReason - нормализованная причина завершения хода модели.
type FinishReason string

const (
	FinishNormal        FinishReason = "normal"
	FinishLengthCut     FinishReason = "length_cut"
	FinishSafetyBlocked FinishReason = "safety_blocked"
	FinishOther         FinishReason = "other"
)

// Request - всё, что нужно бэкенду для одного хода модели.
type Request struct {
	SystemInstruction string
	// Tools == nil - функции не предлагаются.
	Tools   *tools.ToolSchema
	History []Turn
	Message string

	// Options переопределяют настройки генерации адаптера на один запрос.
	Options []GenerateOption
}

// ModelTurn - результат одного хода модели.
//
// Содержит не более одного вызова функции.
type ModelTurn struct {
	FinishReason FinishReason
	// RawFinishReason - значение от бэкенда как есть, для диагностики.
	RawFinishReason string
	Text            string
	FunctionCall    *FunctionCall
}

// Package debug записывает обмены с генеративным бэкендом в JSON файлы.
//
// Один файл - один запрос: что ушло в модель (системная инструкция, функции,
// история) и что вернулось (причина завершения, текст, вызов функции или ошибка).
package debug

import (
	"time"

	"github.com/israelwong/promediamx-sub009/pkg/llm"
	"github.com/israelwong/promediamx-sub009/pkg/tools"
)

// Exchange - трейс одного запроса к модели.
type Exchange struct {
	// ID - уникальный идентификатор (используется в имени файла)
	ID string `json:"id"`

	Timestamp time.Time `json:"timestamp"`

	// Model - имя модели из реестра
	Model string `json:"model"`

	// Duration - длительность запроса в миллисекундах
	Duration int64 `json:"duration_ms"`

	Request  RequestEntry   `json:"request"`
	Response *ResponseEntry `json:"response,omitempty"`

	// Error - ошибка бэкенда, если запрос не удался
	Error string `json:"error,omitempty"`
}

// RequestEntry - то, что ушло в модель.
type RequestEntry struct {
	SystemInstruction string            `json:"system_instruction,omitempty"`
	Tools             *tools.ToolSchema `json:"tools,omitempty"`
	History           []llm.Turn        `json:"history"`
	Message           string            `json:"message"`
}

// ResponseEntry - нормализованный ответ модели.
type ResponseEntry struct {
	FinishReason    llm.FinishReason  `json:"finish_reason"`
	RawFinishReason string            `json:"raw_finish_reason,omitempty"`
	Text            string            `json:"text,omitempty"`
	FunctionCall    *llm.FunctionCall `json:"function_call,omitempty"`
}

// Общие типы для пакета app
package app

import "github.com/israelwong/promediamx-sub009/pkg/response"

// CommandResultMsg - сообщение, которое возвращает worker после выполнения команды
type CommandResultMsg struct {
	Output string
	Err    error
}

// AssistantReplyMsg - ответ ассистента на сообщение пользователя
type AssistantReplyMsg struct {
	Response response.AssistantResponse
	Err      error
}

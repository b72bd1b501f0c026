// Package response превращает ход модели в ответ ассистента: вызов функции,
// текст, и то и другое, или типизированную ошибку.
package response

// FunctionCall - вызов функции, который должен выполнить вызывающий.
type FunctionCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// AssistantResponse - результат одного хода ассистента.
//
// При успехе хотя бы одно из полей TextReply и FunctionCall не nil.
type AssistantResponse struct {
	TextReply    *string       `json:"textReply"`
	FunctionCall *FunctionCall `json:"functionCall"`

	// Recovered - вызов извлечён из текста модели, а не из структурного канала.
	Recovered bool `json:"recovered,omitempty"`
}

// Text возвращает текст ответа или "".
func (r AssistantResponse) Text() string {
	if r.TextReply == nil {
		return ""
	}
	return *r.TextReply
}

package response

import (
	"strings"

	"github.com/israelwong/promediamx-sub009/pkg/errs"
	"github.com/israelwong/promediamx-sub009/pkg/llm"
	"github.com/israelwong/promediamx-sub009/pkg/utils"
)

// Disambiguator решает, что вернул ход модели.
//
// Не хранит состояния между вызовами и безопасен для конкурентного использования.
type Disambiguator struct {
	recoverer Recoverer
}

// Option настраивает Disambiguator.
type Option func(*Disambiguator)

// WithRecovery задаёт адаптер извлечения вызовов из текста.
func WithRecovery(r Recoverer) Option {
	return func(d *Disambiguator) {
		d.recoverer = r
	}
}

// WithoutRecovery отключает извлечение вызовов из текста.
func WithoutRecovery() Option {
	return func(d *Disambiguator) {
		d.recoverer = nil
	}
}

// New создаёт Disambiguator. По умолчанию включён FencedJSON.
func New(opts ...Option) *Disambiguator {
	d := &Disambiguator{recoverer: FencedJSON{}}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Disambiguate применяет правила по порядку:
//  1. структурный вызов функции (с текстом, если он есть)
//  2. вызов, извлечённый из текста адаптером восстановления
//  3. normal / length_cut: текст или EmptyResponseError
//  4. safety_blocked: SafetyBlockedError
//  5. прочие причины: текст или UnrecognizedCompletionError
//
// Текст-заглушка для вызова функции без текста не подставляется.
func (d *Disambiguator) Disambiguate(turn llm.ModelTurn) (AssistantResponse, error) {
	text := strings.TrimSpace(turn.Text)

	// 1. Структурный вызов
	if turn.FunctionCall != nil {
		args := turn.FunctionCall.Args
		if args == nil {
			args = map[string]any{}
		}
		resp := AssistantResponse{
			FunctionCall: &FunctionCall{Name: turn.FunctionCall.Name, Arguments: args},
		}
		if text != "" {
			resp.TextReply = &text
		}
		return resp, nil
	}

	// 2. Восстановление из текста
	if d.recoverer != nil && text != "" {
		if call, ack, ok := d.recoverer.Recover(text); ok {
			utils.Warn("Function call recovered from text output",
				"function", call.Name,
				"finish_reason", turn.RawFinishReason)
			return AssistantResponse{TextReply: &ack, FunctionCall: call, Recovered: true}, nil
		}
	}

	switch turn.FinishReason {
	// 3. Нормальное завершение или обрезка по длине
	case llm.FinishNormal, llm.FinishLengthCut:
		if text == "" {
			return AssistantResponse{}, &errs.EmptyResponseError{Reason: turn.RawFinishReason}
		}
		return AssistantResponse{TextReply: &text}, nil

	// 4. Блокировка по безопасности
	case llm.FinishSafetyBlocked:
		return AssistantResponse{}, &errs.SafetyBlockedError{Reason: turn.RawFinishReason}
	}

	// 5. Прочие причины
	if text != "" {
		return AssistantResponse{TextReply: &text}, nil
	}
	reason := turn.RawFinishReason
	if reason == "" {
		reason = string(turn.FinishReason)
	}
	return AssistantResponse{}, &errs.UnrecognizedCompletionError{Reason: reason}
}

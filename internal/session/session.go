// Package session хранит разговор на стороне вызывающего: историю ходов,
// явное состояние диалога и статус передачи разговора оператору.
//
// Ядро (pkg/assistant) не хранит ничего между вызовами; Session - то, что
// консоль и HTTP API держат между ходами.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/israelwong/promediamx-sub009/pkg/assistant"
	"github.com/israelwong/promediamx-sub009/pkg/dialogue"
	"github.com/israelwong/promediamx-sub009/pkg/llm"
	"github.com/israelwong/promediamx-sub009/pkg/response"
	"github.com/israelwong/promediamx-sub009/pkg/utils"
)

// DefaultHistoryLimit - сколько последних ходов уходит модели.
const DefaultHistoryLimit = 20

// Status - кто сейчас ведёт разговор.
type Status string

const (
	StatusActive Status = "active"
	// StatusWaitingAgent - пользователь ждёт оператора, ассистент молчит.
	StatusWaitingAgent Status = "waiting_agent"
	// StatusHITLActive - разговор ведёт оператор.
	StatusHITLActive Status = "hitl_active"
)

var (
	// ErrHandedOff - разговор передан оператору, модель не вызывается.
	ErrHandedOff = errors.New("conversation is handled by a human agent")
	// ErrNoPendingCall - результат функции пришёл без ожидающего вызова.
	ErrNoPendingCall = errors.New("no pending function call")
)

// Responder выполняет ход ассистента по ID. Реализуется *assistant.Service.
type Responder interface {
	Respond(ctx context.Context, assistantID string, req assistant.Request) (response.AssistantResponse, error)
}

// Session - один разговор пользователя с ассистентом.
//
// Методы безопасны для конкурентного использования; ходы одной сессии
// выполняются последовательно.
type Session struct {
	id           string
	assistantID  string
	assistant    assistant.Context
	responder    Responder
	historyLimit int

	mu      sync.Mutex
	history []llm.Turn
	state   dialogue.State
	status  Status
}

// Option настраивает Session.
type Option func(*Session)

// WithID задаёт ID сессии (по умолчанию UUID).
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// WithHistoryLimit ограничивает окно истории, отправляемое модели (0 - без изменений).
func WithHistoryLimit(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// New создаёт пустую сессию.
func New(responder Responder, assistantID string, ac assistant.Context, opts ...Option) *Session {
	s := &Session{
		id:           uuid.NewString(),
		assistantID:  assistantID,
		assistant:    ac,
		responder:    responder,
		historyLimit: DefaultHistoryLimit,
		state:        dialogue.Idle(),
		status:       StatusActive,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID возвращает идентификатор сессии.
func (s *Session) ID() string { return s.id }

// AssistantID возвращает ID ассистента сессии.
func (s *Session) AssistantID() string { return s.assistantID }

// Ask отправляет сообщение пользователя и записывает ответ в историю.
//
// При ошибке хода история и состояние не меняются: вызывающий может повторить.
// Если разговор у оператора, сообщение сохраняется, а модель не вызывается.
func (s *Session) Ask(ctx context.Context, message string) (response.AssistantResponse, error) {
	message = strings.TrimSpace(message)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusWaitingAgent || s.status == StatusHITLActive {
		if message != "" {
			s.appendLocked(llm.UserTurn(message))
		}
		utils.Info("Assistant skipped, conversation handed off",
			"session_id", s.id,
			"status", s.status)
		return response.AssistantResponse{}, fmt.Errorf("%w (%s)", ErrHandedOff, s.status)
	}

	state := s.state
	resp, err := s.responder.Respond(ctx, s.assistantID, assistant.Request{
		Assistant: s.assistant,
		History:   window(s.history, s.historyLimit),
		Message:   message,
		State:     &state,
	})
	if err != nil {
		return response.AssistantResponse{}, err
	}

	s.appendLocked(llm.UserTurn(message))
	s.appendLocked(dialogue.ModelTurnFromResponse(resp))

	utils.Debug("Session turn completed",
		"session_id", s.id,
		"phase", s.state.Phase.String(),
		"function", s.state.Function)

	return resp, nil
}

// RecordFunctionResult записывает результат выполнения запрошенной функции.
func (s *Session) RecordFunctionResult(name string, result map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Phase != dialogue.PhaseAwaitingConfirmation {
		return ErrNoPendingCall
	}
	if name != s.state.Function {
		return fmt.Errorf("%w: expected result of %q, got %q", ErrNoPendingCall, s.state.Function, name)
	}
	if result == nil {
		result = map[string]any{}
	}

	s.appendLocked(llm.FunctionResult(name, result))
	return nil
}

// PendingFunction возвращает функцию, результат которой ждёт модель.
func (s *Session) PendingFunction() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Phase != dialogue.PhaseAwaitingConfirmation {
		return "", false
	}
	return s.state.Function, true
}

// SetStatus переключает, кто ведёт разговор.
func (s *Session) SetStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// Status возвращает текущий статус разговора.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// State возвращает текущее состояние диалога.
func (s *Session) State() dialogue.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History возвращает копию полной истории.
func (s *Session) History() []llm.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llm.Turn(nil), s.history...)
}

// Records возвращает историю в формате записей для сохранения.
func (s *Session) Records() []dialogue.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]dialogue.Record, 0, len(s.history))
	for _, t := range s.history {
		records = append(records, dialogue.RecordFromTurn(t))
	}
	return records
}

// Restore заменяет историю сохранёнными записями и проигрывает по ним состояние.
func (s *Session) Restore(records []dialogue.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = nil
	s.state = dialogue.Idle()
	for _, t := range dialogue.TurnsFromRecords(records) {
		s.appendLocked(t)
	}
}

// Reset очищает разговор.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = nil
	s.state = dialogue.Idle()
	s.status = StatusActive
}

func (s *Session) appendLocked(t llm.Turn) {
	s.history = append(s.history, t)
	s.state = s.state.Advance(t)
}

// window возвращает последние limit ходов, начиная с хода пользователя.
func window(history []llm.Turn, limit int) []llm.Turn {
	if limit <= 0 || len(history) <= limit {
		return history
	}
	w := history[len(history)-limit:]
	for len(w) > 0 && w[0].Role != llm.RoleUser {
		w = w[1:]
	}
	return w
}

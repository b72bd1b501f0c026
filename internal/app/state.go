// Package app предоставляет состояние консольного приложения (AppState)
// и реестр его команд.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/israelwong/promediamx-sub009/internal/session"
	"github.com/israelwong/promediamx-sub009/pkg/capability"
)

// CapabilityLister отдаёт активные возможности ассистента. Реализуется *assistant.Service.
type CapabilityLister interface {
	Capabilities(ctx context.Context, assistantID string) ([]capability.TaskCapability, error)
}

// AppState представляет состояние консоли: текущую сессию, источник
// возможностей и UI-флаги.
type AppState struct {
	// Session - разговор с ассистентом
	Session *session.Session

	// Capabilities - источник возможностей для команды /tools
	Capabilities CapabilityLister

	// CommandRegistry - реестр команд консоли
	CommandRegistry *CommandRegistry

	// Timeout - дедлайн одного хода из консоли
	Timeout time.Duration

	// mu защищает CurrentModel и IsProcessing
	mu sync.RWMutex

	// CurrentModel - текущая модель для отображения в UI
	CurrentModel string

	// IsProcessing - флаг занятости ассистента
	IsProcessing bool
}

// NewAppState создает новое состояние приложения с зарегистрированными командами.
func NewAppState(sess *session.Session, caps CapabilityLister, currentModel string) *AppState {
	s := &AppState{
		Session:         sess,
		Capabilities:    caps,
		CommandRegistry: NewCommandRegistry(),
		Timeout:         90 * time.Second,
		CurrentModel:    currentModel,
	}
	SetupAssistantCommands(s.CommandRegistry)
	return s
}

// SetProcessing меняет статус занятости (для спиннера в UI).
func (s *AppState) SetProcessing(busy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.IsProcessing = busy
}

// GetProcessing возвращает текущий статус занятости.
func (s *AppState) GetProcessing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.IsProcessing
}

// GetCurrentModel возвращает текущую модель для отображения в UI.
func (s *AppState) GetCurrentModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.CurrentModel
}

// GetCommandRegistry возвращает реестр команд для использования в UI.
func (s *AppState) GetCommandRegistry() *CommandRegistry {
	return s.CommandRegistry
}

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/israelwong/promediamx-sub009/internal/session"
	"github.com/israelwong/promediamx-sub009/pkg/tools"
)

// CommandHandler - тип функции-обработчика команды.
//
// Принимает AppState и аргументы команды, возвращает tea.Cmd
// для асинхронного выполнения в Bubble Tea.
type CommandHandler func(state *AppState, args []string) tea.Cmd

// CommandRegistry - реестр зарегистрированных команд консоли.
type CommandRegistry struct {
	mu       sync.RWMutex
	commands map[string]CommandHandler
}

// NewCommandRegistry создает новый пустой реестр команд.
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[string]CommandHandler),
	}
}

// Register регистрирует новую команду в реестре.
//
// Если команда с таким именем уже существует, она будет перезаписана.
func (r *CommandRegistry) Register(name string, handler CommandHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[name] = handler
}

// Execute выполняет команду и возвращает tea.Cmd для асинхронного выполнения.
//
// Если команда не найдена, возвращает команду с ошибкой.
func (r *CommandRegistry) Execute(input string, state *AppState) tea.Cmd {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}

	cmd := parts[0]
	args := parts[1:]

	r.mu.RLock()
	handler, exists := r.commands[cmd]
	r.mu.RUnlock()

	if !exists {
		return func() tea.Msg {
			return CommandResultMsg{Err: fmt.Errorf("неизвестная команда: '%s'. Используйте /help", cmd)}
		}
	}

	return handler(state, args)
}

// GetCommands возвращает отсортированный список имен зарегистрированных команд.
func (r *CommandRegistry) GetCommands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cmds := make([]string, 0, len(r.commands))
	for name := range r.commands {
		cmds = append(cmds, name)
	}
	sort.Strings(cmds)
	return cmds
}

// AskCmd отправляет сообщение пользователя ассистенту.
func AskCmd(state *AppState, message string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), state.Timeout)
		defer cancel()

		state.SetProcessing(true)
		defer state.SetProcessing(false)

		resp, err := state.Session.Ask(ctx, message)
		return AssistantReplyMsg{Response: resp, Err: err}
	}
}

const helpText = `Команды консоли:
  /result <функция> <json>  - Передать результат выполненной функции
  /tools                    - Показать функции ассистента
  /state                    - Показать состояние диалога
  /handoff <статус>         - active | waiting_agent | hitl_active
  /reset                    - Начать разговор заново
  /help                     - Показать эту справку
  /quit                     - Выйти`

// SetupAssistantCommands регистрирует команды консоли ассистента.
func SetupAssistantCommands(registry *CommandRegistry) {
	registry.Register("/result", resultCommand)
	registry.Register("/tools", toolsCommand)

	registry.Register("/state", func(state *AppState, args []string) tea.Cmd {
		return func() tea.Msg {
			st := state.Session.State()
			out := fmt.Sprintf("Фаза: %s | Статус: %s", st.Phase, state.Session.Status())
			if st.Function != "" {
				out += " | Функция: " + st.Function
			}
			return CommandResultMsg{Output: out}
		}
	})

	registry.Register("/handoff", func(state *AppState, args []string) tea.Cmd {
		return func() tea.Msg {
			if len(args) != 1 {
				return CommandResultMsg{Err: fmt.Errorf("использование: /handoff <active|waiting_agent|hitl_active>")}
			}
			status := session.Status(args[0])
			switch status {
			case session.StatusActive, session.StatusWaitingAgent, session.StatusHITLActive:
			default:
				return CommandResultMsg{Err: fmt.Errorf("неизвестный статус: %s", args[0])}
			}
			state.Session.SetStatus(status)
			return CommandResultMsg{Output: "Статус разговора: " + string(status)}
		}
	})

	registry.Register("/reset", func(state *AppState, args []string) tea.Cmd {
		return func() tea.Msg {
			state.Session.Reset()
			return CommandResultMsg{Output: "Разговор очищен"}
		}
	})

	registry.Register("/help", func(state *AppState, args []string) tea.Cmd {
		return func() tea.Msg {
			return CommandResultMsg{Output: helpText}
		}
	})
}

// resultCommand: /result <функция> <json>. Без JSON результат - пустой объект.
func resultCommand(state *AppState, args []string) tea.Cmd {
	return func() tea.Msg {
		if len(args) < 1 {
			if fn, ok := state.Session.PendingFunction(); ok {
				return CommandResultMsg{Err: fmt.Errorf("использование: /result %s <json>", fn)}
			}
			return CommandResultMsg{Err: fmt.Errorf("использование: /result <функция> <json>")}
		}

		name := args[0]
		result := map[string]any{}
		if raw := strings.Join(args[1:], " "); raw != "" {
			if err := json.Unmarshal([]byte(raw), &result); err != nil {
				return CommandResultMsg{Err: fmt.Errorf("результат должен быть JSON объектом: %w", err)}
			}
		}

		if err := state.Session.RecordFunctionResult(name, result); err != nil {
			return CommandResultMsg{Err: err}
		}
		return CommandResultMsg{Output: fmt.Sprintf("Результат %s записан. Следующее сообщение получит инструкцию задачи.", name)}
	}
}

func toolsCommand(state *AppState, args []string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), state.Timeout)
		defer cancel()

		caps, err := state.Capabilities.Capabilities(ctx, state.Session.AssistantID())
		if err != nil {
			return CommandResultMsg{Err: err}
		}

		schema := tools.Compile(caps)
		if schema == nil {
			return CommandResultMsg{Output: "У ассистента нет функций"}
		}

		var out strings.Builder
		for _, decl := range schema.FunctionDeclarations {
			fmt.Fprintf(&out, "• %s: %s\n", decl.Name, decl.Description)
			for _, p := range decl.Parameters.OrderedProperties() {
				prop := decl.Parameters.Properties[p]
				fmt.Fprintf(&out, "    %s (%s): %s\n", p, prop.Type, prop.Description)
			}
		}
		return CommandResultMsg{Output: strings.TrimRight(out.String(), "\n")}
	}
}

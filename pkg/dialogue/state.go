package dialogue

import (
	"fmt"

	"github.com/israelwong/promediamx-sub009/pkg/capability"
	"github.com/israelwong/promediamx-sub009/pkg/llm"
)

// Phase - фаза диалога относительно вызовов функций.
type Phase int

const (
	// PhaseIdle - нет незавершённых вызовов.
	PhaseIdle Phase = iota
	// PhaseAwaitingConfirmation - модель запросила функцию, результат ещё не получен.
	PhaseAwaitingConfirmation
	// PhaseAwaitingUser - функция выполнена, ждём следующую реплику пользователя.
	PhaseAwaitingUser
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingConfirmation:
		return "awaiting_confirmation"
	case PhaseAwaitingUser:
		return "awaiting_user"
	default:
		return "idle"
	}
}

// MarshalText кодирует фазу строкой в JSON.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText разбирает фазу из строки. Пустая строка - idle.
func (p *Phase) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "idle":
		*p = PhaseIdle
	case "awaiting_confirmation":
		*p = PhaseAwaitingConfirmation
	case "awaiting_user":
		*p = PhaseAwaitingUser
	default:
		return fmt.Errorf("unknown dialogue phase %q", text)
	}
	return nil
}

// State - явное состояние диалога, которое вызывающий продвигает после
// каждого хода и передаёт вместе с историей.
//
// Состояние описывает историю до нового сообщения пользователя.
type State struct {
	Phase    Phase  `json:"phase"`
	Function string `json:"function,omitempty"`
}

// Idle возвращает начальное состояние.
func Idle() State {
	return State{Phase: PhaseIdle}
}

// Advance возвращает состояние после хода turn.
//
// Переходы:
//   - model с вызовом f           → AwaitingConfirmation(f)
//   - function с ответом f        → AwaitingUser(f)
//   - function без имени          → без изменений
//   - model текстом               → без изменений в AwaitingUser, иначе Idle
//   - user в AwaitingUser         → Idle (указание уже применено к этому ответу)
//   - user в остальных фазах      → без изменений
func (s State) Advance(turn llm.Turn) State {
	switch turn.Role {
	case llm.RoleModel:
		if turn.FunctionCall != nil {
			return State{Phase: PhaseAwaitingConfirmation, Function: turn.FunctionCall.Name}
		}
		if s.Phase == PhaseAwaitingUser {
			return s
		}
		return Idle()

	case llm.RoleFunction:
		name := ""
		if turn.FunctionResponse != nil {
			name = turn.FunctionResponse.Name
		}
		if name == "" {
			return s
		}
		return State{Phase: PhaseAwaitingUser, Function: name}

	case llm.RoleUser:
		if s.Phase == PhaseAwaitingUser {
			return Idle()
		}
		return s
	}
	return s
}

// FromHistory восстанавливает состояние из истории.
//
// Завершающий ход пользователя не учитывается: это сообщение, на которое
// сейчас отвечает модель.
func FromHistory(history []llm.Turn) State {
	n := len(history)
	if n > 0 && history[n-1].Role == llm.RoleUser {
		n--
	}
	s := Idle()
	for _, t := range history[:n] {
		s = s.Advance(t)
	}
	return s
}

// Resolve возвращает дополнение к системной инструкции.
//
// С явным состоянием это чистый поиск по имени функции; без него
// выполняется обратный проход ResolveInjection.
//
// Различие: явное состояние даёт указание только на первое сообщение
// пользователя после результата функции, а обратный проход повторяет его
// на каждом следующем ходе, пока не выполнится другая функция.
func Resolve(state *State, history []llm.Turn, caps []capability.TaskCapability) (string, bool) {
	if state == nil {
		return ResolveInjection(history, caps)
	}
	if state.Phase != PhaseAwaitingUser {
		return "", false
	}
	return lookup(state.Function, caps)
}
